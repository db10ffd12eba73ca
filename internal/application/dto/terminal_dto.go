package dto

import "time"

// TerminalAuthRequest entrada para POST /api/auth/terminal.
type TerminalAuthRequest struct {
	TerminalID    string `json:"terminal_id" validate:"required"`
	EnrollmentKey string `json:"enrollment_key" validate:"required"`
}

// TerminalAuthResponse token de la terminal.
type TerminalAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
