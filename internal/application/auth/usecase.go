package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/repository"
	"github.com/jhoicas/nordia-pos/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// TerminalAuthUseCase enrola cajas: verifica la clave de enrolamiento y emite un JWT.
type TerminalAuthUseCase struct {
	terminals repository.TerminalRepository
	keyHash   []byte
	jwtCfg    JWTConfig
}

// NewTerminalAuthUseCase keyHash es el hash bcrypt de la clave compartida (ver HashKey).
func NewTerminalAuthUseCase(terminals repository.TerminalRepository, keyHash string, jwtCfg JWTConfig) *TerminalAuthUseCase {
	return &TerminalAuthUseCase{terminals: terminals, keyHash: []byte(keyHash), jwtCfg: jwtCfg}
}

// Authenticate valida la clave y devuelve el token. Clave incorrecta o enrolamiento
// deshabilitado (sin hash configurado) devuelven domain.ErrUnauthorized.
func (uc *TerminalAuthUseCase) Authenticate(ctx context.Context, in dto.TerminalAuthRequest) (*dto.TerminalAuthResponse, error) {
	terminalID := strings.TrimSpace(in.TerminalID)
	if terminalID == "" || in.EnrollmentKey == "" {
		return nil, domain.ErrInvalidInput
	}
	if len(uc.keyHash) == 0 {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(uc.keyHash, []byte(in.EnrollmentKey)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, exp, err := jwt.Generate(uc.jwtCfg.Secret, terminalID, jwt.RoleTerminal, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	if uc.terminals != nil {
		if err := uc.terminals.Touch(ctx, terminalID); err != nil {
			return nil, fmt.Errorf("registrar terminal: %w", err)
		}
	}
	return &dto.TerminalAuthResponse{Token: token, ExpiresAt: exp}, nil
}

// HashKey genera el hash bcrypt a configurar en TERMINAL_ENROLLMENT_KEY_HASH.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", domain.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
