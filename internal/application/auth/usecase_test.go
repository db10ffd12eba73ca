package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/pkg/jwt"
)

type touchedTerminals struct{ ids []string }

func (r *touchedTerminals) Touch(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return nil
}

func TestAuthenticate(t *testing.T) {
	hash, err := HashKey("clave-caja")
	require.NoError(t, err)
	repo := &touchedTerminals{}
	uc := NewTerminalAuthUseCase(repo, hash, JWTConfig{Secret: "s", ExpMinutes: 60, Issuer: "nordia"})

	out, err := uc.Authenticate(context.Background(), dto.TerminalAuthRequest{TerminalID: " caja-1 ", EnrollmentKey: "clave-caja"})
	require.NoError(t, err)
	id, role, err := jwt.Parse("s", out.Token)
	require.NoError(t, err)
	assert.Equal(t, "caja-1", id)
	assert.Equal(t, jwt.RoleTerminal, role)
	assert.Equal(t, []string{"caja-1"}, repo.ids)

	_, err = uc.Authenticate(context.Background(), dto.TerminalAuthRequest{TerminalID: "caja-1", EnrollmentKey: "otra"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Authenticate(context.Background(), dto.TerminalAuthRequest{EnrollmentKey: "clave-caja"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthenticate_SinHashConfigurado(t *testing.T) {
	uc := NewTerminalAuthUseCase(nil, "", JWTConfig{Secret: "s"})
	_, err := uc.Authenticate(context.Background(), dto.TerminalAuthRequest{TerminalID: "caja-1", EnrollmentKey: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
