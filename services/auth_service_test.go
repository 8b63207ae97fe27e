package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/Trabajadores202/work-flow-connect-80-89/auth"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
	"github.com/Trabajadores202/work-flow-connect-80-89/repositories"
)

func newAuthService(t *testing.T) (*AuthService, *auth.TokenService) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repositories.NewStore(db, slog.Default())
	tokens := auth.NewTokenService([]byte("test-secret"), "chat-test", time.Hour)
	return NewAuthService(store, tokens), tokens
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	req := require.New(t)
	service, tokens := newAuthService(t)

	token, user, err := service.Register("alice@example.com", "Alice", "Str0ng!Passw0rd")
	req.NoError(err)
	req.NotEmpty(token)
	req.NotEmpty(user.ID)
	req.NotEqual("Str0ng!Passw0rd", user.PasswordHash)

	// The issued token resolves back to the registered account.
	principal, err := tokens.Verify(string(token))
	req.NoError(err)
	req.Equal(user.ID, principal.ID)
	req.Equal("Alice", principal.Name)

	token, _, err = service.Login("alice@example.com", "Str0ng!Passw0rd")
	req.NoError(err)
	req.NotEmpty(token)
}

func TestAuthService_DuplicateEmail(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthService(t)

	_, _, err := service.Register("alice@example.com", "Alice", "Str0ng!Passw0rd")
	req.NoError(err)

	_, _, err = service.Register("alice@example.com", "Impostor", "An0ther!Passw0rd")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
}

func TestAuthService_LoginRejections(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthService(t)

	_, _, err := service.Register("alice@example.com", "Alice", "Str0ng!Passw0rd")
	req.NoError(err)

	// Wrong password and unknown account yield the same generic error.
	_, _, err = service.Login("alice@example.com", "wrong-password")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)

	_, _, err = service.Login("nobody@example.com", "Str0ng!Passw0rd")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_WeakPasswordRejected(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthService(t)

	_, _, err := service.Register("alice@example.com", "Alice", "short")
	req.ErrorIs(err, apperrors.ErrInvalidPassword)
}
