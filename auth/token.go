package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the bearer credentials presented at
// channel-open time. The secret comes from configuration, never from code.
type TokenService struct {
	secret   []byte
	issuer   string
	duration time.Duration
}

func NewTokenService(secret []byte, issuer string, duration time.Duration) *TokenService {
	return &TokenService{secret: secret, issuer: issuer, duration: duration}
}

// Generate creates a signed JWT for a specific user.
func (s *TokenService) Generate(userID, displayName string) (string, error) {
	claims := &CustomClaims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates the signature and expiration of a credential
// and returns the principal it identifies. A failure here is fatal to the
// channel handshake.
func (s *TokenService) Verify(credential string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(credential, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return domain.Principal{}, apperrors.ErrAuth
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return domain.Principal{}, apperrors.ErrAuth
	}
	return domain.Principal{ID: claims.UserID, Name: claims.DisplayName}, nil
}
