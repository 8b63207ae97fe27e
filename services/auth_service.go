package services

import (
	"fmt"

	"github.com/Trabajadores202/work-flow-connect-80-89/auth"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
)

type IAuthService interface {
	Register(email, name, password string) (Token, domain.User, error)
	Login(email, password string) (Token, domain.User, error)
}

type Token string

// UserStore is the account slice of the storage layer.
type UserStore interface {
	CreateUser(email, name, passwordHash string) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
}

type AuthService struct {
	users  UserStore
	tokens *auth.TokenService
}

func NewAuthService(users UserStore, tokens *auth.TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(email, name, password string) (Token, domain.User, error) {
	valReq := auth.RegisterRequest{Email: email, Name: name, Password: password}

	// Business rules first, before any expensive cryptographic work.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", domain.User{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidPassword, err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(email, name, hashedPassword)
	if err != nil {
		return "", domain.User{}, err // Propagates ErrUserAlreadyExists if email is taken
	}

	token, err := s.tokens.Generate(user.ID, user.Name)
	if err != nil {
		return "", domain.User{}, apperrors.ErrTokenGeneration
	}
	return Token(token), user, nil
}

func (s *AuthService) Login(email, password string) (Token, domain.User, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration.
		return "", domain.User{}, apperrors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Name)
	if err != nil {
		return "", domain.User{}, apperrors.ErrTokenGeneration
	}
	return Token(token), user, nil
}
