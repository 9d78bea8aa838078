package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"qrlink/internal/domain"
	"qrlink/internal/repository"
)

// CredentialService verifica usuario y contraseña en cada llamada; no emite
// sesiones ni tokens.
type CredentialService struct {
	users     repository.AccountRepository
	dummyHash []byte
}

func NewCredentialService(users repository.AccountRepository) *CredentialService {
	// Hash de relleno para que un usuario inexistente cueste lo mismo que una
	// contraseña incorrecta.
	dummy, err := bcrypt.GenerateFromPassword([]byte("qrlink-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("generate dummy hash: %v", err))
	}
	return &CredentialService{
		users:     users,
		dummyHash: dummy,
	}
}

// Verify devuelve el usuario autenticado o domain.ErrUnauthorized, sin
// distinguir si fallo el usuario o la contraseña.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("credential service not configured")
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return domain.User{}, domain.ErrUnauthorized
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return domain.User{}, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrUnauthorized
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}
