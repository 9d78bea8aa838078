package repository

import (
	"context"

	"qrlink/internal/domain"
)

// AccountRepository define el contrato de persistencia de usuarios y perfiles.
// Las implementaciones devuelven domain.ErrNotFound, domain.ErrDuplicateUsername
// o errores envueltos en domain.ErrUnavailable.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetProfile(ctx context.Context, uuid string) (domain.Profile, error)
	GetAccount(ctx context.Context, uuid string) (domain.Account, error)
	GetAccountByUserID(ctx context.Context, userID string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	UpdateProfile(ctx context.Context, uuid string, patch domain.ProfilePatch) (domain.Profile, error)
	SetActive(ctx context.Context, userID string, active bool) (domain.Account, error)
	Delete(ctx context.Context, userID string) (domain.Account, error)
	Ping(ctx context.Context) error
}
