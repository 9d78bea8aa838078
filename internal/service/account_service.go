package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"qrlink/internal/domain"
	"qrlink/internal/repository"
)

const maxUsernameLength = 64

// validate es el mismo motor que usa gin para binding:"email".
var validate = validator.New()

// AccountService coordina reglas de negocio de usuarios y perfiles.
type AccountService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	cache    ProfileCache
}

func NewAccountService(logger *zap.Logger, accounts repository.AccountRepository, cache ProfileCache) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NoopProfileCache()
	}
	return &AccountService{
		logger:   logger,
		accounts: accounts,
		cache:    cache,
	}
}

// CreateUserWithProfile crea el usuario y su unico perfil en la misma operacion.
func (s *AccountService) CreateUserWithProfile(ctx context.Context, username, password, email string) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return domain.Account{}, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if strings.TrimSpace(password) == "" {
		return domain.Account{}, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	if len(username) > maxUsernameLength || strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return domain.Account{}, fmt.Errorf("%w: username must be a single word up to %d characters", domain.ErrValidation, maxUsernameLength)
	}
	if email != "" {
		if err := validate.Var(email, "email"); err != nil {
			return domain.Account{}, fmt.Errorf("%w: invalid email", domain.ErrValidation)
		}
	}

	if _, err := s.accounts.GetUserByUsername(ctx, username); err == nil {
		return domain.Account{}, domain.ErrDuplicateUsername
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return domain.Account{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		IsActive:     true,
		CreatedAt:    now,
	}
	account := domain.Account{
		User: user,
		Profile: domain.Profile{
			UUID:        uuid.NewString(),
			UserID:      user.ID,
			IsPublished: false,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Account{}, err
	}
	s.logger.Info("account created",
		zap.String("user_id", user.ID),
		zap.String("profile_uuid", account.Profile.UUID),
	)
	return account, nil
}

func (s *AccountService) GetProfile(ctx context.Context, uuid string) (domain.Profile, error) {
	return s.accounts.GetProfile(ctx, uuid)
}

func (s *AccountService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.accounts.GetUser(ctx, id)
}

// GetAccount devuelve usuario y perfil leidos de forma consistente.
func (s *AccountService) GetAccount(ctx context.Context, uuid string) (domain.Account, error) {
	return s.accounts.GetAccount(ctx, uuid)
}

func (s *AccountService) GetAccountByUserID(ctx context.Context, userID string) (domain.Account, error) {
	return s.accounts.GetAccountByUserID(ctx, userID)
}

// ListAll devuelve las cuentas ordenadas por fecha de creacion ascendente.
func (s *AccountService) ListAll(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx)
}

// UpdateProfile aplica solo los campos presentes en el patch, de forma atomica.
func (s *AccountService) UpdateProfile(ctx context.Context, uuid string, patch domain.ProfilePatch) (domain.Profile, error) {
	if err := patch.Validate(uuid); err != nil {
		return domain.Profile{}, err
	}
	profile, err := s.accounts.UpdateProfile(ctx, uuid, patch)
	if err != nil {
		return domain.Profile{}, err
	}
	s.invalidate(ctx, uuid)
	return profile, nil
}

func (s *AccountService) SetActive(ctx context.Context, userID string, active bool) (domain.User, error) {
	account, err := s.accounts.SetActive(ctx, userID, active)
	if err != nil {
		return domain.User{}, err
	}
	s.invalidate(ctx, account.Profile.UUID)
	return account.User, nil
}

// DeleteUser borra el usuario y, en cascada, su perfil. No es reversible.
func (s *AccountService) DeleteUser(ctx context.Context, userID string) (domain.Account, error) {
	account, err := s.accounts.Delete(ctx, userID)
	if err != nil {
		return domain.Account{}, err
	}
	s.invalidate(ctx, account.Profile.UUID)
	s.logger.Info("account deleted",
		zap.String("user_id", account.User.ID),
		zap.String("profile_uuid", account.Profile.UUID),
	)
	return account, nil
}

func (s *AccountService) Ping(ctx context.Context) error {
	return s.accounts.Ping(ctx)
}

func (s *AccountService) invalidate(ctx context.Context, uuid string) {
	if err := s.cache.Invalidate(ctx, uuid); err != nil {
		s.logger.Warn("profile cache invalidation failed", zap.Error(err), zap.String("profile_uuid", uuid))
	}
}
