package service

import (
	"context"

	"go.uber.org/zap"

	"qrlink/internal/domain"
)

// OwnerService implementa el flujo del propietario: cada modificacion vuelve
// a verificar usuario y contraseña.
type OwnerService struct {
	logger      *zap.Logger
	credentials *CredentialService
	accounts    *AccountService
}

func NewOwnerService(logger *zap.Logger, credentials *CredentialService, accounts *AccountService) *OwnerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OwnerService{
		logger:      logger,
		credentials: credentials,
		accounts:    accounts,
	}
}

type LoginResult struct {
	Username string `json:"username"`
	UUID     string `json:"uuid"`
}

// OwnerSummary son los datos del usuario que ve el propietario en su editor.
type OwnerSummary struct {
	Username string `json:"username"`
	IsActive bool   `json:"isActive"`
}

type OwnerView struct {
	domain.Profile
	User OwnerSummary `json:"user"`
}

func (s *OwnerService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := s.credentials.Verify(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	account, err := s.accounts.GetAccountByUserID(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Username: user.Username, UUID: account.Profile.UUID}, nil
}

func (s *OwnerService) GetOwnerView(ctx context.Context, uuid string) (OwnerView, error) {
	account, err := s.accounts.GetAccount(ctx, uuid)
	if err != nil {
		return OwnerView{}, err
	}
	return OwnerView{
		Profile: account.Profile,
		User: OwnerSummary{
			Username: account.User.Username,
			IsActive: account.User.IsActive,
		},
	}, nil
}

// UpdateProfile verifica credenciales, exige que el perfil sea del usuario y
// aplica solo campos de presentacion, redes y publicacion.
func (s *OwnerService) UpdateProfile(ctx context.Context, uuid, username, password string, patch domain.ProfilePatch) (domain.Profile, error) {
	user, err := s.credentials.Verify(ctx, username, password)
	if err != nil {
		return domain.Profile{}, err
	}
	account, err := s.accounts.GetAccount(ctx, uuid)
	if err != nil {
		return domain.Profile{}, err
	}
	if account.User.ID != user.ID {
		s.logger.Warn("profile update by non owner", zap.String("profile_uuid", uuid))
		return domain.Profile{}, domain.ErrUnauthorized
	}

	patch.QRAsset = nil
	patch.ExpectQRVersion = nil
	profile, err := s.accounts.UpdateProfile(ctx, uuid, patch)
	if err != nil {
		return domain.Profile{}, err
	}
	s.logger.Info("profile updated", zap.String("profile_uuid", uuid))
	return profile, nil
}
