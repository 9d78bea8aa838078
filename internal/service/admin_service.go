package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"qrlink/internal/domain"
	"qrlink/internal/email"
)

// AdminService orquesta las operaciones del administrador sobre las cuentas.
// La autorizacion del administrador se resuelve en la capa HTTP.
type AdminService struct {
	logger   *zap.Logger
	accounts *AccountService
	qr       *QRService
	links    LinkBuilder
	mailer   email.Sender
}

func NewAdminService(logger *zap.Logger, accounts *AccountService, qr *QRService, links LinkBuilder, mailer email.Sender) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		logger:   logger,
		accounts: accounts,
		qr:       qr,
		links:    links,
		mailer:   mailer,
	}
}

// CreatedAccount acompaña la cuenta nueva con las URLs derivadas de su uuid.
type CreatedAccount struct {
	User    domain.User    `json:"user"`
	Profile domain.Profile `json:"profile"`
	QRUUID  string         `json:"qrUuid"`
	EditURL string         `json:"editUrl"`
	ViewURL string         `json:"viewUrl"`
}

// QRProfileSummary es el resumen del perfil que muestra el panel.
type QRProfileSummary struct {
	UUID        string  `json:"uuid"`
	Name        string  `json:"name"`
	IsPublished bool    `json:"isPublished"`
	QRCode      *string `json:"qrCode"`
	EditURL     string  `json:"editUrl"`
	ViewURL     string  `json:"viewUrl"`
}

// AccountRow es una fila del listado de administracion.
type AccountRow struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Email     string           `json:"email,omitempty"`
	IsActive  bool             `json:"isActive"`
	Visible   bool             `json:"isVisible"`
	CreatedAt time.Time        `json:"createdAt"`
	QRProfile QRProfileSummary `json:"qrProfile"`
}

func (s *AdminService) CreateUser(ctx context.Context, username, password, emailAddr string) (CreatedAccount, error) {
	account, err := s.accounts.CreateUserWithProfile(ctx, username, password, emailAddr)
	if err != nil {
		return CreatedAccount{}, err
	}

	uuid := account.Profile.UUID
	if profile, err := s.issueAndPersist(ctx, uuid); err != nil {
		s.logger.Warn("initial qr issue failed", zap.Error(err), zap.String("profile_uuid", uuid))
	} else {
		account.Profile = profile
	}

	created := CreatedAccount{
		User:    account.User,
		Profile: account.Profile,
		QRUUID:  uuid,
		EditURL: s.links.EditURL(uuid),
		ViewURL: s.links.ViewURL(uuid),
	}

	if account.User.Email != "" && s.mailer != nil {
		err := s.mailer.SendProfileLinks(ctx, account.User.Email, email.ProfileLinks{
			Username: account.User.Username,
			EditURL:  created.EditURL,
			ViewURL:  created.ViewURL,
		})
		if err != nil {
			s.logger.Warn("send profile links failed", zap.Error(err), zap.String("user_id", account.User.ID))
		}
	}
	return created, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]AccountRow, error) {
	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]AccountRow, 0, len(accounts))
	for _, a := range accounts {
		var qrCode *string
		if a.Profile.QRAsset != nil {
			ref := a.Profile.QRAsset.Ref
			qrCode = &ref
		}
		rows = append(rows, AccountRow{
			ID:        a.User.ID,
			Username:  a.User.Username,
			Email:     a.User.Email,
			IsActive:  a.User.IsActive,
			Visible:   a.Visible(),
			CreatedAt: a.User.CreatedAt,
			QRProfile: QRProfileSummary{
				UUID:        a.Profile.UUID,
				Name:        a.Profile.Name,
				IsPublished: a.Profile.IsPublished,
				QRCode:      qrCode,
				EditURL:     s.links.EditURL(a.Profile.UUID),
				ViewURL:     s.links.ViewURL(a.Profile.UUID),
			},
		})
	}
	return rows, nil
}

// ToggleStatus invierte el estado activo del usuario.
func (s *AdminService) ToggleStatus(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	updated, err := s.accounts.SetActive(ctx, userID, !user.IsActive)
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("account status changed",
		zap.String("user_id", userID),
		zap.Bool("is_active", updated.IsActive),
	)
	return updated, nil
}

// DeleteUser es el unico camino que destruye un perfil.
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	account, err := s.accounts.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	s.qr.Discard(ctx, account.Profile.QRAsset)
	return nil
}

// maxQRAttempts acota los reintentos cuando otro escritor cambia el QR
// entre la lectura y la escritura del perfil.
const maxQRAttempts = 3

// RegenerateQR vuelve a dibujar el QR y guarda la nueva referencia en el perfil.
func (s *AdminService) RegenerateQR(ctx context.Context, uuid string) (domain.QRAsset, error) {
	profile, err := s.persistQR(ctx, uuid, s.qr.Reissue)
	if err != nil {
		return domain.QRAsset{}, err
	}
	asset := *profile.QRAsset
	s.logger.Info("qr regenerated", zap.String("profile_uuid", uuid), zap.Int("version", asset.Version))
	return asset, nil
}

// GetQR devuelve el QR vigente, generandolo la primera vez que se necesita.
func (s *AdminService) GetQR(ctx context.Context, uuid string) (domain.QRAsset, error) {
	profile, err := s.persistQR(ctx, uuid, s.qr.Issue)
	if err != nil {
		return domain.QRAsset{}, err
	}
	if profile.QRAsset == nil {
		return domain.QRAsset{}, domain.ErrConflict
	}
	return *profile.QRAsset, nil
}

func (s *AdminService) issueAndPersist(ctx context.Context, uuid string) (domain.Profile, error) {
	return s.persistQR(ctx, uuid, s.qr.Issue)
}

// persistQR guarda el asset emitido solo si el perfil sigue con el QR que
// se leyo al emitirlo. Si no, descarta el asset nuevo y vuelve a intentar;
// si se guarda, descarta el anterior. Asi ningun objeto queda huerfano.
func (s *AdminService) persistQR(ctx context.Context, uuid string, issue func(context.Context, string) (QRIssue, error)) (domain.Profile, error) {
	var lastErr error
	for attempt := 1; attempt <= maxQRAttempts; attempt++ {
		res, err := issue(ctx, uuid)
		if err != nil {
			return domain.Profile{}, err
		}
		if !res.Created {
			return s.accounts.GetProfile(ctx, uuid)
		}

		expected := res.ExpectedVersion()
		profile, err := s.accounts.UpdateProfile(ctx, uuid, domain.ProfilePatch{
			QRAsset:         &res.Asset,
			ExpectQRVersion: &expected,
		})
		if err != nil {
			s.qr.Discard(ctx, &res.Asset)
			if errors.Is(err, domain.ErrConflict) {
				s.logger.Info("qr update conflicted, retrying",
					zap.String("profile_uuid", uuid),
					zap.Int("attempt", attempt),
				)
				lastErr = err
				continue
			}
			return domain.Profile{}, err
		}
		if prev := res.Previous; prev != nil && prev.Key != res.Asset.Key {
			s.qr.Discard(ctx, prev)
		}
		return profile, nil
	}
	return domain.Profile{}, lastErr
}
