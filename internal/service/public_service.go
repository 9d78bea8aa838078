package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"qrlink/internal/domain"
	"qrlink/internal/observability"
)

type accountReader interface {
	GetAccount(ctx context.Context, uuid string) (domain.Account, error)
}

// PublicView es la proyeccion segura de un perfil visible. No expone id,
// email, estado de la cuenta ni credenciales.
type PublicView struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	Avatar    string `json:"avatar"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Website   string `json:"website,omitempty"`
}

func (v *PublicView) setSocial(p domain.Platform, link string) {
	switch p {
	case domain.PlatformInstagram:
		v.Instagram = link
	case domain.PlatformTwitter:
		v.Twitter = link
	case domain.PlatformTikTok:
		v.TikTok = link
	case domain.PlatformYouTube:
		v.YouTube = link
	case domain.PlatformLinkedIn:
		v.LinkedIn = link
	case domain.PlatformFacebook:
		v.Facebook = link
	}
}

// PublicService decide si un perfil puede verse y arma su vista publica.
type PublicService struct {
	logger   *zap.Logger
	accounts accountReader
	cache    ProfileCache
}

func NewPublicService(logger *zap.Logger, accounts accountReader, cache ProfileCache) *PublicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NoopProfileCache()
	}
	return &PublicService{
		logger:   logger,
		accounts: accounts,
		cache:    cache,
	}
}

// Resolve aplica, en orden: inexistente, no publicado, cuenta inactiva.
func (s *PublicService) Resolve(ctx context.Context, uuid string) (PublicView, error) {
	account, err := s.load(ctx, uuid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			observability.PublicResolvesTotal.WithLabelValues("not_found").Inc()
		}
		return PublicView{}, err
	}
	if !account.Profile.IsPublished {
		observability.PublicResolvesTotal.WithLabelValues("not_published").Inc()
		return PublicView{}, domain.ErrNotPublished
	}
	if !account.User.IsActive {
		observability.PublicResolvesTotal.WithLabelValues("inactive").Inc()
		return PublicView{}, domain.ErrInactive
	}
	observability.PublicResolvesTotal.WithLabelValues("visible").Inc()
	return NewPublicView(account.Profile), nil
}

// NewPublicView canonicaliza redes y web del perfil.
func NewPublicView(profile domain.Profile) PublicView {
	view := PublicView{
		UUID:   profile.UUID,
		Name:   profile.Name,
		Bio:    profile.Bio,
		Avatar: profile.Avatar,
	}
	for _, p := range domain.Platforms() {
		if link, ok := Canonicalize(p, profile.SocialHandles.Get(p)); ok {
			view.setSocial(p, link)
		}
	}
	if website, ok := CanonicalizeWebsite(profile.Website); ok {
		view.Website = website
	}
	return view
}

func (s *PublicService) load(ctx context.Context, uuid string) (domain.Account, error) {
	account, hit, err := s.cache.Get(ctx, uuid)
	if err != nil {
		s.logger.Warn("profile cache read failed", zap.Error(err), zap.String("profile_uuid", uuid))
	}
	if hit {
		return account, nil
	}

	// La generacion se toma antes de leer el store: si una escritura invalida
	// el uuid mientras tanto, Fill no guarda esta lectura.
	generation, genErr := s.cache.Generation(ctx, uuid)
	if genErr != nil {
		s.logger.Warn("profile cache generation read failed", zap.Error(genErr), zap.String("profile_uuid", uuid))
	}

	account, err = s.accounts.GetAccount(ctx, uuid)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("resolve profile failed", zap.Error(err), zap.String("profile_uuid", uuid))
		}
		return domain.Account{}, err
	}
	if genErr != nil {
		return account, nil
	}
	stored, err := s.cache.Fill(ctx, account, generation)
	if err != nil {
		s.logger.Warn("profile cache write failed", zap.Error(err), zap.String("profile_uuid", uuid))
	} else if !stored {
		s.logger.Debug("profile cache fill skipped after concurrent invalidation", zap.String("profile_uuid", uuid))
	}
	return account, nil
}
