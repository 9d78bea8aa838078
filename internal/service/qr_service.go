package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"qrlink/internal/domain"
	"qrlink/internal/observability"
	"qrlink/internal/storage"
)

const (
	qrContentType  = "image/png"
	defaultQRSize  = 256
	minQRSize      = 64
	maxQRSize      = 2048
	defaultQRLevel = "medium"
)

var ErrInvalidQROptions = errors.New("invalid qr options")

type profileReader interface {
	GetProfile(ctx context.Context, uuid string) (domain.Profile, error)
}

// QROptions define como se dibuja la imagen; nunca cambia el contenido.
type QROptions struct {
	Size          int
	RecoveryLevel string
}

// QRService genera las imagenes QR que apuntan a {baseUrl}/scan/{uuid}.
// Solo lee perfiles; quien llama persiste el asset devuelto.
type QRService struct {
	logger    *zap.Logger
	profiles  profileReader
	assets    storage.AssetStore
	links     LinkBuilder
	size      int
	level     qrcode.RecoveryLevel
	levelName string
	encode    func(content string, level qrcode.RecoveryLevel, size int) ([]byte, error)
	now       func() time.Time
}

func NewQRService(logger *zap.Logger, profiles profileReader, assets storage.AssetStore, links LinkBuilder, opts QROptions) (*QRService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if assets == nil {
		assets = storage.NewInlineAssetStore()
	}
	size := opts.Size
	if size == 0 {
		size = defaultQRSize
	}
	if size < minQRSize || size > maxQRSize {
		return nil, fmt.Errorf("%w: size must be between %d and %d", ErrInvalidQROptions, minQRSize, maxQRSize)
	}
	levelName := strings.ToLower(strings.TrimSpace(opts.RecoveryLevel))
	if levelName == "" {
		levelName = defaultQRLevel
	}
	level, err := parseRecoveryLevel(levelName)
	if err != nil {
		return nil, err
	}
	return &QRService{
		logger:    logger,
		profiles:  profiles,
		assets:    assets,
		links:     links,
		size:      size,
		level:     level,
		levelName: levelName,
		encode:    qrcode.Encode,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Payload es el contenido que todo QR del perfil debe codificar.
func (s *QRService) Payload(uuid string) string {
	return s.links.ViewURL(uuid)
}

// QRIssue es el resultado de Issue o Reissue. Previous es el asset que
// tenia el perfil al momento de leerlo; quien persiste Asset lo usa como
// precondicion y lo descarta despues.
type QRIssue struct {
	Asset    domain.QRAsset
	Previous *domain.QRAsset
	Created  bool
}

// ExpectedVersion es la version de QR que el perfil debe seguir teniendo
// para que Asset reemplace a Previous.
func (i QRIssue) ExpectedVersion() int {
	if i.Previous == nil {
		return 0
	}
	return i.Previous.Version
}

// Issue devuelve el asset vigente si ya codifica el payload esperado; si no,
// genera uno nuevo y Created queda en true.
func (s *QRService) Issue(ctx context.Context, uuid string) (QRIssue, error) {
	profile, err := s.profiles.GetProfile(ctx, uuid)
	if err != nil {
		return QRIssue{}, err
	}
	if current := profile.QRAsset; current != nil && current.Payload == s.Payload(profile.UUID) {
		return QRIssue{Asset: *current, Previous: current}, nil
	}
	asset, err := s.render(ctx, profile)
	if err != nil {
		return QRIssue{}, err
	}
	return QRIssue{Asset: asset, Previous: profile.QRAsset, Created: true}, nil
}

// Reissue fuerza una nueva imagen con los parametros actuales. El payload es
// identico al de Issue para el mismo uuid.
func (s *QRService) Reissue(ctx context.Context, uuid string) (QRIssue, error) {
	profile, err := s.profiles.GetProfile(ctx, uuid)
	if err != nil {
		return QRIssue{}, err
	}
	asset, err := s.render(ctx, profile)
	if err != nil {
		return QRIssue{}, err
	}
	return QRIssue{Asset: asset, Previous: profile.QRAsset, Created: true}, nil
}

// Discard borra del storage un asset que ya no se usa.
func (s *QRService) Discard(ctx context.Context, asset *domain.QRAsset) {
	if asset == nil || asset.Key == "" {
		return
	}
	if err := s.assets.Delete(ctx, asset.Key); err != nil {
		s.logger.Warn("qr asset delete failed", zap.Error(err), zap.String("key", asset.Key))
	}
}

func (s *QRService) render(ctx context.Context, profile domain.Profile) (domain.QRAsset, error) {
	version := 1
	if profile.QRAsset != nil {
		version = profile.QRAsset.Version + 1
	}
	payload := s.Payload(profile.UUID)

	png, err := s.encode(payload, s.level, s.size)
	if err != nil {
		observability.QRRendersTotal.WithLabelValues("encode_error").Inc()
		return domain.QRAsset{}, fmt.Errorf("encode qr: %w", err)
	}

	// Dos renders concurrentes calculan la misma version; el sufijo evita
	// que uno pise el objeto del otro.
	key := fmt.Sprintf("qr/%s/v%d-%s.png", profile.UUID, version, uuid.NewString())
	obj, err := s.assets.Put(ctx, key, qrContentType, png)
	if err != nil {
		observability.QRRendersTotal.WithLabelValues("store_error").Inc()
		return domain.QRAsset{}, fmt.Errorf("%w: store qr: %v", domain.ErrUnavailable, err)
	}
	observability.QRRendersTotal.WithLabelValues("ok").Inc()

	s.logger.Info("qr rendered",
		zap.String("profile_uuid", profile.UUID),
		zap.Int("version", version),
		zap.Int("size", s.size),
	)
	return domain.QRAsset{
		Ref:           obj.Ref,
		Key:           obj.Key,
		Payload:       payload,
		Format:        qrContentType,
		Size:          s.size,
		RecoveryLevel: s.levelName,
		Version:       version,
		GeneratedAt:   s.now(),
	}, nil
}

func parseRecoveryLevel(name string) (qrcode.RecoveryLevel, error) {
	switch name {
	case "low":
		return qrcode.Low, nil
	case "medium":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	}
	return 0, fmt.Errorf("%w: unknown recovery level %q", ErrInvalidQROptions, name)
}
