package storage

import (
	"context"
	"encoding/base64"
	"strings"
)

// Object identifica un archivo guardado. Key queda vacio cuando el contenido
// viaja embebido en Ref.
type Object struct {
	Ref string
	Key string
}

// AssetStore guarda las imagenes generadas (por ejemplo los QR).
type AssetStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (Object, error)
	Delete(ctx context.Context, key string) error
}

type inlineAssetStore struct{}

// NewInlineAssetStore devuelve un store que codifica el contenido como data URL.
func NewInlineAssetStore() AssetStore {
	return inlineAssetStore{}
}

func (inlineAssetStore) Put(_ context.Context, _ string, contentType string, data []byte) (Object, error) {
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	ref := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return Object{Ref: ref}, nil
}

func (inlineAssetStore) Delete(_ context.Context, _ string) error {
	return nil
}
