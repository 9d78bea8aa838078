package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"qrlink/internal/domain"
	"qrlink/internal/email"
	"qrlink/internal/repository"
	"qrlink/internal/storage"
)

const testBaseURL = "https://links.example.com"

type mockProfileCache struct {
	mu      sync.Mutex
	items   map[string]domain.Account
	gens    map[string]int64
	deletes []string
	getErr  error
	sets    int
	skipped int
}

func newMockProfileCache() *mockProfileCache {
	return &mockProfileCache{
		items: make(map[string]domain.Account),
		gens:  make(map[string]int64),
	}
}

func (m *mockProfileCache) Get(_ context.Context, uuid string) (domain.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.Account{}, false, m.getErr
	}
	a, ok := m.items[uuid]
	return a, ok, nil
}

func (m *mockProfileCache) Generation(_ context.Context, uuid string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[uuid], nil
}

func (m *mockProfileCache) Fill(_ context.Context, account domain.Account, generation int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uuid := account.Profile.UUID
	if m.gens[uuid] != generation {
		m.skipped++
		return false, nil
	}
	m.sets++
	m.items[uuid] = account
	return true, nil
}

func (m *mockProfileCache) Invalidate(_ context.Context, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[uuid]++
	m.deletes = append(m.deletes, uuid)
	delete(m.items, uuid)
	return nil
}

type mockAssetStore struct {
	mu      sync.Mutex
	puts    []string
	deleted []string
	err     error
}

func (m *mockAssetStore) Put(_ context.Context, key, _ string, data []byte) (storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return storage.Object{}, m.err
	}
	m.puts = append(m.puts, key)
	return storage.Object{Ref: fmt.Sprintf("https://cdn.example.com/%s?bytes=%d", key, len(data)), Key: key}, nil
}

func (m *mockAssetStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

type mockMailer struct {
	lastTo    string
	lastLinks email.ProfileLinks
	calls     int
	err       error
}

func (m *mockMailer) SendProfileLinks(_ context.Context, toEmail string, links email.ProfileLinks) error {
	m.calls++
	m.lastTo = toEmail
	m.lastLinks = links
	return m.err
}

// encodeRecorder reemplaza qrcode.Encode y guarda cada contenido codificado.
// hook, si esta, corre una sola vez fuera del lock, entre la lectura del
// perfil y el guardado del asset.
type encodeRecorder struct {
	mu       sync.Mutex
	payloads []string
	hook     func()
}

func (r *encodeRecorder) encode(content string, _ qrcode.RecoveryLevel, size int) ([]byte, error) {
	r.mu.Lock()
	r.payloads = append(r.payloads, content)
	hook := r.hook
	r.hook = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return []byte(fmt.Sprintf("png:%d:%s", size, content)), nil
}

type testStack struct {
	repo     *repository.MemoryAccountRepository
	cache    *mockProfileCache
	assets   *mockAssetStore
	mailer   *mockMailer
	encoder  *encodeRecorder
	links    LinkBuilder
	accounts *AccountService
	qr       *QRService
	public   *PublicService
	admin    *AdminService
	owner    *OwnerService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := zap.NewNop()
	st := &testStack{
		repo:    repository.NewMemoryAccountRepository(),
		cache:   newMockProfileCache(),
		assets:  &mockAssetStore{},
		mailer:  &mockMailer{},
		encoder: &encodeRecorder{},
		links:   NewLinkBuilder(testBaseURL + "/"),
	}
	st.accounts = NewAccountService(logger, st.repo, st.cache)
	qr, err := NewQRService(logger, st.accounts, st.assets, st.links, QROptions{Size: 128, RecoveryLevel: "high"})
	if err != nil {
		t.Fatalf("new qr service: %v", err)
	}
	qr.encode = st.encoder.encode
	st.qr = qr
	st.public = NewPublicService(logger, st.accounts, st.cache)
	st.admin = NewAdminService(logger, st.accounts, st.qr, st.links, st.mailer)
	st.owner = NewOwnerService(logger, NewCredentialService(st.repo), st.accounts)
	return st
}

func (st *testStack) mustCreate(t *testing.T, username, password string) domain.Account {
	t.Helper()
	account, err := st.accounts.CreateUserWithProfile(context.Background(), username, password, "")
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return account
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
