package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"qrlink/internal/domain"
)

// MemoryAccountRepository guarda cuentas en memoria. Cada escritura reemplaza
// el registro completo bajo el lock, asi los lectores nunca ven un patch a medias.
type MemoryAccountRepository struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	profiles      map[string]domain.Profile
	byUsername    map[string]string
	profileByUser map[string]string
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		users:         make(map[string]domain.User),
		profiles:      make(map[string]domain.Profile),
		byUsername:    make(map[string]string),
		profileByUser: make(map[string]string),
	}
}

func (r *MemoryAccountRepository) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[account.User.Username]; exists {
		return domain.ErrDuplicateUsername
	}
	if _, exists := r.users[account.User.ID]; exists {
		return fmt.Errorf("user id %s already in use", account.User.ID)
	}
	if _, exists := r.profiles[account.Profile.UUID]; exists {
		return fmt.Errorf("profile uuid %s already in use", account.Profile.UUID)
	}

	r.users[account.User.ID] = account.User
	r.profiles[account.Profile.UUID] = cloneProfile(account.Profile)
	r.byUsername[account.User.Username] = account.User.ID
	r.profileByUser[account.User.ID] = account.Profile.UUID
	return nil
}

func (r *MemoryAccountRepository) GetUser(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (r *MemoryAccountRepository) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return r.users[id], nil
}

func (r *MemoryAccountRepository) GetProfile(_ context.Context, uuid string) (domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[uuid]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return cloneProfile(profile), nil
}

func (r *MemoryAccountRepository) GetAccount(_ context.Context, uuid string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[uuid]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return domain.Account{User: r.users[profile.UserID], Profile: cloneProfile(profile)}, nil
}

func (r *MemoryAccountRepository) GetAccountByUserID(_ context.Context, userID string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accountByUserLocked(userID)
}

func (r *MemoryAccountRepository) List(_ context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(r.users))
	for id := range r.users {
		account, err := r.accountByUserLocked(id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		a, b := accounts[i].User, accounts[j].User
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return accounts, nil
}

func (r *MemoryAccountRepository) UpdateProfile(_ context.Context, uuid string, patch domain.ProfilePatch) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.profiles[uuid]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	if err := patch.CheckPrecondition(current); err != nil {
		return domain.Profile{}, err
	}
	next := cloneProfile(current)
	patch.Apply(&next)
	next.UpdatedAt = time.Now().UTC()
	r.profiles[uuid] = next
	return cloneProfile(next), nil
}

func (r *MemoryAccountRepository) SetActive(_ context.Context, userID string, active bool) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	user.IsActive = active
	r.users[userID] = user
	return r.accountByUserLocked(userID)
}

func (r *MemoryAccountRepository) Delete(_ context.Context, userID string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, err := r.accountByUserLocked(userID)
	if err != nil {
		return domain.Account{}, err
	}
	delete(r.profiles, account.Profile.UUID)
	delete(r.profileByUser, userID)
	delete(r.byUsername, account.User.Username)
	delete(r.users, userID)
	return account, nil
}

func (r *MemoryAccountRepository) Ping(_ context.Context) error {
	return nil
}

func (r *MemoryAccountRepository) accountByUserLocked(userID string) (domain.Account, error) {
	user, ok := r.users[userID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	profile, ok := r.profiles[r.profileByUser[userID]]
	if !ok {
		return domain.Account{}, fmt.Errorf("%w: profile missing for user %s", domain.ErrUnavailable, userID)
	}
	return domain.Account{User: user, Profile: cloneProfile(profile)}, nil
}

func cloneProfile(p domain.Profile) domain.Profile {
	if p.QRAsset != nil {
		asset := *p.QRAsset
		p.QRAsset = &asset
	}
	return p
}
