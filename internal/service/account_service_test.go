package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"qrlink/internal/domain"
)

func TestAccountServiceCreateUserWithProfile_Defaults(t *testing.T) {
	st := newTestStack(t)
	account, err := st.accounts.CreateUserWithProfile(context.Background(), " alice ", "secret1", "alice@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if account.User.ID == "" || account.Profile.UUID == "" {
		t.Fatalf("expected ids to be assigned")
	}
	if account.User.Username != "alice" {
		t.Fatalf("expected trimmed username, got %q", account.User.Username)
	}
	if !account.User.IsActive {
		t.Fatalf("expected new user to be active")
	}
	if account.Profile.IsPublished {
		t.Fatalf("expected new profile to be unpublished")
	}
	if account.Profile.UserID != account.User.ID {
		t.Fatalf("expected profile owned by user")
	}
	if account.User.PasswordHash == "" || account.User.PasswordHash == "secret1" {
		t.Fatalf("expected hashed password")
	}
}

func TestAccountServiceCreateUserWithProfile_Validation(t *testing.T) {
	st := newTestStack(t)
	cases := []struct {
		username, password, email string
	}{
		{"", "secret1", ""},
		{"   ", "secret1", ""},
		{"alice", "", ""},
		{"alice", "   ", ""},
		{"al ice", "secret1", ""},
		{"alice", "secret1", "not-an-email"},
		{"alice", "secret1", "Bob Smith <bob@example.com>"},
		{"alice", "secret1", "<carol@example.com>"},
		{"alice", "secret1", "alice@example.com, eve@example.com"},
	}
	for _, tc := range cases {
		_, err := st.accounts.CreateUserWithProfile(context.Background(), tc.username, tc.password, tc.email)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation for %+v, got %v", tc, err)
		}
	}
	accounts, _ := st.accounts.ListAll(context.Background())
	if len(accounts) != 0 {
		t.Fatalf("expected no accounts, got %d", len(accounts))
	}
}

func TestAccountServiceCreateUserWithProfile_StoresBareEmail(t *testing.T) {
	st := newTestStack(t)
	account, err := st.accounts.CreateUserWithProfile(context.Background(), "bob", "secret1", "  bob@example.com ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	stored, err := st.accounts.GetUser(context.Background(), account.User.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.Email != "bob@example.com" {
		t.Fatalf("expected bare address to be stored, got %q", stored.Email)
	}
}

func TestAccountServiceCreateUserWithProfile_Duplicate(t *testing.T) {
	st := newTestStack(t)
	st.mustCreate(t, "alice", "secret1")

	_, err := st.accounts.CreateUserWithProfile(context.Background(), "alice", "other", "")
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	accounts, err := st.accounts.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected exactly one account, got %d", len(accounts))
	}
}

func TestAccountServiceUpdateProfile_RejectsUUIDChange(t *testing.T) {
	st := newTestStack(t)
	account := st.mustCreate(t, "alice", "secret1")
	uuid := account.Profile.UUID

	_, err := st.accounts.UpdateProfile(context.Background(), uuid, domain.ProfilePatch{
		UUID: strPtr("another-uuid"),
		Name: strPtr("Alice"),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	for i := 0; i < 5; i++ {
		profile, err := st.accounts.UpdateProfile(context.Background(), uuid, domain.ProfilePatch{
			UUID: strPtr(uuid),
			Name: strPtr(fmt.Sprintf("Alice %d", i)),
		})
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if profile.UUID != uuid {
			t.Fatalf("expected uuid %s, got %s", uuid, profile.UUID)
		}
	}

	stored, err := st.accounts.GetProfile(context.Background(), uuid)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if stored.UUID != uuid || stored.Name != "Alice 4" {
		t.Fatalf("unexpected stored profile: %+v", stored)
	}
}

func TestAccountServiceUpdateProfile_AppliesOnlyPresentFields(t *testing.T) {
	st := newTestStack(t)
	account := st.mustCreate(t, "alice", "secret1")
	uuid := account.Profile.UUID
	ctx := context.Background()

	_, err := st.accounts.UpdateProfile(ctx, uuid, domain.ProfilePatch{
		Name:    strPtr("Alice"),
		Bio:     strPtr("Hello"),
		Socials: map[domain.Platform]string{domain.PlatformInstagram: "@alice"},
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	profile, err := st.accounts.UpdateProfile(ctx, uuid, domain.ProfilePatch{Bio: strPtr("Updated")})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if profile.Name != "Alice" || profile.Bio != "Updated" || profile.Instagram != "@alice" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestAccountServiceUpdateProfile_NotFoundAndInvalidatesCache(t *testing.T) {
	st := newTestStack(t)
	account := st.mustCreate(t, "alice", "secret1")

	if _, err := st.accounts.UpdateProfile(context.Background(), "missing", domain.ProfilePatch{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.accounts.UpdateProfile(context.Background(), account.Profile.UUID, domain.ProfilePatch{IsPublished: boolPtr(true)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(st.cache.deletes) != 1 || st.cache.deletes[0] != account.Profile.UUID {
		t.Fatalf("expected cache invalidation for %s, got %+v", account.Profile.UUID, st.cache.deletes)
	}
}

func TestAccountServiceDeleteUser_Cascades(t *testing.T) {
	st := newTestStack(t)
	account := st.mustCreate(t, "alice", "secret1")
	ctx := context.Background()

	if _, err := st.accounts.DeleteUser(ctx, account.User.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.accounts.GetProfile(ctx, account.Profile.UUID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected profile gone, got %v", err)
	}
	if _, err := st.accounts.GetUser(ctx, account.User.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	if _, err := st.accounts.DeleteUser(ctx, account.User.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAccountServiceUpdateProfile_ConcurrentPatchesAreWhole(t *testing.T) {
	st := newTestStack(t)
	account := st.mustCreate(t, "alice", "secret1")
	uuid := account.Profile.UUID

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := fmt.Sprintf("v%d", i)
			_, _ = st.accounts.UpdateProfile(context.Background(), uuid, domain.ProfilePatch{
				Name: strPtr(v),
				Bio:  strPtr(v),
			})
		}(i)
	}
	wg.Wait()

	profile, err := st.accounts.GetProfile(context.Background(), uuid)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.Name != profile.Bio {
		t.Fatalf("expected whole patch applied, got name=%q bio=%q", profile.Name, profile.Bio)
	}
}
