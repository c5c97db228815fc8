package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/meibo/internal/model"
)

func newTestToken(id, userID, secret string, expiresAt time.Time) *model.RefreshToken {
	return &model.RefreshToken{
		ID:        id,
		UserID:    userID,
		Secret:    secret,
		ExpiresAt: expiresAt,
		Origin:    "1.2.3.4",
		Agent:     "curl/8",
		CreatedAt: time.Now(),
	}
}

func TestMemoryRepo_CreateAndFindByToken(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRefreshTokenRepo()

	token := newTestToken("id-1", "user-1", "secret-1", time.Now().Add(time.Hour))
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.FindByToken(ctx, "secret-1")
	if err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected token, got nil")
	}
	if found.ID != "id-1" || found.UserID != "user-1" {
		t.Errorf("found = %+v, want id-1/user-1", found)
	}
}

func TestMemoryRepo_FindByToken_Absent_ReturnsNil(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRefreshTokenRepo()

	found, err := repo.FindByToken(ctx, "no-such-secret")
	if err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil for absent token, got %+v", found)
	}
}

func TestMemoryRepo_Create_DuplicateSecret_ReturnsConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRefreshTokenRepo()

	expiry := time.Now().Add(time.Hour)
	if err := repo.Create(ctx, newTestToken("id-1", "user-1", "same-secret", expiry)); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	err := repo.Create(ctx, newTestToken("id-2", "user-2", "same-secret", expiry))
	if !errors.Is(err, model.ErrDuplicateRefreshToken) {
		t.Errorf("err = %v, want ErrDuplicateRefreshToken", err)
	}
}

func TestMemoryRepo_FindByUserID_ReturnsNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRefreshTokenRepo()

	older := newTestToken("id-old", "user-1", "secret-old", time.Now().Add(time.Hour))
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newTestToken("id-new", "user-1", "secret-new", time.Now().Add(time.Hour))

	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.FindByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindByUserID failed: %v", err)
	}
	if found == nil || found.ID != "id-new" {
		t.Errorf("found = %+v, want newest token id-new", found)
	}
}

func TestMemoryRepo_Delete_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRefreshTokenRepo()

	token := newTestToken("id-1", "user-1", "secret-1", time.Now().Add(time.Hour))
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Delete(ctx, "id-1"); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}

	// 既に削除済みのIDを再度削除してもエラーにならない
	if err := repo.Delete(ctx, "id-1"); err != nil {
		t.Errorf("second Delete should be a no-op, got error: %v", err)
	}

	found, err := repo.FindByToken(ctx, "secret-1")
	if err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}
	if found != nil {
		t.Errorf("expected token to be deleted, got %+v", found)
	}
}

func TestMemoryRepo_DeleteByUserID_RemovesAllUserTokens(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRefreshTokenRepo()

	expiry := time.Now().Add(time.Hour)
	for _, tt := range []*model.RefreshToken{
		newTestToken("id-1", "user-1", "secret-1", expiry),
		newTestToken("id-2", "user-1", "secret-2", expiry),
		newTestToken("id-3", "user-2", "secret-3", expiry),
	} {
		if err := repo.Create(ctx, tt); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if err := repo.DeleteByUserID(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteByUserID failed: %v", err)
	}

	if repo.Count() != 1 {
		t.Errorf("Count = %d, want 1 (only user-2's token remains)", repo.Count())
	}
	remaining, _ := repo.FindByToken(ctx, "secret-3")
	if remaining == nil {
		t.Error("user-2's token should not have been deleted")
	}
}

func TestMemoryRepo_DeleteExpired_RemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRefreshTokenRepo()

	now := time.Now()
	if err := repo.Create(ctx, newTestToken("id-1", "user-1", "expired", now.Add(-time.Minute))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, newTestToken("id-2", "user-1", "live", now.Add(time.Hour))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deleted, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	live, _ := repo.FindByToken(ctx, "live")
	if live == nil {
		t.Error("live token should remain")
	}
	expired, _ := repo.FindByToken(ctx, "expired")
	if expired != nil {
		t.Error("expired token should have been removed")
	}
}
