package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/meibo/internal/model"
)

// MemoryRefreshTokenRepo はインメモリのリフレッシュトークンリポジトリ。
// ストア契約の参照実装であり、テストおよび単体動作確認で使用する。
// 全操作はミューテックスで直列化される。
type MemoryRefreshTokenRepo struct {
	mu       sync.Mutex
	bySecret map[string]*model.RefreshToken
}

// NewMemoryRefreshTokenRepo はMemoryRefreshTokenRepoを生成する。
func NewMemoryRefreshTokenRepo() *MemoryRefreshTokenRepo {
	return &MemoryRefreshTokenRepo{
		bySecret: make(map[string]*model.RefreshToken),
	}
}

// FindByToken はシークレット値でトークンを検索する。見つからない場合はnilを返す。
func (r *MemoryRefreshTokenRepo) FindByToken(_ context.Context, secret string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.bySecret[secret]
	if !ok {
		return nil, nil
	}
	copied := *token
	return &copied, nil
}

// FindByUserID は指定ユーザーのトークンを1件返す。見つからない場合はnilを返す。
// 複数存在する場合は作成日時が最も新しいものを返す。
func (r *MemoryRefreshTokenRepo) FindByUserID(_ context.Context, userID string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var newest *model.RefreshToken
	for _, token := range r.bySecret {
		if token.UserID != userID {
			continue
		}
		if newest == nil || token.CreatedAt.After(newest.CreatedAt) {
			newest = token
		}
	}
	if newest == nil {
		return nil, nil
	}
	copied := *newest
	return &copied, nil
}

// Create はトークンを保存する。シークレットが既に存在する場合は
// model.ErrDuplicateRefreshTokenを返す。
func (r *MemoryRefreshTokenRepo) Create(_ context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySecret[token.Secret]; exists {
		return model.ErrDuplicateRefreshToken
	}
	copied := *token
	r.bySecret[token.Secret] = &copied
	return nil
}

// Delete は指定IDのトークンを削除する。存在しない場合も成功扱い（冪等）。
func (r *MemoryRefreshTokenRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for secret, token := range r.bySecret {
		if token.ID == id {
			delete(r.bySecret, secret)
			return nil
		}
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全トークンを削除する。
func (r *MemoryRefreshTokenRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for secret, token := range r.bySecret {
		if token.UserID == userID {
			delete(r.bySecret, secret)
		}
	}
	return nil
}

// DeleteExpired は有効期限を過ぎた全トークンを削除し、削除件数を返す。
func (r *MemoryRefreshTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for secret, token := range r.bySecret {
		if !token.ExpiresAt.After(now) {
			delete(r.bySecret, secret)
			count++
		}
	}
	return count, nil
}

// Count は保存されているトークン数を返す。テスト用。
func (r *MemoryRefreshTokenRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySecret)
}

// compile-time interface check
var _ RefreshTokenRepository = (*MemoryRefreshTokenRepo)(nil)
