package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/meibo/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反エラーコード。
const uniqueViolation = "23505"

// PostgresRefreshTokenRepo はPostgreSQLを使用したリフレッシュトークンリポジトリ。
// 各操作は単一ステートメントで実行され、ステートメントのコミット時点まで
// 他の接続から変更は観測されない。
type PostgresRefreshTokenRepo struct {
	db *sql.DB
}

// NewPostgresRefreshTokenRepo はPostgresRefreshTokenRepoを生成する。
func NewPostgresRefreshTokenRepo(db *sql.DB) *PostgresRefreshTokenRepo {
	return &PostgresRefreshTokenRepo{db: db}
}

// FindByToken はシークレット値でトークンを検索する。見つからない場合はnilを返す。
func (r *PostgresRefreshTokenRepo) FindByToken(ctx context.Context, secret string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, secret, expires_at, origin, agent, created_at
		 FROM refresh_tokens
		 WHERE secret = $1`,
		secret,
	).Scan(&token.ID, &token.UserID, &token.Secret, &token.ExpiresAt, &token.Origin, &token.Agent, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの検索に失敗しました: %w", err)
	}

	return token, nil
}

// FindByUserID は指定ユーザーのトークンを1件返す。見つからない場合はnilを返す。
// 複数存在する場合は作成日時が最も新しいものを返す。
func (r *PostgresRefreshTokenRepo) FindByUserID(ctx context.Context, userID string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, secret, expires_at, origin, agent, created_at
		 FROM refresh_tokens
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&token.ID, &token.UserID, &token.Secret, &token.ExpiresAt, &token.Origin, &token.Agent, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーIDによるリフレッシュトークンの検索に失敗しました: %w", err)
	}

	return token, nil
}

// Create はトークンを保存する。シークレットの一意制約違反は
// model.ErrDuplicateRefreshTokenに変換する。
func (r *PostgresRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, secret, expires_at, origin, agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		token.ID, token.UserID, token.Secret, token.ExpiresAt, token.Origin, token.Agent, token.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return model.ErrDuplicateRefreshToken
		}
		return fmt.Errorf("リフレッシュトークンの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのトークンを削除する。存在しない場合も成功扱い（冪等）。
func (r *PostgresRefreshTokenRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("リフレッシュトークンの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全トークンを削除する。
func (r *PostgresRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーのリフレッシュトークンの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteExpired は有効期限を過ぎた全トークンを削除し、削除件数を返す。
func (r *PostgresRefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れリフレッシュトークンの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// compile-time interface check
var _ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)
