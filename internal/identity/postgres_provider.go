package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/meibo/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反エラーコード。
const uniqueViolation = "23505"

// PostgresProvider はPostgreSQLとbcryptによる資格情報プロバイダーの参照実装。
type PostgresProvider struct {
	db *sql.DB
}

// NewPostgresProvider はPostgresProviderを生成する。
func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// Authenticate はメールアドレスとパスワードを検証する。
// ユーザー未登録とパスワード不一致は区別せずErrUnauthenticatedを返す。
func (p *PostgresProvider) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user := &model.User{}
	var passwordHash string

	err := p.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at, updated_at
		 FROM users
		 WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &passwordHash, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return nil, ErrUnauthenticated
	}

	return user, nil
}

// CreateUser は新規ユーザーを作成する。
// メールアドレスの一意制約違反はErrUserAlreadyExistsに変換する。
func (p *PostgresProvider) CreateUser(ctx context.Context, email, password, displayName string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.DisplayName, string(hash), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (p *PostgresProvider) FindByID(ctx context.Context, userID string) (*model.User, error) {
	user := &model.User{}
	err := p.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, created_at, updated_at
		 FROM users
		 WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// Roles は指定ユーザーに割り当てられたロール名の一覧を返す。
func (p *PostgresProvider) Roles(ctx context.Context, userID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT role_name FROM user_roles WHERE user_id = $1 ORDER BY role_name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	return roles, nil
}

// EnsureRole は指定名のロールが存在することを保証する。
func (p *PostgresProvider) EnsureRole(ctx context.Context, name string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		name,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure role: %w", err)
	}
	return nil
}

// AssignRole は指定ユーザーにロールを割り当てる。割当済みの場合は何もしない。
func (p *PostgresProvider) AssignRole(ctx context.Context, userID, name string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)
		 ON CONFLICT (user_id, role_name) DO NOTHING`,
		userID, name,
	)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Provider = (*PostgresProvider)(nil)
