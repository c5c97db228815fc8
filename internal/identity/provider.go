// Package identity は資格情報プロバイダーのインターフェースと参照実装を提供する。
// 認証コア（auth.Service）はこのインターフェースのみに依存し、
// パスワードハッシュやロールの保存方式には関知しない。
package identity

import (
	"context"
	"errors"

	"github.com/hitoshi/meibo/internal/model"
)

// ErrUnauthenticated は認証失敗を表す。
// メールアドレス未登録とパスワード誤りのどちらでも同一のエラーを返し、
// アカウントの存在を漏らさない。
var ErrUnauthenticated = errors.New("authentication failed")

// ErrUserAlreadyExists は同一メールアドレスのユーザーが既に存在することを表す。
var ErrUserAlreadyExists = errors.New("user already exists")

// Provider は資格情報の検証とアイデンティティ・ロールの管理インターフェース。
type Provider interface {
	// Authenticate はメールアドレスとパスワードを検証し、ユーザーを返す。
	// 認証失敗時はErrUnauthenticatedを返す。
	Authenticate(ctx context.Context, email, password string) (*model.User, error)

	// CreateUser は新規ユーザーを作成する。
	// 同一メールアドレスが既に存在する場合はErrUserAlreadyExistsを返す。
	CreateUser(ctx context.Context, email, password, displayName string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID string) (*model.User, error)

	// Roles は指定ユーザーに割り当てられたロール名の一覧を返す。
	Roles(ctx context.Context, userID string) ([]string, error)

	// EnsureRole は指定名のロールが存在することを保証する（なければ作成する）。
	EnsureRole(ctx context.Context, name string) error

	// AssignRole は指定ユーザーにロールを割り当てる。既に割当済みの場合は何もしない。
	AssignRole(ctx context.Context, userID, name string) error
}
