// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/meibo/internal/model"
)

// RefreshTokenRepository はリフレッシュトークンの永続化インターフェース。
//
// 書き込みは各操作の完了時点でコミットされる。コミット前の保留中の変更が
// 他のストアインスタンスから観測できることを呼び出し側は仮定してはならない。
type RefreshTokenRepository interface {
	// FindByToken はシークレット値でトークンを検索する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, secret string) (*model.RefreshToken, error)

	// FindByUserID は指定ユーザーのトークンを1件返す。見つからない場合はnilを返す。
	// 複数存在する場合は作成日時が最も新しいものを返す。
	FindByUserID(ctx context.Context, userID string) (*model.RefreshToken, error)

	// Create はトークンを保存する。シークレットが既に存在する場合は
	// model.ErrDuplicateRefreshTokenを返す。
	Create(ctx context.Context, token *model.RefreshToken) error

	// Delete は指定IDのトークンを削除する。存在しない場合も成功扱い（冪等）。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全トークンを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は有効期限を過ぎた全トークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// EmployeeRepository は従業員データの永続化インターフェース。
type EmployeeRepository interface {
	// FindByID は指定IDの従業員を取得する。見つからない場合はnilを返す。
	// アーカイブ済みの従業員は返さない。
	FindByID(ctx context.Context, id int64) (*model.Employee, error)

	// SearchByName は名前の部分一致で従業員を検索する。
	SearchByName(ctx context.Context, name string) ([]*model.Employee, error)

	// List はページネーション付きで従業員一覧を取得する。
	// 総件数（アーカイブ済みを除く）も返す。
	List(ctx context.Context, page, pageSize int) (*model.PagedEmployees, error)

	// Create は従業員を作成し、採番されたIDを設定する。
	Create(ctx context.Context, employee *model.Employee) error

	// Update は従業員情報を更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, employee *model.Employee) (bool, error)

	// Archive は指定IDの従業員を論理削除する。存在しない場合も成功扱い（冪等）。
	Archive(ctx context.Context, id int64) error

	// ArchiveRange は指定ID群の従業員を一括で論理削除する。
	ArchiveRange(ctx context.Context, ids []int64) error

	// DeleteArchivedBefore は指定日時より前にアーカイブされた従業員を物理削除し、
	// 削除件数を返す。
	DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
