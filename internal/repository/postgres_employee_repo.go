package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/meibo/internal/model"
)

// PostgresEmployeeRepo はPostgreSQLを使用した従業員リポジトリ。
// 削除は全てarchivedフラグによる論理削除で行う。
type PostgresEmployeeRepo struct {
	db *sql.DB
}

// NewPostgresEmployeeRepo はPostgresEmployeeRepoを生成する。
func NewPostgresEmployeeRepo(db *sql.DB) *PostgresEmployeeRepo {
	return &PostgresEmployeeRepo{db: db}
}

// FindByID は指定IDの従業員を取得する。見つからない場合・アーカイブ済みの場合はnilを返す。
func (r *PostgresEmployeeRepo) FindByID(ctx context.Context, id int64) (*model.Employee, error) {
	employee := &model.Employee{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, address, phone, archived, created_at, updated_at
		 FROM employees
		 WHERE id = $1 AND archived = FALSE`,
		id,
	).Scan(&employee.ID, &employee.Name, &employee.Email, &employee.Address, &employee.Phone,
		&employee.Archived, &employee.CreatedAt, &employee.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("従業員の取得に失敗しました: %w", err)
	}

	return employee, nil
}

// SearchByName は名前の部分一致（大文字小文字を区別しない）で従業員を検索する。
func (r *PostgresEmployeeRepo) SearchByName(ctx context.Context, name string) ([]*model.Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, address, phone, archived, created_at, updated_at
		 FROM employees
		 WHERE name ILIKE '%' || $1 || '%' AND archived = FALSE
		 ORDER BY id`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("従業員の検索に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanEmployees(rows)
}

// List はページネーション付きで従業員一覧を取得する。
func (r *PostgresEmployeeRepo) List(ctx context.Context, page, pageSize int) (*model.PagedEmployees, error) {
	offset := (page - 1) * pageSize

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, address, phone, archived, created_at, updated_at
		 FROM employees
		 WHERE archived = FALSE
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		pageSize, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("従業員一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items, err := scanEmployees(rows)
	if err != nil {
		return nil, err
	}

	var total int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE archived = FALSE`,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("従業員数の取得に失敗しました: %w", err)
	}

	return &model.PagedEmployees{Items: items, TotalCount: total}, nil
}

// Create は従業員を作成し、採番されたIDをemployeeに設定する。
func (r *PostgresEmployeeRepo) Create(ctx context.Context, employee *model.Employee) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO employees (name, email, address, phone, archived, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		 RETURNING id`,
		employee.Name, employee.Email, employee.Address, employee.Phone,
		employee.CreatedAt, employee.UpdatedAt,
	).Scan(&employee.ID)
	if err != nil {
		return fmt.Errorf("従業員の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は従業員情報を更新する。対象が存在しない場合はfalseを返す。
func (r *PostgresEmployeeRepo) Update(ctx context.Context, employee *model.Employee) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE employees
		 SET name = $2, email = $3, address = $4, phone = $5, updated_at = $6
		 WHERE id = $1 AND archived = FALSE`,
		employee.ID, employee.Name, employee.Email, employee.Address, employee.Phone, employee.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("従業員の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Archive は指定IDの従業員を論理削除する。存在しない場合も成功扱い（冪等）。
func (r *PostgresEmployeeRepo) Archive(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE employees
		 SET archived = TRUE, archived_at = now()
		 WHERE id = $1 AND archived = FALSE`,
		id,
	)
	if err != nil {
		return fmt.Errorf("従業員のアーカイブに失敗しました: %w", err)
	}
	return nil
}

// ArchiveRange は指定ID群の従業員を一括で論理削除する。
func (r *PostgresEmployeeRepo) ArchiveRange(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE employees
		 SET archived = TRUE, archived_at = now()
		 WHERE id = ANY($1) AND archived = FALSE`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("従業員の一括アーカイブに失敗しました: %w", err)
	}
	return nil
}

// DeleteArchivedBefore は指定日時より前にアーカイブされた従業員を物理削除する。
func (r *PostgresEmployeeRepo) DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM employees
		 WHERE archived = TRUE AND archived_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("アーカイブ済み従業員の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// scanEmployees は結果セットから従業員一覧を読み出す。
func scanEmployees(rows *sql.Rows) ([]*model.Employee, error) {
	var employees []*model.Employee
	for rows.Next() {
		employee := &model.Employee{}
		if err := rows.Scan(&employee.ID, &employee.Name, &employee.Email, &employee.Address,
			&employee.Phone, &employee.Archived, &employee.CreatedAt, &employee.UpdatedAt); err != nil {
			return nil, fmt.Errorf("従業員レコードの読み取りに失敗しました: %w", err)
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("従業員レコードの走査に失敗しました: %w", err)
	}
	return employees, nil
}

// compile-time interface check
var _ EmployeeRepository = (*PostgresEmployeeRepo)(nil)
