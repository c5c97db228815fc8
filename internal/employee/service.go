// Package employee は従業員レコード管理のドメインロジックを提供する。
package employee

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/meibo/internal/model"
	"github.com/hitoshi/meibo/internal/repository"
	"github.com/hitoshi/meibo/internal/security"
)

// defaultPageSize は一覧取得のデフォルトページサイズ。
const defaultPageSize = 20

// maxPageSize は一覧取得のページサイズ上限。
const maxPageSize = 100

// Service は従業員レコードのサービス層。
// 入力のサニタイズ → バリデーション → 永続化のフローを統括する。
type Service struct {
	repo      repository.EmployeeRepository
	sanitizer security.FieldSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.EmployeeRepository, sanitizer security.FieldSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
	}
}

// Get は指定IDの従業員を取得する。
// アーカイブ済みまたは存在しない場合はEMPLOYEE_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("従業員の取得に失敗しました: %w", err)
	}
	if employee == nil {
		return nil, model.NewEmployeeNotFoundError(id)
	}
	return employee, nil
}

// List はページネーション付きで従業員一覧を取得する。
// ページ番号は1始まり。範囲外の値はデフォルトに丸める。
func (s *Service) List(ctx context.Context, page, pageSize int) (*model.PagedEmployees, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	paged, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("従業員一覧の取得に失敗しました: %w", err)
	}
	paged.Page = page
	paged.PageSize = pageSize
	return paged, nil
}

// Search は名前の部分一致で従業員を検索する。
// 検索語が空の場合はバリデーションエラーを返す。
func (s *Service) Search(ctx context.Context, name string) ([]*model.Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("検索する名前を指定してください")
	}

	employees, err := s.repo.SearchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("従業員の検索に失敗しました: %w", err)
	}
	return employees, nil
}

// Create は従業員を作成する。
// 自由入力フィールドはサニタイズしてから検証・保存する。
func (s *Service) Create(ctx context.Context, employee *model.Employee) (*model.Employee, error) {
	s.sanitizeFields(employee)
	if err := validateEmployee(employee); err != nil {
		return nil, err
	}

	now := time.Now()
	employee.CreatedAt = now
	employee.UpdatedAt = now

	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, fmt.Errorf("従業員の作成に失敗しました: %w", err)
	}

	slog.Info("employee created", slog.Int64("employee_id", employee.ID))
	return employee, nil
}

// Update は指定IDの従業員情報を更新する。
// 対象が存在しない場合はEMPLOYEE_NOT_FOUNDエラーを返す。
func (s *Service) Update(ctx context.Context, id int64, employee *model.Employee) (*model.Employee, error) {
	employee.ID = id
	s.sanitizeFields(employee)
	if err := validateEmployee(employee); err != nil {
		return nil, err
	}
	employee.UpdatedAt = time.Now()

	updated, err := s.repo.Update(ctx, employee)
	if err != nil {
		return nil, fmt.Errorf("従業員の更新に失敗しました: %w", err)
	}
	if !updated {
		return nil, model.NewEmployeeNotFoundError(id)
	}

	slog.Info("employee updated", slog.Int64("employee_id", id))
	return employee, nil
}

// Delete は指定IDの従業員を論理削除（アーカイブ）する。
// 対象が存在しない場合はEMPLOYEE_NOT_FOUNDエラーを返す。
func (s *Service) Delete(ctx context.Context, id int64) error {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("従業員の取得に失敗しました: %w", err)
	}
	if employee == nil {
		return model.NewEmployeeNotFoundError(id)
	}

	if err := s.repo.Archive(ctx, id); err != nil {
		return fmt.Errorf("従業員のアーカイブに失敗しました: %w", err)
	}

	slog.Info("employee archived", slog.Int64("employee_id", id))
	return nil
}

// DeleteRange は指定ID群の従業員を一括で論理削除する。
// 存在しないIDが含まれていてもエラーにはしない。
func (s *Service) DeleteRange(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return model.NewValidationError("削除する従業員IDを指定してください")
	}

	if err := s.repo.ArchiveRange(ctx, ids); err != nil {
		return fmt.Errorf("従業員の一括アーカイブに失敗しました: %w", err)
	}

	slog.Info("employees archived", slog.Int("count", len(ids)))
	return nil
}

// sanitizeFields は自由入力フィールドからHTMLタグを除去する。
func (s *Service) sanitizeFields(employee *model.Employee) {
	employee.Name = s.sanitizer.Sanitize(employee.Name)
	employee.Email = s.sanitizer.Sanitize(employee.Email)
	employee.Address = s.sanitizer.Sanitize(employee.Address)
	employee.Phone = s.sanitizer.Sanitize(employee.Phone)
}

// validateEmployee は従業員フィールドの必須・長さ制約を検証する。
func validateEmployee(e *model.Employee) error {
	if e.Name == "" {
		return model.NewValidationError("名前は必須です")
	}
	if len(e.Name) > model.EmployeeNameMaxLen {
		return model.NewValidationError(fmt.Sprintf("名前は%d文字以内で指定してください", model.EmployeeNameMaxLen))
	}
	if e.Email == "" {
		return model.NewValidationError("メールアドレスは必須です")
	}
	if len(e.Email) > model.EmployeeEmailMaxLen {
		return model.NewValidationError(fmt.Sprintf("メールアドレスは%d文字以内で指定してください", model.EmployeeEmailMaxLen))
	}
	if !strings.Contains(e.Email, "@") {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if len(e.Address) > model.EmployeeAddressMaxLen {
		return model.NewValidationError(fmt.Sprintf("住所は%d文字以内で指定してください", model.EmployeeAddressMaxLen))
	}
	if len(e.Phone) > model.EmployeePhoneMaxLen {
		return model.NewValidationError(fmt.Sprintf("電話番号は%d文字以内で指定してください", model.EmployeePhoneMaxLen))
	}
	return nil
}
