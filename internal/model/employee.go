// Package model はドメインモデルを定義する。
package model

import "time"

// Employee は従業員レコードを表す。
// 削除は物理削除ではなくArchivedフラグによる論理削除で行う。
type Employee struct {
	ID        int64
	Name      string
	Email     string
	Address   string
	Phone     string
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 従業員フィールドの最大長。入力バリデーションで使用する。
const (
	EmployeeNameMaxLen    = 100
	EmployeeEmailMaxLen   = 100
	EmployeeAddressMaxLen = 250
	EmployeePhoneMaxLen   = 15
)

// PagedEmployees はページネーション付きの従業員一覧を表す。
// PageとPageSizeには丸め後の実際に適用された値が入る。
type PagedEmployees struct {
	Items      []*Employee
	TotalCount int
	Page       int
	PageSize   int
}
