// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateRefreshToken はリフレッシュトークンのシークレットが
// 既にストアに存在する場合に返す。エントロピー上は事実上起こらないが、
// 無視せず明示的にハンドリングする。
var ErrDuplicateRefreshToken = errors.New("refresh token secret already exists")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, employee, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	ErrCodePasswordMismatch    = "PASSWORD_MISMATCH"
	ErrCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	ErrCodeDeviceMismatch      = "DEVICE_MISMATCH"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeEmployeeNotFound    = "EMPLOYEE_NOT_FOUND"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレス未登録とパスワード誤りを区別せず、同一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserAlreadyExistsError は登録済みユーザーの重複登録エラーを生成する。
func NewUserAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewPasswordMismatchError はパスワード確認入力の不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "パスワードと確認用パスワードが一致しません。",
		Category: "validation",
		Action:   "同じパスワードを2回入力してください。",
	}
}

// NewInvalidRefreshTokenError は無効・期限切れリフレッシュトークンのエラーを生成する。
// 未知のトークンと期限切れトークンは外部に対して区別しない。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "リフレッシュトークンが無効または期限切れです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewDeviceMismatchError はデバイスバインディング不一致のエラーを生成する。
func NewDeviceMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeDeviceMismatch,
		Message:  "登録されていないデバイスまたはネットワークからのトークン使用です。",
		Category: "auth",
		Action:   "発行時と同じデバイスから利用するか、再度ログインしてください。",
	}
}

// NewValidationError は入力バリデーションエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewEmployeeNotFoundError は従業員未検出エラーを生成する。
func NewEmployeeNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeEmployeeNotFound,
		Message:  fmt.Sprintf("指定された従業員が見つかりません: %d", id),
		Category: "employee",
		Action:   "従業員IDを確認してください。",
	}
}
