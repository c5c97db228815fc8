// Package security はアプリケーションのセキュリティ機能を提供する。
//
// FieldSanitizerService は従業員レコードの自由入力フィールドをサニタイズし、
// 格納値経由のXSS攻撃からAPI利用側を保護する。
// bluemondayの厳格ポリシーを使用し、HTMLタグを一切通過させない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FieldSanitizerService は自由入力フィールドのサニタイズ機能のインターフェースを定義する。
// 従業員レコードの保存前に使用される。
type FieldSanitizerService interface {
	// Sanitize は入力文字列からHTMLタグを全て除去し、前後の空白を取り除いて返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// fieldSanitizer はFieldSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type fieldSanitizer struct {
	policy *bluemonday.Policy
}

// NewFieldSanitizer はFieldSanitizerServiceの新しいインスタンスを生成する。
// 氏名・住所などの自由入力フィールドにHTMLが現れることは想定しないため、
// 全タグを除去する厳格ポリシーを使用する。
func NewFieldSanitizer() *fieldSanitizer {
	return &fieldSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力文字列からHTMLタグを全て除去して返す。
func (s *fieldSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
