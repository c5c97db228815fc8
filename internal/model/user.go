// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーのアイデンティティを表す。
// 資格情報（パスワードハッシュ）とロールの管理はidentityプロバイダー側の責務であり、
// 認証コアからは読み取り専用として扱う。
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RefreshToken は長期有効なリフレッシュトークンのレコードを表す。
// Secretは高エントロピーの不透明文字列で、発行時のネットワークオリジンと
// クライアントエージェントに紐付く（デバイスバインディング）。
// Origin/Agentは作成時に固定され、以後更新されない。
type RefreshToken struct {
	ID        string
	UserID    string
	Secret    string
	ExpiresAt time.Time
	Origin    string // 発行時のクライアントIPアドレス
	Agent     string // 発行時のUser-Agent文字列
	CreatedAt time.Time
}

// Live はトークンが有効期間内かどうかを返す。
// ストアに存在し、かつ now < ExpiresAt のときのみ「生きている」とみなす。
func (rt *RefreshToken) Live(now time.Time) bool {
	return now.Before(rt.ExpiresAt)
}

// MatchesDevice は発行時に記録したオリジン/エージェントと一致するかを返す。
func (rt *RefreshToken) MatchesDevice(origin, agent string) bool {
	return rt.Origin == origin && rt.Agent == agent
}
