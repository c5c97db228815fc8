// Package token はアクセストークンの発行・検証とリフレッシュシークレットの生成を提供する。
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// refreshSecretBytes はリフレッシュシークレットのエントロピー（バイト数）。
// 256ビット以上を保証する。
const refreshSecretBytes = 32

// Config はトークン発行の設定を保持する。
// 署名鍵はプロセス起動時に1回読み込み、以後変更しない。
type Config struct {
	Key            []byte        // HMAC-SHA256署名鍵
	Issuer         string        // issクレーム
	Audience       string        // audクレーム
	AccessTokenTTL time.Duration // アクセストークン有効期間
}

// Claims はアクセストークンのクレームセットを表す。
// 標準クレームに加えてメールアドレスとロール一覧を持つ。
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
}

// Issuer はHMAC-SHA256署名のJWTアクセストークンを発行・検証する。
// 設定はコンストラクタで明示的に受け取り、グローバル状態は持たない。
type Issuer struct {
	config Config
	now    func() time.Time
}

// IssuerOption はIssuerの生成オプション。
type IssuerOption func(*Issuer)

// WithNow は現在時刻の取得関数を差し替える（テスト用）。
func WithNow(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer はIssuerを生成する。署名鍵が空の場合はエラーを返す。
func NewIssuer(config Config, opts ...IssuerOption) (*Issuer, error) {
	if len(config.Key) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	if config.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("access token TTL must be positive")
	}

	issuer := &Issuer{
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// Issue は指定されたユーザーに対するアクセストークンを発行する。
// クレーム: sub=ユーザーID、email、roles、jti=呼び出しごとに新規のUUID、
// iat=nbf=現在時刻、exp=現在時刻+TTL。
func (i *Issuer) Issue(userID, email string, roles []string) (string, error) {
	issuedAt := i.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.config.Issuer,
			Audience:  jwt.ClaimStrings{i.config.Audience},
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.config.AccessTokenTTL)),
		},
		Email: email,
		Roles: roles,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Key)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// Verify はアクセストークンを検証し、クレームを返す。
// 署名アルゴリズムはHS256に固定し、iss/aud/exp/nbfを強制する。
// 同じ鍵を持つ任意の保持者がこのコアを呼び戻さずに検証できることと等価の検証を行う。
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.config.Key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithAudience(i.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify access token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("access token is invalid")
	}

	return claims, nil
}

// GenerateRefreshSecret は暗号学的に安全な乱数からリフレッシュシークレットを生成する。
// 32バイト（256ビット）をURL安全なbase64（パディングなし）で符号化して返す。
// 消費側ではデコードせず、等価比較のみに使用する。
func GenerateRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
