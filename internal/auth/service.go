// Package auth はユーザー登録・ログイン・トークンリフレッシュのセッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/meibo/internal/identity"
	"github.com/hitoshi/meibo/internal/model"
	"github.com/hitoshi/meibo/internal/repository"
	"github.com/hitoshi/meibo/internal/token"
)

// ErrInvalidCredentials は認証失敗を表す。
// メールアドレス未登録とパスワード誤りのどちらでも同一のエラーを返す。
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrTokenExpiredOrUnknown はリフレッシュトークンが期限切れまたは未知であることを表す。
// どちらの場合も区別できない同一のエラーを返す。
var ErrTokenExpiredOrUnknown = errors.New("refresh token is expired or unknown")

// ErrDeviceMismatch はリフレッシュトークンの発行時デバイスと
// 利用時デバイスが一致しないことを表す。トークンレコードは削除されない。
var ErrDeviceMismatch = errors.New("refresh token presented from a different device")

// RegistrationStatus はユーザー登録の結果を表す。
type RegistrationStatus int

const (
	// RegistrationSuccess は登録成功。
	RegistrationSuccess RegistrationStatus = iota
	// RegistrationUserAlreadyExists は同一メールアドレスのユーザーが既に存在。
	RegistrationUserAlreadyExists
	// RegistrationOtherError は上記以外の失敗。
	RegistrationOtherError
)

// refreshStatus はリフレッシュトークン検証の判定結果。
// 例外ではなく明示的な値として扱い、判定と副作用（削除・エラー変換）を分離する。
type refreshStatus int

const (
	refreshValid refreshStatus = iota
	refreshUnknown
	refreshExpired
	refreshDeviceMismatch
)

// refreshLockStripes はトークン単位の排他に使うストライプ数。
const refreshLockStripes = 64

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
type MetricsRecorder interface {
	// RecordLogin はログイン試行の成否を記録する。
	RecordLogin(success bool)
	// RecordRegistration は登録結果（success / conflict / error）を記録する。
	RecordRegistration(outcome string)
	// RecordRefresh はリフレッシュ結果（valid / expired / unknown / device_mismatch）を記録する。
	RecordRefresh(outcome string)
}

// ServiceConfig はセッション管理の設定。
type ServiceConfig struct {
	RefreshTokenTTL time.Duration // リフレッシュトークン有効期間
	DefaultRole     string        // 登録時に付与するロール名
}

// LoginResult はログイン成功時に発行されるトークンの組。
type LoginResult struct {
	AccessToken  string
	RefreshToken string
}

// Service はセッション管理のビジネスロジックを提供する。
type Service struct {
	provider identity.Provider
	issuer   *token.Issuer
	tokens   repository.RefreshTokenRepository
	metrics  MetricsRecorder
	config   ServiceConfig
	now      func() time.Time

	// refreshLocks はシークレット単位のクリティカルセクション。
	// 同一トークンへの並行リフレッシュを直列化し、
	// 期限切れトークンの検証と削除の間の競合を防ぐ。
	refreshLocks [refreshLockStripes]sync.Mutex
}

// ServiceOption はServiceの生成オプション。
type ServiceOption func(*Service)

// WithNow は現在時刻の取得関数を差し替える（テスト用）。
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics はメトリクスレコーダーを設定する。
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService はServiceを生成する。
func NewService(
	provider identity.Provider,
	issuer *token.Issuer,
	tokens repository.RefreshTokenRepository,
	config ServiceConfig,
	opts ...ServiceOption,
) *Service {
	service := &Service{
		provider: provider,
		issuer:   issuer,
		tokens:   tokens,
		config:   config,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Register は新規ユーザーを登録し、デフォルトロールを割り当てる。
// 同一メールアドレスが既に存在する場合はRegistrationUserAlreadyExistsを返す。
func (s *Service) Register(ctx context.Context, email, password, displayName string) (RegistrationStatus, error) {
	user, err := s.provider.CreateUser(ctx, email, password, displayName)
	if err != nil {
		if errors.Is(err, identity.ErrUserAlreadyExists) {
			s.recordRegistration("conflict")
			return RegistrationUserAlreadyExists, nil
		}
		s.recordRegistration("error")
		return RegistrationOtherError, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.provider.EnsureRole(ctx, s.config.DefaultRole); err != nil {
		s.recordRegistration("error")
		return RegistrationOtherError, fmt.Errorf("failed to ensure default role: %w", err)
	}
	if err := s.provider.AssignRole(ctx, user.ID, s.config.DefaultRole); err != nil {
		s.recordRegistration("error")
		return RegistrationOtherError, fmt.Errorf("failed to assign default role: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", s.config.DefaultRole),
	)
	s.recordRegistration("success")
	return RegistrationSuccess, nil
}

// Login は資格情報を検証し、アクセストークンとリフレッシュトークンを発行する。
// リフレッシュトークンには呼び出し元のオリジン（IPアドレス）と
// エージェント（User-Agent）を発行時の値として固定で記録する。
func (s *Service) Login(ctx context.Context, email, password, origin, agent string) (*LoginResult, error) {
	user, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		s.recordLogin(false)
		if errors.Is(err, identity.ErrUnauthenticated) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	roles, err := s.provider.Roles(ctx, user.ID)
	if err != nil {
		s.recordLogin(false)
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}

	accessToken, err := s.issuer.Issue(user.ID, user.Email, roles)
	if err != nil {
		s.recordLogin(false)
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshSecret, err := s.createRefreshToken(ctx, user.ID, origin, agent)
	if err != nil {
		s.recordLogin(false)
		return nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("origin", origin),
	)
	s.recordLogin(true)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshSecret,
	}, nil
}

// createRefreshToken はリフレッシュトークンを生成して保存し、シークレットを返す。
// シークレット衝突（ユニーク制約違反）の場合は1回だけ再生成して再試行する。
func (s *Service) createRefreshToken(ctx context.Context, userID, origin, agent string) (string, error) {
	now := s.now()

	for attempt := 0; attempt < 2; attempt++ {
		secret, err := token.GenerateRefreshSecret()
		if err != nil {
			return "", fmt.Errorf("failed to generate refresh secret: %w", err)
		}

		refreshToken := &model.RefreshToken{
			ID:        uuid.New().String(),
			UserID:    userID,
			Secret:    secret,
			ExpiresAt: now.Add(s.config.RefreshTokenTTL),
			Origin:    origin,
			Agent:     agent,
			CreatedAt: now,
		}

		err = s.tokens.Create(ctx, refreshToken)
		if err == nil {
			return secret, nil
		}
		if !errors.Is(err, model.ErrDuplicateRefreshToken) {
			return "", fmt.Errorf("failed to store refresh token: %w", err)
		}
	}

	return "", fmt.Errorf("failed to store refresh token: secret collision persisted after retry")
}

// Refresh はリフレッシュトークンを検証し、新しいアクセストークンを発行する。
// リフレッシュシークレット自体はローテーションせず、有効期限まで再利用できる。
//
// 判定結果ごとの動作:
//   - 期限切れ: レコードを削除し、ErrTokenExpiredOrUnknownを返す
//   - 未知: ErrTokenExpiredOrUnknownを返す（期限切れと区別できない）
//   - デバイス不一致: レコードは保持したままErrDeviceMismatchを返す
func (s *Service) Refresh(ctx context.Context, secret, origin, agent string) (string, error) {
	// 同一シークレットの並行リフレッシュを直列化する
	lock := s.refreshLock(secret)
	lock.Lock()
	defer lock.Unlock()

	refreshToken, err := s.tokens.FindByToken(ctx, secret)
	if err != nil {
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	switch validateRefreshToken(refreshToken, origin, agent, s.now()) {
	case refreshUnknown:
		s.recordRefresh("unknown")
		return "", ErrTokenExpiredOrUnknown

	case refreshExpired:
		if err := s.tokens.Delete(ctx, refreshToken.ID); err != nil {
			return "", fmt.Errorf("failed to delete expired refresh token: %w", err)
		}
		s.recordRefresh("expired")
		return "", ErrTokenExpiredOrUnknown

	case refreshDeviceMismatch:
		slog.Warn("refresh token presented from a different device",
			slog.String("user_id", refreshToken.UserID),
			slog.String("origin", origin),
		)
		s.recordRefresh("device_mismatch")
		return "", ErrDeviceMismatch
	}

	user, err := s.provider.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// ユーザーが削除済みのトークンは未知と同様に扱い、レコードも削除する
		if err := s.tokens.Delete(ctx, refreshToken.ID); err != nil {
			return "", fmt.Errorf("failed to delete orphaned refresh token: %w", err)
		}
		s.recordRefresh("unknown")
		return "", ErrTokenExpiredOrUnknown
	}

	roles, err := s.provider.Roles(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load user roles: %w", err)
	}

	accessToken, err := s.issuer.Issue(user.ID, user.Email, roles)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}

	s.recordRefresh("valid")
	return accessToken, nil
}

// Logout は指定ユーザーの全リフレッシュトークンを失効させる。
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.tokens.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// validateRefreshToken はトークンの判定を行う純粋関数。
// 判定の優先順位: 未知 > 期限切れ > デバイス不一致 > 有効。
func validateRefreshToken(rt *model.RefreshToken, origin, agent string, now time.Time) refreshStatus {
	if rt == nil {
		return refreshUnknown
	}
	if !rt.Live(now) {
		return refreshExpired
	}
	if !rt.MatchesDevice(origin, agent) {
		return refreshDeviceMismatch
	}
	return refreshValid
}

// refreshLock はシークレットに対応するストライプのミューテックスを返す。
func (s *Service) refreshLock(secret string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(secret))
	return &s.refreshLocks[h.Sum32()%refreshLockStripes]
}

func (s *Service) recordLogin(success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(success)
	}
}

func (s *Service) recordRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRegistration(outcome)
	}
}

func (s *Service) recordRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRefresh(outcome)
	}
}
