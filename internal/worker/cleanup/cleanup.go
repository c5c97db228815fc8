// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 有効期限を過ぎたリフレッシュトークンと、保持期間（デフォルト30日）を
// 超過したアーカイブ済み従業員レコードを日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/meibo/internal/repository"
)

// PurgeRecorder は削除件数をメトリクスへ記録するインターフェース。
type PurgeRecorder interface {
	RecordTokensPurged(count int64)
}

// CleanupJob は期限切れリフレッシュトークンとアーカイブ済み従業員の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	tokens        repository.RefreshTokenRepository
	employees     repository.EmployeeRepository
	logger        *slog.Logger
	metrics       PurgeRecorder
	now           func() time.Time
	RetentionDays int // アーカイブ済み従業員の保持日数（デフォルト: 30）
}

// Option はCleanupJobの生成オプション。
type Option func(*CleanupJob)

// WithMetrics は削除件数の記録先を設定する。
func WithMetrics(recorder PurgeRecorder) Option {
	return func(j *CleanupJob) {
		j.metrics = recorder
	}
}

// WithNow は現在時刻の取得関数を差し替える。テスト用。
func WithNow(now func() time.Time) Option {
	return func(j *CleanupJob) {
		j.now = now
	}
}

// NewCleanupJob は新しいCleanupJobを生成する。
// アーカイブ済み従業員のデフォルト保持日数は30日。
func NewCleanupJob(tokens repository.RefreshTokenRepository, employees repository.EmployeeRepository, logger *slog.Logger, opts ...Option) *CleanupJob {
	job := &CleanupJob{
		tokens:        tokens,
		employees:     employees,
		logger:        logger,
		now:           time.Now,
		RetentionDays: 30,
	}
	for _, opt := range opts {
		opt(job)
	}
	return job
}

// Run は期限切れリフレッシュトークンとアーカイブ済み従業員を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()

	purgedTokens, err := j.tokens.DeleteExpired(ctx, start)
	if err != nil {
		j.logger.Error("期限切れトークンの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れトークンの削除に失敗: %w", err)
	}
	if j.metrics != nil {
		j.metrics.RecordTokensPurged(purgedTokens)
	}

	cutoff := start.AddDate(0, 0, -j.RetentionDays)
	purgedEmployees, err := j.employees.DeleteArchivedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("アーカイブ済み従業員の削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("アーカイブ済み従業員の削除に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("purged_tokens", purgedTokens),
		slog.Int64("purged_employees", purgedEmployees),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
