package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/k-negishi/google-calendar-hours/internal/domain"
	"github.com/k-negishi/google-calendar-hours/internal/logging"
)

// ErrSuperseded より新しい集計サイクルが開始されたため結果を破棄した
var ErrSuperseded = errors.New("より新しい集計サイクルが開始されたため結果を破棄しました")

// ErrNoMonthSelected 再取得の対象となる月がまだ選択されていない
var ErrNoMonthSelected = errors.New("月が選択されていません")

// MonthAggregator 月次集計のポート
type MonthAggregator interface {
	Execute(ctx context.Context, token string, month time.Time) (Report, error)
}

// Snapshot ダッシュボードの現在状態のコピー
type Snapshot struct {
	Cycle           uint64
	State           domain.CycleState
	Month           time.Time
	Dataset         domain.Dataset
	FailedCalendars []string
	Err             error
}

// Dashboard 選択中の月の集計結果を保持する
// 集計サイクルごとに単調増加するIDを払い出し、最新でないサイクルの結果は反映しない
type Dashboard struct {
	aggregator MonthAggregator
	logger     *slog.Logger

	mu      sync.Mutex
	latest  uint64
	state   domain.CycleState
	month   time.Time
	dataset domain.Dataset
	failed  []string
	err     error
}

// NewDashboard ダッシュボードを生成
func NewDashboard(aggregator MonthAggregator, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		aggregator: aggregator,
		logger:     logging.WithComponent(logger, "dashboard"),
		state:      domain.StateIdle,
	}
}

// Select 月を選択して集計サイクルを実行する
// 実行中に別の月が選択された場合、このサイクルの結果は破棄されErrSupersededを返す
func (d *Dashboard) Select(ctx context.Context, token string, month time.Time) (Snapshot, error) {
	if token == "" {
		return d.Snapshot(), domain.ErrMissingCredential
	}

	d.mu.Lock()
	d.latest++
	cycle := d.latest
	d.state = domain.StateFetching
	d.month = month
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "集計サイクルを開始します", logging.Cycle(cycle), logging.Month(month))

	report, err := d.aggregator.Execute(ctx, token, month)

	d.mu.Lock()
	defer d.mu.Unlock()

	if cycle != d.latest {
		d.logger.InfoContext(ctx, "古い集計サイクルの結果を破棄します",
			logging.Cycle(cycle),
			slog.Uint64("latest", d.latest))
		return d.snapshotLocked(), ErrSuperseded
	}

	if err != nil {
		d.state = domain.StateFailed
		d.dataset = nil
		d.failed = nil
		d.err = err
		return d.snapshotLocked(), err
	}

	d.state = domain.StateReady
	d.month = report.Month
	d.dataset = report.Dataset
	d.failed = report.FailedCalendars
	d.err = nil
	return d.snapshotLocked(), nil
}

// Retry 現在選択中の月で集計サイクルをやり直す
func (d *Dashboard) Retry(ctx context.Context, token string) (Snapshot, error) {
	d.mu.Lock()
	month := d.month
	d.mu.Unlock()

	if month.IsZero() {
		return d.Snapshot(), ErrNoMonthSelected
	}
	return d.Select(ctx, token, month)
}

// Toggle 指定カレンダーの表示・非表示を切り替える（再取得はしない）
func (d *Dashboard) Toggle(calendarID string) (Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.dataset.IndexOf(calendarID)
	if i < 0 {
		return d.snapshotLocked(), false
	}

	// 既に渡したスナップショットに影響しないようコピーしてから変更
	dataset := d.dataset.Clone()
	dataset[i].Visible = !dataset[i].Visible
	d.dataset = dataset
	return d.snapshotLocked(), true
}

// Snapshot 現在の状態を返す
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Dashboard) snapshotLocked() Snapshot {
	var failed []string
	if d.failed != nil {
		failed = append([]string(nil), d.failed...)
	}
	return Snapshot{
		Cycle:           d.latest,
		State:           d.state,
		Month:           d.month,
		Dataset:         d.dataset.Clone(),
		FailedCalendars: failed,
		Err:             d.err,
	}
}
