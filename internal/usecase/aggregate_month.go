package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/k-negishi/google-calendar-hours/internal/domain"
	"github.com/k-negishi/google-calendar-hours/internal/logging"
)

// Report 1回の集計サイクルの結果
type Report struct {
	Month   time.Time
	Range   domain.TimeRange
	Dataset domain.Dataset
	// FailedCalendars 予定の取得に失敗し0時間扱いになったカレンダーID
	FailedCalendars []string
}

// AggregateMonthUseCase 月ごとのカレンダー別合計時間を集計するユースケース
type AggregateMonthUseCase struct {
	directory  CalendarDirectory
	aggregator *EventAggregator
	location   *time.Location
	logger     *slog.Logger
}

// NewAggregateMonthUseCase ユースケースを生成
func NewAggregateMonthUseCase(directory CalendarDirectory, aggregator *EventAggregator, location *time.Location, logger *slog.Logger) *AggregateMonthUseCase {
	if location == nil {
		location = time.UTC
	}
	return &AggregateMonthUseCase{
		directory:  directory,
		aggregator: aggregator,
		location:   location,
		logger:     logging.WithComponent(logger, "aggregate_month"),
	}
}

// Execute カレンダー一覧を取得し、全カレンダーの予定を並行して集計する
// カレンダー一覧の取得に失敗した場合のみエラーを返す
func (uc *AggregateMonthUseCase) Execute(ctx context.Context, token string, month time.Time) (Report, error) {
	timeRange := domain.MonthRange(month, uc.location)
	report := Report{Month: timeRange.Start, Range: timeRange}

	if token == "" {
		return report, domain.ErrMissingCredential
	}
	if err := timeRange.Validate(); err != nil {
		return report, err
	}

	// カレンダー一覧を取得
	calendars, err := uc.directory.ListCalendars(ctx, token)
	if err != nil {
		uc.logger.ErrorContext(ctx, "カレンダー一覧の取得に失敗しました",
			logging.Month(timeRange.Start),
			logging.Err(err))
		return report, fmt.Errorf("カレンダー一覧の取得に失敗しました: %w", err)
	}

	// カレンダーごとの予定取得を並行実行（各結果は取得順のインデックスに格納）
	results := make([]CalendarResult, len(calendars))
	var g errgroup.Group
	for i, cal := range calendars {
		g.Go(func() error {
			results[i] = uc.aggregator.Aggregate(ctx, token, cal.ID, timeRange)
			return nil
		})
	}
	// 個々の失敗はAggregate内で吸収されるためWaitはエラーを返さない
	_ = g.Wait()

	dataset := make(domain.Dataset, 0, len(calendars))
	for i, cal := range calendars {
		if results[i].Failed() {
			report.FailedCalendars = append(report.FailedCalendars, cal.ID)
		}
		dataset = append(dataset, domain.CalendarAggregate{
			ID:         cal.ID,
			Name:       cal.Name,
			TotalHours: results[i].Hours,
			Visible:    true,
		})
	}
	report.Dataset = dataset.DropEmpty()

	uc.logger.InfoContext(ctx, "月次集計が完了しました",
		logging.Month(timeRange.Start),
		slog.Int("calendars", len(calendars)),
		slog.Int("with_events", len(report.Dataset)),
		slog.Int("failed", len(report.FailedCalendars)))

	return report, nil
}
