package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/k-negishi/google-calendar-hours/internal/domain"
	"github.com/k-negishi/google-calendar-hours/internal/logging"
)

// CalendarResult 1カレンダー分の集計結果
// Errが非nilの場合Hoursは0で、取得に失敗したことを表す
type CalendarResult struct {
	CalendarID string
	Hours      float64
	Err        error
}

// Failed 取得に失敗したかどうか
func (r CalendarResult) Failed() bool {
	return r.Err != nil
}

// EventAggregator 1カレンダーの予定を取得し合計時間を算出する
type EventAggregator struct {
	events  EventSource
	timeout time.Duration
	logger  *slog.Logger
}

// NewEventAggregator 集計器を生成（timeoutが0の場合はリクエスト単位のタイムアウトなし）
func NewEventAggregator(events EventSource, timeout time.Duration, logger *slog.Logger) *EventAggregator {
	return &EventAggregator{
		events:  events,
		timeout: timeout,
		logger:  logging.WithComponent(logger, "event_aggregator"),
	}
}

// Aggregate 指定カレンダーの期間内の合計時間を返す
// 取得に失敗しても集計全体は止めず、0時間として結果を返す
func (a *EventAggregator) Aggregate(ctx context.Context, token, calendarID string, timeRange domain.TimeRange) CalendarResult {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	events, err := a.events.ListEvents(ctx, token, calendarID, timeRange)
	if err != nil {
		a.logger.WarnContext(ctx, "予定の取得に失敗したため0時間として扱います",
			logging.CalendarID(calendarID),
			logging.Err(err))
		return CalendarResult{CalendarID: calendarID, Err: err}
	}

	hours := SumHours(events)
	a.logger.DebugContext(ctx, "予定を集計しました",
		logging.CalendarID(calendarID),
		logging.Count(len(events)),
		slog.Float64("hours", hours))

	return CalendarResult{CalendarID: calendarID, Hours: hours}
}

// TotalHours 指定カレンダーの期間内の合計時間（失敗時は0）
func (a *EventAggregator) TotalHours(ctx context.Context, token, calendarID string, timeRange domain.TimeRange) float64 {
	return a.Aggregate(ctx, token, calendarID, timeRange).Hours
}

// SumHours 予定の所要時間を単純に合計する（丸めは表示時のみ）
func SumHours(events []domain.Event) float64 {
	var total float64
	for _, event := range events {
		total += event.Hours()
	}
	return total
}
