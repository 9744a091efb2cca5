package usecase

import (
	"context"

	"github.com/k-negishi/google-calendar-hours/internal/domain"
)

// CalendarDirectory ユーザーが参照できるカレンダー一覧を取得するポート
type CalendarDirectory interface {
	ListCalendars(ctx context.Context, token string) ([]domain.CalendarSummary, error)
}

// EventSource カレンダーの予定を期間指定で取得するポート
type EventSource interface {
	ListEvents(ctx context.Context, token, calendarID string, timeRange domain.TimeRange) ([]domain.Event, error)
}
