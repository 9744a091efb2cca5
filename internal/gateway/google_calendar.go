package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/k-negishi/google-calendar-hours/internal/domain"
)

// DefaultMaxResults 1カレンダーあたりの取得上限（これを超える予定は集計されない）
const DefaultMaxResults = 2500

// GoogleCalendarRepository Google Calendar APIを使用したカレンダー一覧・予定取得の実装
type GoogleCalendarRepository struct {
	endpoint   string
	transport  http.RoundTripper
	timezone   *time.Location
	maxResults int64
}

// Options リポジトリの生成オプション
type Options struct {
	// Endpoint APIのベースURL（空の場合は本番のGoogle APIを使用）
	Endpoint string
	// HTTPClient 下位のHTTPクライアント（テスト用）
	HTTPClient *http.Client
	Timezone   *time.Location
	MaxResults int64
}

// NewGoogleCalendarRepository Google Calendarリポジトリを作成
func NewGoogleCalendarRepository(opts Options) *GoogleCalendarRepository {
	transport := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		transport = opts.HTTPClient.Transport
	}
	timezone := opts.Timezone
	if timezone == nil {
		timezone = time.UTC
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	return &GoogleCalendarRepository{
		endpoint:   opts.Endpoint,
		transport:  transport,
		timezone:   timezone,
		maxResults: maxResults,
	}
}

// newService アクセストークンをBearerヘッダーとして付与するCalendar APIサービスを作成
func (r *GoogleCalendarRepository) newService(ctx context.Context, token string) (*calendar.Service, error) {
	if token == "" {
		return nil, domain.ErrMissingCredential
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: tokenSource,
			Base:   r.transport,
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if r.endpoint != "" {
		opts = append(opts, option.WithEndpoint(r.endpoint))
	}

	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %w", err)
	}
	return service, nil
}

// ListCalendars ユーザーが参照できるカレンダー一覧を取得（先頭ページのみ）
func (r *GoogleCalendarRepository) ListCalendars(ctx context.Context, token string) ([]domain.CalendarSummary, error) {
	service, err := r.newService(ctx, token)
	if err != nil {
		return nil, err
	}

	list, err := service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, classifyError("カレンダー一覧の取得", err)
	}

	calendars := make([]domain.CalendarSummary, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, domain.CalendarSummary{
			ID:   item.Id,
			Name: item.Summary,
		})
	}
	return calendars, nil
}

// ListEvents 指定期間に重なる予定を取得（繰り返し予定は個別に展開）
func (r *GoogleCalendarRepository) ListEvents(ctx context.Context, token, calendarID string, timeRange domain.TimeRange) ([]domain.Event, error) {
	service, err := r.newService(ctx, token)
	if err != nil {
		return nil, err
	}

	// RFC3339形式で送信（timeMinはinclusive、timeMaxはexclusive）
	events, err := service.Events.List(calendarID).
		TimeMin(timeRange.Start.Format(time.RFC3339)).
		TimeMax(timeRange.End.Format(time.RFC3339)).
		SingleEvents(true).
		MaxResults(r.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError("カレンダーイベントの取得", err)
	}

	domainEvents := make([]domain.Event, 0, len(events.Items))
	for _, event := range events.Items {
		domainEvent, err := r.convertToEvent(event)
		if err != nil {
			return nil, &domain.MalformedDataError{Op: "カレンダーイベントの変換", Err: err}
		}
		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, nil
}

// convertToEvent Google Calendar APIのイベントをドメインエンティティに変換
func (r *GoogleCalendarRepository) convertToEvent(event *calendar.Event) (domain.Event, error) {
	domainEvent := domain.Event{
		ID:    event.Id,
		Title: event.Summary,
	}

	// タイトルが空の場合は「（無題）」に設定
	if domainEvent.Title == "" {
		domainEvent.Title = "（無題）"
	}

	startDateTime := dateTimeOf(event.Start)
	endDateTime := dateTimeOf(event.End)

	// 開始・終了のどちらかに日時がない場合は終日（または終了未定）として扱う
	if startDateTime == "" || endDateTime == "" {
		domainEvent.IsAllDay = true
		return domainEvent, nil
	}

	startTime, err := time.Parse(time.RFC3339, startDateTime)
	if err != nil {
		return domain.Event{}, fmt.Errorf("開始時刻の解析に失敗しました: %w", err)
	}
	endTime, err := time.Parse(time.RFC3339, endDateTime)
	if err != nil {
		return domain.Event{}, fmt.Errorf("終了時刻の解析に失敗しました: %w", err)
	}

	domainEvent.StartTime = startTime.In(r.timezone)
	domainEvent.EndTime = endTime.In(r.timezone)
	return domainEvent, nil
}

func dateTimeOf(eventTime *calendar.EventDateTime) string {
	if eventTime == nil {
		return ""
	}
	return eventTime.DateTime
}

// classifyError APIエラーを認証エラー・不正データ・通信エラーに分類
func classifyError(op string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &domain.MalformedDataError{Op: op, Err: err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusForbidden && isUsageLimit(apiErr) {
			return &domain.NetworkError{Op: op, Err: err}
		}
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return &domain.AuthError{Op: op, Err: err}
		}
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &domain.AuthError{Op: op, Err: err}
	}
	return &domain.NetworkError{Op: op, Err: err}
}

// usageLimitReasons 403でもトークン自体は有効なレート制限・クォータ超過の理由
var usageLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

func isUsageLimit(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		if usageLimitReasons[item.Reason] {
			return true
		}
	}
	return false
}
