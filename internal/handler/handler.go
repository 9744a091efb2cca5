// Package handler API Gateway（Lambdaプロキシ統合）からのリクエストを処理する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/k-negishi/google-calendar-hours/internal/credential"
	"github.com/k-negishi/google-calendar-hours/internal/domain"
	"github.com/k-negishi/google-calendar-hours/internal/logging"
	"github.com/k-negishi/google-calendar-hours/internal/presenter"
	"github.com/k-negishi/google-calendar-hours/internal/usecase"
)

const bearerPrefix = "Bearer "

// SummaryResponse 集計結果のレスポンス
type SummaryResponse struct {
	Cycle   uint64            `json:"cycle"`
	State   domain.CycleState `json:"state"`
	Month   string            `json:"month,omitempty"`
	Message string            `json:"message"`
	presenter.View
	FailedCalendars []string `json:"failedCalendars,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// MonthsResponse 月選択肢のレスポンス
type MonthsResponse struct {
	Months []domain.MonthOption `json:"months"`
}

// ErrorResponse エラー時のレスポンス
type ErrorResponse struct {
	Error string `json:"error"`
}

type credentialRequest struct {
	Token string `json:"token"`
}

// Handler ダッシュボードを操作するLambdaハンドラー
type Handler struct {
	dashboard *usecase.Dashboard
	store     credential.Store
	location  *time.Location
	firstYear int
	logger    *slog.Logger
}

// New ハンドラーを生成
func New(dashboard *usecase.Dashboard, store credential.Store, location *time.Location, firstYear int, logger *slog.Logger) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		dashboard: dashboard,
		store:     store,
		location:  location,
		firstYear: firstYear,
		logger:    logging.WithComponent(logger, "handler"),
	}
}

// Handle リクエストをルーティングする
// 業務エラーはステータスコードで返し、Lambdaとしてのエラーは返さない
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := strings.TrimSuffix(req.Path, "/")

	switch {
	case path == "/months" && req.HTTPMethod == http.MethodGet:
		return h.months()
	case path == "/summary" && req.HTTPMethod == http.MethodGet:
		return h.summary(ctx, req)
	case path == "/retry" && req.HTTPMethod == http.MethodPost:
		return h.retry(ctx, req)
	case strings.HasPrefix(path, "/calendars/") && strings.HasSuffix(path, "/toggle") && req.HTTPMethod == http.MethodPost:
		return h.toggle(req, path)
	case path == "/credential" && req.HTTPMethod == http.MethodPut:
		return h.setCredential(ctx, req)
	case path == "/credential" && req.HTTPMethod == http.MethodDelete:
		return h.clearCredential(ctx)
	default:
		return jsonResponse(http.StatusNotFound, ErrorResponse{Error: "not found"})
	}
}

func (h *Handler) months() (events.APIGatewayProxyResponse, error) {
	return jsonResponse(http.StatusOK, MonthsResponse{Months: domain.MonthOptions(h.firstYear, h.location)})
}

// summary monthが指定されていれば集計サイクルを実行し、なければ現在の状態を返す
func (h *Handler) summary(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	hidden := hiddenCalendars(req)
	value := req.QueryStringParameters["month"]
	if value == "" {
		return jsonResponse(http.StatusOK, h.render(h.dashboard.Snapshot(), hidden, nil))
	}

	month, err := domain.ParseMonth(value, h.location)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	token, fromStore, err := h.token(ctx, req)
	if err != nil {
		return h.failure(ctx, h.dashboard.Snapshot(), hidden, err)
	}

	snapshot, err := h.dashboard.Select(ctx, token, month)
	h.expireOnAuthError(ctx, err, fromStore)
	return h.respond(ctx, snapshot, hidden, err)
}

func (h *Handler) retry(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	hidden := hiddenCalendars(req)
	token, fromStore, err := h.token(ctx, req)
	if err != nil {
		return h.failure(ctx, h.dashboard.Snapshot(), hidden, err)
	}

	snapshot, err := h.dashboard.Retry(ctx, token)
	h.expireOnAuthError(ctx, err, fromStore)
	return h.respond(ctx, snapshot, hidden, err)
}

// toggle 凡例クリック相当。再取得は行わない
func (h *Handler) toggle(req events.APIGatewayProxyRequest, path string) (events.APIGatewayProxyResponse, error) {
	id := req.PathParameters["id"]
	if id == "" {
		raw := strings.TrimSuffix(strings.TrimPrefix(path, "/calendars/"), "/toggle")
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			return jsonResponse(http.StatusBadRequest, ErrorResponse{Error: "カレンダーIDが不正です"})
		}
		id = unescaped
	}

	snapshot, ok := h.dashboard.Toggle(id)
	if !ok {
		return jsonResponse(http.StatusNotFound, ErrorResponse{Error: "カレンダーが見つかりません: " + id})
	}
	return jsonResponse(http.StatusOK, h.render(snapshot, nil, nil))
}

func (h *Handler) setCredential(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body credentialRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return jsonResponse(http.StatusBadRequest, ErrorResponse{Error: "リクエストボディが不正です"})
	}

	if err := h.store.Set(ctx, strings.TrimSpace(body.Token)); err != nil {
		if errors.Is(err, credential.ErrEmptyToken) {
			return jsonResponse(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		h.logger.ErrorContext(ctx, "アクセストークンの保存に失敗しました", logging.Err(err))
		return jsonResponse(http.StatusInternalServerError, ErrorResponse{Error: "アクセストークンの保存に失敗しました"})
	}

	h.logger.InfoContext(ctx, "アクセストークンを保存しました")
	return emptyResponse(http.StatusNoContent), nil
}

func (h *Handler) clearCredential(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	if err := h.store.Clear(ctx); err != nil {
		h.logger.ErrorContext(ctx, "アクセストークンの削除に失敗しました", logging.Err(err))
		return jsonResponse(http.StatusInternalServerError, ErrorResponse{Error: "アクセストークンの削除に失敗しました"})
	}

	h.logger.InfoContext(ctx, "アクセストークンを削除しました")
	return emptyResponse(http.StatusNoContent), nil
}

// token Authorizationヘッダーのトークンを優先し、なければストアから取得する
func (h *Handler) token(ctx context.Context, req events.APIGatewayProxyRequest) (string, bool, error) {
	if token := bearerToken(req.Headers); token != "" {
		return token, false, nil
	}

	token, err := h.store.Get(ctx)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// expireOnAuthError APIに拒否された保存済みトークンは期限切れとして削除する
func (h *Handler) expireOnAuthError(ctx context.Context, err error, fromStore bool) {
	if !fromStore || !domain.IsAuthError(err) {
		return
	}
	if clearErr := h.store.Clear(ctx); clearErr != nil {
		h.logger.WarnContext(ctx, "期限切れトークンの削除に失敗しました", logging.Err(clearErr))
		return
	}
	h.logger.InfoContext(ctx, "期限切れのアクセストークンを削除しました")
}

func (h *Handler) respond(ctx context.Context, snapshot usecase.Snapshot, hidden map[string]bool, err error) (events.APIGatewayProxyResponse, error) {
	if err != nil {
		return h.failure(ctx, snapshot, hidden, err)
	}
	return jsonResponse(http.StatusOK, h.render(snapshot, hidden, nil))
}

func (h *Handler) failure(ctx context.Context, snapshot usecase.Snapshot, hidden map[string]bool, err error) (events.APIGatewayProxyResponse, error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "リクエストの処理に失敗しました", slog.Int("status", status), logging.Err(err))
	} else {
		h.logger.InfoContext(ctx, "リクエストを処理できませんでした", slog.Int("status", status), logging.Err(err))
	}
	return jsonResponse(status, h.render(snapshot, hidden, err))
}

// render overridesに含まれるカレンダーは、ダッシュボード上の表示状態より優先される
func (h *Handler) render(snapshot usecase.Snapshot, overrides map[string]bool, err error) SummaryResponse {
	view := presenter.Filter(snapshot.Dataset, overrides)

	state := snapshot.State
	if errors.Is(err, domain.ErrMissingCredential) {
		state = domain.StateIdle
	}

	resp := SummaryResponse{
		Cycle:           snapshot.Cycle,
		State:           state,
		Message:         presenter.Message(state, view),
		View:            view,
		FailedCalendars: snapshot.FailedCalendars,
	}
	if !snapshot.Month.IsZero() {
		resp.Month = snapshot.Month.In(h.location).Format("2006-01")
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// hiddenCalendars hideクエリ（カンマ区切り・複数指定可）で指定された非表示のカレンダー
func hiddenCalendars(req events.APIGatewayProxyRequest) map[string]bool {
	values := req.MultiValueQueryStringParameters["hide"]
	if len(values) == 0 && req.QueryStringParameters["hide"] != "" {
		values = []string{req.QueryStringParameters["hide"]}
	}

	var hidden map[string]bool
	for _, value := range values {
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id == "" {
				continue
			}
			if hidden == nil {
				hidden = make(map[string]bool)
			}
			hidden[id] = false
		}
	}
	return hidden
}

// statusFor エラー種別をHTTPステータスに変換
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingCredential), domain.IsAuthError(err):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrNoMonthSelected):
		return http.StatusBadRequest
	case domain.IsNetworkError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// bearerToken Authorizationヘッダーからトークンを取り出す（ヘッダー名の大小文字は区別しない）
func bearerToken(headers map[string]string) string {
	for key, value := range headers {
		if !strings.EqualFold(key, "Authorization") {
			continue
		}
		if len(value) > len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(value[len(bearerPrefix):])
		}
	}
	return ""
}

func jsonResponse(status int, body any) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}, nil
}

func emptyResponse(status int) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: status}
}
