// Package app 設定から各コンポーネントを組み立てる。LambdaとCLIの両方から使用する。
package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/k-negishi/google-calendar-hours/internal/config"
	"github.com/k-negishi/google-calendar-hours/internal/credential"
	"github.com/k-negishi/google-calendar-hours/internal/gateway"
	"github.com/k-negishi/google-calendar-hours/internal/logging"
	"github.com/k-negishi/google-calendar-hours/internal/usecase"
)

// App 組み立て済みのコンポーネント
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     credential.Store
	Dashboard *usecase.Dashboard
}

// Option 組み立て時の差し替え（テスト用）
type Option func(*options)

type options struct {
	store      credential.Store
	httpClient *http.Client
}

// WithStore 認証情報ストアを差し替える
func WithStore(store credential.Store) Option {
	return func(o *options) { o.store = store }
}

// WithHTTPClient Google APIへのHTTPクライアントを差し替える
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// NewLogger Lambda上ではJSON、ローカルではテキスト形式のロガーを作成
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	format := logging.FormatText
	if config.IsLambda() {
		format = logging.FormatJSON
	}
	return logging.New(w, cfg.LogLevel, format)
}

// New 設定に従ってストア・リポジトリ・ユースケース・ダッシュボードを組み立てる
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	store := o.store
	if store == nil {
		opened, err := credential.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = opened
	}

	location := cfg.Location()
	repo := gateway.NewGoogleCalendarRepository(gateway.Options{
		Endpoint:   cfg.GoogleAPIEndpoint,
		HTTPClient: o.httpClient,
		Timezone:   location,
		MaxResults: cfg.MaxResults,
	})
	aggregator := usecase.NewEventAggregator(repo, cfg.RequestTimeout, logger)
	aggregateMonth := usecase.NewAggregateMonthUseCase(repo, aggregator, location, logger)

	logger.Debug("コンポーネントを初期化しました",
		slog.String("credential_backend", cfg.CredentialBackend),
		slog.String("timezone", location.String()))

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Dashboard: usecase.NewDashboard(aggregateMonth, logger),
	}, nil
}

// Close ストアを閉じる
func (a *App) Close() error {
	return credential.Close(a.Store)
}
