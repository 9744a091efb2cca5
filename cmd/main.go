package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/k-negishi/google-calendar-hours/internal/app"
	"github.com/k-negishi/google-calendar-hours/internal/config"
	"github.com/k-negishi/google-calendar-hours/internal/handler"
	"github.com/k-negishi/google-calendar-hours/internal/logging"
)

func main() {
	ctx := context.Background()

	// 設定を読み込み
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定読み込みエラー: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, os.Stdout)

	// コールドスタート時に一度だけ組み立て、ダッシュボードの状態はウォーム起動間で保持する
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("初期化に失敗しました", logging.Err(err))
		os.Exit(1)
	}
	defer a.Close()

	h := handler.New(a.Dashboard, a.Store, cfg.Location(), cfg.FirstYear, logger)
	lambda.Start(h.Handle)
}
