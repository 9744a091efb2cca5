// Package cli calhoursコマンドのサブコマンドを定義する。
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/k-negishi/google-calendar-hours/internal/app"
	"github.com/k-negishi/google-calendar-hours/internal/config"
)

// Loader 設定を読み込んでアプリケーションを組み立てる
type Loader func(ctx context.Context) (*app.App, error)

// DefaultLoader 環境変数・.env・設定ファイルから組み立てる（ログは標準エラーへ）
func DefaultLoader(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.NewLogger(cfg, os.Stderr))
}

// NewRootCmd ルートコマンドと、読み込んだアプリケーションを閉じる関数を返す
func NewRootCmd(version string, load Loader) (*cobra.Command, func() error) {
	var a *app.App

	root := &cobra.Command{
		Use:   "calhours",
		Short: "Google カレンダーごとの月間合計時間を集計します",
		Long: `calhours は指定した月の予定をカレンダーごとに集計し、合計時間を表示します。

アクセストークンは login で保存するか、--token で都度指定します。`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := load(cmd.Context())
			if err != nil {
				return fmt.Errorf("初期化に失敗しました: %w", err)
			}
			a = loaded
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "calhours version %s\n" .Version}}`)

	current := func() *app.App { return a }
	root.AddCommand(newMonthsCmd(current))
	root.AddCommand(newSummaryCmd(current))
	root.AddCommand(newLoginCmd(current))
	root.AddCommand(newLogoutCmd(current))

	closeApp := func() error {
		if a == nil {
			return nil
		}
		err := a.Close()
		a = nil
		return err
	}
	return root, closeApp
}

// Execute Ctrl-Cで集計を中断できるようにしてルートコマンドを実行
func Execute(version string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, closeApp := NewRootCmd(version, DefaultLoader)
	err := root.ExecuteContext(ctx)
	if closeErr := closeApp(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "終了処理に失敗しました: %v\n", closeErr)
	}
	if err != nil {
		stop()
		os.Exit(1)
	}
}
