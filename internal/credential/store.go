// Package credential Google APIのアクセストークンを1件だけ保持するストア。
//
// ログイン後に一度設定され、集計のたびに読み出され、ログアウト・期限切れ時に削除される。
// 読み出し側（集計処理）はトークンを変更しない。
package credential

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/k-negishi/google-calendar-hours/internal/config"
)

// ErrEmptyToken 空のトークンは保存できない
var ErrEmptyToken = errors.New("空のアクセストークンは保存できません")

// Store アクセストークンの保存先
// 未保存の場合、Getは domain.ErrMissingCredential を返す
type Store interface {
	Set(ctx context.Context, token string) error
	Get(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Open 設定に応じたストアを開く
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.CredentialBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendSSM:
		client, err := newSSMClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewSSMStore(client, cfg.CredentialParam), nil
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("未対応の認証情報ストアです: %s", cfg.CredentialBackend)
	}
}

// Close ストアが保持するリソースを解放（不要なストアでは何もしない）
func Close(store Store) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func newSSMClient(ctx context.Context, cfg *config.Config) (*ssm.Client, error) {
	if cfg.AWS != nil {
		return ssm.NewFromConfig(*cfg.AWS), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}
