package credential

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/k-negishi/google-calendar-hours/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// credentialName 単一アカウントのみ扱うため行は1つ
const credentialName = "default"

// SQLiteStore ローカル実行用にSQLiteファイルへトークンを保存するストア
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore データベースを開き、マイグレーションを適用する
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("データベースディレクトリの作成に失敗しました: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("SQLiteデータベースを開けません: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLiteデータベースに接続できません: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations 埋め込みのマイグレーションを適用
func runMigrations(dbPath string) error {
	// メインの接続に影響しないようマイグレーション専用の接続を使う
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("マイグレーション用の接続に失敗しました: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqliteドライバの作成に失敗しました: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("マイグレーションソースの作成に失敗しました: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("マイグレーションの初期化に失敗しました: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("マイグレーションの適用に失敗しました: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (name, token, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		credentialName, token, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("アクセストークンの保存に失敗しました: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM credentials WHERE name = ?`, credentialName).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrMissingCredential
	}
	if err != nil {
		return "", fmt.Errorf("アクセストークンの取得に失敗しました: %w", err)
	}
	return token, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, credentialName); err != nil {
		return fmt.Errorf("アクセストークンの削除に失敗しました: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
