package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	// Lambdaのランタイムにはタイムゾーン情報が含まれないことがある
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 認証情報ストアの種類
const (
	BackendMemory = "memory"
	BackendSSM    = "ssm"
	BackendSQLite = "sqlite"
)

// Google Calendar APIの1ページあたりの最大件数
const maxEventsPerPage = 2500

// SSMParameterGetter Parameter Storeからの読み込みに必要な操作
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// Google Calendar API設定
	GoogleAPIEndpoint string
	MaxResults        int64
	RequestTimeout    time.Duration

	// 認証情報ストア設定
	CredentialBackend string
	CredentialParam   string
	SQLitePath        string

	// 表示設定
	Timezone  string
	FirstYear int

	// その他設定
	LogLevel string

	location *time.Location

	// AWS関連（本番環境でのみ使用）
	AWS       *aws.Config
	ssmClient SSMParameterGetter
}

// settings YAML設定ファイル・Parameter Storeの設定ドキュメントの形式
type settings struct {
	GoogleAPIEndpoint string `yaml:"google_api_endpoint"`
	MaxResults        int64  `yaml:"max_results"`
	RequestTimeout    string `yaml:"request_timeout"`
	CredentialBackend string `yaml:"credential_backend"`
	CredentialParam   string `yaml:"credential_param"`
	SQLitePath        string `yaml:"sqlite_path"`
	Timezone          string `yaml:"timezone"`
	FirstYear         int    `yaml:"first_year"`
	LogLevel          string `yaml:"log_level"`
}

// Load 環境に応じて設定を読み込み
func Load() (*Config, error) {
	// AWS Lambda環境かどうか判定
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return loadAWSConfig()
	}
	return loadLocalConfig()
}

// IsLambda AWS Lambda上で実行されているかどうか
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func defaultConfig() *Config {
	return &Config{
		MaxResults:        maxEventsPerPage,
		RequestTimeout:    30 * time.Second,
		CredentialBackend: BackendSQLite,
		CredentialParam:   "/google-calendar-hours/access-token",
		SQLitePath:        "./data/credentials.db",
		Timezone:          "Asia/Tokyo",
		FirstYear:         2024,
		LogLevel:          "INFO",
	}
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil {
		// .envファイルが存在しない場合はエラーにしない
		fmt.Fprintf(os.Stderr, "Warning: .envファイルが見つかりません: %v\n", err)
	}

	cfg := defaultConfig()
	if err := cfg.loadSettingsFile(getEnvOrDefault("CONFIG_FILE", "")); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig() (*Config, error) {
	ctx := context.TODO()

	// AWS設定を初期化
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	cfg := defaultConfig()
	cfg.CredentialBackend = BackendSSM
	cfg.AWS = &awsConfig
	cfg.ssmClient = ssm.NewFromConfig(awsConfig)

	if err := cfg.loadSettingsFile(getEnvOrDefault("CONFIG_FILE", "")); err != nil {
		return nil, err
	}

	// Parameter Storeから設定ドキュメントを取得
	if err := cfg.loadFromParameterStore(ctx); err != nil {
		return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromParameterStore SETTINGS_PARAM で指定されたYAML設定を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	settingsParam := getEnvOrDefault("SETTINGS_PARAM", "")
	if settingsParam == "" {
		return nil
	}

	value, err := c.getParameter(ctx, settingsParam, true)
	if err != nil {
		return fmt.Errorf("設定ドキュメントの取得に失敗しました: %w", err)
	}
	return c.applySettings([]byte(value))
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// loadSettingsFile YAML設定ファイルを読み込み（パス未指定の場合は何もしない）
func (c *Config) loadSettingsFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
	}
	return c.applySettings(data)
}

// applySettings YAMLの設定値を反映（空の項目は既存値を維持）
func (c *Config) applySettings(data []byte) error {
	var s settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("設定のYAML解析に失敗しました: %w", err)
	}

	c.GoogleAPIEndpoint = firstNonEmpty(s.GoogleAPIEndpoint, c.GoogleAPIEndpoint)
	c.CredentialBackend = firstNonEmpty(s.CredentialBackend, c.CredentialBackend)
	c.CredentialParam = firstNonEmpty(s.CredentialParam, c.CredentialParam)
	c.SQLitePath = firstNonEmpty(s.SQLitePath, c.SQLitePath)
	c.Timezone = firstNonEmpty(s.Timezone, c.Timezone)
	c.LogLevel = firstNonEmpty(s.LogLevel, c.LogLevel)
	if s.MaxResults != 0 {
		c.MaxResults = s.MaxResults
	}
	if s.FirstYear != 0 {
		c.FirstYear = s.FirstYear
	}
	if s.RequestTimeout != "" {
		d, err := time.ParseDuration(s.RequestTimeout)
		if err != nil {
			return fmt.Errorf("request_timeout の形式が不正です: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// applyEnv 環境変数の値で上書き
func (c *Config) applyEnv() error {
	c.GoogleAPIEndpoint = getEnvOrDefault("GOOGLE_API_ENDPOINT", c.GoogleAPIEndpoint)
	c.CredentialBackend = getEnvOrDefault("CREDENTIAL_BACKEND", c.CredentialBackend)
	c.CredentialParam = getEnvOrDefault("CREDENTIAL_PARAM", c.CredentialParam)
	c.SQLitePath = getEnvOrDefault("SQLITE_PATH", c.SQLitePath)
	c.Timezone = getEnvOrDefault("TIMEZONE", c.Timezone)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	if v := getEnvOrDefault("MAX_RESULTS", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_RESULTS の形式が不正です: %w", err)
		}
		c.MaxResults = n
	}
	if v := getEnvOrDefault("FIRST_YEAR", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FIRST_YEAR の形式が不正です: %w", err)
		}
		c.FirstYear = n
	}
	if v := getEnvOrDefault("REQUEST_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT の形式が不正です: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// Validate 設定値を検証し、問題をまとめて返す
func (c *Config) Validate() error {
	var problems []string

	switch c.CredentialBackend {
	case BackendMemory:
	case BackendSSM:
		if c.CredentialParam == "" {
			problems = append(problems, "CREDENTIAL_PARAM が設定されていません")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH が設定されていません")
		}
	default:
		problems = append(problems, fmt.Sprintf("CREDENTIAL_BACKEND %q は未対応です（memory, ssm, sqlite のいずれか）", c.CredentialBackend))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		problems = append(problems, fmt.Sprintf("TIMEZONE %q を読み込めません: %v", c.Timezone, err))
	} else {
		c.location = loc
	}

	if c.MaxResults < 1 || c.MaxResults > maxEventsPerPage {
		problems = append(problems, fmt.Sprintf("MAX_RESULTS は1〜%dの範囲で指定してください: %d", maxEventsPerPage, c.MaxResults))
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "REQUEST_TIMEOUT に負の値は指定できません")
	}
	if c.FirstYear < 1970 || c.FirstYear > 9998 {
		problems = append(problems, fmt.Sprintf("FIRST_YEAR が範囲外です: %d", c.FirstYear))
	}

	if len(problems) > 0 {
		return fmt.Errorf("設定が不正です: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location 集計に使うタイムゾーン
func (c *Config) Location() *time.Location {
	if c.location == nil {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			c.location = loc
		} else {
			return time.UTC
		}
	}
	return c.location
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
