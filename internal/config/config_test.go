package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSSMClient は SSMParameterGetter のテスト用モック
type MockSSMClient struct {
	mock.Mock
}

func (m *MockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssm.GetParameterOutput), args.Error(1)
}

// clearEnv テスト中に読み込まれる環境変数を空にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_API_ENDPOINT", "CREDENTIAL_BACKEND", "CREDENTIAL_PARAM", "SQLITE_PATH",
		"TIMEZONE", "LOG_LEVEL", "MAX_RESULTS", "FIRST_YEAR", "REQUEST_TIMEOUT",
		"CONFIG_FILE", "SETTINGS_PARAM",
	} {
		t.Setenv(key, "")
	}
}

// --- getEnvOrDefault テスト ---

func TestGetEnvOrDefault_WithValue(t *testing.T) {
	t.Setenv("TEST_ENV_KEY", "test-value")
	result := getEnvOrDefault("TEST_ENV_KEY", "default")
	assert.Equal(t, "test-value", result)
}

func TestGetEnvOrDefault_WithDefault(t *testing.T) {
	result := getEnvOrDefault("NONEXISTENT_KEY_FOR_TEST_12345", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetEnvOrDefault_TrimsWhitespace(t *testing.T) {
	t.Setenv("TEST_ENV_WHITESPACE", "  trimmed  ")
	result := getEnvOrDefault("TEST_ENV_WHITESPACE", "default")
	assert.Equal(t, "trimmed", result)
}

// --- loadLocalConfig テスト ---

func TestLoadLocalConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.CredentialBackend)
	assert.Equal(t, int64(2500), cfg.MaxResults)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2024, cfg.FirstYear)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
}

func TestLoadLocalConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREDENTIAL_BACKEND", "memory")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("MAX_RESULTS", "100")
	t.Setenv("FIRST_YEAR", "2025")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("GOOGLE_API_ENDPOINT", "http://localhost:9999/")

	cfg, err := loadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.CredentialBackend)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, int64(100), cfg.MaxResults)
	assert.Equal(t, 2025, cfg.FirstYear)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://localhost:9999/", cfg.GoogleAPIEndpoint)
}

func TestLoadLocalConfig_SettingsFileUnderEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "timezone: Europe/Berlin\nfirst_year: 2023\nrequest_timeout: 10s\ncredential_backend: memory\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("FIRST_YEAR", "2030")

	cfg, err := loadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, BackendMemory, cfg.CredentialBackend)
	// 環境変数が設定ファイルより優先される
	assert.Equal(t, 2030, cfg.FirstYear)
}

func TestLoadLocalConfig_InvalidNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_RESULTS", "many")

	_, err := loadLocalConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_RESULTS の形式が不正です")
}

func TestLoadLocalConfig_MissingSettingsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := loadLocalConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "設定ファイル")
}

// --- Validate テスト ---

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := defaultConfig()
	cfg.CredentialBackend = "redis"
	cfg.Timezone = "Mars/Olympus"
	cfg.MaxResults = 5000
	cfg.FirstYear = 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREDENTIAL_BACKEND")
	assert.Contains(t, err.Error(), "TIMEZONE")
	assert.Contains(t, err.Error(), "MAX_RESULTS")
	assert.Contains(t, err.Error(), "FIRST_YEAR")
}

func TestValidate_BackendRequirements(t *testing.T) {
	cfg := defaultConfig()
	cfg.CredentialBackend = BackendSSM
	cfg.CredentialParam = ""
	assert.ErrorContains(t, cfg.Validate(), "CREDENTIAL_PARAM")

	cfg = defaultConfig()
	cfg.SQLitePath = ""
	assert.ErrorContains(t, cfg.Validate(), "SQLITE_PATH")
}

func TestApplySettings_InvalidYAML(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.applySettings([]byte("timezone: [unterminated"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "YAML解析に失敗しました")
}

// --- getParameter テスト（モック使用） ---

func TestGetParameter_Success(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	output := &ssm.GetParameterOutput{
		Parameter: &types.Parameter{
			Value: aws.String("test-value"),
		},
	}

	mockSSM.On("GetParameter", mock.Anything, mock.MatchedBy(func(input *ssm.GetParameterInput) bool {
		return *input.Name == "/test/param" && *input.WithDecryption == true
	})).Return(output, nil)

	result, err := cfg.getParameter(context.Background(), "/test/param", true)
	require.NoError(t, err)
	assert.Equal(t, "test-value", result)
	mockSSM.AssertExpectations(t)
}

func TestGetParameter_EmptyValue(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	output := &ssm.GetParameterOutput{
		Parameter: &types.Parameter{
			Value: aws.String(""),
		},
	}

	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(output, nil)

	_, err := cfg.getParameter(context.Background(), "/test/param", true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "空の値です")
}

func TestGetParameter_APIError(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(nil, errors.New("SSM API error"))

	_, err := cfg.getParameter(context.Background(), "/test/param", true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "パラメータ /test/param の取得に失敗しました")
	mockSSM.AssertExpectations(t)
}

func TestLoadFromParameterStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("SETTINGS_PARAM", "/google-calendar-hours/settings")

	mockSSM := new(MockSSMClient)
	cfg := defaultConfig()
	cfg.ssmClient = mockSSM

	mockSSM.On("GetParameter", mock.Anything, mock.MatchedBy(func(input *ssm.GetParameterInput) bool {
		return *input.Name == "/google-calendar-hours/settings"
	})).Return(&ssm.GetParameterOutput{
		Parameter: &types.Parameter{Value: aws.String("timezone: UTC\ncredential_param: /custom/token\n")},
	}, nil)

	err := cfg.loadFromParameterStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "/custom/token", cfg.CredentialParam)
	mockSSM.AssertExpectations(t)
}

func TestLoadFromParameterStore_NotConfigured(t *testing.T) {
	clearEnv(t)

	mockSSM := new(MockSSMClient)
	cfg := defaultConfig()
	cfg.ssmClient = mockSSM

	require.NoError(t, cfg.loadFromParameterStore(context.Background()))
	mockSSM.AssertNotCalled(t, "GetParameter")
}
