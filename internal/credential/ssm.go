package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/k-negishi/google-calendar-hours/internal/domain"
)

// SSMAPI SSMStoreが使用するParameter Storeの操作
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error)
}

// SSMStore Parameter StoreのSecureStringにトークンを保存するストア
type SSMStore struct {
	client SSMAPI
	name   string
}

// NewSSMStore パラメータ名を指定してストアを作成
func NewSSMStore(client SSMAPI, name string) *SSMStore {
	return &SSMStore{client: client, name: name}
}

func (s *SSMStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.name),
		Value:     aws.String(token),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("パラメータ %s への保存に失敗しました: %w", s.name, err)
	}
	return nil
}

func (s *SSMStore) Get(ctx context.Context) (string, error) {
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", domain.ErrMissingCredential
		}
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", s.name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", domain.ErrMissingCredential
	}
	return *result.Parameter.Value, nil
}

func (s *SSMStore) Clear(ctx context.Context) error {
	_, err := s.client.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(s.name),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("パラメータ %s の削除に失敗しました: %w", s.name, err)
	}
	return nil
}
