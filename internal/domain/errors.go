package domain

import (
	"errors"
	"fmt"
)

// ErrMissingCredential アクセストークンが保存されていない（未認証）
var ErrMissingCredential = errors.New("アクセストークンが設定されていません")

// AuthError トークンがAPIに拒否された（期限切れ・無効）
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: 認証エラー: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError 通信失敗または2xx以外の応答
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: 通信エラー: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedDataError APIの応答を解釈できない
type MalformedDataError struct {
	Op  string
	Err error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("%s: 不正なデータ: %v", e.Op, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

// IsAuthError errがAuthErrorを含むかどうか
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsNetworkError errがNetworkErrorを含むかどうか
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
