// Package logging log/slog の設定と共通の属性ヘルパーを提供する。
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// 共通の属性キー
const (
	KeyComponent  = "component"
	KeyCalendarID = "calendar_id"
	KeyCycle      = "cycle"
	KeyMonth      = "month"
	KeyError      = "error"
	KeyCount      = "count"
)

// Format ログの出力形式
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New 指定したレベル・形式のロガーを作成
func New(w io.Writer, level string, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard 何も出力しないロガー（テスト用）
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel LOG_LEVEL の値をslog.Levelに変換（不明な値はINFO）
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent component属性付きのロガーを返す
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

func CalendarID(id string) slog.Attr {
	return slog.String(KeyCalendarID, id)
}

func Cycle(id uint64) slog.Attr {
	return slog.Uint64(KeyCycle, id)
}

func Month(t time.Time) slog.Attr {
	return slog.String(KeyMonth, t.Format("2006-01"))
}

func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Err エラー属性を返す。nilの場合は出力されない空のグループになる
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: KeyError, Value: slog.GroupValue()}
	}
	return slog.String(KeyError, err.Error())
}
