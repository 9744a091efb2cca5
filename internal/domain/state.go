package domain

import "fmt"

// CycleState 集計サイクルの状態
type CycleState int

const (
	StateIdle CycleState = iota
	StateFetching
	StateReady
	StateFailed
)

func (s CycleState) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText JSONには文字列で出力する
func (s CycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 文字列表現から状態を復元する
func (s *CycleState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "fetching":
		*s = StateFetching
	case "ready":
		*s = StateReady
	case "failed":
		*s = StateFailed
	default:
		return fmt.Errorf("不明な状態です: %q", text)
	}
	return nil
}
