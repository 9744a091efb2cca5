package domain

import "time"

// Event カレンダーイベントのドメインエンティティ
type Event struct {
	ID        string
	Title     string
	StartTime time.Time
	EndTime   time.Time
	// IsAllDay 開始・終了の両方に日時を持たないイベント（終日・終了未定）
	IsAllDay bool
}

// Hours イベントの所要時間（時間単位）を返す
// 終日イベントや開始・終了が欠けているイベントは0時間として扱う
func (e Event) Hours() float64 {
	if e.IsAllDay || e.StartTime.IsZero() || e.EndTime.IsZero() {
		return 0
	}

	d := e.EndTime.Sub(e.StartTime)
	if d < 0 {
		return 0
	}
	return d.Hours()
}
