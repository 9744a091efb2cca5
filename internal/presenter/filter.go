// Package presenter 集計結果をグラフ・凡例向けの表示データに変換する。
package presenter

import (
	"fmt"

	"github.com/k-negishi/google-calendar-hours/internal/domain"
)

// Slice 円グラフの1要素
type Slice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// LegendEntry 凡例の1要素（クリックで表示切り替え）
type LegendEntry struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Hours   float64 `json:"hours"`
	Visible bool    `json:"visible"`
}

// View グラフ用の表示データと、全カレンダー分の凡例
type View struct {
	Slices []Slice       `json:"chart"`
	Legend []LegendEntry `json:"legend"`
}

// Filter 表示中のカレンダーだけをグラフ用に抽出する
// overridesに含まれるIDは、集計結果のVisibleより優先される
func Filter(dataset domain.Dataset, overrides map[string]bool) View {
	view := View{
		Slices: make([]Slice, 0, len(dataset)),
		Legend: make([]LegendEntry, 0, len(dataset)),
	}

	for _, agg := range dataset {
		visible := agg.Visible
		if v, ok := overrides[agg.ID]; ok {
			visible = v
		}

		view.Legend = append(view.Legend, LegendEntry{
			ID:      agg.ID,
			Label:   LegendLabel(agg),
			Hours:   agg.TotalHours,
			Visible: visible,
		})
		if visible {
			view.Slices = append(view.Slices, Slice{Label: agg.Name, Value: agg.TotalHours})
		}
	}
	return view
}

// LegendLabel 凡例の表示名（例: "Work (10.0h)"）
func LegendLabel(agg domain.CalendarAggregate) string {
	return fmt.Sprintf("%s (%.1fh)", agg.Name, agg.TotalHours)
}

// 状態ごとの表示メッセージ
const (
	MessageNotAuthenticated = "Sign in with Google to analyze your calendar usage."
	MessageLoading          = "Loading calendar data..."
	MessageNoData           = "No calendar data found for the selected month."
	MessageFailed           = "Failed to load calendars. Please try again."
	MessageReady            = "Time Spent per Calendar (Hours)"
)

// Message 状態に応じた表示メッセージ（失敗とデータなしは区別する）
func Message(state domain.CycleState, view View) string {
	switch state {
	case domain.StateFetching:
		return MessageLoading
	case domain.StateFailed:
		return MessageFailed
	case domain.StateReady:
		if len(view.Legend) == 0 {
			return MessageNoData
		}
		return MessageReady
	default:
		return MessageNotAuthenticated
	}
}
