package domain

// CalendarSummary カレンダー一覧APIから取得したカレンダー情報
type CalendarSummary struct {
	ID   string
	Name string
}

// CalendarAggregate カレンダーごとの集計結果
type CalendarAggregate struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TotalHours float64 `json:"totalHours"`
	Visible    bool    `json:"visible"`
}

// Dataset 1回の集計サイクルで確定したカレンダー集計の並び
type Dataset []CalendarAggregate

// DropEmpty 合計0時間のカレンダーを取り除いたDatasetを返す
func (d Dataset) DropEmpty() Dataset {
	result := make(Dataset, 0, len(d))
	for _, agg := range d {
		if agg.TotalHours > 0 {
			result = append(result, agg)
		}
	}
	return result
}

// Clone 呼び出し側が変更しても元に影響しないコピーを返す
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	result := make(Dataset, len(d))
	copy(result, d)
	return result
}

// IndexOf 指定IDのカレンダーの位置を返す（存在しない場合は-1）
func (d Dataset) IndexOf(id string) int {
	for i, agg := range d {
		if agg.ID == id {
			return i
		}
	}
	return -1
}
