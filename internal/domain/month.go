package domain

import (
	"fmt"
	"strings"
	"time"
)

// monthsPerSelector 月選択肢は連続する2年分
const monthsPerSelector = 24

// TimeRange 集計対象期間 [Start, End)
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// MonthRange 指定した月の1日0時から翌月1日0時までの期間を返す
func MonthRange(month time.Time, loc *time.Location) TimeRange {
	if loc == nil {
		loc = time.UTC
	}
	m := month.In(loc)
	start := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, loc)

	return TimeRange{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// Validate 開始が終了より前であることを確認
func (r TimeRange) Validate() error {
	if !r.Start.Before(r.End) {
		return fmt.Errorf("期間が不正です: start=%s end=%s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// MonthOption 月選択肢
type MonthOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// MonthOptions firstYearの1月からfirstYear+1の12月までの24ヶ月分の選択肢を返す
func MonthOptions(firstYear int, loc *time.Location) []MonthOption {
	if loc == nil {
		loc = time.UTC
	}

	options := make([]MonthOption, 0, monthsPerSelector)
	first := time.Date(firstYear, time.January, 1, 0, 0, 0, 0, loc)
	for i := 0; i < monthsPerSelector; i++ {
		month := first.AddDate(0, i, 0)
		options = append(options, MonthOption{
			Value: month.Format(time.RFC3339),
			Label: month.Format("January 2006"),
		})
	}
	return options
}

// ParseMonth RFC3339形式または YYYY-MM 形式の文字列を月初の時刻に変換
func ParseMonth(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("月が指定されていません")
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return MonthRange(t, loc).Start, nil
	}
	if t, err := time.ParseInLocation("2006-01", value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("月の形式が不正です: %q", value)
}
