package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- MonthRange テスト ---

func TestMonthRange(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name          string
		month         time.Time
		loc           *time.Location
		expectedStart time.Time
		expectedEnd   time.Time
	}{
		{
			name:          "1月（UTC）",
			month:         time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			loc:           time.UTC,
			expectedStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "うるう年の2月",
			month:         time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			loc:           time.UTC,
			expectedStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "12月は翌年1月で終わる",
			month:         time.Date(2025, 12, 31, 23, 0, 0, 0, jst),
			loc:           jst,
			expectedStart: time.Date(2025, 12, 1, 0, 0, 0, 0, jst),
			expectedEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, jst),
		},
		{
			name:          "タイムゾーン未指定はUTC",
			month:         time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			loc:           nil,
			expectedStart: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MonthRange(tt.month, tt.loc)
			assert.True(t, tt.expectedStart.Equal(r.Start))
			assert.True(t, tt.expectedEnd.Equal(r.End))
			assert.NoError(t, r.Validate())
		})
	}
}

func TestMonthRange_EndIsNextMonthStart(t *testing.T) {
	for year := 2023; year <= 2026; year++ {
		for month := time.January; month <= time.December; month++ {
			r := MonthRange(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), time.UTC)
			next := MonthRange(r.End, time.UTC)
			assert.True(t, r.Start.Before(r.End))
			assert.True(t, r.End.Equal(next.Start), "%d-%02d", year, month)
		}
	}
}

func TestTimeRange_ValidateRejectsInverted(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := TimeRange{Start: start, End: start}.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "期間が不正です")
}

// --- MonthOptions / ParseMonth テスト ---

func TestMonthOptions(t *testing.T) {
	options := MonthOptions(2024, time.UTC)
	require.Len(t, options, 24)
	assert.Equal(t, MonthOption{Value: "2024-01-01T00:00:00Z", Label: "January 2024"}, options[0])
	assert.Equal(t, MonthOption{Value: "2024-12-01T00:00:00Z", Label: "December 2024"}, options[11])
	assert.Equal(t, MonthOption{Value: "2025-01-01T00:00:00Z", Label: "January 2025"}, options[12])
	assert.Equal(t, MonthOption{Value: "2025-12-01T00:00:00Z", Label: "December 2025"}, options[23])
}

func TestParseMonth(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)

	t.Run("RFC3339は月初に正規化される", func(t *testing.T) {
		m, err := ParseMonth("2024-03-15T10:00:00Z", time.UTC)
		require.NoError(t, err)
		assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Equal(m))
	})

	t.Run("YYYY-MM形式", func(t *testing.T) {
		m, err := ParseMonth("2024-03", jst)
		require.NoError(t, err)
		assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, jst).Equal(m))
	})

	t.Run("選択肢の値はそのまま解釈できる", func(t *testing.T) {
		option := MonthOptions(2024, jst)[4]
		m, err := ParseMonth(option.Value, jst)
		require.NoError(t, err)
		assert.Equal(t, option.Value, m.Format(time.RFC3339))
	})

	t.Run("空文字はエラー", func(t *testing.T) {
		_, err := ParseMonth("  ", time.UTC)
		assert.Error(t, err)
	})

	t.Run("不正な形式はエラー", func(t *testing.T) {
		_, err := ParseMonth("March 2024", time.UTC)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "月の形式が不正です")
	})
}

// --- Event.Hours テスト ---

func TestEventHours(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		event    Event
		expected float64
	}{
		{"1時間の予定", Event{StartTime: start, EndTime: start.Add(time.Hour)}, 1},
		{"90分の予定", Event{StartTime: start, EndTime: start.Add(90 * time.Minute)}, 1.5},
		{"開始と終了が同じ", Event{StartTime: start, EndTime: start}, 0},
		{"終日イベント", Event{StartTime: start, EndTime: start.Add(24 * time.Hour), IsAllDay: true}, 0},
		{"終了時刻なし", Event{StartTime: start}, 0},
		{"開始時刻なし", Event{EndTime: start}, 0},
		{"終了が開始より前", Event{StartTime: start, EndTime: start.Add(-time.Hour)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.event.Hours(), 1e-9)
		})
	}
}

// --- Dataset テスト ---

func TestDatasetDropEmpty(t *testing.T) {
	dataset := Dataset{
		{ID: "work", Name: "Work", TotalHours: 10, Visible: true},
		{ID: "holidays", Name: "Holidays", TotalHours: 0, Visible: true},
		{ID: "personal", Name: "Personal", TotalHours: 4, Visible: true},
	}

	filtered := dataset.DropEmpty()
	require.Len(t, filtered, 2)
	assert.Equal(t, "work", filtered[0].ID)
	assert.Equal(t, "personal", filtered[1].ID)

	// 2回適用しても結果は変わらない
	assert.Equal(t, filtered, filtered.DropEmpty())
}

func TestDatasetCloneAndIndexOf(t *testing.T) {
	dataset := Dataset{{ID: "a", TotalHours: 1}, {ID: "b", TotalHours: 2}}
	clone := dataset.Clone()
	clone[0].Visible = true

	assert.False(t, dataset[0].Visible)
	assert.Equal(t, 1, dataset.IndexOf("b"))
	assert.Equal(t, -1, dataset.IndexOf("missing"))
	assert.Nil(t, Dataset(nil).Clone())
}

// --- エラー分類テスト ---

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	authErr := error(&AuthError{Op: "calendarList", Err: base})
	netErr := error(&NetworkError{Op: "events", Err: base})
	wrapped := errors.Join(errors.New("outer"), authErr)

	assert.True(t, IsAuthError(authErr))
	assert.True(t, IsAuthError(wrapped))
	assert.False(t, IsAuthError(netErr))
	assert.True(t, IsNetworkError(netErr))
	assert.ErrorIs(t, netErr, base)
	assert.Contains(t, authErr.Error(), "認証エラー")

	malformed := &MalformedDataError{Op: "events", Err: base}
	assert.ErrorIs(t, malformed, base)
	assert.False(t, IsNetworkError(malformed))
}

func TestCycleStateText(t *testing.T) {
	text, err := StateFailed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(text))
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "ready", StateReady.String())
}

func TestCycleStateUnmarshalText(t *testing.T) {
	for _, s := range []CycleState{StateIdle, StateFetching, StateReady, StateFailed} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var got CycleState
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}

	var unknown CycleState
	assert.Error(t, unknown.UnmarshalText([]byte("done")))
}
