package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWindow(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	tests := []struct {
		name       string
		start, end string
		in, out    string
		wantStart  string
		wantEnd    string
		wantErr    bool
	}{
		{"hourly", "2025-03-03", "2025-03-03", "09:00", "12:30", "2025-03-03T09:00:00+08:00", "2025-03-03T12:30:00+08:00", false},
		{"no times spans the day", "2025-03-03", "2025-03-03", "", "", "2025-03-03T00:00:00+08:00", "2025-03-03T23:59:00+08:00", false},
		{"malformed time falls back", "2025-03-03", "2025-03-04", "9am", "", "2025-03-03T00:00:00+08:00", "2025-03-04T23:59:00+08:00", false},
		{"end before start", "2025-03-03", "2025-03-03", "12:00", "09:00", "", "", true},
		{"zero length", "2025-03-03", "2025-03-03", "09:00", "09:00", "", "", true},
		{"hour out of range", "2025-03-03", "2025-03-03", "25:00", "", "", "", true},
		{"bad date", "2025-13-03", "2025-03-03", "", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(tt.start, tt.end, tt.in, tt.out, manila)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.Start.Format(time.RFC3339))
			assert.Equal(t, tt.wantEnd, w.End.Format(time.RFC3339))
		})
	}
}

func TestWindow_OverlapsIsHalfOpen(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 3, 3, h, 0, 0, 0, time.UTC) }
	base := Window{Start: at(9), End: at(12)}

	assert.True(t, base.Overlaps(Window{Start: at(11), End: at(13)}))
	assert.True(t, base.Overlaps(Window{Start: at(8), End: at(18)}))
	assert.False(t, base.Overlaps(Window{Start: at(12), End: at(13)}))
	assert.False(t, base.Overlaps(Window{Start: at(7), End: at(9)}))
}

func TestWindow_Clip(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 3, 3, h, 0, 0, 0, time.UTC) }
	w := Window{Start: at(6), End: at(20)}

	got, ok := w.Clip(Window{Start: at(9), End: at(18)})
	require.True(t, ok)
	assert.Equal(t, 9.0, got.Hours())

	_, ok = w.Clip(Window{Start: at(21), End: at(22)})
	assert.False(t, ok)
}

func TestDayDiffAndExpandNights(t *testing.T) {
	assert.Equal(t, 1, DayDiff("2025-03-03", "2025-03-03"))
	assert.Equal(t, 3, DayDiff("2025-03-03", "2025-03-06"))
	assert.Equal(t, 1, DayDiff("bad", "2025-03-06"))

	assert.Equal(t, []string{"2025-02-27", "2025-02-28"}, ExpandNights("2025-02-27", "2025-03-01"))
	assert.Empty(t, ExpandNights("2025-03-03", "2025-03-03"))
}
