package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequest_Window(t *testing.T) {
	day0 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	day4 := day0.AddDate(0, 0, 4)

	tests := []struct {
		name      string
		page      int
		size      int
		wantOK    bool
		wantStart time.Time
		wantEnd   time.Time
	}{
		{name: "first page", page: 1, size: 2, wantOK: true, wantStart: day0, wantEnd: day0.AddDate(0, 0, 1)},
		{name: "second page", page: 2, size: 2, wantOK: true, wantStart: day0.AddDate(0, 0, 2), wantEnd: day0.AddDate(0, 0, 3)},
		{name: "partial last page", page: 3, size: 2, wantOK: true, wantStart: day4, wantEnd: day4},
		{name: "page past range", page: 10, size: 2, wantOK: false},
		{name: "page larger than range", page: 1, size: 100, wantOK: true, wantStart: day0, wantEnd: day4},
		{name: "huge page does not overflow", page: 1 << 40, size: 1 << 30, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok, err := PageRequest{Start: day0, End: day4, Page: tt.page, Size: tt.size}.Window()
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantStart, w.Start)
				assert.Equal(t, tt.wantEnd, w.End)
			}
		})
	}
}

func TestPageRequest_Validate(t *testing.T) {
	day0 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  PageRequest
	}{
		{name: "zero page", req: PageRequest{Start: day0, End: day0, Page: 0, Size: 1}},
		{name: "negative size", req: PageRequest{Start: day0, End: day0, Page: 1, Size: -1}},
		{name: "start after end", req: PageRequest{Start: day0.AddDate(0, 0, 1), End: day0, Page: 1, Size: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.req.Window()
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestPageRequest_SameDayIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	w, ok, err := PageRequest{Start: start, End: end, Page: 1, Size: 5}.Window()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, w.Days())
	assert.Equal(t, "2025-06-02..2025-06-02", w.String())
}

func TestPageRequest_FullCalendarRange(t *testing.T) {
	start := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 3652059, DateWindow{Start: start, End: end}.Days())

	w, ok, err := PageRequest{Start: start, End: end, Page: 200000, Size: 10}.Window()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, w.Days())
	assert.Equal(t, start.AddDate(0, 0, 1999990), w.Start)

	_, ok, err = PageRequest{Start: start, End: end, Page: 365207, Size: 10}.Window()
	require.NoError(t, err)
	assert.False(t, ok)
}
