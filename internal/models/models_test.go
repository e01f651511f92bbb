// models_test.go - Tests for sample comparison, pagination math and status values
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampLayouts(t *testing.T) {
	cases := []struct {
		raw  string
		ok   bool
		want time.Time
	}{
		{"2025-01-01T12:30:00Z", true, time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-01-01T12:30:00.500Z", true, time.Date(2025, 1, 1, 12, 30, 0, 500000000, time.UTC)},
		{"2025-01-01T12:30:00+07:00", true, time.Date(2025, 1, 1, 12, 30, 0, 0, time.FixedZone("", 7*3600))},
		{"2025-01-01T12:30:00", true, time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-01-01 12:30:00", true, time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)},
		{"yesterday", false, time.Time{}},
		{"", false, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := TelemetrySample{Time: tc.raw}.Timestamp()
			require.Equal(t, tc.ok, ok)
			if ok {
				assert.True(t, got.Equal(tc.want), "got %v want %v", got, tc.want)
			}
		})
	}
}

func TestValuesEqual(t *testing.T) {
	base := TelemetrySample{Temperature: 22, Humidity: 55, Light: 300, CB1: 1, CB2: 2, CB3: 3}

	same := base
	same.Time = "some other time"
	assert.True(t, base.ValuesEqual(same), "timestamp is not part of the comparison")

	for name, mutate := range map[string]func(*TelemetrySample){
		"temperature": func(s *TelemetrySample) { s.Temperature++ },
		"humidity":    func(s *TelemetrySample) { s.Humidity++ },
		"light":       func(s *TelemetrySample) { s.Light++ },
		"cb1":         func(s *TelemetrySample) { s.CB1++ },
		"cb2":         func(s *TelemetrySample) { s.CB2++ },
		"cb3":         func(s *TelemetrySample) { s.CB3++ },
	} {
		t.Run(name, func(t *testing.T) {
			changed := base
			mutate(&changed)
			assert.False(t, base.ValuesEqual(changed))
		})
	}
}

func TestNewPage(t *testing.T) {
	t.Run("ceiling division", func(t *testing.T) {
		assert.Equal(t, 3, NewPage([]int{1}, 0, 10, 21).TotalPages)
		assert.Equal(t, 2, NewPage([]int{1}, 0, 10, 20).TotalPages)
		assert.Equal(t, 1, NewPage([]int{1}, 0, 10, 1).TotalPages)
		assert.Equal(t, 0, NewPage([]int{}, 0, 10, 0).TotalPages)
	})

	t.Run("nil content serializes as empty array", func(t *testing.T) {
		page := NewPage[int](nil, 0, 10, 0)
		assert.NotNil(t, page.Content)
		assert.Empty(t, page.Content)
	})

	t.Run("zero size yields zero pages", func(t *testing.T) {
		assert.Equal(t, 0, NewPage([]int{1}, 0, 0, 5).TotalPages)
	})
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusOn.Valid())
	assert.True(t, StatusOff.Valid())
	assert.False(t, Status("on").Valid())
	assert.False(t, Status("").Valid())
	assert.False(t, Status("TOGGLE").Valid())
}
