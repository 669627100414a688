package civil_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/civil"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    civil.Date
		wantErr bool
	}{
		{"plain", "2026-01-10", civil.Date{Year: 2026, Month: time.January, Day: 10}, false},
		{"leap day", "2024-02-29", civil.Date{Year: 2024, Month: time.February, Day: 29}, false},
		{"loose day of month", "2025-02-30", civil.Date{Year: 2025, Month: time.February, Day: 30}, false},
		{"missing padding", "2026-1-10", civil.Date{}, true},
		{"trailing time", "2026-01-10T00:00", civil.Date{}, true},
		{"empty", "", civil.Date{}, true},
		{"slashes", "2026/01/10", civil.Date{}, true},
		{"month 13", "2026-13-01", civil.Date{}, true},
		{"month 0", "2026-00-01", civil.Date{}, true},
		{"day 0", "2026-01-00", civil.Date{}, true},
		{"day 32", "2026-01-32", civil.Date{}, true},
		{"non-ascii digits", "２０２６-01-10", civil.Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := civil.Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, civil.ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddDays_RollsOverBoundaries(t *testing.T) {
	tests := []struct {
		start string
		n     int
		want  string
	}{
		{"2024-02-28", 1, "2024-02-29"},
		{"2024-02-29", 1, "2024-03-01"},
		{"2023-02-28", 1, "2023-03-01"},
		{"2025-12-31", 1, "2026-01-01"},
		{"2026-01-01", -1, "2025-12-31"},
		{"2026-03-08", 1, "2026-03-09"},
		{"2026-11-01", 0, "2026-11-01"},
		{"2024-01-01", 366, "2025-01-01"},
		{"2025-02-30", 0, "2025-03-02"},
	}

	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			got := civil.MustParse(tt.start).AddDays(tt.n)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestRoundTripThroughAddDays(t *testing.T) {
	base := civil.MustParse("2023-12-15")
	for n := -400; n <= 800; n += 7 {
		d := base.AddDays(n)
		parsed, err := civil.Parse(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed, "n=%d", n)
	}
}

func TestCompare(t *testing.T) {
	a := civil.MustParse("2026-01-09")
	b := civil.MustParse("2026-01-10")

	assert.Equal(t, -1, civil.Compare(a, b))
	assert.Equal(t, 1, civil.Compare(b, a))
	assert.Equal(t, 0, civil.Compare(a, a))
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 1, a.DaysUntil(b))
	assert.Equal(t, -1, b.DaysUntil(a))
}

func TestWeekend(t *testing.T) {
	assert.Equal(t, time.Thursday, civil.MustParse("2026-01-01").Weekday())
	assert.True(t, civil.MustParse("2026-01-03").IsWeekend())
	assert.True(t, civil.MustParse("2026-01-04").IsWeekend())
	assert.False(t, civil.MustParse("2026-01-05").IsWeekend())
}

func TestJSONUsesCanonicalForm(t *testing.T) {
	payload := struct {
		Day civil.Date `json:"day"`
	}{Day: civil.MustParse("2026-07-04")}

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2026-07-04"}`, string(b))

	var decoded struct {
		Day civil.Date `json:"day"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, payload.Day, decoded.Day)

	err = json.Unmarshal([]byte(`{"day":"07/04/2026"}`), &decoded)
	assert.ErrorIs(t, err, civil.ErrInvalidFormat)
}

func TestHolidayFunc(t *testing.T) {
	lookup := civil.StaticHolidays(map[string][]string{
		"US": {"2026-01-01", "2026-07-03", "2027-01-01"},
	})

	assert.True(t, lookup.Contains("US", civil.MustParse("2026-01-01")))
	assert.True(t, lookup.Contains("US", civil.MustParse("2027-01-01")))
	assert.False(t, lookup.Contains("US", civil.MustParse("2026-01-02")))
	assert.False(t, lookup.Contains("GB", civil.MustParse("2026-01-01")))
	assert.Equal(t, []string{"2026-01-01", "2026-07-03"}, lookup("US", 2026).Sorted())

	var none civil.HolidayFunc
	assert.False(t, none.Contains("US", civil.MustParse("2026-01-01")))
}
