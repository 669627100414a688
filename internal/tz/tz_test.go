package tz_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/civil"
	"plancal/internal/tz"
)

func TestIsValid(t *testing.T) {
	assert.True(t, tz.IsValid("UTC"))
	assert.True(t, tz.IsValid("America/Los_Angeles"))
	assert.True(t, tz.IsValid("Asia/Manila"))
	assert.False(t, tz.IsValid(""))
	assert.False(t, tz.IsValid("Local"))
	assert.False(t, tz.IsValid("Mars/Olympus_Mons"))
	assert.False(t, tz.IsValid("../etc/passwd"))
}

func TestOffsetAt_UTCIsZero(t *testing.T) {
	for _, instant := range []time.Time{
		time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 15, 3, 30, 0, 0, time.UTC),
		time.Unix(0, 0),
	} {
		off, err := tz.OffsetAt("UTC", instant)
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), off)
	}
}

func TestOffsetAt_Deterministic(t *testing.T) {
	instant := time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC)
	a, err := tz.OffsetAt("America/New_York", instant)
	require.NoError(t, err)
	b, err := tz.OffsetAt("America/New_York", instant)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestOffsetAt_AppliesDST(t *testing.T) {
	winter := time.Date(2026, 2, 20, 15, 0, 0, 0, time.UTC)
	summer := winter.AddDate(0, 6, 0)

	w, err := tz.OffsetAt("America/New_York", winter)
	require.NoError(t, err)
	s, err := tz.OffsetAt("America/New_York", summer)
	require.NoError(t, err)

	assert.Equal(t, -5*time.Hour, w)
	assert.Equal(t, -4*time.Hour, s)
	assert.NotEqual(t, w, s)
}

func TestOffsetAt_HalfHourZone(t *testing.T) {
	off, err := tz.OffsetAt("Asia/Kolkata", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour+30*time.Minute, off)
}

func TestOffsetAt_InvalidZone(t *testing.T) {
	_, err := tz.OffsetAt("Nowhere/Special", time.Now())
	assert.ErrorIs(t, err, tz.ErrInvalidTimeZone)
}

func TestCivilToInstant_RoundTripAcrossSeasons(t *testing.T) {
	instant, err := tz.CivilToInstant("America/New_York", 2026, time.February, 20, 9, 15, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 20, 14, 15, 0, 0, time.UTC), instant)

	off, err := tz.OffsetAt("America/New_York", instant)
	require.NoError(t, err)
	local := instant.Add(off)
	assert.Equal(t, 2026, local.Year())
	assert.Equal(t, time.February, local.Month())
	assert.Equal(t, 20, local.Day())
	assert.Equal(t, 9, local.Hour())
	assert.Equal(t, 15, local.Minute())

	summer, err := tz.CivilToInstant("America/New_York", 2026, time.August, 20, 9, 15, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 20, 13, 15, 0, 0, time.UTC), summer)
}

func TestCivilToInstant_EastOfUTC(t *testing.T) {
	instant, err := tz.CivilToInstant("Asia/Manila", 2026, time.January, 1, 0, 30, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 31, 16, 30, 0, 0, time.UTC), instant)
}

func TestCivilToInstant_RepeatedHourPrefersEarlier(t *testing.T) {
	// 01:30 happens twice on 2026-11-01 in New York: first in EDT, then EST.
	instant, err := tz.CivilToInstant("America/New_York", 2026, time.November, 1, 1, 30, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC), instant)
}

func TestCivilToInstant_SkippedHourMovesForward(t *testing.T) {
	// 02:30 does not exist on 2026-03-08 in New York.
	instant, err := tz.CivilToInstant("America/New_York", 2026, time.March, 8, 2, 30, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC), instant)

	label, err := tz.FormatLocal(instant, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "Sun, 08 Mar 2026 03:30 EDT", label)
}

func TestCivilToInstant_InvalidZone(t *testing.T) {
	_, err := tz.CivilToInstant("Not/AZone", 2026, time.January, 1, 0, 0, 0)
	assert.ErrorIs(t, err, tz.ErrInvalidTimeZone)
}

func TestOffsetLabel(t *testing.T) {
	tests := []struct {
		zone    string
		instant time.Time
		want    string
	}{
		{"UTC", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "UTC+00:00"},
		{"America/Los_Angeles", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "UTC-08:00"},
		{"America/Los_Angeles", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), "UTC-07:00"},
		{"Asia/Kathmandu", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "UTC+05:45"},
		{"America/St_Johns", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "UTC-03:30"},
	}
	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			got, err := tz.OffsetLabel(tt.instant, tt.zone)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert(t *testing.T) {
	c, err := tz.Convert("America/Los_Angeles", "Asia/Manila", civil.MustParse("2026-03-02"), 18, 0)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC), c.Instant)
	assert.Equal(t, "2026-03-02T18:00", c.From.Local)
	assert.Equal(t, "2026-03-03T10:00", c.To.Local)
	assert.Equal(t, "UTC-08:00", c.From.Offset)
	assert.Equal(t, "UTC+08:00", c.To.Offset)
	assert.Equal(t, 1, c.DayShift)
	assert.Equal(t, 600, c.To.MinuteOfDay)

	_, err = tz.Convert("America/Los_Angeles", "Bogus/Zone", civil.MustParse("2026-03-02"), 18, 0)
	assert.ErrorIs(t, err, tz.ErrInvalidTimeZone)
}

func TestLoad_ConcurrentCallers(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loc, err := tz.Load("Europe/Berlin")
			assert.NoError(t, err)
			assert.Equal(t, "Europe/Berlin", loc.String())
		}()
	}
	wg.Wait()
}

func TestParseLocal(t *testing.T) {
	d, h, m, err := tz.ParseLocal("2026-03-08T02:30")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-08", d.String())
	assert.Equal(t, 2, h)
	assert.Equal(t, 30, m)

	_, h, _, err = tz.ParseLocal("2026-03-08 17:05")
	require.NoError(t, err)
	assert.Equal(t, 17, h)

	for _, bad := range []string{"", "2026-03-08", "2026-3-8T10:00", "2026-03-08T25:00", "2026-03-08T9am"} {
		_, _, _, err := tz.ParseLocal(bad)
		assert.ErrorIs(t, err, civil.ErrInvalidFormat, bad)
	}
}
