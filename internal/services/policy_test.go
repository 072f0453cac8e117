package services

import (
	"testing"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffSchedule(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Backoff(1))
	assert.Equal(t, 30*time.Minute, Backoff(2))
	assert.Equal(t, 120*time.Minute, Backoff(3))

	// Out-of-range attempts clamp instead of panicking.
	assert.Equal(t, 5*time.Minute, Backoff(0))
	assert.Equal(t, 5*time.Minute, Backoff(-3))
	assert.Equal(t, 120*time.Minute, Backoff(9))
}

func TestBackoffIsNonDecreasing(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 5; attempt++ {
		d := Backoff(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(-time.Hour), PeriodStart(models.PeriodHourly, now))
	assert.Equal(t, now.AddDate(0, 0, -1), PeriodStart(models.PeriodDaily, now))
	assert.Equal(t, now.AddDate(0, 0, -7), PeriodStart(models.PeriodWeekly, now))
}

func defaultQuiet() models.QuietHours {
	return models.QuietHours{
		Enabled:        true,
		Start:          "22:00",
		End:            "08:00",
		Timezone:       "UTC",
		ExemptTriggers: []models.Trigger{models.TriggerPIIRequest, models.TriggerSuspiciousLogin},
	}
}

func TestApplyQuietHoursWrapsMidnight(t *testing.T) {
	q := defaultQuiet()

	// 23:30 falls inside a 22:00-08:00 window; delivery moves to 08:00
	// the following day.
	candidate := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	got := ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate)
	assert.Equal(t, time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC), got)

	// 03:00 is inside the same window, past midnight; delivery moves to
	// 08:00 the same day.
	candidate = time.Date(2024, 3, 16, 3, 0, 0, 0, time.UTC)
	got = ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate)
	assert.Equal(t, time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC), got)
}

func TestApplyQuietHoursOutsideWindow(t *testing.T) {
	q := defaultQuiet()

	candidate := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	got := ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate)
	assert.Equal(t, candidate, got)

	// 08:00 exactly is the window's exclusive end.
	candidate = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	got = ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate)
	assert.Equal(t, candidate, got)
}

func TestApplyQuietHoursCriticalBypasses(t *testing.T) {
	q := defaultQuiet()
	candidate := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	got := ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityCritical, candidate)
	assert.Equal(t, candidate, got)
}

func TestApplyQuietHoursExemptTrigger(t *testing.T) {
	q := defaultQuiet()
	candidate := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	got := ApplyQuietHours(q, models.TriggerSuspiciousLogin, models.PriorityMedium, candidate)
	assert.Equal(t, candidate, got)
}

func TestApplyQuietHoursDisabled(t *testing.T) {
	q := defaultQuiet()
	q.Enabled = false
	candidate := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	got := ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate)
	assert.Equal(t, candidate, got)
}

func TestApplyQuietHoursNonWrappingWindow(t *testing.T) {
	q := models.QuietHours{Enabled: true, Start: "13:00", End: "15:00", Timezone: "UTC"}

	candidate := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	got := ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate)
	assert.Equal(t, time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC), got)

	candidate = time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	got = ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate)
	assert.Equal(t, candidate, got)
}

func TestApplyQuietHoursUserTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	q := defaultQuiet()
	q.Timezone = "America/New_York"

	// 23:30 New York local time, expressed in UTC.
	candidate := time.Date(2024, 3, 15, 23, 30, 0, 0, loc).UTC()
	got := ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate)
	assert.Equal(t, time.Date(2024, 3, 16, 8, 0, 0, 0, loc).UTC(), got)
}

func TestApplyQuietHoursInvalidConfig(t *testing.T) {
	// Malformed clock strings or unknown timezones must never block delivery.
	q := models.QuietHours{Enabled: true, Start: "late", End: "early", Timezone: "UTC"}
	candidate := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, candidate, ApplyQuietHours(q, models.TriggerNewMatch, models.PriorityMedium, candidate))
}

func TestNextDigestTime(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 20, 0, 0, time.UTC) // a Friday

	assert.Equal(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), NextDigestTime(models.CadenceHourly, now))
	assert.Equal(t, time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC), NextDigestTime(models.CadenceDaily, now))
	assert.Equal(t, time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC), NextDigestTime(models.CadenceWeekly, now))

	// Before the daily slot, delivery lands the same day.
	early := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC), NextDigestTime(models.CadenceDaily, early))
}
