package services

import (
	"time"

	"github.com/l3v3l-match/backend/internal/models"
)

// backoffSchedule is the fixed retry delay per attempt number, clamped to
// the last value for attempts beyond the schedule.
var backoffSchedule = []time.Duration{5 * time.Minute, 30 * time.Minute, 120 * time.Minute}

// Backoff returns the delay before the next claim after a failed delivery
// attempt. attempt is 1-based: the first failure waits 5 minutes.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(backoffSchedule) {
		attempt = len(backoffSchedule)
	}
	return backoffSchedule[attempt-1]
}

// PeriodStart returns the opening edge of a sliding rate-limit window ending
// at now. Rate limits use rolling windows, not calendar buckets.
func PeriodStart(period models.RatePeriod, now time.Time) time.Time {
	switch period {
	case models.PeriodHourly:
		return now.Add(-time.Hour)
	case models.PeriodDaily:
		return now.AddDate(0, 0, -1)
	case models.PeriodWeekly:
		return now.AddDate(0, 0, -7)
	}
	return now
}

// ApplyQuietHours defers candidate into the recipient's next quiet-hours end
// when the candidate falls inside the configured window. Critical priority
// and exempt triggers are never deferred. The window may wrap midnight
// (start > end). The returned time is in UTC.
func ApplyQuietHours(q models.QuietHours, trigger models.Trigger, priority models.Priority, candidate time.Time) time.Time {
	if !q.Enabled || priority == models.PriorityCritical {
		return candidate
	}
	for _, t := range q.ExemptTriggers {
		if t == trigger {
			return candidate
		}
	}

	start, err := parseClock(q.Start)
	if err != nil {
		return candidate
	}
	end, err := parseClock(q.End)
	if err != nil {
		return candidate
	}

	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := candidate.In(loc)
	minutes := local.Hour()*60 + local.Minute()

	inWindow := false
	if start <= end {
		inWindow = minutes >= start && minutes < end
	} else {
		// Window spans midnight, e.g. 22:00-08:00.
		inWindow = minutes >= start || minutes < end
	}
	if !inWindow {
		return candidate
	}

	windowEnd := time.Date(local.Year(), local.Month(), local.Day(), end/60, end%60, 0, 0, loc)
	if !windowEnd.After(local) {
		windowEnd = windowEnd.AddDate(0, 0, 1)
	}
	return windowEnd.UTC()
}

// NextDigestTime returns the next delivery slot for a digest-batched
// trigger: top of the next hour, 08:00 UTC daily, or Monday 08:00 UTC.
func NextDigestTime(cadence models.DigestCadence, now time.Time) time.Time {
	now = now.UTC()
	switch cadence {
	case models.CadenceHourly:
		return now.Truncate(time.Hour).Add(time.Hour)
	case models.CadenceDaily:
		slot := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC)
		if !slot.After(now) {
			slot = slot.AddDate(0, 0, 1)
		}
		return slot
	case models.CadenceWeekly:
		slot := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC)
		for slot.Weekday() != time.Monday || !slot.After(now) {
			slot = slot.AddDate(0, 0, 1)
		}
		return slot
	}
	return now
}

// parseClock converts "HH:MM" to minutes since midnight
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
