package access

import "time"

const (
	futureWindow = 30 * 24 * time.Hour
	activeSlack  = 24 * time.Hour
	pastWindow   = 365 * 24 * time.Hour
)

// InWindow reports whether now falls inside a permitted access window for the
// given appointment. Three windows exist; any one grants temporal access:
//
//   - Future: scheduled/confirmed appointment no more than 30 days ahead.
//   - Active: in_progress/confirmed/completed appointment dated within 24
//     hours either side of now, covering early and late sessions.
//   - Past: completed/cancelled/no_show appointment within the last 365 days.
//
// The caller supplies now; this function never reads a wall clock.
func InWindow(now time.Time, appt Appointment) bool {
	d := appt.AppointmentDate

	switch appt.Status {
	case StatusScheduled, StatusConfirmed:
		if d.After(now) && !d.After(now.Add(futureWindow)) {
			return true
		}
	}

	switch appt.Status {
	case StatusInProgress, StatusConfirmed, StatusCompleted:
		if !d.After(now.Add(activeSlack)) && !d.Before(now.Add(-activeSlack)) {
			return true
		}
	}

	switch appt.Status {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		if !d.After(now) && !d.Before(now.Add(-pastWindow)) {
			return true
		}
	}

	return false
}
