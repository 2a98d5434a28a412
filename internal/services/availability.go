package services

import (
	"time"

	"github.com/staylong/rental-backend/internal/models"
)

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both ends to UTC midnight
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: dayOf(start), End: dayOf(end)}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// withBuffer extends the end of the range by bufferDays
func (r DateRange) withBuffer(bufferDays int) DateRange {
	return DateRange{Start: r.Start, End: r.End.AddDate(0, 0, bufferDays)}
}

// overlaps reports inclusive overlap
func (r DateRange) overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// ActiveBookings filters out cancelled and lapsed pending bookings
func ActiveBookings(bookings []models.Booking, now time.Time) []models.Booking {
	active := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.BlocksAvailability(now) {
			active = append(active, b)
		}
	}
	return active
}

// HasConflict reports whether candidate collides with any existing booking.
// The cleaning buffer is added to the end of both the candidate and each
// existing booking, so a new stay must leave bufferDays free after the previous
// checkout and before the next check-in. existing must already be filtered
// with ActiveBookings.
func HasConflict(candidate DateRange, bufferDays int, existing []models.Booking) bool {
	return FirstConflict(candidate, bufferDays, existing) != nil
}

// FirstConflict returns the first booking colliding with candidate, or nil
func FirstConflict(candidate DateRange, bufferDays int, existing []models.Booking) *models.Booking {
	buffered := NewDateRange(candidate.Start, candidate.End).withBuffer(bufferDays)
	for i := range existing {
		other := NewDateRange(existing[i].StartDate, existing[i].EndDate).withBuffer(bufferDays)
		if buffered.overlaps(other) {
			return &existing[i]
		}
	}
	return nil
}
