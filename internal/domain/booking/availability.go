package booking

import "time"

// FirstConflict returns the first booking whose window overlaps candidate, or nil.
// Each existing booking's window is re-resolved from its dates and times in loc;
// bookings whose stored values no longer resolve are skipped.
func FirstConflict(candidate Window, existing []*Booking, loc *time.Location) *Booking {
	for _, b := range existing {
		if b.status == StatusCancelled {
			continue
		}
		w, err := ResolveWindow(b.startDate, b.endDate, b.checkInTime, b.checkOutTime, loc)
		if err != nil {
			continue
		}
		if candidate.Overlaps(w) {
			return b
		}
	}
	return nil
}
