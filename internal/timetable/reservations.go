package timetable

import "fmt"

// ReservationContent is either Pinned or Blocked.
type ReservationContent interface {
	reservation()
}

// Pinned fixes a course and faculty into a cell. Either may be empty.
type Pinned struct {
	CourseCode string
	FacultyID  string
	Note       string
}

// Blocked marks a cell unusable, e.g. library hour.
type Blocked struct {
	Reason string
}

func (Pinned) reservation()  {}
func (Blocked) reservation() {}

// Reservation is an externally fixed cell of a batch timetable.
type Reservation struct {
	Day     Day
	Period  int
	Content ReservationContent
}

// CountReserved counts the pinned cells that already carry the course.
func CountReserved(reservations []Reservation, courseCode string) int {
	n := 0
	for _, r := range reservations {
		if p, ok := r.Content.(Pinned); ok && p.CourseCode != "" && p.CourseCode == courseCode {
			n++
		}
	}
	return n
}

// seedReservations copies reservations into the batch output and books them
// into the trackers so auto-fill treats them as taken.
func seedReservations(b *batchRun, reservations []Reservation) {
	for _, r := range reservations {
		if !r.Day.Valid() || r.Period < 1 || r.Period > PeriodsPerDay {
			b.warn(Warning{
				Kind:       WarningReservation,
				BatchLabel: b.batch.Label,
				Detail:     fmt.Sprintf("cell %s/%d is outside the grid", r.Day, r.Period),
			})
			continue
		}
		if b.occupied.has(r.Day, r.Period) {
			b.warn(Warning{
				Kind:       WarningReservation,
				BatchLabel: b.batch.Label,
				Detail:     fmt.Sprintf("cell %s/%d reserved twice", r.Day, r.Period),
			})
			continue
		}
		b.occupied.set(r.Day, r.Period)

		entry := Entry{BatchID: b.batch.ID, Day: r.Day, Period: r.Period}
		switch content := r.Content.(type) {
		case Pinned:
			entry.CourseCode = content.CourseCode
			entry.FacultyID = content.FacultyID
			entry.Note = content.Note
			entry.Source = SourceReserved
			if b.tracker.Faculty.Busy(content.FacultyID, r.Day, r.Period) {
				b.warn(Warning{
					Kind:       WarningReservation,
					BatchLabel: b.batch.Label,
					Detail:     fmt.Sprintf("faculty %s pinned at %s/%d is already teaching elsewhere", content.FacultyID, r.Day, r.Period),
				})
			}
			b.tracker.Faculty.Book(content.FacultyID, r.Day, r.Period)
			b.markCourseDay(content.CourseCode, r.Day)
		case Blocked:
			entry.IsBlocked = true
			entry.Note = content.Reason
			entry.Source = SourceBlocked
		default:
			entry.IsBlocked = true
			entry.Source = SourceBlocked
		}
		b.entries = append(b.entries, entry)
	}
}
