package timetable

import "fmt"

// EntrySource tells where a schedule entry came from.
type EntrySource string

const (
	SourceReserved EntrySource = "RESERVED"
	SourceBlocked  EntrySource = "BLOCKED"
	SourceAuto     EntrySource = "AUTO"
)

// Entry is one filled (day, period) cell of a batch timetable.
type Entry struct {
	BatchID        string
	Day            Day
	Period         int
	CourseCode     string
	FacultyID      string
	LabAssistantID string
	IsLab          bool
	LabRoomID      string
	LabRoomCode    string
	LabEndPeriod   int
	IsBlocked      bool
	Note           string
	Source         EntrySource
}

// WarningKind classifies an unmet requirement.
type WarningKind string

const (
	WarningLab4        WarningKind = "LAB_4_PERIOD"
	WarningLab2        WarningKind = "LAB_2_PERIOD"
	WarningTheory      WarningKind = "THEORY"
	WarningReservation WarningKind = "RESERVATION"
	WarningConfig      WarningKind = "CONFIG"
)

// Warning describes demand that could not be placed.
type Warning struct {
	Kind       WarningKind
	CourseCode string
	BatchLabel string
	Remaining  int
	Detail     string
}

func (w Warning) String() string {
	switch w.Kind {
	case WarningLab4, WarningLab2:
		length := 4
		if w.Kind == WarningLab2 {
			length = 2
		}
		return fmt.Sprintf("could not schedule %d-period lab for %s (batch %s, %d session(s) remaining)",
			length, w.CourseCode, w.BatchLabel, w.Remaining)
	case WarningTheory:
		return fmt.Sprintf("could not schedule theory for %s (batch %s, %d period(s) remaining)",
			w.CourseCode, w.BatchLabel, w.Remaining)
	case WarningReservation:
		return fmt.Sprintf("skipped reservation for batch %s: %s", w.BatchLabel, w.Detail)
	default:
		return w.Detail
	}
}
