package timetable

// cellSet is a dense (day, period) occupancy grid. Period index 0 is unused so
// periods can be addressed by their ordinal number.
type cellSet [NumDays][PeriodsPerDay + 1]bool

func (c *cellSet) has(day Day, period int) bool {
	if !day.Valid() || period < 1 || period > PeriodsPerDay {
		return false
	}
	return c[day][period]
}

func (c *cellSet) hasAny(day Day, periods []int) bool {
	for _, p := range periods {
		if c.has(day, p) {
			return true
		}
	}
	return false
}

func (c *cellSet) set(day Day, period int) {
	if !day.Valid() || period < 1 || period > PeriodsPerDay {
		return
	}
	c[day][period] = true
}

// FacultyBusy records the cells every faculty member (or lab assistant) is
// already teaching in.
type FacultyBusy struct {
	cells map[string]*cellSet
}

// NewFacultyBusy returns an empty faculty tracker.
func NewFacultyBusy() *FacultyBusy {
	return &FacultyBusy{cells: make(map[string]*cellSet)}
}

// Busy reports whether the faculty member teaches at (day, period). An empty
// id is never busy.
func (f *FacultyBusy) Busy(facultyID string, day Day, period int) bool {
	if facultyID == "" {
		return false
	}
	set := f.cells[facultyID]
	return set != nil && set.has(day, period)
}

// BusyAny reports whether the faculty member teaches in any of the periods.
func (f *FacultyBusy) BusyAny(facultyID string, day Day, periods []int) bool {
	if facultyID == "" {
		return false
	}
	set := f.cells[facultyID]
	return set != nil && set.hasAny(day, periods)
}

// Book marks the faculty member busy at (day, period).
func (f *FacultyBusy) Book(facultyID string, day Day, period int) {
	if facultyID == "" {
		return
	}
	set := f.cells[facultyID]
	if set == nil {
		set = &cellSet{}
		f.cells[facultyID] = set
	}
	set.set(day, period)
}

// LabOccupant identifies the batch holding a lab window.
type LabOccupant struct {
	BatchID string
	Label   string
}

// IsZero reports whether the window is free.
func (o LabOccupant) IsZero() bool {
	return o.BatchID == "" && o.Label == ""
}

type labWeek [NumDays][4]LabOccupant

// LabBusy records which batch holds each lab in each 2-period window.
type LabBusy struct {
	labs map[string]*labWeek
}

// NewLabBusy returns an empty lab tracker.
func NewLabBusy() *LabBusy {
	return &LabBusy{labs: make(map[string]*labWeek)}
}

// Occupant returns the batch holding the lab in the given 2-period window.
func (l *LabBusy) Occupant(labID string, day Day, pair int) LabOccupant {
	week := l.labs[labID]
	if week == nil || !day.Valid() || pair < 0 || pair >= len(TwoPeriodWindows) {
		return LabOccupant{}
	}
	return week[day][pair]
}

// Free reports whether the lab is free for every 2-period window inside w.
func (l *LabBusy) Free(labID string, day Day, w Window) bool {
	for _, pair := range pairIndexes(w) {
		if !l.Occupant(labID, day, pair).IsZero() {
			return false
		}
	}
	return true
}

// Book assigns every 2-period window inside w to the occupant.
func (l *LabBusy) Book(labID string, day Day, w Window, occupant LabOccupant) {
	if !day.Valid() {
		return
	}
	week := l.labs[labID]
	if week == nil {
		week = &labWeek{}
		l.labs[labID] = week
	}
	for _, pair := range pairIndexes(w) {
		week[day][pair] = occupant
	}
}

// Tracker is the resource state shared by every batch and config of one
// generation run.
type Tracker struct {
	Faculty *FacultyBusy
	Labs    *LabBusy
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{Faculty: NewFacultyBusy(), Labs: NewLabBusy()}
}

// Commitment is an already persisted booking of a batch that is not being
// regenerated.
type Commitment struct {
	FacultyID string
	LabRoomID string
	BatchID   string
	Day       Day
	Period    int
}

// Seed books persisted commitments into the tracker.
func (t *Tracker) Seed(commitments []Commitment) {
	for _, c := range commitments {
		t.Faculty.Book(c.FacultyID, c.Day, c.Period)
		if c.LabRoomID == "" || c.Period < 1 || c.Period > PeriodsPerDay {
			continue
		}
		pair := TwoPeriodWindows[(c.Period-1)/2]
		t.Labs.Book(c.LabRoomID, c.Day, pair, LabOccupant{BatchID: c.BatchID, Label: "existing"})
	}
}
