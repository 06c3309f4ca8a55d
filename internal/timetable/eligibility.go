package timetable

import "sort"

// LabRestriction limits a lab to a program, a year of study and/or a course.
// A nil dimension matches anything.
type LabRestriction struct {
	ProgramID   *string
	YearOfStudy *int
	CourseCode  *string
}

func (r LabRestriction) matches(programID string, year int, courseCode string) bool {
	if r.ProgramID != nil && *r.ProgramID != programID {
		return false
	}
	if r.YearOfStudy != nil && *r.YearOfStudy != year {
		return false
	}
	if r.CourseCode != nil && (courseCode == "" || *r.CourseCode != courseCode) {
		return false
	}
	return true
}

// LabRoom is a physical lab that can host practical sessions.
type LabRoom struct {
	ID           string
	Code         string
	Active       bool
	Restrictions []LabRestriction
}

// Allows reports whether the lab may host a session of courseCode for the
// program and year. Labs without restrictions are open to all; otherwise at
// least one restriction must match. courseCode may be empty.
func (l LabRoom) Allows(programID string, year int, courseCode string) bool {
	if len(l.Restrictions) == 0 {
		return true
	}
	for _, r := range l.Restrictions {
		if r.matches(programID, year, courseCode) {
			return true
		}
	}
	return false
}

func (l LabRoom) dedicatedTo(courseCode string) bool {
	for _, r := range l.Restrictions {
		if r.CourseCode != nil && *r.CourseCode == courseCode {
			return true
		}
	}
	return false
}

// LabPool is the ordered set of labs usable in one config.
type LabPool struct {
	labs []LabRoom
}

// NewLabPool keeps the active labs ordered by room code.
func NewLabPool(labs []LabRoom) *LabPool {
	active := make([]LabRoom, 0, len(labs))
	for _, lab := range labs {
		if lab.Active {
			active = append(active, lab)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Code < active[j].Code })
	return &LabPool{labs: active}
}

// Labs returns the pool in iteration order.
func (p *LabPool) Labs() []LabRoom {
	return p.labs
}

// Len is the number of labs in the pool.
func (p *LabPool) Len() int {
	return len(p.labs)
}

// Preferred returns the first lab with a restriction naming the course.
func (p *LabPool) Preferred(courseCode string) (LabRoom, bool) {
	if courseCode == "" {
		return LabRoom{}, false
	}
	for _, lab := range p.labs {
		if lab.dedicatedTo(courseCode) {
			return lab, true
		}
	}
	return LabRoom{}, false
}

// Candidates lists the labs in placement order: the preferred lab for the
// course first, then every other lab in pool order.
func (p *LabPool) Candidates(courseCode string) []LabRoom {
	preferred, ok := p.Preferred(courseCode)
	if !ok {
		return p.labs
	}
	out := make([]LabRoom, 0, len(p.labs))
	out = append(out, preferred)
	for _, lab := range p.labs {
		if lab.ID != preferred.ID {
			out = append(out, lab)
		}
	}
	return out
}
