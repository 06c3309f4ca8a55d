package timetable

import "strings"

// Course type codes as stored by the academics module.
const (
	CourseTypeTheory         = "T"
	CourseTypeLab            = "L"
	CourseTypeLabIntegrated  = "LIT"
	CourseTypeLabLegacy      = "LAB"
	CourseTypeProject        = "PROJECT"
	CourseTypeSeminar        = "SEMINAR"
	defaultLabSessionPeriods = 2
)

// Course carries the weekly hour split the calculator needs.
type Course struct {
	Code           string
	Title          string
	Type           string
	LectureHours   int
	TutorialHours  int
	PracticalHours int
}

// HasLab reports whether the course type carries a lab component.
func (c Course) HasLab() bool {
	switch strings.ToUpper(strings.TrimSpace(c.Type)) {
	case CourseTypeLab, CourseTypeLabIntegrated, CourseTypeLabLegacy:
		return true
	}
	return false
}

// Requirement is the weekly demand of one course.
type Requirement struct {
	Theory           int
	LabSessions      int
	LabSessionLength int
	Total            int
	IsLabCourse      bool
}

// RequiredPeriods derives the weekly theory periods and lab sessions of a course.
func RequiredPeriods(c Course) Requirement {
	lecture := nonNegative(c.LectureHours)
	if !c.HasLab() {
		theory := lecture + nonNegative(c.TutorialHours)
		return Requirement{Theory: theory, Total: theory}
	}

	practical := nonNegative(c.PracticalHours)
	length := defaultLabSessionPeriods
	sessions := max(1, practical/2)
	if practical >= 4 {
		length = 4
		sessions = 1
	}
	return Requirement{
		Theory:           lecture,
		LabSessions:      sessions,
		LabSessionLength: length,
		Total:            lecture + sessions*length,
		IsLabCourse:      true,
	}
}

// ApplyReserved removes demand already covered by pinned reservations. For lab
// courses every full session worth of reserved periods counts as one placed lab
// session and the remainder is taken off the theory demand.
func ApplyReserved(req Requirement, reserved int) Requirement {
	if reserved <= 0 {
		return req
	}
	out := req
	if req.LabSessionLength == 0 {
		out.Theory = max(0, req.Theory-reserved)
		return out
	}
	used := reserved / req.LabSessionLength
	out.LabSessions = max(0, req.LabSessions-used)
	leftover := reserved - used*req.LabSessionLength
	out.Theory = max(0, req.Theory-leftover)
	return out
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
