package csvio

// SlotRow is a line of time_slots.csv.
type SlotRow struct {
	SlotNumber int    `csv:"slot_number"`
	StartTime  string `csv:"start_time"`
	EndTime    string `csv:"end_time"`
	IsBreak    bool   `csv:"is_break"`
}

// LabRow is a line of labs.csv.
type LabRow struct {
	LabID    string `csv:"lab_id"`
	RoomCode string `csv:"room_code"`
	IsActive bool   `csv:"is_active"`
}

// LabRestrictionRow is a line of lab_restrictions.csv. Empty columns match
// anything.
type LabRestrictionRow struct {
	LabID       string `csv:"lab_id"`
	ProgramID   string `csv:"program_id"`
	YearOfStudy string `csv:"year_of_study"`
	CourseCode  string `csv:"course_code"`
}

// ConfigRow is a line of configs.csv. LabIDs is a semicolon separated list.
type ConfigRow struct {
	ConfigID    string `csv:"config_id"`
	ProgramID   string `csv:"program_id"`
	ProgramCode string `csv:"program_code"`
	YearOfStudy int    `csv:"year_of_study"`
	LabIDs      string `csv:"lab_ids"`
}

// BatchRow is a line of batches.csv.
type BatchRow struct {
	BatchID     string `csv:"batch_id"`
	BatchName   string `csv:"batch"`
	ProgramID   string `csv:"program_id"`
	YearOfStudy int    `csv:"year_of_study"`
}

// AssignmentRow is a line of assignments.csv.
type AssignmentRow struct {
	AssignmentID   string `csv:"assignment_id"`
	BatchID        string `csv:"batch_id"`
	CourseCode     string `csv:"course_code"`
	CourseTitle    string `csv:"course_title"`
	CourseType     string `csv:"course_type"`
	LectureHours   int    `csv:"lecture_hours"`
	TutorialHours  int    `csv:"tutorial_hours"`
	PracticalHours int    `csv:"practical_hours"`
	FacultyID      string `csv:"faculty_id"`
	LabAssistantID string `csv:"lab_assistant_id"`
}

// ReservationRow is a line of reservations.csv.
type ReservationRow struct {
	ConfigID   string `csv:"config_id"`
	BatchID    string `csv:"batch_id"`
	Day        string `csv:"day"`
	SlotNumber int    `csv:"slot_number"`
	CourseCode string `csv:"course_code"`
	FacultyID  string `csv:"faculty_id"`
	IsBlocked  bool   `csv:"is_blocked"`
	Note       string `csv:"note"`
}

// EntryRow is a line of the generated entries.csv.
type EntryRow struct {
	ConfigID       string `csv:"config_id"`
	BatchID        string `csv:"batch_id"`
	Batch          string `csv:"batch"`
	Day            string `csv:"day"`
	Period         int    `csv:"period"`
	CourseCode     string `csv:"course_code"`
	FacultyID      string `csv:"faculty_id"`
	LabAssistantID string `csv:"lab_assistant_id"`
	IsLab          bool   `csv:"is_lab"`
	LabRoom        string `csv:"lab_room"`
	LabEndPeriod   int    `csv:"lab_end_period"`
	IsBlocked      bool   `csv:"is_blocked"`
	Note           string `csv:"note"`
	Source         string `csv:"source"`
}
