package models

import "time"

// TimeSlot is one numbered period of the daily grid.
type TimeSlot struct {
	ID         string `db:"id" json:"id"`
	SlotNumber int    `db:"slot_number" json:"slot_number"`
	StartTime  string `db:"start_time" json:"start_time"`
	EndTime    string `db:"end_time" json:"end_time"`
	IsBreak    bool   `db:"is_break" json:"is_break"`
}

// TimetableConfig is the unit of generation: a program and year of study in a
// given academic year and semester.
type TimetableConfig struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	SemesterID     string    `db:"semester_id" json:"semester_id"`
	ProgramID      string    `db:"program_id" json:"program_id"`
	ProgramCode    string    `db:"program_code" json:"program_code"`
	YearOfStudy    int       `db:"year_of_study" json:"year_of_study"`
	CreatedBy      *string   `db:"created_by" json:"created_by,omitempty"`
	IsGenerated    bool      `db:"is_generated" json:"is_generated"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramBatch is a labelled student group ("N", "P", "Q") of one program and
// year of study.
type ProgramBatch struct {
	ID             string `db:"id" json:"id"`
	AcademicYearID string `db:"academic_year_id" json:"academic_year_id"`
	ProgramID      string `db:"program_id" json:"program_id"`
	YearOfStudy    int    `db:"year_of_study" json:"year_of_study"`
	BatchName      string `db:"batch_name" json:"batch_name"`
	IsActive       bool   `db:"is_active" json:"is_active"`
}

// CourseAssignmentDetail is an active course assignment joined with the hour
// split of its course.
type CourseAssignmentDetail struct {
	ID             string  `db:"id" json:"id"`
	BatchID        string  `db:"batch_id" json:"batch_id"`
	CourseID       string  `db:"course_id" json:"course_id"`
	FacultyID      *string `db:"faculty_id" json:"faculty_id,omitempty"`
	LabAssistantID *string `db:"lab_assistant_id" json:"lab_assistant_id,omitempty"`
	CourseCode     string  `db:"course_code" json:"course_code"`
	CourseTitle    string  `db:"course_title" json:"course_title"`
	CourseType     string  `db:"course_type" json:"course_type"`
	LectureHours   int     `db:"lecture_hours" json:"lecture_hours"`
	TutorialHours  int     `db:"tutorial_hours" json:"tutorial_hours"`
	PracticalHours int     `db:"practical_hours" json:"practical_hours"`
}

// LabRoom is a physical lab.
type LabRoom struct {
	ID       string `db:"id" json:"id"`
	RoomCode string `db:"room_code" json:"room_code"`
	Name     string `db:"name" json:"name"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// LabRestriction limits a lab to a program, year or course. Null columns
// match anything.
type LabRestriction struct {
	ID          string  `db:"id" json:"id"`
	LabID       string  `db:"lab_id" json:"lab_id"`
	ProgramID   *string `db:"program_id" json:"program_id,omitempty"`
	YearOfStudy *int    `db:"year_of_study" json:"year_of_study,omitempty"`
	CourseCode  *string `db:"course_code" json:"course_code,omitempty"`
}

// FixedSlotReservation pins a course/faculty into a cell or blocks it.
type FixedSlotReservation struct {
	ID          string  `db:"id" json:"id"`
	ConfigID    string  `db:"config_id" json:"config_id"`
	BatchID     string  `db:"batch_id" json:"batch_id"`
	Day         string  `db:"day" json:"day"`
	SlotNumber  int     `db:"slot_number" json:"slot_number"`
	CourseID    *string `db:"course_id" json:"course_id,omitempty"`
	CourseCode  *string `db:"course_code" json:"course_code,omitempty"`
	FacultyID   *string `db:"faculty_id" json:"faculty_id,omitempty"`
	SpecialNote *string `db:"special_note" json:"special_note,omitempty"`
	IsBlocked   bool    `db:"is_blocked" json:"is_blocked"`
	BlockReason *string `db:"block_reason" json:"block_reason,omitempty"`
}

// Timetable is the generated timetable header of one batch, unique per
// (academic year, semester, year, program batch).
type Timetable struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	SemesterID     string    `db:"semester_id" json:"semester_id"`
	Year           int       `db:"year" json:"year"`
	ProgramBatchID string    `db:"program_batch_id" json:"program_batch_id"`
	Batch          string    `db:"batch" json:"batch"`
	EffectiveFrom  time.Time `db:"effective_from" json:"effective_from"`
	CreatedBy      *string   `db:"created_by" json:"created_by,omitempty"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableEntry is one filled cell of a timetable.
type TimetableEntry struct {
	ID             string    `db:"id" json:"id"`
	TimetableID    string    `db:"timetable_id" json:"timetable_id"`
	Day            string    `db:"day" json:"day"`
	SlotNumber     int       `db:"slot_number" json:"slot_number"`
	CourseID       *string   `db:"course_id" json:"course_id,omitempty"`
	CourseCode     *string   `db:"course_code" json:"course_code,omitempty"`
	FacultyID      *string   `db:"faculty_id" json:"faculty_id,omitempty"`
	LabAssistantID *string   `db:"lab_assistant_id" json:"lab_assistant_id,omitempty"`
	LabRoomID      *string   `db:"lab_room_id" json:"lab_room_id,omitempty"`
	IsLab          bool      `db:"is_lab" json:"is_lab"`
	LabEndSlot     *int      `db:"lab_end_slot" json:"lab_end_slot,omitempty"`
	SpecialNote    *string   `db:"special_note" json:"special_note,omitempty"`
	IsBlocked      bool      `db:"is_blocked" json:"is_blocked"`
	BlockReason    *string   `db:"block_reason" json:"block_reason,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// FacultyCommitment is a faculty or lab booking held by an active timetable.
type FacultyCommitment struct {
	BatchID        string  `db:"batch_id"`
	FacultyID      *string `db:"faculty_id"`
	LabAssistantID *string `db:"lab_assistant_id"`
	LabRoomID      *string `db:"lab_room_id"`
	Day            string  `db:"day"`
	SlotNumber     int     `db:"slot_number"`
}
