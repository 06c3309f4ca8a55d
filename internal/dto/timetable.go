package dto

import "time"

// GenerateTimetableRequest generates the timetables of every batch of one config.
type GenerateTimetableRequest struct {
	ConfigID      string  `json:"configId" validate:"required"`
	EffectiveFrom *string `json:"effectiveFrom" validate:"omitempty,datetime=2006-01-02"`
	Seed          *int64  `json:"seed"`
	RequestedBy   string  `json:"-"`
}

// GenerateAllRequest generates several configs in one run, in the given order.
type GenerateAllRequest struct {
	ConfigIDs     []string `json:"configIds" validate:"required,min=1,dive,required"`
	EffectiveFrom *string  `json:"effectiveFrom" validate:"omitempty,datetime=2006-01-02"`
	Seed          *int64   `json:"seed"`
	RequestedBy   string   `json:"-"`
}

// GeneratedTimetable summarises one persisted batch timetable.
type GeneratedTimetable struct {
	TimetableID string `json:"timetableId"`
	ConfigID    string `json:"configId"`
	BatchID     string `json:"batchId"`
	Batch       string `json:"batch"`
	EntryCount  int    `json:"entryCount"`
}

// ConfigOutcome reports whether a config was generated.
type ConfigOutcome struct {
	ConfigID string   `json:"configId"`
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings"`
}

// GenerationResult is the outcome of a generation run.
type GenerationResult struct {
	Configs    []ConfigOutcome      `json:"configs"`
	Timetables []GeneratedTimetable `json:"timetables"`
	Warnings   []string             `json:"warnings"`
	Seed       int64                `json:"seed"`
}

// BatchPreview is the dry-run summary of one batch.
type BatchPreview struct {
	BatchID            string `json:"batchId"`
	Batch              string `json:"batch"`
	ReservedCount      int    `json:"reservedCount"`
	BlockedCount       int    `json:"blockedCount"`
	RemainingSlots     int    `json:"remainingSlots"`
	TotalPeriodsNeeded int    `json:"totalPeriodsNeeded"`
	CoursesCount       int    `json:"coursesCount"`
}

// TimetablePreview is the dry-run report of a config.
type TimetablePreview struct {
	ConfigID           string         `json:"configId"`
	Batches            []BatchPreview `json:"batches"`
	TotalLabsAvailable int            `json:"totalLabsAvailable"`
	LabCodes           []string       `json:"labCodes"`
	GeneratedAt        time.Time      `json:"generatedAt"`
}

// TimetableEntry is one cell of a stored timetable.
type TimetableEntry struct {
	Day            string  `json:"day"`
	Period         int     `json:"period"`
	CourseID       *string `json:"courseId,omitempty"`
	CourseCode     *string `json:"courseCode,omitempty"`
	FacultyID      *string `json:"facultyId,omitempty"`
	LabAssistantID *string `json:"labAssistantId,omitempty"`
	LabRoomID      *string `json:"labRoomId,omitempty"`
	IsLab          bool    `json:"isLab"`
	LabEndPeriod   *int    `json:"labEndPeriod,omitempty"`
	Note           *string `json:"note,omitempty"`
	IsBlocked      bool    `json:"isBlocked"`
	BlockReason    *string `json:"blockReason,omitempty"`
}

// TimetableEntries is a timetable header with its cells.
type TimetableEntries struct {
	TimetableID   string           `json:"timetableId"`
	Batch         string           `json:"batch"`
	Year          int              `json:"year"`
	EffectiveFrom string           `json:"effectiveFrom"`
	Entries       []TimetableEntry `json:"entries"`
}

// ExportTimetableRequest selects the export format.
type ExportTimetableRequest struct {
	TimetableID string `json:"-" validate:"required"`
	Format      string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
}

// ExportResult points at a stored export.
type ExportResult struct {
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Generation job statuses.
const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusSucceeded = "SUCCEEDED"
	JobStatusFailed    = "FAILED"
)

// GenerationJob tracks an asynchronous generate-all run.
type GenerationJob struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	ConfigIDs  []string          `json:"configIds"`
	Result     *GenerationResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	StartedAt  *time.Time        `json:"startedAt,omitempty"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
}
