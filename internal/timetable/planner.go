package timetable

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"
)

// ConfigInput is one generation request: a program/year in a semester with
// its selected labs and the batches to fill.
type ConfigInput struct {
	ID          string
	ProgramID   string
	ProgramCode string
	YearOfStudy int
	Slots       []TimeSlot
	Labs        []LabRoom
	Batches     []BatchInput
}

func (c ConfigInput) name() string {
	program := c.ProgramCode
	if program == "" {
		program = c.ProgramID
	}
	return fmt.Sprintf("%s Year %d", program, c.YearOfStudy)
}

// ConfigResult is the outcome of one config.
type ConfigResult struct {
	ConfigID string
	Success  bool
	Error    string
	Batches  []BatchResult
	Warnings []string
}

// PlanResult is the outcome of a whole run.
type PlanResult struct {
	Configs  []ConfigResult
	Warnings []string
}

// PlanOptions configures a run.
type PlanOptions struct {
	Rand   *rand.Rand
	Logger *zap.Logger
}

// ErrNoBatches is reported for configs without matching batches.
const ErrNoBatches = "no batches found"

// Plan runs every config in order against one shared tracker, so faculty and
// lab bookings made for an earlier config constrain the later ones.
// Commitments from timetables that are not regenerated are booked first.
func Plan(inputs []ConfigInput, commitments []Commitment, opts PlanOptions) PlanResult {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	tracker := NewTracker()
	tracker.Seed(commitments)

	result := PlanResult{Configs: make([]ConfigResult, 0, len(inputs))}
	for _, in := range inputs {
		cfgResult := planConfig(in, tracker, opts)
		if !cfgResult.Success {
			cfgResult.Warnings = append(cfgResult.Warnings, fmt.Sprintf("%s: %s", in.name(), cfgResult.Error))
			opts.Logger.Warn("timetable config skipped",
				zap.String("config_id", in.ID),
				zap.String("reason", cfgResult.Error),
			)
		}
		for _, b := range cfgResult.Batches {
			for _, w := range b.Warnings {
				cfgResult.Warnings = append(cfgResult.Warnings, w.String())
			}
		}
		result.Warnings = append(result.Warnings, cfgResult.Warnings...)
		result.Configs = append(result.Configs, cfgResult)
	}
	return result
}

func planConfig(in ConfigInput, tracker *Tracker, opts PlanOptions) ConfigResult {
	res := ConfigResult{ConfigID: in.ID}
	if len(in.Batches) == 0 {
		res.Error = ErrNoBatches
		return res
	}
	engine, err := NewEngine(Options{
		Slots:     in.Slots,
		Labs:      NewLabPool(in.Labs),
		ProgramID: in.ProgramID,
		Year:      in.YearOfStudy,
		Tracker:   tracker,
		Rand:      opts.Rand,
		Logger:    opts.Logger.With(zap.String("config_id", in.ID)),
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Batches = make([]BatchResult, 0, len(in.Batches))
	for _, b := range in.Batches {
		res.Batches = append(res.Batches, engine.ScheduleBatch(b))
	}
	res.Success = true
	return res
}

// BatchPreview summarises what generation would need for one batch.
type BatchPreview struct {
	BatchID            string
	BatchLabel         string
	ReservedCount      int
	BlockedCount       int
	RemainingSlots     int
	TotalPeriodsNeeded int
	CoursesCount       int
}

// PreviewReport is the dry-run result of a config.
type PreviewReport struct {
	ConfigID           string
	Batches            []BatchPreview
	TotalLabsAvailable int
	LabCodes           []string
}

// Preview reports reserved and blocked cells and outstanding demand per batch
// without scheduling anything.
func Preview(in ConfigInput) PreviewReport {
	pool := NewLabPool(in.Labs)
	report := PreviewReport{
		ConfigID:           in.ID,
		TotalLabsAvailable: pool.Len(),
		LabCodes:           make([]string, 0, pool.Len()),
		Batches:            make([]BatchPreview, 0, len(in.Batches)),
	}
	for _, lab := range pool.Labs() {
		report.LabCodes = append(report.LabCodes, lab.Code)
	}

	for _, b := range in.Batches {
		bp := BatchPreview{BatchID: b.Batch.ID, BatchLabel: b.Batch.Label}
		for _, r := range b.Reservations {
			switch r.Content.(type) {
			case Blocked:
				bp.BlockedCount++
			default:
				bp.ReservedCount++
			}
		}
		courses := make(map[string]struct{}, len(b.Assignments))
		for _, a := range b.Assignments {
			bp.TotalPeriodsNeeded += RequiredPeriods(a.Course).Total
			courses[a.Course.Code] = struct{}{}
		}
		bp.CoursesCount = len(courses)
		bp.RemainingSlots = NumDays*PeriodsPerDay - bp.ReservedCount - bp.BlockedCount
		report.Batches = append(report.Batches, bp)
	}
	return report
}
