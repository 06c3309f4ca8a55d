package timetable

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// Assignment says who teaches a course to a batch this semester.
type Assignment struct {
	ID             string
	Course         Course
	FacultyID      string
	LabAssistantID string
}

// Batch is a labelled student group of one program and year.
type Batch struct {
	ID          string
	Label       string
	ProgramID   string
	YearOfStudy int
}

// BatchInput is everything the engine needs to fill one batch timetable.
type BatchInput struct {
	Batch        Batch
	Assignments  []Assignment
	Reservations []Reservation
}

// BatchResult is the generated timetable of one batch.
type BatchResult struct {
	Batch    Batch
	Entries  []Entry
	Warnings []Warning
}

// Options configures an Engine.
type Options struct {
	Slots     []TimeSlot
	Labs      *LabPool
	ProgramID string
	Year      int
	Tracker   *Tracker
	Rand      *rand.Rand
	Logger    *zap.Logger
}

// Engine fills batch timetables for one program/year. Batches must be
// scheduled one after another; the tracker is not safe for concurrent use.
type Engine struct {
	slots     []TimeSlot
	teachable [PeriodsPerDay + 1]bool
	labs      *LabPool
	programID string
	year      int
	tracker   *Tracker
	rng       *rand.Rand
	logger    *zap.Logger
}

// NewEngine validates the grid and wires an engine.
func NewEngine(opts Options) (*Engine, error) {
	slots := opts.Slots
	if len(slots) == 0 {
		slots = DefaultTimeSlots()
	}
	sorted, err := ValidateSlots(slots)
	if err != nil {
		return nil, err
	}
	if opts.Labs == nil {
		opts.Labs = NewLabPool(nil)
	}
	if opts.Tracker == nil {
		opts.Tracker = NewTracker()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	e := &Engine{
		slots:     sorted,
		labs:      opts.Labs,
		programID: opts.ProgramID,
		year:      opts.Year,
		tracker:   opts.Tracker,
		rng:       opts.Rand,
		logger:    opts.Logger,
	}
	for _, slot := range sorted {
		e.teachable[slot.Number] = !slot.IsBreak
	}
	return e, nil
}

// windowTeachable reports whether every period of w is a non-break slot of
// the grid.
func (e *Engine) windowTeachable(w Window) bool {
	for _, p := range w.Periods() {
		if p < 1 || p > PeriodsPerDay || !e.teachable[p] {
			return false
		}
	}
	return true
}

// pending is the remaining demand of one assignment.
type pending struct {
	assignment  Assignment
	theory      int
	labSessions int
	labLength   int
}

type batchRun struct {
	batch      Batch
	tracker    *Tracker
	occupied   cellSet
	courseDays map[string]*[NumDays]bool
	entries    []Entry
	warnings   []Warning
}

func (b *batchRun) warn(w Warning) {
	b.warnings = append(b.warnings, w)
}

func (b *batchRun) markCourseDay(courseCode string, day Day) {
	if courseCode == "" || !day.Valid() {
		return
	}
	days := b.courseDays[courseCode]
	if days == nil {
		days = &[NumDays]bool{}
		b.courseDays[courseCode] = days
	}
	days[day] = true
}

func (b *batchRun) hasCourseOn(courseCode string, day Day) bool {
	days := b.courseDays[courseCode]
	return days != nil && days[day]
}

// ScheduleBatch seeds the reservations of a batch and then places its lab
// sessions (4-period before 2-period) and theory periods. Demand that cannot be
// placed is reported as warnings; placed sessions are kept.
func (e *Engine) ScheduleBatch(in BatchInput) BatchResult {
	run := &batchRun{
		batch:      in.Batch,
		tracker:    e.tracker,
		courseDays: make(map[string]*[NumDays]bool),
	}

	seedReservations(run, in.Reservations)

	work := make([]*pending, 0, len(in.Assignments))
	for _, a := range in.Assignments {
		req := ApplyReserved(RequiredPeriods(a.Course), CountReserved(in.Reservations, a.Course.Code))
		work = append(work, &pending{
			assignment:  a,
			theory:      req.Theory,
			labSessions: req.LabSessions,
			labLength:   req.LabSessionLength,
		})
	}

	for _, length := range []int{4, 2} {
		phase := make([]*pending, 0)
		for _, p := range work {
			if p.labLength == length && p.labSessions > 0 {
				phase = append(phase, p)
			}
		}
		e.shuffle(phase)
		for _, p := range phase {
			e.placeLabSessions(run, p)
		}
	}

	theory := make([]*pending, 0, len(work))
	for _, p := range work {
		if p.theory > 0 {
			theory = append(theory, p)
		}
	}
	e.shuffle(theory)
	for _, p := range theory {
		e.placeTheory(run, p)
	}

	e.logger.Debug("batch scheduled",
		zap.String("batch", in.Batch.Label),
		zap.Int("entries", len(run.entries)),
		zap.Int("warnings", len(run.warnings)),
	)
	return BatchResult{Batch: in.Batch, Entries: run.entries, Warnings: run.warnings}
}

func (e *Engine) shuffle(items []*pending) {
	e.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}

func (e *Engine) shuffledDays() []Day {
	days := make([]Day, len(Days))
	copy(days, Days)
	e.rng.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })
	return days
}

func (e *Engine) placeLabSessions(run *batchRun, p *pending) {
	windows := windowsForLength(p.labLength)
	for p.labSessions > 0 {
		if !e.placeOneLab(run, p, windows) {
			kind := WarningLab2
			if p.labLength == 4 {
				kind = WarningLab4
			}
			run.warn(Warning{
				Kind:       kind,
				CourseCode: p.assignment.Course.Code,
				BatchLabel: run.batch.Label,
				Remaining:  p.labSessions,
			})
			return
		}
		p.labSessions--
	}
}

func (e *Engine) placeOneLab(run *batchRun, p *pending, windows []Window) bool {
	a := p.assignment
	for _, day := range e.shuffledDays() {
		options := make([]Window, len(windows))
		copy(options, windows)
		e.rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

		for _, w := range options {
			if !e.windowTeachable(w) {
				continue
			}
			periods := w.Periods()
			if run.occupied.hasAny(day, periods) {
				continue
			}
			if e.tracker.Faculty.BusyAny(a.FacultyID, day, periods) {
				continue
			}
			if e.tracker.Faculty.BusyAny(a.LabAssistantID, day, periods) {
				continue
			}
			lab, ok := e.availableLab(day, w, a.Course.Code)
			if !ok {
				continue
			}
			e.bookLab(run, a, day, w, lab)
			return true
		}
	}
	return false
}

func (e *Engine) availableLab(day Day, w Window, courseCode string) (LabRoom, bool) {
	for _, lab := range e.labs.Candidates(courseCode) {
		if !e.tracker.Labs.Free(lab.ID, day, w) {
			continue
		}
		if !lab.Allows(e.programID, e.year, courseCode) {
			continue
		}
		return lab, true
	}
	return LabRoom{}, false
}

func (e *Engine) bookLab(run *batchRun, a Assignment, day Day, w Window, lab LabRoom) {
	periods := w.Periods()
	for i, period := range periods {
		note := lab.Code
		if w.Len() == 4 {
			switch i {
			case 0:
				note = lab.Code + " (" + w.Label() + ")"
			case len(periods) - 1:
				note = lab.Code + " (End)"
			}
		}
		entry := Entry{
			BatchID:        run.batch.ID,
			Day:            day,
			Period:         period,
			CourseCode:     a.Course.Code,
			FacultyID:      a.FacultyID,
			LabAssistantID: a.LabAssistantID,
			IsLab:          true,
			LabRoomID:      lab.ID,
			LabRoomCode:    lab.Code,
			Note:           note,
			Source:         SourceAuto,
		}
		if i == 0 {
			entry.LabEndPeriod = w.End
		}
		run.entries = append(run.entries, entry)
		run.occupied.set(day, period)
		e.tracker.Faculty.Book(a.FacultyID, day, period)
		e.tracker.Faculty.Book(a.LabAssistantID, day, period)
	}
	e.tracker.Labs.Book(lab.ID, day, w, LabOccupant{BatchID: run.batch.ID, Label: run.batch.Label})
	run.markCourseDay(a.Course.Code, day)

	e.logger.Debug("lab session placed",
		zap.String("batch", run.batch.Label),
		zap.String("course", a.Course.Code),
		zap.String("day", day.String()),
		zap.String("window", w.String()),
		zap.String("lab", lab.Code),
	)
}

func (e *Engine) placeTheory(run *batchRun, p *pending) {
	a := p.assignment
	for p.theory > 0 {
		if !e.placeOneTheory(run, a) {
			run.warn(Warning{
				Kind:       WarningTheory,
				CourseCode: a.Course.Code,
				BatchLabel: run.batch.Label,
				Remaining:  p.theory,
			})
			return
		}
		p.theory--
	}
}

func (e *Engine) placeOneTheory(run *batchRun, a Assignment) bool {
	days := e.shuffledDays()
	sort.SliceStable(days, func(i, j int) bool {
		return !run.hasCourseOn(a.Course.Code, days[i]) && run.hasCourseOn(a.Course.Code, days[j])
	})

	for _, day := range days {
		for _, slot := range e.slots {
			if slot.IsBreak {
				continue
			}
			if run.occupied.has(day, slot.Number) {
				continue
			}
			if e.tracker.Faculty.Busy(a.FacultyID, day, slot.Number) {
				continue
			}
			run.entries = append(run.entries, Entry{
				BatchID:    run.batch.ID,
				Day:        day,
				Period:     slot.Number,
				CourseCode: a.Course.Code,
				FacultyID:  a.FacultyID,
				Source:     SourceAuto,
			})
			run.occupied.set(day, slot.Number)
			e.tracker.Faculty.Book(a.FacultyID, day, slot.Number)
			run.markCourseDay(a.Course.Code, day)
			return true
		}
	}
	return false
}
