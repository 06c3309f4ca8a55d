package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/erp-timetable-api/internal/dto"
	"github.com/noah-isme/erp-timetable-api/internal/models"
	"github.com/noah-isme/erp-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/erp-timetable-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableConfigRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimetableConfig, error)
	MarkGenerated(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

type programBatchLister interface {
	ListActive(ctx context.Context, exec sqlx.ExtContext, academicYearID, programID string, yearOfStudy int) ([]models.ProgramBatch, error)
}

type timeSlotLister interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.TimeSlot, error)
}

type labRoomReader interface {
	ListForConfig(ctx context.Context, exec sqlx.ExtContext, configID string) ([]models.LabRoom, error)
	ListRestrictions(ctx context.Context, exec sqlx.ExtContext, labIDs []string) ([]models.LabRestriction, error)
}

type courseAssignmentLister interface {
	ListActiveForBatch(ctx context.Context, exec sqlx.ExtContext, academicYearID, semesterID, batchID string) ([]models.CourseAssignmentDetail, error)
}

type reservationLister interface {
	ListByConfigBatch(ctx context.Context, exec sqlx.ExtContext, configID, batchID string) ([]models.FixedSlotReservation, error)
}

type timetableStore interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ActiveCommitments(ctx context.Context, exec sqlx.ExtContext, excludeBatchIDs []string) ([]models.FacultyCommitment, error)
	DeleteEntries(ctx context.Context, exec sqlx.ExtContext, timetableID string) error
	InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error
	ListEntries(ctx context.Context, timetableID string) ([]models.TimetableEntry, error)
}

type previewCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TimetableServiceConfig governs generation behaviour.
type TimetableServiceConfig struct {
	// RandomSeed is used when a request carries no seed. Zero means time based.
	RandomSeed int64
	PreviewTTL time.Duration
}

// TimetableRepositories groups the readers and writers the service needs.
type TimetableRepositories struct {
	Configs      timetableConfigRepository
	Batches      programBatchLister
	Slots        timeSlotLister
	Labs         labRoomReader
	Assignments  courseAssignmentLister
	Reservations reservationLister
	Timetables   timetableStore
}

// TimetableService generates batch timetables and persists them.
type TimetableService struct {
	repos     TimetableRepositories
	tx        txProvider
	cache     previewCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig
	now       func() time.Time

	// runs are serialized: every run reads commitments written by the previous one.
	mu sync.Mutex
}

// NewTimetableService wires the generator.
func NewTimetableService(
	repos TimetableRepositories,
	tx txProvider,
	cache previewCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = 5 * time.Minute
	}
	return &TimetableService{
		repos:     repos,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

const configNotFound = "config not found"

// PreviewCacheKey is the cache key of a config preview.
func PreviewCacheKey(configID string) string {
	return "timetable:preview:" + configID
}

// Generate builds and stores the timetables of every batch of one config.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate timetable payload")
	}
	result, err := s.run(ctx, []string{req.ConfigID}, req.EffectiveFrom, req.Seed, req.RequestedBy)
	if err != nil {
		return nil, err
	}
	if len(result.Configs) == 1 && result.Configs[0].Error == configNotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable config not found")
	}
	return result, nil
}

// GenerateAll runs several configs in request order. Faculty and lab bookings
// of earlier configs constrain later ones.
func (s *TimetableService) GenerateAll(ctx context.Context, req dto.GenerateAllRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate all payload")
	}
	return s.run(ctx, req.ConfigIDs, req.EffectiveFrom, req.Seed, req.RequestedBy)
}

type resolvedConfig struct {
	config  *models.TimetableConfig
	batches []models.ProgramBatch
}

func (s *TimetableService) run(ctx context.Context, configIDs []string, effectiveFrom *string, requestedSeed *int64, requestedBy string) (result *dto.GenerationResult, err error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	effective, err := s.effectiveDate(effectiveFrom)
	if err != nil {
		return nil, err
	}
	seed := s.resolveSeed(requestedSeed)

	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	defer func() {
		outcome := RunOutcomeSuccess
		switch {
		case err != nil:
			outcome = RunOutcomeFailed
		case len(result.Warnings) > 0:
			outcome = RunOutcomePartial
		}
		s.metrics.RecordGenerationRun(outcome, time.Since(started))
	}()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	loadStarted := time.Now()
	ids := uniqueStrings(configIDs)
	resolved := make([]*resolvedConfig, len(ids))
	batchUnion := make([]string, 0)
	for i, id := range ids {
		cfg, findErr := s.repos.Configs.FindByID(ctx, tx, id)
		if findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				continue
			}
			err = appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable config")
			return nil, err
		}
		batches, listErr := s.repos.Batches.ListActive(ctx, tx, cfg.AcademicYearID, cfg.ProgramID, cfg.YearOfStudy)
		if listErr != nil {
			err = appErrors.Wrap(listErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program batches")
			return nil, err
		}
		resolved[i] = &resolvedConfig{config: cfg, batches: batches}
		for _, b := range batches {
			batchUnion = append(batchUnion, b.ID)
		}
	}

	persisted, err := s.repos.Timetables.ActiveCommitments(ctx, tx, batchUnion)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing commitments")
		return nil, err
	}
	slotRows, err := s.repos.Slots.List(ctx, tx)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
		return nil, err
	}
	slots := toEngineSlots(slotRows)

	inputs := make([]timetable.ConfigInput, 0, len(ids))
	courseIDs := make(map[string]map[string]string, len(ids))
	for _, rc := range resolved {
		if rc == nil {
			continue
		}
		in, codes, loadErr := s.loadConfigInput(ctx, tx, rc.config, rc.batches)
		if loadErr != nil {
			err = loadErr
			return nil, err
		}
		in.Slots = slots
		inputs = append(inputs, in)
		courseIDs[rc.config.ID] = codes
	}

	s.metrics.ObserveDBQuery("timetable_load", time.Since(loadStarted))

	plan := timetable.Plan(inputs, toCommitments(persisted), timetable.PlanOptions{
		Rand:   rand.New(rand.NewSource(seed)),
		Logger: s.logger,
	})
	planned := make(map[string]timetable.ConfigResult, len(plan.Configs))
	for _, cr := range plan.Configs {
		planned[cr.ConfigID] = cr
	}

	result = &dto.GenerationResult{
		Configs:    make([]dto.ConfigOutcome, 0, len(ids)),
		Timetables: make([]dto.GeneratedTimetable, 0),
		Warnings:   make([]string, 0),
		Seed:       seed,
	}
	persistStarted := time.Now()
	generated := make([]string, 0, len(ids))
	warningKinds := make(map[string]int)
	entrySources := make(map[string]int)

	for i, id := range ids {
		rc := resolved[i]
		if rc == nil {
			warning := fmt.Sprintf("config %s: %s", id, configNotFound)
			result.Configs = append(result.Configs, dto.ConfigOutcome{ConfigID: id, Error: configNotFound, Warnings: []string{warning}})
			result.Warnings = append(result.Warnings, warning)
			warningKinds[string(timetable.WarningConfig)]++
			continue
		}
		cr := planned[id]
		outcome := dto.ConfigOutcome{ConfigID: id, Success: cr.Success, Error: cr.Error, Warnings: cr.Warnings}
		if outcome.Warnings == nil {
			outcome.Warnings = []string{}
		}
		result.Configs = append(result.Configs, outcome)
		result.Warnings = append(result.Warnings, cr.Warnings...)
		if !cr.Success {
			warningKinds[string(timetable.WarningConfig)]++
			continue
		}

		batchNames := make(map[string]string, len(rc.batches))
		for _, b := range rc.batches {
			batchNames[b.ID] = b.BatchName
		}
		for _, br := range cr.Batches {
			for _, w := range br.Warnings {
				warningKinds[string(w.Kind)]++
			}
			header := &models.Timetable{
				AcademicYearID: rc.config.AcademicYearID,
				SemesterID:     rc.config.SemesterID,
				Year:           rc.config.YearOfStudy,
				ProgramBatchID: br.Batch.ID,
				Batch:          batchNames[br.Batch.ID],
				EffectiveFrom:  effective,
				CreatedBy:      createdBy(requestedBy, rc.config.CreatedBy),
				IsActive:       true,
			}
			if err = s.repos.Timetables.Upsert(ctx, tx, header); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
				return nil, err
			}
			if err = s.repos.Timetables.DeleteEntries(ctx, tx, header.ID); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear timetable entries")
				return nil, err
			}
			rows := toEntryModels(header.ID, br.Entries, courseIDs[id])
			if err = s.repos.Timetables.InsertEntries(ctx, tx, rows); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable entries")
				return nil, err
			}
			for _, e := range br.Entries {
				entrySources[string(e.Source)]++
			}
			result.Timetables = append(result.Timetables, dto.GeneratedTimetable{
				TimetableID: header.ID,
				ConfigID:    id,
				BatchID:     br.Batch.ID,
				Batch:       header.Batch,
				EntryCount:  len(rows),
			})
		}
		generated = append(generated, id)
	}

	if err = s.repos.Configs.MarkGenerated(ctx, tx, generated); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark configs generated")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return nil, err
	}
	s.metrics.ObserveDBQuery("timetable_persist", time.Since(persistStarted))

	s.metrics.RecordGenerationWarnings(warningKinds)
	s.metrics.RecordEntriesWritten(entrySources)
	s.invalidatePreviews(ctx, ids)

	s.logger.Info("timetables generated",
		zap.Strings("config_ids", ids),
		zap.Int("timetables", len(result.Timetables)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int64("seed", seed),
	)
	return result, nil
}

// loadConfigInput reads labs, assignments and reservations of a config. The
// returned map resolves course codes to course ids.
func (s *TimetableService) loadConfigInput(ctx context.Context, exec sqlx.ExtContext, cfg *models.TimetableConfig, batches []models.ProgramBatch) (timetable.ConfigInput, map[string]string, error) {
	in := timetable.ConfigInput{
		ID:          cfg.ID,
		ProgramID:   cfg.ProgramID,
		ProgramCode: cfg.ProgramCode,
		YearOfStudy: cfg.YearOfStudy,
		Batches:     make([]timetable.BatchInput, 0, len(batches)),
	}

	labs, err := s.repos.Labs.ListForConfig(ctx, exec, cfg.ID)
	if err != nil {
		return in, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab rooms")
	}
	labIDs := make([]string, 0, len(labs))
	for _, l := range labs {
		labIDs = append(labIDs, l.ID)
	}
	restrictions, err := s.repos.Labs.ListRestrictions(ctx, exec, labIDs)
	if err != nil {
		return in, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab restrictions")
	}
	in.Labs = toEngineLabs(labs, restrictions)

	codes := make(map[string]string)
	for _, b := range batches {
		assignments, err := s.repos.Assignments.ListActiveForBatch(ctx, exec, cfg.AcademicYearID, cfg.SemesterID, b.ID)
		if err != nil {
			return in, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course assignments")
		}
		reservations, err := s.repos.Reservations.ListByConfigBatch(ctx, exec, cfg.ID, b.ID)
		if err != nil {
			return in, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot reservations")
		}
		for _, a := range assignments {
			codes[a.CourseCode] = a.CourseID
		}
		for _, r := range reservations {
			if r.CourseCode != nil && r.CourseID != nil {
				codes[*r.CourseCode] = *r.CourseID
			}
		}
		in.Batches = append(in.Batches, timetable.BatchInput{
			Batch: timetable.Batch{
				ID:          b.ID,
				Label:       b.BatchName,
				ProgramID:   b.ProgramID,
				YearOfStudy: b.YearOfStudy,
			},
			Assignments:  toEngineAssignments(assignments),
			Reservations: toEngineReservations(reservations),
		})
	}
	return in, codes, nil
}

// Preview reports what generation of a config would need without writing.
func (s *TimetableService) Preview(ctx context.Context, configID string) (*dto.TimetablePreview, error) {
	if configID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "config id is required")
	}
	key := PreviewCacheKey(configID)
	if s.cache != nil {
		var cached dto.TimetablePreview
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	cfg, err := s.repos.Configs.FindByID(ctx, nil, configID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable config not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable config")
	}
	batches, err := s.repos.Batches.ListActive(ctx, nil, cfg.AcademicYearID, cfg.ProgramID, cfg.YearOfStudy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program batches")
	}
	if len(batches) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoBatches, fmt.Sprintf("%s Year %d: %s", cfg.ProgramCode, cfg.YearOfStudy, timetable.ErrNoBatches))
	}
	in, _, err := s.loadConfigInput(ctx, nil, cfg, batches)
	if err != nil {
		return nil, err
	}
	slotRows, err := s.repos.Slots.List(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	in.Slots = toEngineSlots(slotRows)
	if len(in.Slots) > 0 {
		if _, err := timetable.ValidateSlots(in.Slots); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidGrid.Code, appErrors.ErrInvalidGrid.Status, err.Error())
		}
	}

	report := timetable.Preview(in)
	preview := &dto.TimetablePreview{
		ConfigID:           report.ConfigID,
		Batches:            make([]dto.BatchPreview, 0, len(report.Batches)),
		TotalLabsAvailable: report.TotalLabsAvailable,
		LabCodes:           report.LabCodes,
		GeneratedAt:        s.now().UTC(),
	}
	for _, b := range report.Batches {
		preview.Batches = append(preview.Batches, dto.BatchPreview{
			BatchID:            b.BatchID,
			Batch:              b.BatchLabel,
			ReservedCount:      b.ReservedCount,
			BlockedCount:       b.BlockedCount,
			RemainingSlots:     b.RemainingSlots,
			TotalPeriodsNeeded: b.TotalPeriodsNeeded,
			CoursesCount:       b.CoursesCount,
		})
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, preview, s.cfg.PreviewTTL)
	}
	return preview, nil
}

// Entries returns a stored timetable with its cells ordered by day and period.
func (s *TimetableService) Entries(ctx context.Context, timetableID string) (*dto.TimetableEntries, error) {
	header, err := s.repos.Timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	rows, err := s.repos.Timetables.ListEntries(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}

	out := &dto.TimetableEntries{
		TimetableID:   header.ID,
		Batch:         header.Batch,
		Year:          header.Year,
		EffectiveFrom: header.EffectiveFrom.Format("2006-01-02"),
		Entries:       make([]dto.TimetableEntry, 0, len(rows)),
	}
	for _, row := range rows {
		out.Entries = append(out.Entries, dto.TimetableEntry{
			Day:            row.Day,
			Period:         row.SlotNumber,
			CourseID:       row.CourseID,
			CourseCode:     row.CourseCode,
			FacultyID:      row.FacultyID,
			LabAssistantID: row.LabAssistantID,
			LabRoomID:      row.LabRoomID,
			IsLab:          row.IsLab,
			LabEndPeriod:   row.LabEndSlot,
			Note:           row.SpecialNote,
			IsBlocked:      row.IsBlocked,
			BlockReason:    row.BlockReason,
		})
	}
	return out, nil
}

func (s *TimetableService) invalidatePreviews(ctx context.Context, configIDs []string) {
	if s.cache == nil || len(configIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(configIDs))
	for _, id := range configIDs {
		keys = append(keys, PreviewCacheKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate timetable previews", zap.Error(err))
	}
}

func (s *TimetableService) effectiveDate(raw *string) (time.Time, error) {
	if raw == nil || *raw == "" {
		now := s.now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "effectiveFrom must be YYYY-MM-DD")
	}
	return parsed, nil
}

func (s *TimetableService) resolveSeed(requested *int64) int64 {
	if requested != nil {
		return *requested
	}
	if s.cfg.RandomSeed != 0 {
		return s.cfg.RandomSeed
	}
	return s.now().UnixNano()
}

func createdBy(requestedBy string, fallback *string) *string {
	if requestedBy != "" {
		return &requestedBy
	}
	return fallback
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
