package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/erp-timetable-api/internal/dto"
	"github.com/noah-isme/erp-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/erp-timetable-api/pkg/errors"
	"github.com/noah-isme/erp-timetable-api/pkg/export"
	"github.com/noah-isme/erp-timetable-api/pkg/storage"
)

type timetableEntriesReader interface {
	Entries(ctx context.Context, timetableID string) (*dto.TimetableEntries, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	// ResultTTL is how long rendered files are kept on disk.
	ResultTTL time.Duration
}

// ExportService renders stored timetables as day by period grids and hands
// out signed download links.
type ExportService struct {
	timetables timetableEntriesReader
	slots      timeSlotLister
	storage    fileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	signer     *storage.SignedURLSigner
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig
	now        func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(timetables timetableEntriesReader, slots timeSlotLister, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		timetables: timetables,
		slots:      slots,
		storage:    store,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		validator:  validator.New(),
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Export renders a timetable and stores it. The returned URL is valid until
// ExpiresAt.
func (s *ExportService) Export(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = ExportFormatCSV
	}

	entries, err := s.timetables.Entries(ctx, req.TimetableID)
	if err != nil {
		return nil, err
	}
	dataset, err := s.buildGrid(ctx, entries)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Timetable - Batch %s", entries.Batch))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}

	relPath, err := s.storage.Save(s.buildFilename(entries, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable export")
	}
	token, expiresAt, err := s.signer.Generate(entries.TimetableID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("timetable exported",
		zap.String("timetable_id", entries.TimetableID),
		zap.String("format", format),
		zap.String("path", relPath),
	)
	return &dto.ExportResult{
		Format:    format,
		URL:       fmt.Sprintf("%s/timetable-exports/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (timetableID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// ExportDownload is an opened export file ready to be streamed.
type ExportDownload struct {
	File      *os.File
	Filename  string
	SizeBytes int64
	MimeType  string
}

// Download resolves a signed token to its stored file. Callers must close the
// returned file.
func (s *ExportService) Download(token string) (*ExportDownload, error) {
	_, relPath, _, err := s.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired export link")
	}
	file, err := s.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file")
	}
	mime := "text/csv"
	if strings.EqualFold(filepath.Ext(relPath), "."+ExportFormatPDF) {
		mime = "application/pdf"
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		SizeBytes: info.Size(),
		MimeType:  mime,
	}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildGrid(ctx context.Context, entries *dto.TimetableEntries) (export.Dataset, error) {
	headers := []string{"Day"}
	labels := make(map[int]string, timetable.PeriodsPerDay)
	for p := 1; p <= timetable.PeriodsPerDay; p++ {
		labels[p] = strconv.Itoa(p)
	}
	if s.slots != nil {
		rows, err := s.slots.List(ctx, nil)
		if err != nil {
			return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
		}
		for _, slot := range rows {
			if _, ok := labels[slot.SlotNumber]; ok && slot.StartTime != "" {
				labels[slot.SlotNumber] = fmt.Sprintf("%d (%s-%s)", slot.SlotNumber, slot.StartTime, slot.EndTime)
			}
		}
	}
	for p := 1; p <= timetable.PeriodsPerDay; p++ {
		headers = append(headers, labels[p])
	}

	byDay := make(map[string]map[string]string, timetable.NumDays)
	for _, d := range timetable.Days {
		byDay[d.String()] = map[string]string{"Day": d.String()}
	}
	for _, e := range entries.Entries {
		row, ok := byDay[e.Day]
		if !ok || e.Period < 1 || e.Period > timetable.PeriodsPerDay {
			continue
		}
		row[labels[e.Period]] = cellText(e)
	}

	dataset := export.Dataset{
		Headers: headers,
		Rows:    make([]map[string]string, 0, timetable.NumDays),
		Caption: fmt.Sprintf("Year %d, effective from %s", entries.Year, entries.EffectiveFrom),
	}
	for _, d := range timetable.Days {
		dataset.Rows = append(dataset.Rows, byDay[d.String()])
	}
	return dataset, nil
}

// cellText prefers the note for lab and blocked cells, which carries the lab
// window marker or the block reason.
func cellText(e dto.TimetableEntry) string {
	note := deref(e.Note)
	switch {
	case e.IsBlocked:
		if note == "" {
			return "BLOCKED"
		}
		return note
	case e.IsLab && note != "":
		return note
	case e.CourseCode != nil:
		return *e.CourseCode
	default:
		return note
	}
}

func (s *ExportService) buildFilename(entries *dto.TimetableEntries, format string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("timetable_%s_%s_%s.%s", sanitizeFilename(entries.Batch), sanitizeFilename(entries.TimetableID), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
