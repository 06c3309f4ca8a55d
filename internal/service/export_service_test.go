package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/erp-timetable-api/internal/dto"
	"github.com/noah-isme/erp-timetable-api/internal/models"
	appErrors "github.com/noah-isme/erp-timetable-api/pkg/errors"
	"github.com/noah-isme/erp-timetable-api/pkg/export"
	"github.com/noah-isme/erp-timetable-api/pkg/storage"
)

type entriesReaderStub struct {
	entries *dto.TimetableEntries
	err     error
}

func (s entriesReaderStub) Entries(ctx context.Context, timetableID string) (*dto.TimetableEntries, error) {
	return s.entries, s.err
}

type slotListerStub struct {
	slots []models.TimeSlot
}

func (s slotListerStub) List(ctx context.Context, exec sqlx.ExtContext) ([]models.TimeSlot, error) {
	return s.slots, nil
}

func strPtr(v string) *string { return &v }

func sampleEntries() *dto.TimetableEntries {
	return &dto.TimetableEntries{
		TimetableID:   "tt-1",
		Batch:         "A",
		Year:          2,
		EffectiveFrom: "2026-07-01",
		Entries: []dto.TimetableEntry{
			{Day: "MON", Period: 1, CourseCode: strPtr("CS3461"), IsLab: true, Note: strPtr("CS3461 (Morning)")},
			{Day: "MON", Period: 5, CourseCode: strPtr("MA3354")},
			{Day: "FRI", Period: 8, IsBlocked: true, Note: strPtr("Sports")},
		},
	}
}

func newExportServiceForTest(t *testing.T, reader timetableEntriesReader) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	slots := slotListerStub{slots: []models.TimeSlot{{SlotNumber: 1, StartTime: "09:00", EndTime: "09:50"}}}
	svc := NewExportService(reader, slots, store, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceCSVGrid(t *testing.T) {
	svc, _ := newExportServiceForTest(t, entriesReaderStub{entries: sampleEntries()})

	result, err := svc.Export(context.Background(), dto.ExportTimetableRequest{TimetableID: "tt-1"})
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, result.Format)
	require.True(t, strings.HasPrefix(result.URL, "/api/v1/timetable-exports/"))

	token := strings.TrimPrefix(result.URL, "/api/v1/timetable-exports/")
	timetableID, relPath, _, err := svc.ParseToken(token, false)
	require.NoError(t, err)
	assert.Equal(t, "tt-1", timetableID)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	raw, err := io.ReadAll(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Day,1 (09:00-09:50),2,3,4,5,6,7,8", lines[0])
	assert.Equal(t, "MON,CS3461 (Morning),,,,MA3354,,,", lines[1])
	assert.Equal(t, "FRI,,,,,,,,Sports", lines[5])
}

func TestExportServicePDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t, entriesReaderStub{entries: sampleEntries()})

	result, err := svc.Export(context.Background(), dto.ExportTimetableRequest{TimetableID: "tt-1", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, result.Format)

	token := strings.TrimPrefix(result.URL, "/api/v1/timetable-exports/")
	download, err := svc.Download(token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "application/pdf", download.MimeType)
	assert.True(t, strings.HasSuffix(download.Filename, ".pdf"))
	assert.Positive(t, download.SizeBytes)
}

func TestExportServiceDownloadRejectsTamperedToken(t *testing.T) {
	svc, _ := newExportServiceForTest(t, entriesReaderStub{entries: sampleEntries()})

	result, err := svc.Export(context.Background(), dto.ExportTimetableRequest{TimetableID: "tt-1"})
	require.NoError(t, err)
	token := strings.TrimPrefix(result.URL, "/api/v1/timetable-exports/")

	_, err = svc.Download(token + "00")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportServiceDownloadMissingFile(t *testing.T) {
	svc, store := newExportServiceForTest(t, entriesReaderStub{entries: sampleEntries()})

	result, err := svc.Export(context.Background(), dto.ExportTimetableRequest{TimetableID: "tt-1"})
	require.NoError(t, err)
	token := strings.TrimPrefix(result.URL, "/api/v1/timetable-exports/")
	_, relPath, _, err := svc.ParseToken(token, false)
	require.NoError(t, err)
	require.NoError(t, store.Delete(relPath))

	_, err = svc.Download(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t, entriesReaderStub{entries: sampleEntries()})

	_, err := svc.Export(context.Background(), dto.ExportTimetableRequest{TimetableID: "tt-1", Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServicePropagatesNotFound(t *testing.T) {
	svc, _ := newExportServiceForTest(t, entriesReaderStub{err: appErrors.Clone(appErrors.ErrNotFound, "timetable not found")})

	_, err := svc.Export(context.Background(), dto.ExportTimetableRequest{TimetableID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
