package csvio

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/erp-timetable-api/internal/timetable"
)

// EntryRows flattens a plan into output rows. Failed configs contribute
// nothing.
func EntryRows(plan timetable.PlanResult) []EntryRow {
	rows := make([]EntryRow, 0)
	for _, cfg := range plan.Configs {
		if !cfg.Success {
			continue
		}
		for _, batch := range cfg.Batches {
			for _, e := range batch.Entries {
				rows = append(rows, EntryRow{
					ConfigID:       cfg.ConfigID,
					BatchID:        batch.Batch.ID,
					Batch:          batch.Batch.Label,
					Day:            e.Day.String(),
					Period:         e.Period,
					CourseCode:     e.CourseCode,
					FacultyID:      e.FacultyID,
					LabAssistantID: e.LabAssistantID,
					IsLab:          e.IsLab,
					LabRoom:        e.LabRoomCode,
					LabEndPeriod:   e.LabEndPeriod,
					IsBlocked:      e.IsBlocked,
					Note:           e.Note,
					Source:         string(e.Source),
				})
			}
		}
	}
	return rows
}

// WriteEntries encodes rows with a header line.
func WriteEntries(w io.Writer, rows []EntryRow) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	return nil
}

// WriteEntriesFile creates or truncates path and writes rows into it.
func WriteEntriesFile(path string, rows []EntryRow) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	return WriteEntries(file, rows)
}
