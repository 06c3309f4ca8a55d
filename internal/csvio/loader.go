package csvio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/erp-timetable-api/internal/timetable"
)

// Input file names expected in the input directory.
const (
	SlotsFile            = "time_slots.csv"
	LabsFile             = "labs.csv"
	LabRestrictionsFile  = "lab_restrictions.csv"
	ConfigsFile          = "configs.csv"
	BatchesFile          = "batches.csv"
	AssignmentsFile      = "assignments.csv"
	ReservationsFile     = "reservations.csv"
	DefaultEntriesOutput = "entries.csv"
)

// Dataset is the raw content of an input directory.
type Dataset struct {
	Slots        []SlotRow
	Labs         []LabRow
	Restrictions []LabRestrictionRow
	Configs      []ConfigRow
	Batches      []BatchRow
	Assignments  []AssignmentRow
	Reservations []ReservationRow
}

// Load reads every input file from dir. Lab restrictions and reservations are
// optional; the other files must exist.
func Load(dir string) (*Dataset, error) {
	ds := &Dataset{}
	required := []struct {
		name string
		dest interface{}
	}{
		{SlotsFile, &ds.Slots},
		{LabsFile, &ds.Labs},
		{ConfigsFile, &ds.Configs},
		{BatchesFile, &ds.Batches},
		{AssignmentsFile, &ds.Assignments},
	}
	for _, f := range required {
		if err := unmarshalFile(filepath.Join(dir, f.name), f.dest); err != nil {
			return nil, err
		}
	}

	optional := []struct {
		name string
		dest interface{}
	}{
		{LabRestrictionsFile, &ds.Restrictions},
		{ReservationsFile, &ds.Reservations},
	}
	for _, f := range optional {
		err := unmarshalFile(filepath.Join(dir, f.name), f.dest)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return ds, nil
}

func unmarshalFile(path string, dest interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := gocsv.UnmarshalFile(file, dest); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Build turns a dataset into planner inputs, one per config in file order.
// A config picks up every batch of its program and year, and every active lab
// when its lab_ids column is empty.
func (ds *Dataset) Build() ([]timetable.ConfigInput, error) {
	slots := make([]timetable.TimeSlot, 0, len(ds.Slots))
	for _, s := range ds.Slots {
		slots = append(slots, timetable.TimeSlot{Number: s.SlotNumber, Start: s.StartTime, End: s.EndTime, IsBreak: s.IsBreak})
	}

	restrictions := make(map[string][]timetable.LabRestriction)
	for i, r := range ds.Restrictions {
		restriction := timetable.LabRestriction{
			ProgramID:  optional(r.ProgramID),
			CourseCode: optional(r.CourseCode),
		}
		if raw := strings.TrimSpace(r.YearOfStudy); raw != "" {
			year, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: invalid year_of_study %q", LabRestrictionsFile, i+2, raw)
			}
			restriction.YearOfStudy = &year
		}
		restrictions[r.LabID] = append(restrictions[r.LabID], restriction)
	}
	labs := make(map[string]timetable.LabRoom, len(ds.Labs))
	for _, l := range ds.Labs {
		labs[l.LabID] = timetable.LabRoom{ID: l.LabID, Code: l.RoomCode, Active: l.IsActive, Restrictions: restrictions[l.LabID]}
	}

	assignments := make(map[string][]timetable.Assignment)
	for _, a := range ds.Assignments {
		assignments[a.BatchID] = append(assignments[a.BatchID], timetable.Assignment{
			ID: a.AssignmentID,
			Course: timetable.Course{
				Code:           a.CourseCode,
				Title:          a.CourseTitle,
				Type:           a.CourseType,
				LectureHours:   a.LectureHours,
				TutorialHours:  a.TutorialHours,
				PracticalHours: a.PracticalHours,
			},
			FacultyID:      a.FacultyID,
			LabAssistantID: a.LabAssistantID,
		})
	}

	reservations := make(map[string][]timetable.Reservation)
	for _, r := range ds.Reservations {
		// An unknown day is kept so the seeder reports it as a warning.
		day, err := timetable.ParseDay(r.Day)
		if err != nil {
			day = timetable.Day(-1)
		}
		res := timetable.Reservation{Day: day, Period: r.SlotNumber}
		if r.IsBlocked {
			res.Content = timetable.Blocked{Reason: r.Note}
		} else {
			res.Content = timetable.Pinned{CourseCode: r.CourseCode, FacultyID: r.FacultyID, Note: r.Note}
		}
		key := r.ConfigID + "/" + r.BatchID
		reservations[key] = append(reservations[key], res)
	}

	inputs := make([]timetable.ConfigInput, 0, len(ds.Configs))
	for _, c := range ds.Configs {
		in := timetable.ConfigInput{
			ID:          c.ConfigID,
			ProgramID:   c.ProgramID,
			ProgramCode: c.ProgramCode,
			YearOfStudy: c.YearOfStudy,
			Slots:       slots,
		}
		selected := splitIDs(c.LabIDs)
		for _, id := range selected {
			lab, ok := labs[id]
			if !ok {
				return nil, fmt.Errorf("config %s references unknown lab %s", c.ConfigID, id)
			}
			in.Labs = append(in.Labs, lab)
		}
		if len(selected) == 0 {
			for _, l := range ds.Labs {
				if l.IsActive {
					in.Labs = append(in.Labs, labs[l.LabID])
				}
			}
		}
		for _, b := range ds.batchesFor(c.ProgramID, c.YearOfStudy) {
			in.Batches = append(in.Batches, timetable.BatchInput{
				Batch: timetable.Batch{
					ID:          b.BatchID,
					Label:       b.BatchName,
					ProgramID:   b.ProgramID,
					YearOfStudy: b.YearOfStudy,
				},
				Assignments:  assignments[b.BatchID],
				Reservations: reservations[c.ConfigID+"/"+b.BatchID],
			})
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func (ds *Dataset) batchesFor(programID string, year int) []BatchRow {
	out := make([]BatchRow, 0)
	for _, b := range ds.Batches {
		if b.ProgramID == programID && b.YearOfStudy == year {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BatchName < out[j].BatchName })
	return out
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
