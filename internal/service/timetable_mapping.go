package service

import (
	"github.com/noah-isme/erp-timetable-api/internal/models"
	"github.com/noah-isme/erp-timetable-api/internal/timetable"
)

func toEngineSlots(rows []models.TimeSlot) []timetable.TimeSlot {
	if len(rows) == 0 {
		return nil
	}
	slots := make([]timetable.TimeSlot, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, timetable.TimeSlot{Number: r.SlotNumber, Start: r.StartTime, End: r.EndTime, IsBreak: r.IsBreak})
	}
	return slots
}

func toEngineLabs(labs []models.LabRoom, restrictions []models.LabRestriction) []timetable.LabRoom {
	byLab := make(map[string][]timetable.LabRestriction, len(labs))
	for _, r := range restrictions {
		byLab[r.LabID] = append(byLab[r.LabID], timetable.LabRestriction{
			ProgramID:   r.ProgramID,
			YearOfStudy: r.YearOfStudy,
			CourseCode:  r.CourseCode,
		})
	}
	out := make([]timetable.LabRoom, 0, len(labs))
	for _, l := range labs {
		out = append(out, timetable.LabRoom{
			ID:           l.ID,
			Code:         l.RoomCode,
			Active:       l.IsActive,
			Restrictions: byLab[l.ID],
		})
	}
	return out
}

func toEngineAssignments(rows []models.CourseAssignmentDetail) []timetable.Assignment {
	out := make([]timetable.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, timetable.Assignment{
			ID: r.ID,
			Course: timetable.Course{
				Code:           r.CourseCode,
				Title:          r.CourseTitle,
				Type:           r.CourseType,
				LectureHours:   r.LectureHours,
				TutorialHours:  r.TutorialHours,
				PracticalHours: r.PracticalHours,
			},
			FacultyID:      deref(r.FacultyID),
			LabAssistantID: deref(r.LabAssistantID),
		})
	}
	return out
}

// toEngineReservations maps stored reservations. An unknown day is passed on
// as an invalid Day so the seeder reports it.
func toEngineReservations(rows []models.FixedSlotReservation) []timetable.Reservation {
	out := make([]timetable.Reservation, 0, len(rows))
	for _, r := range rows {
		day, err := timetable.ParseDay(r.Day)
		if err != nil {
			day = timetable.Day(-1)
		}
		res := timetable.Reservation{Day: day, Period: r.SlotNumber}
		if r.IsBlocked {
			res.Content = timetable.Blocked{Reason: deref(r.BlockReason)}
		} else {
			res.Content = timetable.Pinned{
				CourseCode: deref(r.CourseCode),
				FacultyID:  deref(r.FacultyID),
				Note:       deref(r.SpecialNote),
			}
		}
		out = append(out, res)
	}
	return out
}

// toCommitments turns persisted bookings into tracker commitments. A lab
// assistant is tracked like a faculty member.
func toCommitments(rows []models.FacultyCommitment) []timetable.Commitment {
	out := make([]timetable.Commitment, 0, len(rows))
	for _, r := range rows {
		day, err := timetable.ParseDay(r.Day)
		if err != nil {
			continue
		}
		out = append(out, timetable.Commitment{
			FacultyID: deref(r.FacultyID),
			LabRoomID: deref(r.LabRoomID),
			BatchID:   r.BatchID,
			Day:       day,
			Period:    r.SlotNumber,
		})
		if assistant := deref(r.LabAssistantID); assistant != "" {
			out = append(out, timetable.Commitment{FacultyID: assistant, BatchID: r.BatchID, Day: day, Period: r.SlotNumber})
		}
	}
	return out
}

func toEntryModels(timetableID string, entries []timetable.Entry, courseIDs map[string]string) []models.TimetableEntry {
	out := make([]models.TimetableEntry, 0, len(entries))
	for _, e := range entries {
		row := models.TimetableEntry{
			TimetableID:    timetableID,
			Day:            e.Day.String(),
			SlotNumber:     e.Period,
			CourseCode:     optional(e.CourseCode),
			FacultyID:      optional(e.FacultyID),
			LabAssistantID: optional(e.LabAssistantID),
			LabRoomID:      optional(e.LabRoomID),
			IsLab:          e.IsLab,
			SpecialNote:    optional(e.Note),
			IsBlocked:      e.IsBlocked,
		}
		if id, ok := courseIDs[e.CourseCode]; ok && id != "" {
			row.CourseID = &id
		}
		if e.LabEndPeriod > 0 {
			end := e.LabEndPeriod
			row.LabEndSlot = &end
		}
		if e.IsBlocked {
			row.BlockReason = optional(e.Note)
		}
		out = append(out, row)
	}
	return out
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
