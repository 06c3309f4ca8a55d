package timetable

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, tracker *Tracker, labs []LabRoom, seed int64) *Engine {
	t.Helper()
	engine, err := NewEngine(Options{
		Labs:      NewLabPool(labs),
		ProgramID: "CSE",
		Year:      2,
		Tracker:   tracker,
		Rand:      rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, err)
	return engine
}

func openLabs(n int) []LabRoom {
	labs := make([]LabRoom, 0, n)
	for i := 1; i <= n; i++ {
		labs = append(labs, LabRoom{ID: fmt.Sprintf("lab-%d", i), Code: fmt.Sprintf("LAB%d", i), Active: true})
	}
	return labs
}

// assertRunInvariants checks the hard constraints over every entry of a run.
func assertRunInvariants(t *testing.T, results []BatchResult, seeded []Commitment) {
	t.Helper()
	type cell struct {
		id     string
		day    Day
		period int
	}
	faculty := map[cell]string{}
	for _, c := range seeded {
		if c.FacultyID != "" {
			faculty[cell{c.FacultyID, c.Day, c.Period}] = "seed"
		}
	}
	labs := map[cell]string{}
	for _, res := range results {
		batchCells := map[cell]bool{}
		for _, e := range res.Entries {
			key := cell{res.Batch.ID, e.Day, e.Period}
			require.False(t, batchCells[key], "batch %s cell %s/%d filled twice", res.Batch.Label, e.Day, e.Period)
			batchCells[key] = true

			for _, id := range []string{e.FacultyID, e.LabAssistantID} {
				if id == "" {
					continue
				}
				fk := cell{id, e.Day, e.Period}
				owner, taken := faculty[fk]
				require.False(t, taken, "faculty %s double booked at %s/%d (%s and %s)", id, e.Day, e.Period, owner, res.Batch.ID)
				faculty[fk] = res.Batch.ID
			}
			if e.LabRoomID != "" {
				lk := cell{e.LabRoomID, e.Day, (e.Period - 1) / 2}
				if owner, ok := labs[lk]; ok {
					require.Equal(t, res.Batch.ID, owner, "lab %s shared in one window", e.LabRoomID)
				}
				labs[lk] = res.Batch.ID
			}
		}
	}
}

func labSessions(entries []Entry) map[string][]Entry {
	sessions := map[string][]Entry{}
	for _, e := range entries {
		if !e.IsLab {
			continue
		}
		key := fmt.Sprintf("%s-%s-%s", e.CourseCode, e.Day, e.LabRoomID)
		sessions[key] = append(sessions[key], e)
	}
	return sessions
}

func TestScheduleBatchPlacesFourPeriodLabContiguously(t *testing.T) {
	engine := newTestEngine(t, nil, openLabs(1), 7)

	res := engine.ScheduleBatch(BatchInput{
		Batch: Batch{ID: "b1", Label: "A", ProgramID: "CSE", YearOfStudy: 2},
		Assignments: []Assignment{
			{ID: "a1", FacultyID: "f1", Course: Course{Code: "CS3461", Type: CourseTypeLab, LectureHours: 3, PracticalHours: 4}},
		},
	})

	require.Empty(t, res.Warnings)
	require.Len(t, res.Entries, 7)
	sessions := labSessions(res.Entries)
	require.Len(t, sessions, 1)
	for _, session := range sessions {
		require.Len(t, session, 4)
		periods := []int{}
		for _, e := range session {
			periods = append(periods, e.Period)
			assert.Equal(t, "f1", e.FacultyID)
			assert.Equal(t, "lab-1", e.LabRoomID)
		}
		assert.Contains(t, [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}}, periods)
		label := FourPeriodWindows[0].Label()
		if periods[0] == 5 {
			label = FourPeriodWindows[1].Label()
		}
		assert.Equal(t, "LAB1 ("+label+")", session[0].Note)
		assert.Equal(t, "LAB1", session[1].Note)
		assert.Equal(t, "LAB1", session[2].Note)
		assert.Equal(t, "LAB1 (End)", session[3].Note)
		assert.Equal(t, periods[3], session[0].LabEndPeriod)
	}
}

func TestScheduleBatchTwoPeriodLabsStayInsideFixedWindows(t *testing.T) {
	engine := newTestEngine(t, nil, openLabs(2), 11)

	res := engine.ScheduleBatch(BatchInput{
		Batch: Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{
			{FacultyID: "f1", Course: Course{Code: "CS3381", Type: CourseTypeLab, PracticalHours: 3}},
			{FacultyID: "f2", Course: Course{Code: "CS3382", Type: CourseTypeLabIntegrated, LectureHours: 2, PracticalHours: 2}},
		},
	})

	require.Empty(t, res.Warnings)
	for _, session := range labSessions(res.Entries) {
		require.Len(t, session, 2)
		assert.Equal(t, 1, session[0].Period%2, "sessions start on an odd period")
		assert.Equal(t, session[0].Period+1, session[1].Period)
		assert.Equal(t, session[0].LabRoomID, session[1].LabRoomID)
		assert.Equal(t, session[0].LabRoomCode, session[0].Note)
	}
	assertRunInvariants(t, []BatchResult{res}, nil)
}

func TestScheduleBatchHonoursReservations(t *testing.T) {
	engine := newTestEngine(t, nil, openLabs(1), 3)
	reservations := make([]Reservation, 0, PeriodsPerDay+2)
	for p := 1; p <= PeriodsPerDay; p++ {
		reservations = append(reservations, Reservation{Day: Monday, Period: p, Content: Blocked{Reason: "Library"}})
	}
	reservations = append(reservations,
		Reservation{Day: Tuesday, Period: 1, Content: Pinned{CourseCode: "MA3354", FacultyID: "f1"}},
		Reservation{Day: Wednesday, Period: 1, Content: Pinned{CourseCode: "MA3354", FacultyID: "f1"}},
	)

	res := engine.ScheduleBatch(BatchInput{
		Batch: Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{
			{FacultyID: "f1", Course: Course{Code: "MA3354", Type: CourseTypeTheory, LectureHours: 3, TutorialHours: 1}},
			{FacultyID: "f2", Course: Course{Code: "CS3452", Type: CourseTypeTheory, LectureHours: 3}},
		},
		Reservations: reservations,
	})

	require.Empty(t, res.Warnings)
	counts := map[EntrySource]int{}
	autoMath := 0
	for _, e := range res.Entries {
		counts[e.Source]++
		if e.Source == SourceAuto {
			assert.NotEqual(t, Monday, e.Day, "blocked day must stay untouched")
			if e.CourseCode == "MA3354" {
				autoMath++
			}
		}
		if e.Source == SourceBlocked {
			assert.True(t, e.IsBlocked)
			assert.Equal(t, "Library", e.Note)
		}
	}
	assert.Equal(t, 8, counts[SourceBlocked])
	assert.Equal(t, 2, counts[SourceReserved])
	assert.Equal(t, 2, autoMath, "pinned periods count against weekly demand")
	assert.Equal(t, 5, counts[SourceAuto])
}

func TestScheduleBatchSpreadsTheoryAcrossDays(t *testing.T) {
	engine := newTestEngine(t, nil, nil, 42)

	res := engine.ScheduleBatch(BatchInput{
		Batch:       Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{{FacultyID: "f1", Course: Course{Code: "CS3401", LectureHours: 5}}},
	})

	days := map[Day]int{}
	for _, e := range res.Entries {
		days[e.Day]++
	}
	assert.Len(t, days, NumDays)
	for _, n := range days {
		assert.Equal(t, 1, n)
	}
}

func TestScheduleBatchSkipsBreakSlots(t *testing.T) {
	slots := DefaultTimeSlots()
	slots[4].IsBreak = true
	engine, err := NewEngine(Options{Slots: slots, Rand: rand.New(rand.NewSource(5))})
	require.NoError(t, err)

	res := engine.ScheduleBatch(BatchInput{
		Batch:       Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{{FacultyID: "f1", Course: Course{Code: "CS3401", LectureHours: 40}}},
	})

	for _, e := range res.Entries {
		assert.NotEqual(t, 5, e.Period)
	}
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 5, res.Warnings[0].Remaining)
}

func TestLabWindowsAvoidBreaksAndMissingSlots(t *testing.T) {
	withBreak := DefaultTimeSlots()
	withBreak[2].IsBreak = true
	short := DefaultTimeSlots()[:6]

	cases := []struct {
		name    string
		slots   []TimeSlot
		allowed map[int]bool
	}{
		{"break at period 3", withBreak, map[int]bool{5: true, 6: true, 7: true, 8: true}},
		{"grid ends at period 6", short, map[int]bool{1: true, 2: true, 3: true, 4: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for seed := int64(1); seed <= 20; seed++ {
				engine, err := NewEngine(Options{
					Slots: tc.slots,
					Labs:  NewLabPool(openLabs(1)),
					Rand:  rand.New(rand.NewSource(seed)),
				})
				require.NoError(t, err)

				res := engine.ScheduleBatch(BatchInput{
					Batch: Batch{ID: "b1", Label: "A"},
					Assignments: []Assignment{
						{FacultyID: "f1", Course: Course{Code: "CS3461", Type: CourseTypeLab, PracticalHours: 4}},
					},
				})

				require.Empty(t, res.Warnings)
				for _, e := range res.Entries {
					if e.IsLab {
						assert.True(t, tc.allowed[e.Period], "seed %d placed lab at period %d", seed, e.Period)
					}
				}
			}
		})
	}
}

func TestLabWarnsWhenNoWindowIsTeachable(t *testing.T) {
	slots := DefaultTimeSlots()
	slots[1].IsBreak = true
	slots[6].IsBreak = true
	engine, err := NewEngine(Options{Slots: slots, Labs: NewLabPool(openLabs(1)), Rand: rand.New(rand.NewSource(2))})
	require.NoError(t, err)

	res := engine.ScheduleBatch(BatchInput{
		Batch: Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{
			{FacultyID: "f1", Course: Course{Code: "CS3461", Type: CourseTypeLab, PracticalHours: 4}},
		},
	})

	assert.Empty(t, res.Entries)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningLab4, res.Warnings[0].Kind)
}

func TestScheduleBatchReportsTheoryExhaustion(t *testing.T) {
	engine := newTestEngine(t, nil, nil, 1)

	res := engine.ScheduleBatch(BatchInput{
		Batch:       Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{{FacultyID: "f1", Course: Course{Code: "CS3401", LectureHours: 41}}},
	})

	assert.Len(t, res.Entries, NumDays*PeriodsPerDay)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningTheory, res.Warnings[0].Kind)
	assert.Equal(t, "could not schedule theory for CS3401 (batch A, 1 period(s) remaining)", res.Warnings[0].String())
}

func TestFacultyNeverDoubleBookedAcrossBatches(t *testing.T) {
	tracker := NewTracker()
	engine := newTestEngine(t, tracker, nil, 9)
	course := Course{Code: "CS3401", LectureHours: 25}

	first := engine.ScheduleBatch(BatchInput{Batch: Batch{ID: "b1", Label: "A"}, Assignments: []Assignment{{FacultyID: "f1", Course: course}}})
	second := engine.ScheduleBatch(BatchInput{Batch: Batch{ID: "b2", Label: "B"}, Assignments: []Assignment{{FacultyID: "f1", Course: course}}})

	assertRunInvariants(t, []BatchResult{first, second}, nil)
	assert.Len(t, first.Entries, 25)
	assert.Empty(t, first.Warnings)
	assert.Len(t, second.Entries, 15)
	require.Len(t, second.Warnings, 1)
	assert.Equal(t, 10, second.Warnings[0].Remaining)
}

func TestLabAssistantIsBookedAndChecked(t *testing.T) {
	tracker := NewTracker()
	for _, d := range Days {
		for p := 1; p <= 4; p++ {
			tracker.Faculty.Book("assistant", d, p)
		}
	}
	engine := newTestEngine(t, tracker, openLabs(1), 21)

	res := engine.ScheduleBatch(BatchInput{
		Batch: Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{
			{FacultyID: "f1", LabAssistantID: "assistant", Course: Course{Code: "CS3461", Type: CourseTypeLab, PracticalHours: 4}},
		},
	})

	require.Empty(t, res.Warnings)
	require.Len(t, res.Entries, 4)
	for _, e := range res.Entries {
		assert.GreaterOrEqual(t, e.Period, 5)
		assert.Equal(t, "assistant", e.LabAssistantID)
		assert.True(t, tracker.Faculty.Busy("assistant", e.Day, e.Period))
	}
}

func TestTwoBatchesShareThreeLabsWithoutDoubleBooking(t *testing.T) {
	tracker := NewTracker()
	engine := newTestEngine(t, tracker, openLabs(3), 13)
	course := Course{Code: "CS3461", Type: CourseTypeLab, PracticalHours: 4}

	a := engine.ScheduleBatch(BatchInput{Batch: Batch{ID: "b1", Label: "A"}, Assignments: []Assignment{{FacultyID: "f1", Course: course}}})
	b := engine.ScheduleBatch(BatchInput{Batch: Batch{ID: "b2", Label: "B"}, Assignments: []Assignment{{FacultyID: "f2", Course: course}}})

	assert.Empty(t, a.Warnings)
	assert.Empty(t, b.Warnings)
	assert.Len(t, a.Entries, 4)
	assert.Len(t, b.Entries, 4)
	assertRunInvariants(t, []BatchResult{a, b}, nil)
}

func TestSecondBatchWarnsWhenEveryLabIsTaken(t *testing.T) {
	tracker := NewTracker()
	labs := openLabs(3)
	for _, lab := range labs {
		for _, d := range Days {
			for _, w := range FourPeriodWindows {
				if lab.ID == "lab-2" && d == Thursday && w.Start == 5 {
					continue
				}
				tracker.Labs.Book(lab.ID, d, w, LabOccupant{BatchID: "other", Label: "X"})
			}
		}
	}
	engine := newTestEngine(t, tracker, labs, 17)
	course := Course{Code: "CS3461", Type: CourseTypeLab, PracticalHours: 4}

	a := engine.ScheduleBatch(BatchInput{Batch: Batch{ID: "b1", Label: "A"}, Assignments: []Assignment{{FacultyID: "f1", Course: course}}})
	b := engine.ScheduleBatch(BatchInput{Batch: Batch{ID: "b2", Label: "B"}, Assignments: []Assignment{{FacultyID: "f2", Course: course}}})

	require.Empty(t, a.Warnings)
	require.Len(t, a.Entries, 4)
	assert.Equal(t, Thursday, a.Entries[0].Day)
	assert.Equal(t, "lab-2", a.Entries[0].LabRoomID)

	assert.Empty(t, b.Entries)
	require.Len(t, b.Warnings, 1)
	assert.Equal(t, WarningLab4, b.Warnings[0].Kind)
	assert.Equal(t, "could not schedule 4-period lab for CS3461 (batch B, 1 session(s) remaining)", b.Warnings[0].String())
}

func TestPreferredLabIsUsedFirst(t *testing.T) {
	labs := append(openLabs(2), LabRoom{ID: "lab-z", Code: "LABZ", Active: true, Restrictions: []LabRestriction{{CourseCode: strPtr("CS3461")}}})
	engine := newTestEngine(t, nil, labs, 2)

	res := engine.ScheduleBatch(BatchInput{
		Batch:       Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{{FacultyID: "f1", Course: Course{Code: "CS3461", Type: CourseTypeLab, PracticalHours: 4}}},
	})

	require.Len(t, res.Entries, 4)
	assert.Equal(t, "lab-z", res.Entries[0].LabRoomID)
}

func TestRestrictedLabsRejectOtherPrograms(t *testing.T) {
	labs := []LabRoom{{ID: "lab-1", Code: "LAB1", Active: true, Restrictions: []LabRestriction{{ProgramID: strPtr("ECE")}}}}
	engine := newTestEngine(t, nil, labs, 2)

	res := engine.ScheduleBatch(BatchInput{
		Batch:       Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{{FacultyID: "f1", Course: Course{Code: "CS3381", Type: CourseTypeLab, PracticalHours: 4}}},
	})

	assert.Empty(t, res.Entries)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningLab4, res.Warnings[0].Kind)
}

func TestScheduleBatchIsReproducibleForASeed(t *testing.T) {
	input := BatchInput{
		Batch: Batch{ID: "b1", Label: "A"},
		Assignments: []Assignment{
			{FacultyID: "f1", Course: Course{Code: "CS3461", Type: CourseTypeLab, LectureHours: 3, PracticalHours: 4}},
			{FacultyID: "f2", Course: Course{Code: "CS3381", Type: CourseTypeLab, PracticalHours: 2}},
			{FacultyID: "f3", Course: Course{Code: "MA3354", LectureHours: 3, TutorialHours: 1}},
		},
	}

	first := newTestEngine(t, nil, openLabs(2), 99).ScheduleBatch(input)
	second := newTestEngine(t, nil, openLabs(2), 99).ScheduleBatch(input)

	assert.Equal(t, first.Entries, second.Entries)
}

func TestPinnedFacultyClashIsReported(t *testing.T) {
	tracker := NewTracker()
	tracker.Faculty.Book("f1", Monday, 1)
	engine := newTestEngine(t, tracker, nil, 1)

	res := engine.ScheduleBatch(BatchInput{
		Batch: Batch{ID: "b1", Label: "A"},
		Reservations: []Reservation{
			{Day: Monday, Period: 1, Content: Pinned{CourseCode: "CS3401", FacultyID: "f1"}},
			{Day: Monday, Period: 9, Content: Blocked{Reason: "x"}},
		},
	})

	require.Len(t, res.Entries, 1)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, WarningReservation, res.Warnings[0].Kind)
	assert.Equal(t, WarningReservation, res.Warnings[1].Kind)
}
