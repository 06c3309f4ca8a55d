package timetable

import (
	"fmt"
	"sort"
	"strings"
)

// Day is a teaching day of the week. The zero value is Monday.
type Day int

// Teaching days.
const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

// NumDays is the number of teaching days in the grid.
const NumDays = 5

// PeriodsPerDay is the number of ordinal periods in a teaching day.
const PeriodsPerDay = 8

// Days lists the teaching days in calendar order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayCodes = [NumDays]string{"MON", "TUE", "WED", "THU", "FRI"}

// String returns the three letter code used in storage (MON..FRI).
func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayCodes[d]
}

// Valid reports whether d is one of the teaching days.
func (d Day) Valid() bool {
	return d >= Monday && d <= Friday
}

// ParseDay resolves a day code such as "MON" or "monday".
func ParseDay(raw string) (Day, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if len(value) > 3 {
		value = value[:3]
	}
	for i, code := range dayCodes {
		if code == value {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", raw)
}

// TimeSlot is one ordinal period of the daily grid.
type TimeSlot struct {
	Number  int
	Start   string
	End     string
	IsBreak bool
}

// DefaultTimeSlots returns the standard eight period grid with the lunch gap
// between periods 4 and 5.
func DefaultTimeSlots() []TimeSlot {
	return []TimeSlot{
		{Number: 1, Start: "09:00", End: "09:50"},
		{Number: 2, Start: "09:50", End: "10:40"},
		{Number: 3, Start: "10:50", End: "11:40"},
		{Number: 4, Start: "11:40", End: "12:30"},
		{Number: 5, Start: "13:30", End: "14:20"},
		{Number: 6, Start: "14:20", End: "15:10"},
		{Number: 7, Start: "15:20", End: "16:10"},
		{Number: 8, Start: "16:10", End: "17:00"},
	}
}

// ValidateSlots checks numbering and returns the slots sorted by number.
func ValidateSlots(slots []TimeSlot) ([]TimeSlot, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("time slot grid is empty")
	}
	sorted := make([]TimeSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	seen := make(map[int]bool, len(sorted))
	for _, slot := range sorted {
		if slot.Number < 1 || slot.Number > PeriodsPerDay {
			return nil, fmt.Errorf("time slot %d outside 1-%d", slot.Number, PeriodsPerDay)
		}
		if seen[slot.Number] {
			return nil, fmt.Errorf("duplicate time slot %d", slot.Number)
		}
		seen[slot.Number] = true
	}
	return sorted, nil
}

// Window is a contiguous run of periods, both ends inclusive.
type Window struct {
	Start int
	End   int
}

// Periods lists every period covered by the window.
func (w Window) Periods() []int {
	periods := make([]int, 0, w.Len())
	for p := w.Start; p <= w.End; p++ {
		periods = append(periods, p)
	}
	return periods
}

// Len is the number of periods in the window.
func (w Window) Len() int {
	return w.End - w.Start + 1
}

func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// Label names a four period window by the half of the day it covers.
func (w Window) Label() string {
	if w.Start <= PeriodsPerDay/2 {
		return "Morning"
	}
	return "Afternoon"
}

// TwoPeriodWindows are the only placements allowed for a 2-period lab.
var TwoPeriodWindows = []Window{{1, 2}, {3, 4}, {5, 6}, {7, 8}}

// FourPeriodWindows are the only placements allowed for a 4-period lab.
var FourPeriodWindows = []Window{{1, 4}, {5, 8}}

// pairIndex maps a 2-period window to its index in TwoPeriodWindows.
func pairIndex(w Window) int {
	return (w.Start - 1) / 2
}

// pairIndexes returns the 2-period windows that make up w. For a 2-period
// window that is w itself.
func pairIndexes(w Window) []int {
	indexes := make([]int, 0, w.Len()/2)
	for p := w.Start; p < w.End; p += 2 {
		indexes = append(indexes, pairIndex(Window{Start: p, End: p + 1}))
	}
	return indexes
}

// windowsForLength returns the fixed windows for a lab session length.
func windowsForLength(length int) []Window {
	switch length {
	case 4:
		return FourPeriodWindows
	case 2:
		return TwoPeriodWindows
	default:
		return nil
	}
}
