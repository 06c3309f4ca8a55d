package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestLabWithoutRestrictionsAllowsEverything(t *testing.T) {
	lab := LabRoom{ID: "lab-1", Code: "LAB1", Active: true}

	for _, program := range []string{"", "CSE", "ECE"} {
		for year := 1; year <= 4; year++ {
			for _, course := range []string{"", "CS3461", "EC3311"} {
				assert.True(t, lab.Allows(program, year, course))
			}
		}
	}
}

func TestLabRestrictedToProgramAndYear(t *testing.T) {
	lab := LabRoom{ID: "lab-1", Code: "LAB1", Active: true, Restrictions: []LabRestriction{
		{ProgramID: strPtr("P"), YearOfStudy: intPtr(2)},
	}}

	assert.False(t, lab.Allows("P", 3, "CS3461"))
	assert.False(t, lab.Allows("P", 3, ""))
	assert.True(t, lab.Allows("P", 2, "CS3461"))
	assert.True(t, lab.Allows("P", 2, ""))
	assert.False(t, lab.Allows("Q", 2, "CS3461"))
}

func TestLabRestrictedToCourseNeedsThatCourse(t *testing.T) {
	lab := LabRoom{ID: "lab-1", Code: "LAB1", Active: true, Restrictions: []LabRestriction{
		{CourseCode: strPtr("CS3461")},
	}}

	assert.True(t, lab.Allows("P", 1, "CS3461"))
	assert.False(t, lab.Allows("P", 1, "CS3462"))
	assert.False(t, lab.Allows("P", 1, ""))
}

func TestLabPoolPreferredAndCandidates(t *testing.T) {
	pool := NewLabPool([]LabRoom{
		{ID: "c", Code: "LAB-C", Active: true, Restrictions: []LabRestriction{{CourseCode: strPtr("CS3461")}}},
		{ID: "a", Code: "LAB-A", Active: true},
		{ID: "x", Code: "LAB-X", Active: false},
		{ID: "b", Code: "LAB-B", Active: true, Restrictions: []LabRestriction{{CourseCode: strPtr("CS3461")}}},
	})

	require.Equal(t, 3, pool.Len())
	preferred, ok := pool.Preferred("CS3461")
	require.True(t, ok)
	assert.Equal(t, "b", preferred.ID, "first dedicated lab in code order")

	_, ok = pool.Preferred("MA3354")
	assert.False(t, ok)

	ids := func(labs []LabRoom) []string {
		out := make([]string, 0, len(labs))
		for _, l := range labs {
			out = append(out, l.ID)
		}
		return out
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids(pool.Candidates("CS3461")))
	assert.Equal(t, []string{"a", "b", "c"}, ids(pool.Candidates("MA3354")))
}
