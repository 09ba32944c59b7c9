package attendance

import (
	"sort"

	"github.com/classroll/classroll/internal/domain/shared"
)

// StudentTally is the present/absent breakdown of one student in a report.
type StudentTally struct {
	StudentID   shared.ID
	StudentName string
	Present     int
	Absent      int
}

// Total returns the number of rows counted for the student.
func (t StudentTally) Total() int {
	return t.Present + t.Absent
}

// Summary aggregates report rows.
// Present + Absent always equals the number of rows summarized.
type Summary struct {
	Present  int
	Absent   int
	Students []StudentTally
}

// Total returns the number of rows summarized.
func (s Summary) Total() int {
	return s.Present + s.Absent
}

// Summarize counts rows by status, overall and per student. The per-student
// breakdown is keyed by student id and ordered by name then id, so two
// students sharing a name are never merged.
func Summarize(rows []Row) Summary {
	var sum Summary
	index := make(map[shared.ID]int)

	for _, r := range rows {
		i, ok := index[r.StudentID]
		if !ok {
			i = len(sum.Students)
			index[r.StudentID] = i
			sum.Students = append(sum.Students, StudentTally{
				StudentID:   r.StudentID,
				StudentName: r.StudentName,
			})
		}
		if r.Status == StatusPresent {
			sum.Present++
			sum.Students[i].Present++
		} else {
			sum.Absent++
			sum.Students[i].Absent++
		}
	}

	sort.SliceStable(sum.Students, func(a, b int) bool {
		sa, sb := sum.Students[a], sum.Students[b]
		if sa.StudentName != sb.StudentName {
			return sa.StudentName < sb.StudentName
		}
		return sa.StudentID < sb.StudentID
	})
	return sum
}

// Tally counts a student's records by status.
func Tally(records []*Record) (present, absent int) {
	for _, r := range records {
		if r.IsPresent() {
			present++
		} else {
			absent++
		}
	}
	return present, absent
}
