package gradewatch

import (
	"sort"

	"obswatch/lib/scrapers/obs"
)

// Diff decides which records in current are notification-worthy given
// the last committed snapshot. a record is new when its key was never
// seen, or was seen as a placeholder and now carries a concrete score.
// when renotifyOnChange is set, a concrete score that changed between
// cycles (a correction) is reported again rather than silently absorbed.
//
// placeholder records in current are never reported, only persisted.
// Diff(s, s) is always empty. the result is ordered by (course, exam)
// so repeated cycles over the same data behave deterministically.
func Diff(previous, current obs.Snapshot, renotifyOnChange bool) []obs.Record {
	var fresh []obs.Record

	for key, record := range current {
		if !record.Announced() {
			continue
		}

		prev, seen := previous[key]
		switch {
		case !seen:
			fresh = append(fresh, record)
		case !prev.Announced():
			fresh = append(fresh, record)
		case prev.Score != record.Score && renotifyOnChange:
			fresh = append(fresh, record)
		}
	}

	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].Course != fresh[j].Course {
			return fresh[i].Course < fresh[j].Course
		}
		return fresh[i].Exam < fresh[j].Exam
	})
	return fresh
}
