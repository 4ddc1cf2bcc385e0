package model

import "strings"

type Course struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

func CloneCourses(courses []Course) []Course {
	out := make([]Course, len(courses))
	copy(out, courses)
	return out
}

// FindByCode looks a course up by code, ignoring case and surrounding space.
func FindByCode(courses []Course, code string) (Course, bool) {
	want := strings.ToUpper(strings.TrimSpace(code))
	for _, c := range courses {
		if strings.ToUpper(strings.TrimSpace(c.Code)) == want {
			return c, true
		}
	}
	return Course{}, false
}

func FindByID(courses []Course, id int64) (Course, bool) {
	for _, c := range courses {
		if c.ID == id {
			return c, true
		}
	}
	return Course{}, false
}

// MaxID returns the largest course ID across all given lists, or 0.
func MaxID(lists ...[]Course) int64 {
	var max int64
	for _, list := range lists {
		for _, c := range list {
			if c.ID > max {
				max = c.ID
			}
		}
	}
	return max
}
