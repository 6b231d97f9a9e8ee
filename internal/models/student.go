package models

import "time"

// Grades is the fixed set of classroom labels, in display order. Grouped
// listings and validation both consult this slice so the two can never
// drift apart.
var Grades = []string{
	"Grade 1", "Grade 2", "Grade 3", "Grade 4",
	"Grade 5", "Grade 6", "Grade 7", "Grade 8",
}

// GradeIndex returns the position of a grade in the fixed enumeration,
// or -1 when the label is unknown.
func GradeIndex(grade string) int {
	for i, g := range Grades {
		if g == grade {
			return i
		}
	}
	return -1
}

// ValidGrade reports whether the label belongs to the enumeration.
func ValidGrade(grade string) bool {
	return GradeIndex(grade) >= 0
}

// Student represents a learner owned by exactly one parent identity.
// IDs are store-assigned and monotonically increasing.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Grade     string    `db:"grade" json:"grade"`
	ParentID  string    `db:"parent_id" json:"parent_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentDetail joins a student with its parent's display fields.
type StudentDetail struct {
	Student
	ParentName  string `db:"parent_name" json:"parent_name"`
	ParentEmail string `db:"parent_email" json:"parent_email"`
}

// GradeGroup holds the students of a single grade for grouped listings.
type GradeGroup struct {
	Grade    string          `json:"grade"`
	Students []StudentDetail `json:"students"`
}

// StudentSearchFilter captures the directory search parameters. An empty
// Term means "no name filter"; an empty Grade means all grades.
type StudentSearchFilter struct {
	Term  string
	Grade string
}
