package models

import (
	"encoding/json"
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// Grade is a letter grade from the institution's fixed scale.
type Grade string

// Supported grades, best first.
const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

type gradeInfo struct {
	points      float64
	description string
}

var gradeScale = map[Grade]gradeInfo{
	GradeS: {points: 10.0, description: "Excellent"},
	GradeA: {points: 9.0, description: "Very Good"},
	GradeB: {points: 8.0, description: "Good"},
	GradeC: {points: 7.0, description: "Average"},
	GradeD: {points: 6.0, description: "Below Average"},
	GradeF: {points: 0.0, description: "Fail"},
}

// AllGrades lists the scale in descending order of points.
func AllGrades() []Grade {
	return []Grade{GradeS, GradeA, GradeB, GradeC, GradeD, GradeF}
}

// ParseGrade resolves a letter (case-insensitive) into a Grade.
func ParseGrade(raw string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := gradeScale[g]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid grade %q: use S, A, B, C, D or F", raw))
	}
	return g, nil
}

// Valid reports whether g belongs to the scale.
func (g Grade) Valid() bool {
	_, ok := gradeScale[g]
	return ok
}

// Points returns the grade-point value.
func (g Grade) Points() float64 {
	return gradeScale[g].points
}

// Description returns the descriptive label.
func (g Grade) Description() string {
	return gradeScale[g].description
}

// IsPassing is true for every grade except F.
func (g Grade) IsPassing() bool {
	return g.Valid() && g != GradeF
}

// String renders the grade as "A (9.0)".
func (g Grade) String() string {
	return fmt.Sprintf("%s (%.1f)", string(g), g.Points())
}

// MarshalJSON keeps the wire form to the bare letter.
func (g Grade) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(g))
}

// UnmarshalJSON accepts a letter in any case.
func (g *Grade) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseGrade(raw)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
