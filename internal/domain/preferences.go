package domain

import (
	"fmt"
	"math"
	"time"
)

// Preference keys persisted per user.
const (
	PrefGrade        = "grade"
	PrefPersona      = "persona"
	PrefExamName     = "exam_name"
	PrefExamDate     = "exam_date"
	PrefLockoutUntil = "lockout_until"
)

// DefaultGrade is the audience level used until the user picks one.
const DefaultGrade = "Tier 6"

// DefaultPersona is the persona used until the user picks one.
const DefaultPersona = "Professor"

// Grades lists the selectable audience levels.
var Grades = func() []string {
	g := make([]string, 12)
	for i := range g {
		g[i] = fmt.Sprintf("Tier %d", i+1)
	}
	return g
}()

// Preferences are the simple per-user settings.
type Preferences struct {
	Grade    string `json:"grade"`
	Persona  string `json:"persona"`
	ExamName string `json:"exam_name,omitempty"`
	ExamDate string `json:"exam_date,omitempty"`
}

// PreferencesFromMap builds Preferences from stored key/value pairs, applying defaults.
func PreferencesFromMap(kv map[string]string) Preferences {
	p := Preferences{
		Grade:    kv[PrefGrade],
		Persona:  kv[PrefPersona],
		ExamName: kv[PrefExamName],
		ExamDate: kv[PrefExamDate],
	}
	if p.Grade == "" {
		p.Grade = DefaultGrade
	}
	if p.Persona == "" {
		p.Persona = DefaultPersona
	}
	return p
}

// ExamDaysLeft returns whole days from now until the exam date (YYYY-MM-DD).
// Past dates return 0. ok is false when no valid date is set.
func (p Preferences) ExamDaysLeft(now time.Time) (days int, ok bool) {
	if p.ExamDate == "" {
		return 0, false
	}
	exam, err := time.ParseInLocation("2006-01-02", p.ExamDate, now.Location())
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	diff := exam.Sub(today)
	if diff <= 0 {
		return 0, true
	}
	return int(math.Round(diff.Hours() / 24)), true
}
