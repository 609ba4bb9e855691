package studio

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ashureev/paradox/internal/domain"
)

// Countdown is the exam countdown shown on the home view.
type Countdown struct {
	ExamName string `json:"exam_name"`
	ExamDate string `json:"exam_date"`
	DaysLeft int    `json:"days_left"`
}

// Preferences returns the user's settings with defaults applied.
func (c *Controller) Preferences(ctx context.Context) (domain.Preferences, error) {
	prefs, _, err := c.loadPreferences(ctx)
	return prefs, err
}

// SetPreferences validates and stores p. Empty exam fields clear the countdown.
func (c *Controller) SetPreferences(ctx context.Context, p domain.Preferences) error {
	if p.Grade != "" && !slices.Contains(domain.Grades, p.Grade) {
		return fmt.Errorf("%w: unknown grade %q", ErrInvalidPreference, p.Grade)
	}
	p.ExamDate = strings.TrimSpace(p.ExamDate)
	if p.ExamDate != "" {
		if _, err := time.Parse("2006-01-02", p.ExamDate); err != nil {
			return fmt.Errorf("%w: exam date must be YYYY-MM-DD", ErrInvalidPreference)
		}
	}

	values := map[string]string{
		domain.PrefGrade:    p.Grade,
		domain.PrefPersona:  strings.TrimSpace(p.Persona),
		domain.PrefExamName: strings.TrimSpace(p.ExamName),
		domain.PrefExamDate: p.ExamDate,
	}
	for key, value := range values {
		var err error
		if value == "" {
			err = c.deps.Repo.DeletePreference(ctx, c.UserID, key)
		} else {
			err = c.deps.Repo.SetPreference(ctx, c.UserID, key, value)
		}
		if err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Countdown returns whole days until the configured exam. ok is false when
// no exam is set.
func (c *Controller) Countdown(ctx context.Context) (Countdown, bool, error) {
	prefs, err := c.Preferences(ctx)
	if err != nil {
		return Countdown{}, false, err
	}
	days, ok := prefs.ExamDaysLeft(c.deps.Now())
	if !ok {
		return Countdown{}, false, nil
	}
	return Countdown{ExamName: prefs.ExamName, ExamDate: prefs.ExamDate, DaysLeft: days}, true, nil
}

// History returns the user's history, newest first.
func (c *Controller) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	return c.deps.Repo.ListHistory(ctx, c.UserID, c.deps.HistoryCap)
}

// ClearHistory removes the user's history.
func (c *Controller) ClearHistory(ctx context.Context) error {
	return c.deps.Repo.ClearHistory(ctx, c.UserID)
}
