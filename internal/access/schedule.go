package access

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/gymgate/engine/internal/domain"
)

// ValidateSchedule checks a schedule before it is accepted. Windows
// that wrap past midnight are rejected outright rather than silently
// mishandled; the settings collaborator must split them.
func ValidateSchedule(s domain.Schedule) error {
	var problems []string

	if s.ID == "" {
		problems = append(problems, "id is required")
	}
	if len(s.Days) == 0 {
		problems = append(problems, "at least one weekday is required")
	}
	for _, d := range s.Days {
		if d < 0 || d > 6 {
			problems = append(problems, fmt.Sprintf("weekday %d out of range 0-6", d))
		}
	}
	if len(s.Apps) == 0 {
		problems = append(problems, "at least one app identifier is required")
	}

	start, err := minuteOfDay(s.Start)
	if err != nil {
		problems = append(problems, fmt.Sprintf("start time: %v", err))
	}
	end, err := minuteOfDay(s.End)
	if err != nil {
		problems = append(problems, fmt.Sprintf("end time: %v", err))
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrScheduleInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrScheduleInvalid.Message, problems),
		}
	}

	if end <= start {
		return domain.ErrScheduleWindowWrap
	}
	return nil
}

// PutSchedule validates and stores a schedule.
func (e *Engine) PutSchedule(ctx context.Context, s domain.Schedule) error {
	if err := ValidateSchedule(s); err != nil {
		return err
	}
	return e.schedules.Put(ctx, e.db, s)
}

// Schedules lists all stored schedules.
func (e *Engine) Schedules(ctx context.Context) ([]domain.Schedule, error) {
	return e.schedules.List(ctx, e.db)
}

// DeleteSchedule removes a schedule by ID.
func (e *Engine) DeleteSchedule(ctx context.Context, id string) error {
	return e.schedules.Delete(ctx, e.db, id)
}

// scheduleFile is the YAML shape the settings collaborator writes.
type scheduleFile struct {
	Schedules []domain.Schedule `yaml:"schedules"`
}

// LoadScheduleFile replaces the stored schedule set with the contents
// of the YAML file at path. Invalid schedules are skipped with a
// warning so one bad entry cannot take down the rest.
func (e *Engine) LoadScheduleFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schedule file: %w", err)
	}

	var file scheduleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse schedule YAML: %w", err)
	}

	valid := make([]domain.Schedule, 0, len(file.Schedules))
	for _, s := range file.Schedules {
		if err := ValidateSchedule(s); err != nil {
			log.Warn().Str("schedule", s.ID).Err(err).Msg("skipping invalid schedule from file")
			continue
		}
		valid = append(valid, s)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := e.schedules.ReplaceAll(ctx, tx, valid); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule reload: %w", err)
	}

	log.Info().Int("count", len(valid)).Str("path", path).Msg("schedules loaded")
	return nil
}

// minuteOfDay parses a local "HH:MM" string into minutes past
// midnight.
func minuteOfDay(hhmm string) (int, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return h*60 + m, nil
}
