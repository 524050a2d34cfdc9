package model

import (
	"errors"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusPaused    ScheduleStatus = "paused"
)

// ScheduledPost either wraps an existing post or carries a prompt the
// scheduler turns into fresh posts on every run.
type ScheduledPost struct {
	ID            int64          `json:"id"`
	UserID        string         `json:"user_id"`
	PostID        *int64         `json:"post_id,omitempty"`
	Prompt        *string        `json:"prompt,omitempty"`
	Platforms     []string       `json:"platforms"`
	BrandVoiceID  *int64         `json:"brand_voice_id,omitempty"`
	Frequency     Frequency      `json:"frequency"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	NextRun       *time.Time     `json:"next_run,omitempty"`
	IsActive      bool           `json:"is_active"`
	Status        ScheduleStatus `json:"status"`
	RunCount      int            `json:"run_count"`
	LastRun       *time.Time     `json:"last_run,omitempty"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Validate enforces that exactly one of post and prompt is set, and that a
// prompt names at least one platform.
func (s *ScheduledPost) Validate() error {
	hasPrompt := s.Prompt != nil && strings.TrimSpace(*s.Prompt) != ""
	if s.PostID == nil && !hasPrompt {
		return errors.New("either a post or a prompt is required")
	}
	if s.PostID != nil && hasPrompt {
		return errors.New("provide either a post or a prompt, not both")
	}
	if hasPrompt && len(s.Platforms) == 0 {
		return errors.New("platforms are required when using a prompt")
	}
	for _, p := range s.Platforms {
		if _, ok := ParsePlatform(p); !ok {
			return errors.New("unsupported platform: " + p)
		}
	}
	switch s.Frequency {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return errors.New("unknown frequency: " + string(s.Frequency))
	}
	return nil
}

// Due reports whether the sweep should run this entry at now.
func (s *ScheduledPost) Due(now time.Time) bool {
	if !s.IsActive || s.NextRun == nil {
		return false
	}
	if s.Status != ScheduleStatusPending && s.Status != ScheduleStatusActive {
		return false
	}
	return !s.NextRun.After(now)
}

// NextRunAfter is the fixed-increment successor of a run at t. Once schedules
// have no successor.
func (f Frequency) NextRunAfter(t time.Time) (time.Time, bool) {
	switch f {
	case FrequencyDaily:
		return t.Add(24 * time.Hour), true
	case FrequencyWeekly:
		return t.Add(7 * 24 * time.Hour), true
	case FrequencyMonthly:
		return t.Add(30 * 24 * time.Hour), true
	}
	return time.Time{}, false
}

// RecordSuccess applies the bookkeeping for a successful run.
func (s *ScheduledPost) RecordSuccess(now time.Time) {
	s.RunCount++
	t := now.UTC()
	s.LastRun = &t
	s.ErrorMessage = nil
	if next, ok := s.Frequency.NextRunAfter(t); ok {
		s.NextRun = &next
		s.Status = ScheduleStatusActive
		return
	}
	s.Status = ScheduleStatusCompleted
	s.IsActive = false
}

// RecordFailure keeps the row for inspection with the error text. A failed
// once schedule is final; recurring ones stay active for Resume.
func (s *ScheduledPost) RecordFailure(msg string) {
	s.Status = ScheduleStatusFailed
	m := msg
	s.ErrorMessage = &m
	if s.Frequency == FrequencyOnce {
		s.IsActive = false
	}
}

// Resumable reports whether Resume may reactivate the entry.
func (s *ScheduledPost) Resumable() bool {
	switch s.Status {
	case ScheduleStatusCompleted:
		return false
	case ScheduleStatusFailed:
		return s.Frequency != FrequencyOnce
	}
	return true
}

func (s *ScheduledPost) Pause() {
	s.IsActive = false
	s.Status = ScheduleStatusPaused
}

func (s *ScheduledPost) Resume() {
	s.IsActive = true
	s.Status = ScheduleStatusActive
}
