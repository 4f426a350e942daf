// internal/models/draft.go
package models

import "time"

// DraftStatus tracks where a draft is in its lifecycle.
type DraftStatus string

const (
	DraftEditing    DraftStatus = "editing"
	DraftGenerating DraftStatus = "generating"
	DraftGenerated  DraftStatus = "generated"
	DraftFailed     DraftStatus = "failed"
)

// Draft pairs the form input with its latest generated plan.
type Draft struct {
	ID          string      `json:"id"`
	Input       LessonInput `json:"input"`
	Plan        *WeeklyPlan `json:"plan,omitempty"`
	Status      DraftStatus `json:"status"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	GeneratedAt *time.Time  `json:"generated_at,omitempty"`
}

// HasPlan reports whether the draft currently holds a rendered result.
func (d *Draft) HasPlan() bool {
	return d != nil && d.Plan != nil && d.Status == DraftGenerated
}
