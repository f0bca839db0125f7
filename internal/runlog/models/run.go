// Package models defines the execution run record: one row per lifecycle
// run, carrying the ordered outcomes of every action it executed. Runs are
// written in two phases, begun when the orchestrator starts and sealed when
// it finishes; a sealed run never changes again.
package models

import (
	"strings"
	"time"

	"roster/internal/action"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// RunStatus is the overall verdict of a run, derived purely from its
// action outcomes once sealed.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
	RunStatusPartial RunStatus = "partial"
)

// ParseRunStatus validates a status string from a query parameter.
func ParseRunStatus(s string) (RunStatus, error) {
	switch RunStatus(strings.ToLower(strings.TrimSpace(s))) {
	case RunStatusRunning:
		return RunStatusRunning, nil
	case RunStatusSuccess:
		return RunStatusSuccess, nil
	case RunStatusFailed:
		return RunStatusFailed, nil
	case RunStatusPartial:
		return RunStatusPartial, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "status must be one of [running success failed partial]")
	}
}

// ExecutionRun is the persistent record of one lifecycle run.
type ExecutionRun struct {
	ID                 id.RunID         `json:"run_id"`
	TenantID           id.TenantID      `json:"tenant_id"`
	SubjectID          string           `json:"subject_id"`
	SubjectDisplayName string           `json:"subject_display_name,omitempty"`
	ExecutedBy         string           `json:"executed_by,omitempty"`
	Status             RunStatus        `json:"status"`
	Actions            []action.Outcome `json:"actions"`
	StartedAt          time.Time        `json:"started_at"`
	EndedAt            *time.Time       `json:"ended_at,omitempty"`
}

// NewExecutionRun opens a run record in the running state.
func NewExecutionRun(runID id.RunID, tenantID id.TenantID, subjectID, subjectDisplayName, executedBy string, now time.Time) (*ExecutionRun, error) {
	if runID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "run ID is required")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant ID is required")
	}
	if strings.TrimSpace(subjectID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject ID is required")
	}
	return &ExecutionRun{
		ID:                 runID,
		TenantID:           tenantID,
		SubjectID:          subjectID,
		SubjectDisplayName: subjectDisplayName,
		ExecutedBy:         executedBy,
		Status:             RunStatusRunning,
		StartedAt:          now,
	}, nil
}

// Append records the next action outcome. Outcomes arrive in execution
// order and are never reordered or replaced.
func (r *ExecutionRun) Append(outcome action.Outcome) error {
	if r.IsSealed() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot append to a sealed run")
	}
	r.Actions = append(r.Actions, outcome)
	return nil
}

// Seal closes the run: the end time is set and the overall status derived
// from the outcomes. Sealing twice is a bug.
func (r *ExecutionRun) Seal(now time.Time) error {
	if r.IsSealed() {
		return dErrors.New(dErrors.CodeInvariantViolation, "run is already sealed")
	}
	r.Status = DeriveStatus(r.Actions)
	r.EndedAt = &now
	return nil
}

// IsSealed reports whether the run has ended.
func (r *ExecutionRun) IsSealed() bool {
	return r.EndedAt != nil
}

// DeriveStatus folds action outcomes into the run's overall status: all
// success is success, all failed is failed, anything else (including
// skipped or partial actions) is partial. An empty run counts as failed;
// it produced nothing.
func DeriveStatus(outcomes []action.Outcome) RunStatus {
	if len(outcomes) == 0 {
		return RunStatusFailed
	}
	allSuccess := true
	allFailed := true
	for _, out := range outcomes {
		if out.Status != action.StatusSuccess {
			allSuccess = false
		}
		if out.Status != action.StatusFailed {
			allFailed = false
		}
	}
	switch {
	case allSuccess:
		return RunStatusSuccess
	case allFailed:
		return RunStatusFailed
	default:
		return RunStatusPartial
	}
}

// Summary is the list-view projection of a run.
type Summary struct {
	ID                 id.RunID   `json:"run_id"`
	SubjectID          string     `json:"subject_id"`
	SubjectDisplayName string     `json:"subject_display_name,omitempty"`
	ExecutedBy         string     `json:"executed_by,omitempty"`
	Status             RunStatus  `json:"status"`
	ActionCount        int        `json:"action_count"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
}

// Summarize projects a run onto its list view.
func Summarize(run *ExecutionRun) Summary {
	return Summary{
		ID:                 run.ID,
		SubjectID:          run.SubjectID,
		SubjectDisplayName: run.SubjectDisplayName,
		ExecutedBy:         run.ExecutedBy,
		Status:             run.Status,
		ActionCount:        len(run.Actions),
		StartedAt:          run.StartedAt,
		EndedAt:            run.EndedAt,
	}
}

// Filter narrows a run listing. Zero values mean "no constraint".
type Filter struct {
	Status    RunStatus
	SubjectID string
	From      time.Time
	To        time.Time
	Limit     int
}

// Matches reports whether run satisfies every set constraint.
func (f Filter) Matches(run *ExecutionRun) bool {
	if f.Status != "" && run.Status != f.Status {
		return false
	}
	if f.SubjectID != "" && run.SubjectID != f.SubjectID {
		return false
	}
	if !f.From.IsZero() && run.StartedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && run.StartedAt.After(f.To) {
		return false
	}
	return true
}
