package httptransport

import (
	"time"

	"roster/internal/action"
	"roster/internal/runlog/models"
)

// RunResponse is the full execution record returned after a run completes
// and when fetching a single run.
type RunResponse struct {
	RunID              string            `json:"run_id"`
	SubjectID          string            `json:"subject_id"`
	SubjectDisplayName string            `json:"subject_display_name,omitempty"`
	ExecutedBy         string            `json:"executed_by,omitempty"`
	Status             models.RunStatus  `json:"status"`
	Actions            []action.Outcome  `json:"actions"`
	StartedAt          time.Time         `json:"started_at"`
	EndedAt            *time.Time        `json:"ended_at,omitempty"`
}

// RunSummary represents one run in list responses, without the per-action
// detail.
type RunSummary struct {
	RunID              string           `json:"run_id"`
	SubjectID          string           `json:"subject_id"`
	SubjectDisplayName string           `json:"subject_display_name,omitempty"`
	ExecutedBy         string           `json:"executed_by,omitempty"`
	Status             models.RunStatus `json:"status"`
	ActionCount        int              `json:"action_count"`
	StartedAt          time.Time        `json:"started_at"`
	EndedAt            *time.Time       `json:"ended_at,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs []*RunSummary `json:"runs"`
}

// ActionListResponse is the executable action catalog.
type ActionListResponse struct {
	Actions []string `json:"actions"`
}

func toRunResponse(run *models.ExecutionRun) *RunResponse {
	actions := make([]action.Outcome, 0, len(run.Actions))
	actions = append(actions, run.Actions...)
	return &RunResponse{
		RunID:              run.ID.String(),
		SubjectID:          run.SubjectID,
		SubjectDisplayName: run.SubjectDisplayName,
		ExecutedBy:         run.ExecutedBy,
		Status:             run.Status,
		Actions:            actions,
		StartedAt:          run.StartedAt,
		EndedAt:            run.EndedAt,
	}
}

func toRunListResponse(summaries []models.Summary) *RunListResponse {
	runs := make([]*RunSummary, 0, len(summaries))
	for _, summary := range summaries {
		runs = append(runs, &RunSummary{
			RunID:              summary.ID.String(),
			SubjectID:          summary.SubjectID,
			SubjectDisplayName: summary.SubjectDisplayName,
			ExecutedBy:         summary.ExecutedBy,
			Status:             summary.Status,
			ActionCount:        summary.ActionCount,
			StartedAt:          summary.StartedAt,
			EndedAt:            summary.EndedAt,
		})
	}
	return &RunListResponse{Runs: runs}
}

func toActionListResponse(actions []string) *ActionListResponse {
	catalog := make([]string, 0, len(actions))
	catalog = append(catalog, actions...)
	return &ActionListResponse{Actions: catalog}
}
