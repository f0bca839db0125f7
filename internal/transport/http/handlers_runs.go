package httptransport

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"roster/internal/action"
	"roster/internal/orchestrator"
	"roster/internal/platform/middleware"
	runlogmodels "roster/internal/runlog/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
	"roster/pkg/strutil"
	"roster/pkg/validation"
)

// StartRunRequest is the offboarding plan submitted by the UI wizard.
// Bounds mirror the orchestrator's plan limits.
type StartRunRequest struct {
	SubjectID          string           `json:"subject_id" validate:"required,notblank"`
	SubjectDisplayName string           `json:"subject_display_name"`
	ExecutedBy         string           `json:"executed_by"`
	Actions            []StartRunAction `json:"actions" validate:"required,min=1,max=32,dive"`
}

// StartRunAction names one action in the submitted plan.
type StartRunAction struct {
	Name       string         `json:"name" validate:"required,notblank"`
	Parameters map[string]any `json:"parameters"`
	Ordinal    int            `json:"ordinal" validate:"gte=0"`
}

func (r *StartRunRequest) Normalize() {
	if r == nil {
		return
	}
	strutil.TrimStrings(&r.SubjectID, &r.SubjectDisplayName, &r.ExecutedBy)
	for i := range r.Actions {
		strutil.TrimStrings(&r.Actions[i].Name)
	}
}

func (r *StartRunRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// HandleStartRun implements POST /v1/runs.
// Executes the plan synchronously and returns the sealed run record. The
// response status is 200 even when individual actions failed; per-action
// results are in the body.
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	sessionID, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[StartRunRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	run, err := h.runner.Run(ctx, toRunInput(sessionID, req))
	if err != nil {
		h.logger.ErrorContext(ctx, "run rejected",
			"error", err,
			"request_id", requestID,
			"subject_id", req.SubjectID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "run finished",
		"request_id", requestID,
		"run_id", run.ID,
		"status", run.Status,
		"actions", len(run.Actions),
	)

	httputil.WriteJSON(w, http.StatusOK, toRunResponse(run))
}

// HandleListRuns implements GET /v1/runs.
// Supports status, subject_id, from, to and limit query parameters.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	sessionID, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	filter, err := parseRunFilter(r.URL.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "invalid run filter",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	summaries, err := h.runlog.List(ctx, sessionID, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "run listing failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRunListResponse(summaries))
}

// HandleGetRun implements GET /v1/runs/{runID}.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	sessionID, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	runID, err := id.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid run ID",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	run, err := h.runlog.Get(ctx, sessionID, runID)
	if err != nil {
		h.logger.WarnContext(ctx, "run lookup failed",
			"error", err,
			"request_id", requestID,
			"run_id", runID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRunResponse(run))
}

// HandleListActions implements GET /v1/actions.
// The catalog is static wiring, so no session is required.
func (h *Handler) HandleListActions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toActionListResponse(h.actions))
}

func toRunInput(sessionID id.SessionID, req *StartRunRequest) orchestrator.Input {
	specs := make([]action.Spec, 0, len(req.Actions))
	for _, a := range req.Actions {
		specs = append(specs, action.Spec{
			Name:       a.Name,
			Parameters: a.Parameters,
			Ordinal:    a.Ordinal,
		})
	}
	return orchestrator.Input{
		SessionID:          sessionID,
		SubjectID:          req.SubjectID,
		SubjectDisplayName: req.SubjectDisplayName,
		ExecutedBy:         req.ExecutedBy,
		Actions:            specs,
	}
}

func parseRunFilter(values url.Values) (runlogmodels.Filter, error) {
	var filter runlogmodels.Filter

	if raw := values.Get("status"); raw != "" {
		status, err := runlogmodels.ParseRunStatus(raw)
		if err != nil {
			return runlogmodels.Filter{}, err
		}
		filter.Status = status
	}

	filter.SubjectID = strings.TrimSpace(values.Get("subject_id"))

	if raw := values.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return runlogmodels.Filter{}, dErrors.New(dErrors.CodeValidation, "from must be an RFC 3339 timestamp")
		}
		filter.From = from
	}

	if raw := values.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return runlogmodels.Filter{}, dErrors.New(dErrors.CodeValidation, "to must be an RFC 3339 timestamp")
		}
		filter.To = to
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return runlogmodels.Filter{}, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}

	return filter, nil
}
