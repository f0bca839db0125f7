// Package action defines the uniform unit of lifecycle work. Every concrete
// action, from disabling an account to rerouting mail, sits behind the same
// Executor interface so the orchestrator can sequence them without knowing
// what they do. Nothing an executor does may leak an error or panic past
// Run; the worst possible result is a failed Outcome.
package action

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Status classifies how an action ended.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusPartial Status = "partial"
)

// Spec names one action in a run's plan, with free-form parameters and an
// ordinal giving its place in the sequence.
type Spec struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Ordinal    int            `json:"ordinal"`
}

// Request carries what an executor acts on: the session that authorizes the
// work, the directory subject it targets, and the spec's parameters.
type Request struct {
	SessionID  id.SessionID
	SubjectID  string
	Parameters map[string]any
}

// Outcome is the immutable record of one executed action.
type Outcome struct {
	ActionName string         `json:"action_name"`
	Status     Status         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Executor is one named lifecycle action.
type Executor interface {
	Name() string
	Execute(ctx context.Context, req Request) Outcome
}

// Registry resolves action names to executors. Populate it during wiring;
// it is read-only afterwards and safe for concurrent lookups.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry builds a registry from the given executors. A duplicate name
// is a wiring bug and panics.
func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{executors: make(map[string]Executor, len(executors))}
	for _, e := range executors {
		name := e.Name()
		if _, exists := r.executors[name]; exists {
			panic(fmt.Sprintf("action: duplicate executor %q", name))
		}
		r.executors[name] = e
	}
	return r
}

// Lookup returns the executor registered under name.
func (r *Registry) Lookup(name string) (Executor, bool) {
	e, ok := r.executors[name]
	return e, ok
}

// Names returns all registered action names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one spec through the registry. It is the no-throw boundary:
// unknown names, executor errors and panics all come back as a failed
// Outcome, never as an error.
func Run(ctx context.Context, reg *Registry, spec Spec, req Request) (out Outcome) {
	name := strings.TrimSpace(spec.Name)

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				ActionName: name,
				Status:     StatusFailed,
				Message:    "action panicked",
				Detail: map[string]any{
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				},
				Timestamp: nowUTC(),
			}
		}
	}()

	executor, ok := reg.Lookup(name)
	if !ok {
		return Outcome{
			ActionName: name,
			Status:     StatusFailed,
			Message:    fmt.Sprintf("unknown action %q", name),
			Timestamp:  nowUTC(),
		}
	}

	req.Parameters = spec.Parameters
	out = executor.Execute(ctx, req)
	if out.ActionName == "" {
		out.ActionName = name
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = nowUTC()
	}
	return out
}

// success builds a successful outcome stamped now.
func success(name, message string, detail map[string]any) Outcome {
	return Outcome{
		ActionName: name,
		Status:     StatusSuccess,
		Message:    message,
		Detail:     detail,
		Timestamp:  nowUTC(),
	}
}

// failure builds a failed outcome carrying the error text and, when the
// error is a classified domain error, its code.
func failure(name, message string, err error) Outcome {
	detail := map[string]any{"error": err.Error()}
	if code, ok := dErrors.CodeOf(err); ok {
		detail["code"] = string(code)
	}
	return Outcome{
		ActionName: name,
		Status:     StatusFailed,
		Message:    message,
		Detail:     detail,
		Timestamp:  nowUTC(),
	}
}

// partial builds a partially-successful outcome stamped now.
func partial(name, message string, detail map[string]any) Outcome {
	return Outcome{
		ActionName: name,
		Status:     StatusPartial,
		Message:    message,
		Detail:     detail,
		Timestamp:  nowUTC(),
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
