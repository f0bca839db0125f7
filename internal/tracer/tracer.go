// Package tracer is the lifecycle engine's tracing seam. The orchestrator,
// pipeline and broker emit spans through the Tracer interface here instead of
// importing OpenTelemetry directly; production wires the OTel adapter, tests
// wire the no-op.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Tracer starts spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start opens a span and returns a context carrying it. Callers own the
	// span and must End it exactly once.
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Span is one in-flight operation. A non-nil error passed to End marks the
// span failed.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	// AddEvent records a point-in-time marker, used for retry scheduling and
	// cancellation correlation.
	AddEvent(name string, attrs ...Attribute)
}

// Attribute is a span key-value pair.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records the value in whole milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashSubjectID digests a directory subject ID so traces can be correlated
// per subject without carrying the identifier itself. Returns the first
// 8 bytes of the SHA-256, hex encoded.
func HashSubjectID(subjectID string) string {
	if subjectID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(subjectID))
	return hex.EncodeToString(sum[:8])
}
