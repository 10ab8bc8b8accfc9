// Package trace implements the append-only audit sink. Each record is a
// self-contained JSON object written as one line; writes are serialized so
// a record is never interleaved or torn. Audit failures are logged and
// swallowed: auditing must never fail a user request.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Audit record categories.
const (
	CategoryGuardrailPass = "guardrail_pass"
	CategoryGuardrailFail = "guardrail_fail"
	CategoryReflection    = "reflection"
	CategorySafeFail      = "safe_fail"
	CategoryFetch         = "fetch"
)

// Event is a single step inside an audit record.
type Event struct {
	Type    string         `json:"type"`
	TS      float64        `json:"ts"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Record is one audit entry: a trace id, a category, request context, and
// the ordered events observed while producing the outcome.
type Record struct {
	TraceID   string         `json:"trace_id"`
	Category  string         `json:"category"`
	Timestamp float64        `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
	Events    []Event        `json:"events"`
}

// NewTraceID returns an id of the form <unix-ms>-<8 hex chars>.
func NewTraceID() string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), short)
}

// Logger accumulates events for one audit record.
type Logger struct {
	rec Record
}

// NewLogger starts a record in the given category with a fresh trace id.
func NewLogger(category string) *Logger {
	return &Logger{rec: Record{
		TraceID:   NewTraceID(),
		Category:  category,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Context:   make(map[string]any),
	}}
}

// TraceID returns the record's trace id.
func (l *Logger) TraceID() string { return l.rec.TraceID }

// SetCategory overrides the category chosen at construction.
func (l *Logger) SetCategory(category string) { l.rec.Category = category }

// SetContext attaches a context value to the record.
func (l *Logger) SetContext(key string, value any) {
	l.rec.Context[key] = value
}

func (l *Logger) append(typ string, payload map[string]any) {
	l.rec.Events = append(l.rec.Events, Event{
		Type:    typ,
		TS:      float64(time.Now().UnixNano()) / 1e9,
		Payload: payload,
	})
}

// LogInput records raw inputs to a computation.
func (l *Logger) LogInput(payload map[string]any) { l.append("input", payload) }

// LogTransformation records an intermediate data shape.
func (l *Logger) LogTransformation(payload map[string]any) { l.append("transformation", payload) }

// LogOperation records a math or tool operation.
func (l *Logger) LogOperation(payload map[string]any) { l.append("operation", payload) }

// LogResult records the outcome of the computation.
func (l *Logger) LogResult(payload map[string]any) { l.append("result", payload) }

// Record returns the accumulated record.
func (l *Logger) Record() *Record {
	rec := l.rec
	return &rec
}

// Sink appends audit records to a JSONL file, optionally mirroring each
// record to a NATS subject for live consumers. A nil Sink discards writes.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
	f  *os.File
	nc *nats.Conn
}

// NewSink opens (creating directories as needed) an append-only sink at path.
func NewSink(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Sink{w: f, f: f}, nil
}

// NewSinkWriter wraps an arbitrary writer, mainly for tests.
func NewSinkWriter(w io.Writer) *Sink {
	return &Sink{w: w}
}

// ConnectNATS mirrors subsequent records to assistant.audit.<category>.
func (s *Sink) ConnectNATS(url string) error {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	s.mu.Lock()
	s.nc = nc
	s.mu.Unlock()
	return nil
}

// Write appends one record. The line is marshaled up front and written with
// a single Write call so concurrent records never interleave. Failures are
// logged locally and do not propagate.
func (s *Sink) Write(rec *Record) {
	if s == nil || rec == nil {
		return
	}

	line, err := json.Marshal(rec)
	if err != nil {
		log.Printf("audit: marshal record %s: %v", rec.TraceID, err)
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w != nil {
		if _, err := s.w.Write(line); err != nil {
			log.Printf("audit: write record %s: %v", rec.TraceID, err)
		}
	}
	if s.nc != nil {
		subject := "assistant.audit." + rec.Category
		if err := s.nc.Publish(subject, line[:len(line)-1]); err != nil {
			log.Printf("audit: publish %s: %v", subject, err)
		}
	}
}

// Close releases the underlying file and NATS connection.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}
