// Package audit is the append-only safety log (spec §3.7/§4.4): every
// significant event across every subsystem is recorded here, and a
// severity=critical row synchronously invokes a registered alert callback.
package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies an audit row. Query/QueryPersisted filtering on
// Severity matches the value exactly; severities are not ordered.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityReject   Severity = "reject"
	SeverityCritical Severity = "critical"
)

// Event is a single audit log entry.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Project   string          `json:"project,omitempty"`
	Severity  Severity        `json:"severity"`
	Topic     string          `json:"topic"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	Success   bool            `json:"success"`
}

// AlertFunc is invoked synchronously, on the caller's goroutine, for every
// severity=critical Record call. Implementations MUST be safe to call
// concurrently and MUST NOT block indefinitely — a slow sink should hand off
// to its own buffered channel rather than stall the audit write path.
type AlertFunc func(Event)

// Filter narrows a Query/Recent call.
type Filter struct {
	Project  string
	Topic    string
	Severity Severity
	Since    time.Time
	Limit    int
}

// ring is an in-memory newest-N cache, mirroring the teacher's Log type.
type ring struct {
	mu     sync.RWMutex
	events []Event
	maxLen int
}

func newRing(maxLen int) *ring {
	return &ring{events: make([]Event, 0, 256), maxLen: maxLen}
}

func (r *ring) add(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if r.maxLen > 0 && len(r.events) > r.maxLen {
		r.events = r.events[len(r.events)-r.maxLen:]
	}
}

func (r *ring) query(f Filter) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for i := len(r.events) - 1; i >= 0; i-- {
		evt := r.events[i]
		if f.Project != "" && evt.Project != f.Project {
			continue
		}
		if f.Topic != "" && evt.Topic != f.Topic {
			continue
		}
		if f.Severity != "" && evt.Severity != f.Severity {
			continue
		}
		if !f.Since.IsZero() && evt.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, evt)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

func enrich(evt *Event) {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
}
