package harness

import (
	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// TraceEvent is one persisted event as recorded in the trace.
type TraceEvent struct {
	Seq     int    `json:"seq"`  // 1-based position in the trace
	Step    int    `json:"step"` // 1-based step that produced the event
	Type    string `json:"type"`
	Subject string `json:"subject"` // node or edge id
}

// Label renders the event as type:subject, the form event_order uses.
func (t TraceEvent) Label() string {
	return t.Type + ":" + t.Subject
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and assertion succeeded.
	Pass bool `json:"pass"`

	// Trace lists every event the steps persisted, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds step and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Graph is the final graph.
	Graph *graph.Graph `json:"-"`

	// stepEnds holds the last event id persisted by or before each step.
	stepEnds []ir.EventID
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvents appends the events a step persisted to the trace.
func (r *Result) addEvents(step int, events []event.Event) {
	for _, e := range events {
		r.Trace = append(r.Trace, TraceEvent{
			Seq:     len(r.Trace) + 1,
			Step:    step,
			Type:    string(e.Type()),
			Subject: event.Subject(e),
		})
	}
}
