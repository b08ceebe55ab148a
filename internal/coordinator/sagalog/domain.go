// Package sagalog records every state transition of an order placement.
//
// Rows carry the trace id of the request that wrote them, so an operator can
// go from a placement that stopped in COMPENSATING (a compensation failed)
// straight to its trace and clean up by hand.
package sagalog

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// Terminal reports whether no further entries follow this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SagaLog is one append-only row of the log.
type SagaLog struct {
	SagaID string `json:"sagaId"`
	Status Status `json:"status"`
	// CurrentStep is the step that just finished or failed. Empty on
	// STARTED and COMPLETED.
	CurrentStep string `json:"currentStep,omitempty"`
	// Payload is the placement summary, written on STARTED only.
	Payload string `json:"payload,omitempty"`
	// ErrorMessages is a JSON array: the failed step first, then every
	// compensation that failed.
	ErrorMessages string    `json:"errorMessages"`
	TraceID       string    `json:"traceId,omitempty"`
	SpanID        string    `json:"spanId,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Errors decodes ErrorMessages. A malformed column yields it verbatim.
func (l SagaLog) Errors() []string {
	if l.ErrorMessages == "" || l.ErrorMessages == "[]" {
		return nil
	}
	var errs []string
	if err := json.Unmarshal([]byte(l.ErrorMessages), &errs); err != nil {
		return []string{l.ErrorMessages}
	}
	return errs
}

// Trail summarises the history of one placement.
type Trail struct {
	SagaID string `json:"sagaId"`
	Status Status `json:"status"`
	// Steps lists the steps that completed, in order.
	Steps      []string  `json:"steps"`
	FailedStep string    `json:"failedStep,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
	Payload    string    `json:"payload,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	// Stuck is set when compensation began but FAILED was never written,
	// which means the process died mid-rollback.
	Stuck   bool      `json:"stuck"`
	Entries []SagaLog `json:"entries"`
}

// NewTrail folds history, oldest first, into a Trail.
func NewTrail(history []SagaLog) *Trail {
	t := &Trail{Steps: []string{}, Entries: history}
	for _, e := range history {
		if t.SagaID == "" {
			t.SagaID = e.SagaID
			t.StartedAt = e.UpdatedAt
		}
		if t.TraceID == "" {
			t.TraceID = e.TraceID
		}
		if e.Payload != "" {
			t.Payload = e.Payload
		}
		t.Status = e.Status
		t.UpdatedAt = e.UpdatedAt
		switch e.Status {
		case StatusStepDone:
			t.Steps = append(t.Steps, e.CurrentStep)
		case StatusCompensating, StatusFailed:
			t.FailedStep = e.CurrentStep
			t.Errors = e.Errors()
		}
	}
	t.Stuck = t.Status == StatusCompensating
	return t
}
