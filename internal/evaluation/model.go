package evaluation

import (
	"time"

	"github.com/algorithm-ninja/task-wizard/internal/material"
)

// Status is the lifecycle state of an evaluation run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final. Terminal evaluations never
// change again; their awards are frozen.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Evaluation is one grading run of a submission.
type Evaluation struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EventType mirrors the judge stream event kinds as stored in the log.
type EventType string

const (
	EventTypeValue   EventType = "value"
	EventTypeMessage EventType = "message"
	EventTypeDone    EventType = "done"
	EventTypeError   EventType = "error"
)

// Event is one row of the append-only evaluation event log, ordered by Seq
// within an evaluation.
type Event struct {
	EvaluationID string    `json:"evaluation_id"`
	Seq          int       `json:"seq"`
	Type         EventType `json:"type"`
	Key          string    `json:"key,omitempty"`
	Score        float64   `json:"score,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AwardOutcome is one scored feedback slot extracted from value events.
type AwardOutcome struct {
	Key   material.Key `json:"-"`
	Name  string       `json:"key"`
	Score float64      `json:"score"`
}

// Snapshot is the queryable state of an evaluation at a point in time.
type Snapshot struct {
	Evaluation Evaluation     `json:"evaluation"`
	Awards     []AwardOutcome `json:"awards"`
	Events     []Event        `json:"events"`
}

// TotalScore sums the subtask-level outcomes, clamping each to its
// scorable's range. Outcomes whose key does not name a scorable of m are
// ignored so a judge may emit extra diagnostic keys.
func TotalScore(awards []AwardOutcome, m material.Material) float64 {
	total := 0.0
	for _, award := range awards {
		if award.Key.Kind != material.KindSubtask {
			continue
		}
		scorable, ok := m.ScorableFor(award.Key)
		if !ok {
			continue
		}
		total += scorable.Range.Clamp(award.Score)
	}
	return total
}
