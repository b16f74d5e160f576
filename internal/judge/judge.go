package judge

import "context"

// TaskDescription is the judge's view of a problem: a title plus the
// subtask/testcase tree used for scoring. The tree is read-only and is not
// guaranteed to arrive sorted.
type TaskDescription struct {
	Title    string    `json:"title"`
	Subtasks []Subtask `json:"subtasks"`
}

// Subtask groups testcases under one score budget.
type Subtask struct {
	ID        int        `json:"id"`
	MaxScore  float64    `json:"max_score"`
	Testcases []Testcase `json:"testcases"`
}

// Testcase identifies a single test within a subtask.
type Testcase struct {
	ID int `json:"id"`
}

// EventType discriminates evaluation stream events.
type EventType string

const (
	// EventValue carries one award outcome for a feedback key.
	EventValue EventType = "value"
	// EventMessage carries a diagnostic line for operators.
	EventMessage EventType = "message"
	// EventDone signals the run finished successfully.
	EventDone EventType = "done"
	// EventError signals the run failed.
	EventError EventType = "error"
)

// Event is one element of an evaluation stream.
type Event struct {
	Type    EventType `json:"type"`
	Key     string    `json:"key,omitempty"`
	Score   float64   `json:"score,omitempty"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// EvaluateRequest describes one evaluation run.
type EvaluateRequest struct {
	// EvaluationID correlates stream events with the evaluation record.
	EvaluationID string

	// TaskDir is the unpacked problem workspace.
	TaskDir string

	// Files maps submission field names to file contents.
	Files map[string][]byte
}

// Client is the interface to the external judge harness.
// Implementations own sandboxing and compilation; this package only consumes
// the task tree and the event stream.
type Client interface {
	// Task reads the task description from an unpacked problem workspace.
	Task(ctx context.Context, taskDir string) (TaskDescription, error)

	// Evaluate starts a run and returns its event stream.
	// The judge closes the channel when the run ends (after a done or error
	// event). Callers must drain the channel.
	Evaluate(ctx context.Context, req EvaluateRequest) (<-chan Event, error)
}
