package evaluation

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/algorithm-ninja/task-wizard/internal/judge"
	"github.com/algorithm-ninja/task-wizard/internal/material"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

type memoryRepository struct {
	mu     sync.Mutex
	evals  map[string]*Evaluation
	events map[string][]Event
	order  []string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		evals:  map[string]*Evaluation{},
		events: map[string][]Event{},
	}
}

func (r *memoryRepository) Create(_ context.Context, eval *Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *eval
	r.evals[eval.ID] = &clone
	r.order = append(r.order, eval.ID)
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.evals[id]
	if !ok {
		return nil, appErr.New(appErr.EvaluationNotFound)
	}
	clone := *eval
	return &clone, nil
}

func (r *memoryRepository) LatestBySubmission(_ context.Context, submissionID string) (*Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Insertion order stands in for the seq column.
	for i := len(r.order) - 1; i >= 0; i-- {
		if eval := r.evals[r.order[i]]; eval.SubmissionID == submissionID {
			clone := *eval
			return &clone, nil
		}
	}
	return nil, appErr.New(appErr.EvaluationNotFound)
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.evals[id]
	if !ok {
		return appErr.New(appErr.EvaluationNotFound)
	}
	if eval.Status != from {
		return appErr.New(appErr.TransactionFailed).
			WithMessagef("evaluation %s is not %s", id, from)
	}
	eval.Status = to
	eval.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepository) AppendEvent(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.EvaluationID] = append(r.events[event.EvaluationID], *event)
	return nil
}

func (r *memoryRepository) EventsOf(_ context.Context, evaluationID string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := append([]Event(nil), r.events[evaluationID]...)
	sort.Slice(events, func(i, j int) bool { return events[i].Seq < events[j].Seq })
	return events, nil
}

// scriptedJudge replays a fixed event sequence for every run.
type scriptedJudge struct {
	events      []judge.Event
	evaluateErr error
}

func (j *scriptedJudge) Task(context.Context, string) (judge.TaskDescription, error) {
	return judge.TaskDescription{}, nil
}

func (j *scriptedJudge) Evaluate(context.Context, judge.EvaluateRequest) (<-chan judge.Event, error) {
	if j.evaluateErr != nil {
		return nil, j.evaluateErr
	}
	ch := make(chan judge.Event, len(j.events))
	for _, ev := range j.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type fakeArchives struct {
	dir string
	err error
}

func (a *fakeArchives) Unpack(context.Context, string, string) (string, error) {
	return a.dir, a.err
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []Evaluation
}

func (p *recordingPublisher) PublishFinalStatus(_ context.Context, eval Evaluation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, eval)
	return nil
}

func (p *recordingPublisher) all() []Evaluation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Evaluation(nil), p.published...)
}

func newTestOrchestrator(t *testing.T, repo Repository, j judge.Client, archives ArchiveSource, pub StatusPublisher) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(OrchestratorConfig{
		Repository: repo,
		Archives:   archives,
		Judge:      j,
		Publisher:  pub,
		RunTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return orch
}

func TestStartNewRunsToSuccess(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()
	pub := &recordingPublisher{}
	j := &scriptedJudge{events: []judge.Event{
		{Type: judge.EventValue, Key: "subtask.1.testcase.1.score", Score: 1},
		{Type: judge.EventValue, Key: "subtask.1", Score: 40},
		{Type: judge.EventMessage, Message: "compiled"},
		{Type: judge.EventDone},
	}}
	orch := newTestOrchestrator(t, repo, j, &fakeArchives{dir: t.TempDir()}, pub)

	eval, err := orch.StartNew(context.Background(), SubmissionRef{
		ID:            "sub-1",
		ProblemDigest: "digest",
		Files:         map[string][]byte{"solution": []byte("int main() {}")},
	})
	if err != nil {
		t.Fatalf("StartNew: %v", err)
	}
	if eval.Status != StatusPending {
		t.Fatalf("new evaluation status = %s, want pending", eval.Status)
	}
	orch.Wait()

	status, err := orch.Status(context.Background(), eval.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != StatusSucceeded {
		t.Fatalf("final status = %s, want succeeded", status)
	}

	events, err := orch.Events(context.Background(), eval.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	for i, ev := range events {
		if ev.Seq != i {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
	}
	if events[3].Type != EventTypeDone {
		t.Fatalf("last event type = %s, want done", events[3].Type)
	}

	published := pub.all()
	if len(published) != 1 || published[0].Status != StatusSucceeded {
		t.Fatalf("published = %+v, want one succeeded notification", published)
	}
}

func TestJudgeErrorEventFailsEvaluation(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()
	j := &scriptedJudge{events: []judge.Event{
		{Type: judge.EventMessage, Message: "compiling"},
		{Type: judge.EventError, Error: "compilation failed"},
	}}
	orch := newTestOrchestrator(t, repo, j, &fakeArchives{dir: t.TempDir()}, nil)

	eval, err := orch.StartNew(context.Background(), SubmissionRef{ID: "sub-1", ProblemDigest: "digest"})
	if err != nil {
		t.Fatalf("StartNew: %v", err)
	}
	orch.Wait()

	got, err := repo.GetByID(context.Background(), eval.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	events, _ := repo.EventsOf(context.Background(), eval.ID)
	last := events[len(events)-1]
	if last.Type != EventTypeError || last.Error != "compilation failed" {
		t.Fatalf("last event = %+v, want the judge error", last)
	}
}

func TestDispatchFailureFailsEvaluation(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()
	pub := &recordingPublisher{}
	j := &scriptedJudge{evaluateErr: appErr.New(appErr.JudgeDispatchFailed)}
	orch := newTestOrchestrator(t, repo, j, &fakeArchives{dir: t.TempDir()}, pub)

	eval, err := orch.StartNew(context.Background(), SubmissionRef{ID: "sub-1", ProblemDigest: "digest"})
	if err != nil {
		t.Fatalf("StartNew: %v", err)
	}
	orch.Wait()

	got, _ := repo.GetByID(context.Background(), eval.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	published := pub.all()
	if len(published) != 1 || published[0].Status != StatusFailed {
		t.Fatalf("published = %+v, want one failed notification", published)
	}
}

func TestUnpackFailureFailsEvaluation(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()
	archives := &fakeArchives{err: appErr.New(appErr.BlobNotFound)}
	orch := newTestOrchestrator(t, repo, &scriptedJudge{}, archives, nil)

	eval, err := orch.StartNew(context.Background(), SubmissionRef{ID: "sub-1", ProblemDigest: "digest"})
	if err != nil {
		t.Fatalf("StartNew: %v", err)
	}
	orch.Wait()

	got, _ := repo.GetByID(context.Background(), eval.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestStreamClosedWithoutDoneFails(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()
	j := &scriptedJudge{events: []judge.Event{
		{Type: judge.EventValue, Key: "subtask.1", Score: 10},
	}}
	orch := newTestOrchestrator(t, repo, j, &fakeArchives{dir: t.TempDir()}, nil)

	eval, err := orch.StartNew(context.Background(), SubmissionRef{ID: "sub-1", ProblemDigest: "digest"})
	if err != nil {
		t.Fatalf("StartNew: %v", err)
	}
	orch.Wait()

	got, _ := repo.GetByID(context.Background(), eval.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	events, _ := repo.EventsOf(context.Background(), eval.ID)
	last := events[len(events)-1]
	if last.Type != EventTypeError {
		t.Fatalf("last event type = %s, want error", last.Type)
	}
}

func TestStartNewValidatesInput(t *testing.T) {
	t.Parallel()
	orch := newTestOrchestrator(t, newMemoryRepository(), &scriptedJudge{}, &fakeArchives{}, nil)

	if _, err := orch.StartNew(context.Background(), SubmissionRef{ProblemDigest: "d"}); appErr.GetCode(err) != appErr.ValidationFailed {
		t.Fatalf("missing submission id: got %v", err)
	}
	if _, err := orch.StartNew(context.Background(), SubmissionRef{ID: "sub-1"}); appErr.GetCode(err) != appErr.ValidationFailed {
		t.Fatalf("missing digest: got %v", err)
	}
}

func TestTerminalStatusIsFrozen(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()
	eval := &Evaluation{ID: "e1", SubmissionID: "s1", Status: StatusSucceeded, CreatedAt: time.Now()}
	if err := repo.Create(context.Background(), eval); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.UpdateStatus(context.Background(), "e1", StatusRunning, StatusFailed)
	if appErr.GetCode(err) != appErr.TransactionFailed {
		t.Fatalf("got %v, want a conflict", err)
	}
	got, _ := repo.GetByID(context.Background(), "e1")
	if got.Status != StatusSucceeded {
		t.Fatalf("status changed to %s", got.Status)
	}
}

func TestLatestOfPrefersNewestEvaluation(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()
	j := &scriptedJudge{events: []judge.Event{{Type: judge.EventDone}}}
	orch := newTestOrchestrator(t, repo, j, &fakeArchives{dir: t.TempDir()}, nil)

	first, err := orch.StartNew(context.Background(), SubmissionRef{ID: "sub-1", ProblemDigest: "digest"})
	if err != nil {
		t.Fatalf("StartNew: %v", err)
	}
	orch.Wait()
	second, err := orch.StartNew(context.Background(), SubmissionRef{ID: "sub-1", ProblemDigest: "digest"})
	if err != nil {
		t.Fatalf("StartNew again: %v", err)
	}
	orch.Wait()

	latest, err := orch.LatestOf(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("LatestOf: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("latest = %s, want %s (not %s)", latest.ID, second.ID, first.ID)
	}
}

func TestLatestOfBreaksTimestampTies(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()

	// Two runs started in the same instant, as a double regrade does.
	now := time.Now()
	for _, id := range []string{"e-old", "e-new"} {
		eval := &Evaluation{ID: id, SubmissionID: "sub-1", Status: StatusPending, CreatedAt: now}
		if err := repo.Create(context.Background(), eval); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	latest, err := repo.LatestBySubmission(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("LatestBySubmission: %v", err)
	}
	if latest.ID != "e-new" {
		t.Fatalf("latest = %s, want the last created evaluation", latest.ID)
	}
}

func TestAwardsLastValueWins(t *testing.T) {
	t.Parallel()
	repo := newMemoryRepository()
	j := &scriptedJudge{events: []judge.Event{
		{Type: judge.EventValue, Key: "subtask.1.testcase.1.score", Score: 0.5},
		{Type: judge.EventValue, Key: "subtask.1", Score: 20},
		{Type: judge.EventValue, Key: "subtask.1.testcase.1.score", Score: 1},
		{Type: judge.EventValue, Key: "compile.time", Score: 3},
		{Type: judge.EventDone},
	}}
	orch := newTestOrchestrator(t, repo, j, &fakeArchives{dir: t.TempDir()}, nil)

	eval, err := orch.StartNew(context.Background(), SubmissionRef{ID: "sub-1", ProblemDigest: "digest"})
	if err != nil {
		t.Fatalf("StartNew: %v", err)
	}
	orch.Wait()

	awards, err := orch.Awards(context.Background(), eval.ID)
	if err != nil {
		t.Fatalf("Awards: %v", err)
	}
	if len(awards) != 2 {
		t.Fatalf("got %d awards, want 2 (diagnostic keys skipped): %+v", len(awards), awards)
	}
	if awards[0].Name != "subtask.1.testcase.1.score" || awards[0].Score != 1 {
		t.Fatalf("award 0 = %+v, want the last testcase value", awards[0])
	}
	if awards[1].Name != "subtask.1" || awards[1].Score != 20 {
		t.Fatalf("award 1 = %+v", awards[1])
	}
}

func TestTotalScoreClampsAndIgnoresUnknownKeys(t *testing.T) {
	t.Parallel()
	m := material.Material{Scorables: []material.Scorable{
		{Key: material.SubtaskKey(1), Name: "subtask.1", Range: material.ScoreRange{Max: 40}},
		{Key: material.SubtaskKey(2), Name: "subtask.2", Range: material.ScoreRange{Max: 60}},
	}}
	awards := []AwardOutcome{
		{Key: material.SubtaskKey(1), Score: 55},                // clamped to 40
		{Key: material.SubtaskKey(2), Score: 30},                // kept
		{Key: material.SubtaskKey(9), Score: 100},               // no scorable
		{Key: material.TestcaseKey(1, 1), Name: "t", Score: 1},  // testcases never count
	}
	if got := TotalScore(awards, m); got != 70 {
		t.Fatalf("TotalScore = %v, want 70", got)
	}
}
