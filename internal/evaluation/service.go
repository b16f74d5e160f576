package evaluation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/algorithm-ninja/task-wizard/internal/common/mq"
	"github.com/algorithm-ninja/task-wizard/internal/judge"
	"github.com/algorithm-ninja/task-wizard/internal/material"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/contextkey"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/logger"
)

const (
	taskWorkspacePrefix = "task"
	defaultRunTimeout   = 10 * time.Minute
	defaultMaxActive    = 8
)

// ArchiveSource materializes problem archives as local directories.
// Implemented by the artifact store.
type ArchiveSource interface {
	Unpack(ctx context.Context, digest, prefix string) (string, error)
}

// SubmissionRef is the slice of a submission the orchestrator needs.
type SubmissionRef struct {
	ID            string
	ProblemDigest string
	Files         map[string][]byte
}

// OrchestratorConfig wires an Orchestrator.
type OrchestratorConfig struct {
	Repository Repository
	Archives   ArchiveSource
	Judge      judge.Client

	// Publisher receives terminal status notifications; optional.
	Publisher StatusPublisher
	// Cache serves status reads; optional.
	Cache *StatusCache

	// MaxActive bounds concurrent judge runs. Default 8.
	MaxActive int
	// RunTimeout bounds a single run end to end. Default 10 minutes.
	RunTimeout time.Duration
}

// Orchestrator owns the evaluation state machine: it creates runs,
// dispatches them to the judge, consumes the event stream into the
// append-only log and settles the terminal state.
type Orchestrator struct {
	repo       Repository
	archives   ArchiveSource
	judge      judge.Client
	publisher  StatusPublisher
	cache      *StatusCache
	limiter    *mq.TokenLimiter
	runTimeout time.Duration

	wg sync.WaitGroup
}

func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Repository == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("repository is required")
	}
	if cfg.Archives == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("archive source is required")
	}
	if cfg.Judge == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("judge client is required")
	}
	maxActive := cfg.MaxActive
	if maxActive <= 0 {
		maxActive = defaultMaxActive
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	return &Orchestrator{
		repo:       cfg.Repository,
		archives:   cfg.Archives,
		judge:      cfg.Judge,
		publisher:  cfg.Publisher,
		cache:      cfg.Cache,
		limiter:    mq.NewTokenLimiter(maxActive),
		runTimeout: runTimeout,
	}, nil
}

// StartNew creates a fresh evaluation for the submission and dispatches it
// asynchronously. It never reuses an existing evaluation: re-grading a
// submission simply starts another run, and queries by submission always
// see the newest one. In-flight older runs are left to finish.
func (o *Orchestrator) StartNew(ctx context.Context, sub SubmissionRef) (*Evaluation, error) {
	if sub.ID == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	if sub.ProblemDigest == "" {
		return nil, appErr.ValidationError("problem_digest", "required")
	}

	eval := &Evaluation{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}
	if err := o.repo.Create(ctx, eval); err != nil {
		return nil, err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		runCtx, cancel := context.WithTimeout(context.Background(), o.runTimeout)
		defer cancel()
		runCtx = context.WithValue(runCtx, contextkey.EvaluationID, eval.ID)
		o.run(runCtx, *eval, sub)
	}()

	return eval, nil
}

// Wait blocks until all dispatched runs have settled. Used on shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, eval Evaluation, sub SubmissionRef) {
	if err := o.limiter.Acquire(ctx); err != nil {
		o.fail(ctx, eval, StatusPending, 0, "evaluation timed out waiting for a judge slot")
		return
	}
	defer o.limiter.Release()

	taskDir, err := o.archives.Unpack(ctx, sub.ProblemDigest, taskWorkspacePrefix)
	if err != nil {
		logger.Error(ctx, "unpack problem archive failed", zap.Error(err))
		o.fail(ctx, eval, StatusPending, 0, "problem archive unavailable: "+err.Error())
		return
	}

	stream, err := o.judge.Evaluate(ctx, judge.EvaluateRequest{
		EvaluationID: eval.ID,
		TaskDir:      taskDir,
		Files:        sub.Files,
	})
	if err != nil {
		logger.Error(ctx, "judge dispatch failed", zap.Error(err))
		o.fail(ctx, eval, StatusPending, 0, "judge dispatch failed: "+err.Error())
		return
	}

	if err := o.transition(ctx, eval.ID, StatusPending, StatusRunning); err != nil {
		logger.Error(ctx, "mark evaluation running failed", zap.Error(err))
		for range stream {
			// Drain so the judge is not blocked.
		}
		return
	}

	seq := 0
	sawTerminal := false
	for event := range stream {
		switch event.Type {
		case judge.EventValue:
			o.appendEvent(ctx, &Event{
				EvaluationID: eval.ID, Seq: seq, Type: EventTypeValue,
				Key: event.Key, Score: event.Score,
			})
			seq++
		case judge.EventMessage:
			o.appendEvent(ctx, &Event{
				EvaluationID: eval.ID, Seq: seq, Type: EventTypeMessage,
				Message: event.Message,
			})
			seq++
		case judge.EventDone:
			o.appendEvent(ctx, &Event{EvaluationID: eval.ID, Seq: seq, Type: EventTypeDone})
			seq++
			sawTerminal = true
			o.settle(ctx, eval, StatusSucceeded)
		case judge.EventError:
			o.appendEvent(ctx, &Event{
				EvaluationID: eval.ID, Seq: seq, Type: EventTypeError,
				Error: event.Error,
			})
			seq++
			sawTerminal = true
			o.settle(ctx, eval, StatusFailed)
		}
	}

	if !sawTerminal {
		o.fail(ctx, eval, StatusRunning, seq, "judge stream ended without a result")
	}
}

func (o *Orchestrator) fail(ctx context.Context, eval Evaluation, from Status, seq int, message string) {
	o.appendEvent(ctx, &Event{
		EvaluationID: eval.ID, Seq: seq, Type: EventTypeError, Error: message,
	})
	if err := o.transition(ctx, eval.ID, from, StatusFailed); err != nil {
		logger.Error(ctx, "mark evaluation failed failed", zap.Error(err))
		return
	}
	eval.Status = StatusFailed
	o.publishTerminal(ctx, eval)
}

func (o *Orchestrator) settle(ctx context.Context, eval Evaluation, to Status) {
	if err := o.transition(ctx, eval.ID, StatusRunning, to); err != nil {
		logger.Error(ctx, "settle evaluation failed", zap.Error(err))
		return
	}
	eval.Status = to
	o.publishTerminal(ctx, eval)
}

func (o *Orchestrator) transition(ctx context.Context, evaluationID string, from, to Status) error {
	return o.cache.Update(ctx, evaluationID, func(ctx context.Context) error {
		return o.repo.UpdateStatus(ctx, evaluationID, from, to)
	})
}

func (o *Orchestrator) appendEvent(ctx context.Context, event *Event) {
	if err := o.repo.AppendEvent(ctx, event); err != nil {
		logger.Error(ctx, "append evaluation event failed",
			zap.Int("seq", event.Seq), zap.Error(err))
	}
}

func (o *Orchestrator) publishTerminal(ctx context.Context, eval Evaluation) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishFinalStatus(ctx, eval); err != nil {
		// Notifications are best effort, the evaluation result stands.
		logger.Warn(ctx, "publish final status failed", zap.Error(err))
	}
}

// Status returns the current status of an evaluation, served from cache
// when one is configured.
func (o *Orchestrator) Status(ctx context.Context, evaluationID string) (Status, error) {
	fetch := func(ctx context.Context) (Status, error) {
		eval, err := o.repo.GetByID(ctx, evaluationID)
		if err != nil {
			return "", err
		}
		return eval.Status, nil
	}
	return o.cache.Get(ctx, evaluationID, fetch)
}

// Get returns an evaluation by id.
func (o *Orchestrator) Get(ctx context.Context, evaluationID string) (*Evaluation, error) {
	return o.repo.GetByID(ctx, evaluationID)
}

// LatestOf returns the newest evaluation of a submission.
func (o *Orchestrator) LatestOf(ctx context.Context, submissionID string) (*Evaluation, error) {
	return o.repo.LatestBySubmission(ctx, submissionID)
}

// Events returns the full event log of an evaluation in seq order.
func (o *Orchestrator) Events(ctx context.Context, evaluationID string) ([]Event, error) {
	return o.repo.EventsOf(ctx, evaluationID)
}

// Awards projects the event log into award outcomes: the last value event
// per feedback key wins. Events with malformed keys are skipped.
func (o *Orchestrator) Awards(ctx context.Context, evaluationID string) ([]AwardOutcome, error) {
	events, err := o.repo.EventsOf(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	return awardsFromEvents(events), nil
}

// SnapshotOf bundles status, awards and events in one read.
func (o *Orchestrator) SnapshotOf(ctx context.Context, evaluationID string) (*Snapshot, error) {
	eval, err := o.repo.GetByID(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	events, err := o.repo.EventsOf(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Evaluation: *eval,
		Awards:     awardsFromEvents(events),
		Events:     events,
	}, nil
}

func awardsFromEvents(events []Event) []AwardOutcome {
	awards := []AwardOutcome{}
	index := map[material.Key]int{}
	for _, event := range events {
		if event.Type != EventTypeValue {
			continue
		}
		key, err := material.ParseKey(event.Key)
		if err != nil {
			// Judges may emit diagnostic keys outside the contract.
			continue
		}
		if i, ok := index[key]; ok {
			awards[i].Score = event.Score
			continue
		}
		index[key] = len(awards)
		awards = append(awards, AwardOutcome{Key: key, Name: key.String(), Score: event.Score})
	}
	return awards
}
