package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/algorithm-ninja/task-wizard/internal/artifact"
	"github.com/algorithm-ninja/task-wizard/internal/auth"
	"github.com/algorithm-ninja/task-wizard/internal/contest/model"
	"github.com/algorithm-ninja/task-wizard/internal/contest/repository"
	"github.com/algorithm-ninja/task-wizard/internal/evaluation"
	"github.com/algorithm-ninja/task-wizard/internal/judge"
	"github.com/algorithm-ninja/task-wizard/internal/material"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/logger"
)

const (
	problemWorkspacePrefix = "problem"
	defaultMaxFileSize     = 5 << 20
)

// FileInput is one uploaded submission file.
type FileInput struct {
	FieldID string
	TypeID  string
	Name    string
	Content []byte
}

// SubmissionView is a submission together with its newest evaluation.
type SubmissionView struct {
	Submission model.Submission     `json:"submission"`
	Evaluation *evaluation.Snapshot `json:"evaluation,omitempty"`
	TotalScore float64              `json:"total_score"`
}

// ContestService is the application facade: every operation authorizes the
// caller first, then drives the repositories, the artifact store and the
// evaluation orchestrator.
type ContestService struct {
	guard        auth.Guard
	authService  *auth.Service
	problems     repository.ProblemRepository
	users        repository.UserRepository
	submissions  repository.SubmissionRepository
	artifacts    *artifact.Store
	judge        judge.Client
	orchestrator *evaluation.Orchestrator
	maxFileSize  int64
}

// Config wires a ContestService.
type Config struct {
	Guard        auth.Guard
	AuthService  *auth.Service
	Problems     repository.ProblemRepository
	Users        repository.UserRepository
	Submissions  repository.SubmissionRepository
	Artifacts    *artifact.Store
	Judge        judge.Client
	Orchestrator *evaluation.Orchestrator

	// MaxFileSize bounds a single submission file. Default 5 MiB.
	MaxFileSize int64
}

func NewContestService(cfg Config) (*ContestService, error) {
	if cfg.Problems == nil || cfg.Users == nil || cfg.Submissions == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("repositories are required")
	}
	if cfg.Artifacts == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("artifact store is required")
	}
	if cfg.Judge == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("judge client is required")
	}
	if cfg.Orchestrator == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("orchestrator is required")
	}
	maxFileSize := cfg.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &ContestService{
		guard:        cfg.Guard,
		authService:  cfg.AuthService,
		problems:     cfg.Problems,
		users:        cfg.Users,
		submissions:  cfg.Submissions,
		artifacts:    cfg.Artifacts,
		judge:        cfg.Judge,
		orchestrator: cfg.Orchestrator,
		maxFileSize:  maxFileSize,
	}, nil
}

// Auth exchanges a login token for a signed JWT.
func (s *ContestService) Auth(ctx context.Context, loginToken string) (auth.UserToken, error) {
	if s.authService == nil {
		return auth.UserToken{}, appErr.New(appErr.AuthenticationDisabled)
	}
	return s.authService.Auth(ctx, loginToken)
}

// ListProblems returns all contest problems. Visible to everyone who can
// reach the contest.
func (s *ContestService) ListProblems(ctx context.Context) ([]model.Problem, error) {
	return s.problems.List(ctx)
}

// MaterialOf unpacks the problem archive and derives the presentation
// material from the task description.
func (s *ContestService) MaterialOf(ctx context.Context, problemName string) (*material.Material, error) {
	problem, err := s.problems.GetByName(ctx, problemName)
	if err != nil {
		return nil, err
	}
	taskDir, err := s.artifacts.Unpack(ctx, problem.ArchiveDigest, problemWorkspacePrefix)
	if err != nil {
		return nil, err
	}
	task, err := s.judge.Task(ctx, taskDir)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.TaskDescribeFailed)
	}
	m := material.Build(task, taskDir)
	return &m, nil
}

// ImportProblem stores the archive as a blob and registers the problem
// under the given name, replacing any previous archive. Admin only.
func (s *ContestService) ImportProblem(ctx context.Context, a auth.AuthContext, name string, archive []byte) (*model.Problem, error) {
	if err := s.guard.AuthorizeAdmin(a); err != nil {
		return nil, err
	}
	if err := validateProblemName(name); err != nil {
		return nil, err
	}
	if len(archive) == 0 {
		return nil, appErr.ValidationError("archive", "empty")
	}
	digest, err := s.artifacts.Put(ctx, archive)
	if err != nil {
		return nil, err
	}
	problem := &model.Problem{Name: name, ArchiveDigest: digest}
	if err := s.problems.Create(ctx, nil, problem); err != nil {
		return nil, err
	}
	logger.Info(ctx, "problem imported",
		zap.String("problem", name), zap.String("digest", digest))
	return problem, nil
}

// DeleteProblem removes a problem. Past submissions keep their rows. Admin only.
func (s *ContestService) DeleteProblem(ctx context.Context, a auth.AuthContext, name string) error {
	if err := s.guard.AuthorizeAdmin(a); err != nil {
		return err
	}
	return s.problems.Delete(ctx, nil, name)
}

// AddUser registers a participant with a login secret. Admin only.
func (s *ContestService) AddUser(ctx context.Context, a auth.AuthContext, userID, displayName, secret string) error {
	if err := s.guard.AuthorizeAdmin(a); err != nil {
		return err
	}
	if userID == "" {
		return appErr.ValidationError("user_id", "required")
	}
	if strings.Contains(userID, ":") {
		// The login token format is "<user-id>:<secret>".
		return appErr.ValidationError("user_id", "must not contain ':'")
	}
	if secret == "" {
		return appErr.ValidationError("secret", "required")
	}
	hash, err := auth.HashLoginSecret(secret)
	if err != nil {
		return err
	}
	return s.users.Create(ctx, nil, &model.User{
		ID:          userID,
		DisplayName: displayName,
		TokenHash:   hash,
	})
}

// DeleteUser removes a participant. Admin only.
func (s *ContestService) DeleteUser(ctx context.Context, a auth.AuthContext, userID string) error {
	if err := s.guard.AuthorizeAdmin(a); err != nil {
		return err
	}
	return s.users.Delete(ctx, nil, userID)
}

// Submit stores a submission on behalf of userID and starts its evaluation.
// The caller must be authorized to act as userID.
func (s *ContestService) Submit(ctx context.Context, a auth.AuthContext, userID, problemName string, files []FileInput) (*model.Submission, error) {
	if err := s.guard.AuthorizeUser(a, &userID); err != nil {
		return nil, err
	}
	problem, err := s.problems.GetByName(ctx, problemName)
	if err != nil {
		return nil, err
	}
	m, err := s.MaterialOf(ctx, problemName)
	if err != nil {
		return nil, err
	}
	if err := s.validateFiles(m.Form, files); err != nil {
		return nil, err
	}

	submission := &model.Submission{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProblemName: problemName,
	}
	judgeFiles := map[string][]byte{}
	for _, file := range files {
		submission.Files = append(submission.Files, model.SubmissionFile{
			FieldID: file.FieldID,
			TypeID:  file.TypeID,
			Name:    file.Name,
			Content: file.Content,
		})
		judgeFiles[file.FieldID] = file.Content
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, err
	}

	if _, err := s.orchestrator.StartNew(ctx, evaluation.SubmissionRef{
		ID:            submission.ID,
		ProblemDigest: problem.ArchiveDigest,
		Files:         judgeFiles,
	}); err != nil {
		// The submission stands, a re-grade can pick it up later.
		logger.Error(ctx, "start evaluation failed",
			zap.String("submission_id", submission.ID), zap.Error(err))
	}
	return submission, nil
}

// Regrade starts fresh evaluations for existing submissions, in order.
// The first failing submission aborts the batch. Admin only.
func (s *ContestService) Regrade(ctx context.Context, a auth.AuthContext, submissionIDs []string) ([]*evaluation.Evaluation, error) {
	if err := s.guard.AuthorizeAdmin(a); err != nil {
		return nil, err
	}
	if len(submissionIDs) == 0 {
		return nil, appErr.ValidationError("submission_ids", "at least one id is required")
	}
	evals := make([]*evaluation.Evaluation, 0, len(submissionIDs))
	for _, submissionID := range submissionIDs {
		eval, err := s.regradeOne(ctx, submissionID)
		if err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}
	return evals, nil
}

func (s *ContestService) regradeOne(ctx context.Context, submissionID string) (*evaluation.Evaluation, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	problem, err := s.problems.GetByName(ctx, submission.ProblemName)
	if err != nil {
		return nil, err
	}
	files, err := s.submissions.FilesOf(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	judgeFiles := map[string][]byte{}
	for _, file := range files {
		judgeFiles[file.FieldID] = file.Content
	}
	return s.orchestrator.StartNew(ctx, evaluation.SubmissionRef{
		ID:            submission.ID,
		ProblemDigest: problem.ArchiveDigest,
		Files:         judgeFiles,
	})
}

// SubmissionsOf lists a user's submissions for a problem, newest first.
// The caller must be authorized to act as userID.
func (s *ContestService) SubmissionsOf(ctx context.Context, a auth.AuthContext, userID, problemName string) ([]model.Submission, error) {
	if err := s.guard.AuthorizeUser(a, &userID); err != nil {
		return nil, err
	}
	return s.submissions.ListByUserAndProblem(ctx, userID, problemName)
}

// EvaluationOf returns the newest evaluation of a submission with its
// awards and total score. The caller must be authorized as the submitter.
func (s *ContestService) EvaluationOf(ctx context.Context, a auth.AuthContext, submissionID string) (*SubmissionView, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.AuthorizeUser(a, &submission.UserID); err != nil {
		return nil, err
	}

	view := &SubmissionView{Submission: *submission}
	latest, err := s.orchestrator.LatestOf(ctx, submissionID)
	if err != nil {
		if appErr.GetCode(err) == appErr.EvaluationNotFound {
			return view, nil
		}
		return nil, err
	}
	snapshot, err := s.orchestrator.SnapshotOf(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	view.Evaluation = snapshot

	if m, err := s.MaterialOf(ctx, submission.ProblemName); err == nil {
		view.TotalScore = evaluation.TotalScore(snapshot.Awards, *m)
	} else {
		logger.Warn(ctx, "material unavailable for score totals",
			zap.String("problem", submission.ProblemName), zap.Error(err))
	}
	return view, nil
}

// EvaluationStatus returns the status of an evaluation by id. The caller
// must be authorized as the owner of the evaluated submission.
func (s *ContestService) EvaluationStatus(ctx context.Context, a auth.AuthContext, evaluationID string) (evaluation.Status, error) {
	eval, err := s.orchestrator.Get(ctx, evaluationID)
	if err != nil {
		return "", err
	}
	submission, err := s.submissions.GetByID(ctx, eval.SubmissionID)
	if err != nil {
		return "", err
	}
	if err := s.guard.AuthorizeUser(a, &submission.UserID); err != nil {
		return "", err
	}
	return s.orchestrator.Status(ctx, evaluationID)
}

func (s *ContestService) validateFiles(form material.Form, files []FileInput) error {
	if len(files) == 0 {
		return appErr.ValidationError("files", "at least one file is required")
	}
	fields := map[string]material.FormField{}
	for _, field := range form.Fields {
		fields[field.ID] = field
	}
	seen := map[string]bool{}
	for _, file := range files {
		field, ok := fields[file.FieldID]
		if !ok {
			return appErr.ValidationError("field_id", fmt.Sprintf("unknown field %q", file.FieldID))
		}
		if seen[file.FieldID] {
			return appErr.ValidationError("field_id", fmt.Sprintf("duplicate field %q", file.FieldID))
		}
		seen[file.FieldID] = true
		if int64(len(file.Content)) > s.maxFileSize {
			return appErr.New(appErr.FileTooLarge).
				WithMessagef("file %q exceeds %d bytes", file.Name, s.maxFileSize)
		}
		if err := validateFileType(field, file); err != nil {
			return err
		}
	}
	for _, field := range form.Fields {
		if !seen[field.ID] {
			return appErr.ValidationError("files", fmt.Sprintf("missing field %q", field.ID))
		}
	}
	return nil
}

func validateFileType(field material.FormField, file FileInput) error {
	for _, fileType := range field.Types {
		if fileType.ID != file.TypeID {
			continue
		}
		ext := strings.ToLower(filepath.Ext(file.Name))
		for _, allowed := range fileType.Extensions {
			if ext == allowed {
				return nil
			}
		}
		return appErr.ValidationError("name",
			fmt.Sprintf("extension %q not accepted for type %q", ext, fileType.ID))
	}
	return appErr.ValidationError("type_id", fmt.Sprintf("unknown type %q", file.TypeID))
}

func validateProblemName(name string) error {
	if name == "" {
		return appErr.ValidationError("name", "required")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return appErr.ValidationError("name", "must be a plain identifier")
	}
	return nil
}
