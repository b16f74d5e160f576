package repository

import (
	"context"

	"github.com/algorithm-ninja/task-wizard/internal/common/db"
	"github.com/algorithm-ninja/task-wizard/internal/contest/model"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// SubmissionRepository persists submissions and their files. A submission
// and its files are written atomically.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	ListByUserAndProblem(ctx context.Context, userID, problemName string) ([]model.Submission, error)
	FilesOf(ctx context.Context, submissionID string) ([]model.SubmissionFile, error)
}

type MySQLSubmissionRepository struct {
	dbProvider db.Provider
}

func NewSubmissionRepository(provider db.Provider) *MySQLSubmissionRepository {
	return &MySQLSubmissionRepository{dbProvider: provider}
}

func (r *MySQLSubmissionRepository) Create(ctx context.Context, submission *model.Submission) error {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	err = database.Transaction(ctx, func(tx db.Transaction) error {
		query := "INSERT INTO submissions (id, user_id, problem_name) VALUES (?, ?, ?)"
		if _, err := tx.Exec(ctx, query, submission.ID, submission.UserID, submission.ProblemName); err != nil {
			return err
		}
		for _, file := range submission.Files {
			query := "INSERT INTO submission_files (submission_id, field_id, type_id, name, content) " +
				"VALUES (?, ?, ?, ?, ?)"
			if _, err := tx.Exec(ctx, query,
				submission.ID, file.FieldID, file.TypeID, file.Name, file.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if key, ok := db.UniqueViolation(err); ok {
			return appErr.New(appErr.SubmissionCreateFailed).
				WithMessagef("duplicate submission key %q", key)
		}
		return appErr.Wrap(err, appErr.SubmissionCreateFailed)
	}
	return nil
}

func (r *MySQLSubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT id, user_id, problem_name, created_at FROM submissions WHERE id = ?"
	var submission model.Submission
	err = querier.QueryRow(ctx, query, id).
		Scan(&submission.ID, &submission.UserID, &submission.ProblemName, &submission.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.SubmissionNotFound).WithMessagef("submission %q not found", id)
		}
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return &submission, nil
}

func (r *MySQLSubmissionRepository) ListByUserAndProblem(ctx context.Context, userID, problemName string) ([]model.Submission, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT id, user_id, problem_name, created_at FROM submissions " +
		"WHERE user_id = ? AND problem_name = ? ORDER BY created_at DESC, id DESC"
	rows, err := querier.Query(ctx, query, userID, problemName)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		var submission model.Submission
		if err := rows.Scan(&submission.ID, &submission.UserID, &submission.ProblemName, &submission.CreatedAt); err != nil {
			return nil, appErr.Wrap(err, appErr.DatabaseError)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return submissions, nil
}

func (r *MySQLSubmissionRepository) FilesOf(ctx context.Context, submissionID string) ([]model.SubmissionFile, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT field_id, type_id, name, content FROM submission_files " +
		"WHERE submission_id = ? ORDER BY field_id ASC"
	rows, err := querier.Query(ctx, query, submissionID)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	defer rows.Close()

	files := []model.SubmissionFile{}
	for rows.Next() {
		var file model.SubmissionFile
		if err := rows.Scan(&file.FieldID, &file.TypeID, &file.Name, &file.Content); err != nil {
			return nil, appErr.Wrap(err, appErr.DatabaseError)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return files, nil
}
