package evaluation

import (
	"context"
	"time"

	"github.com/algorithm-ninja/task-wizard/internal/common/db"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// Repository persists evaluations and their event logs.
type Repository interface {
	Create(ctx context.Context, eval *Evaluation) error
	GetByID(ctx context.Context, id string) (*Evaluation, error)
	// LatestBySubmission returns the newest evaluation of a submission.
	// Newest means last created: ties on the creation timestamp are broken
	// by the insertion order, never left to chance.
	LatestBySubmission(ctx context.Context, submissionID string) (*Evaluation, error)
	// UpdateStatus transitions id from one status to another. It fails with
	// a conflict when the row is not in the expected state, which keeps
	// terminal states frozen.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	AppendEvent(ctx context.Context, event *Event) error
	EventsOf(ctx context.Context, evaluationID string) ([]Event, error)
}

// MySQLRepository is the SQL implementation of Repository.
type MySQLRepository struct {
	dbProvider db.Provider
}

func NewMySQLRepository(provider db.Provider) *MySQLRepository {
	return &MySQLRepository{dbProvider: provider}
}

const evaluationColumns = "id, submission_id, status, created_at, updated_at"

func (r *MySQLRepository) Create(ctx context.Context, eval *Evaluation) error {
	if eval == nil {
		return appErr.ValidationError("evaluation", "required")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "INSERT INTO evaluations (id, submission_id, status) VALUES (?, ?, ?)"
	if _, err := database.Exec(ctx, query, eval.ID, eval.SubmissionID, eval.Status); err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "insert evaluation failed")
	}
	return nil
}

func (r *MySQLRepository) GetByID(ctx context.Context, id string) (*Evaluation, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT " + evaluationColumns + " FROM evaluations WHERE id = ?"
	return scanEvaluation(database.QueryRow(ctx, query, id))
}

func (r *MySQLRepository) LatestBySubmission(ctx context.Context, submissionID string) (*Evaluation, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT " + evaluationColumns + " FROM evaluations WHERE submission_id = ? ORDER BY seq DESC LIMIT 1"
	return scanEvaluation(database.QueryRow(ctx, query, submissionID))
}

func scanEvaluation(row db.Row) (*Evaluation, error) {
	var eval Evaluation
	var createdAt, updatedAt time.Time
	err := row.Scan(&eval.ID, &eval.SubmissionID, &eval.Status, &createdAt, &updatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.EvaluationNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan evaluation failed")
	}
	eval.CreatedAt = createdAt
	eval.UpdatedAt = updatedAt
	return &eval, nil
}

func (r *MySQLRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "UPDATE evaluations SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?"
	result, err := database.Exec(ctx, query, to, id, from)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "update evaluation status failed")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	if affected == 0 {
		return appErr.Newf(appErr.TransactionFailed, "evaluation %s is not %s", id, from)
	}
	return nil
}

func (r *MySQLRepository) AppendEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return appErr.ValidationError("event", "required")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "INSERT INTO evaluation_events (evaluation_id, seq, type, award_key, score, message, error) VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err = database.Exec(ctx, query,
		event.EvaluationID, event.Seq, event.Type, event.Key, event.Score, event.Message, event.Error)
	if err != nil {
		return appErr.Wrapf(err, appErr.EventAppendFailed, "insert evaluation event failed")
	}
	return nil
}

func (r *MySQLRepository) EventsOf(ctx context.Context, evaluationID string) ([]Event, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT evaluation_id, seq, type, award_key, score, message, error, created_at FROM evaluation_events WHERE evaluation_id = ? ORDER BY seq ASC"
	rows, err := database.Query(ctx, query, evaluationID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "query evaluation events failed")
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var event Event
		var createdAt time.Time
		if err := rows.Scan(&event.EvaluationID, &event.Seq, &event.Type, &event.Key,
			&event.Score, &event.Message, &event.Error, &createdAt); err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan evaluation event failed")
		}
		event.CreatedAt = createdAt
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return events, nil
}

var _ Repository = (*MySQLRepository)(nil)
