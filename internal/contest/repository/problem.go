package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/algorithm-ninja/task-wizard/internal/common/cache"
	"github.com/algorithm-ninja/task-wizard/internal/common/db"
	"github.com/algorithm-ninja/task-wizard/internal/contest/model"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

const (
	problemKeyPrefix       = "contest:problem:"
	defaultProblemTTL      = 30 * time.Minute
	defaultProblemEmptyTTL = 5 * time.Minute
)

// ProblemRepository persists contest problems. GetByName is read-mostly and
// is served through the cache when one is configured.
type ProblemRepository interface {
	Create(ctx context.Context, tx db.Transaction, problem *model.Problem) error
	GetByName(ctx context.Context, name string) (*model.Problem, error)
	List(ctx context.Context) ([]model.Problem, error)
	Delete(ctx context.Context, tx db.Transaction, name string) error
}

type MySQLProblemRepository struct {
	dbProvider db.Provider
	cache      cache.Cache
}

func NewProblemRepository(provider db.Provider, cacheClient cache.Cache) *MySQLProblemRepository {
	return &MySQLProblemRepository{dbProvider: provider, cache: cacheClient}
}

func (r *MySQLProblemRepository) Create(ctx context.Context, tx db.Transaction, problem *model.Problem) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "INSERT INTO problems (name, archive_digest) VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE archive_digest = VALUES(archive_digest)"
	if _, err := querier.Exec(ctx, query, problem.Name, problem.ArchiveDigest); err != nil {
		return appErr.Wrap(err, appErr.ProblemCreateFailed)
	}
	r.invalidate(ctx, problem.Name)
	return nil
}

func (r *MySQLProblemRepository) GetByName(ctx context.Context, name string) (*model.Problem, error) {
	if r.cache == nil {
		return r.getByNameFromDB(ctx, name)
	}
	problem, err := cache.GetWithCached(ctx, r.cache,
		problemKeyPrefix+name,
		defaultProblemTTL, defaultProblemEmptyTTL,
		func(p model.Problem) bool { return p.Name == "" },
		func(p model.Problem) string {
			data, _ := json.Marshal(p)
			return string(data)
		},
		func(raw string) (model.Problem, error) {
			var p model.Problem
			err := json.Unmarshal([]byte(raw), &p)
			return p, err
		},
		func(ctx context.Context) (model.Problem, error) {
			p, err := r.getByNameFromDB(ctx, name)
			if err != nil {
				if appErr.GetCode(err) == appErr.ProblemNotFound {
					return model.Problem{}, nil
				}
				return model.Problem{}, err
			}
			return *p, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if problem.Name == "" {
		return nil, appErr.New(appErr.ProblemNotFound).WithMessagef("problem %q not found", name)
	}
	return &problem, nil
}

func (r *MySQLProblemRepository) getByNameFromDB(ctx context.Context, name string) (*model.Problem, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT name, archive_digest, created_at, updated_at FROM problems WHERE name = ?"
	var problem model.Problem
	err = querier.QueryRow(ctx, query, name).
		Scan(&problem.Name, &problem.ArchiveDigest, &problem.CreatedAt, &problem.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.ProblemNotFound).WithMessagef("problem %q not found", name)
		}
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return &problem, nil
}

func (r *MySQLProblemRepository) List(ctx context.Context) ([]model.Problem, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT name, archive_digest, created_at, updated_at FROM problems ORDER BY name ASC"
	rows, err := querier.Query(ctx, query)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var problem model.Problem
		if err := rows.Scan(&problem.Name, &problem.ArchiveDigest, &problem.CreatedAt, &problem.UpdatedAt); err != nil {
			return nil, appErr.Wrap(err, appErr.DatabaseError)
		}
		problems = append(problems, problem)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return problems, nil
}

func (r *MySQLProblemRepository) Delete(ctx context.Context, tx db.Transaction, name string) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	result, err := querier.Exec(ctx, "DELETE FROM problems WHERE name = ?", name)
	if err != nil {
		return appErr.Wrap(err, appErr.ProblemDeleteFailed)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	if affected == 0 {
		return appErr.New(appErr.ProblemNotFound).WithMessagef("problem %q not found", name)
	}
	r.invalidate(ctx, name)
	return nil
}

func (r *MySQLProblemRepository) invalidate(ctx context.Context, name string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Del(ctx, problemKeyPrefix+name)
}
