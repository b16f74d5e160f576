package artifact

import (
	"context"

	"github.com/algorithm-ninja/task-wizard/internal/common/db"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// SQLBlobRepository stores blobs in the blobs table, keyed by digest.
// The insert ignores duplicates so concurrent identical puts are safe.
type SQLBlobRepository struct {
	dbProvider db.Provider
}

func NewSQLBlobRepository(provider db.Provider) *SQLBlobRepository {
	return &SQLBlobRepository{dbProvider: provider}
}

func (r *SQLBlobRepository) Put(ctx context.Context, digest string, content []byte) error {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "INSERT IGNORE INTO blobs (integrity, content) VALUES (?, ?)"
	if _, err := database.Exec(ctx, query, digest, content); err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "insert blob failed")
	}
	return nil
}

func (r *SQLBlobRepository) Get(ctx context.Context, digest string) ([]byte, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	var content []byte
	query := "SELECT content FROM blobs WHERE integrity = ?"
	if err := database.QueryRow(ctx, query, digest).Scan(&content); err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.Newf(appErr.BlobNotFound, "blob %s not found", digest)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "query blob failed")
	}
	return content, nil
}

var _ BlobBackend = (*SQLBlobRepository)(nil)
