package repository

import (
	"context"

	"github.com/algorithm-ninja/task-wizard/internal/auth"
	"github.com/algorithm-ninja/task-wizard/internal/common/db"
	"github.com/algorithm-ninja/task-wizard/internal/contest/model"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// UserRepository persists contest participants. It doubles as the credential
// source for the login service.
type UserRepository interface {
	auth.CredentialSource

	Create(ctx context.Context, tx db.Transaction, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	Delete(ctx context.Context, tx db.Transaction, id string) error
}

type MySQLUserRepository struct {
	dbProvider db.Provider
}

func NewUserRepository(provider db.Provider) *MySQLUserRepository {
	return &MySQLUserRepository{dbProvider: provider}
}

func (r *MySQLUserRepository) Create(ctx context.Context, tx db.Transaction, user *model.User) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "INSERT INTO users (id, display_name, token_hash) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE display_name = VALUES(display_name), token_hash = VALUES(token_hash)"
	if _, err := querier.Exec(ctx, query, user.ID, user.DisplayName, user.TokenHash); err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	return nil
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	query := "SELECT id, display_name, token_hash, created_at FROM users WHERE id = ?"
	var user model.User
	err = querier.QueryRow(ctx, query, id).
		Scan(&user.ID, &user.DisplayName, &user.TokenHash, &user.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, appErr.New(appErr.UserNotFound).WithMessagef("user %q not found", id)
		}
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return &user, nil
}

func (r *MySQLUserRepository) Delete(ctx context.Context, tx db.Transaction, id string) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	result, err := querier.Exec(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return appErr.Wrap(err, appErr.DatabaseError)
	}
	if affected == 0 {
		return appErr.New(appErr.UserNotFound).WithMessagef("user %q not found", id)
	}
	return nil
}

// CredentialsOf implements auth.CredentialSource.
func (r *MySQLUserRepository) CredentialsOf(ctx context.Context, userID string) (auth.Credentials, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		TokenHash:   user.TokenHash,
	}, nil
}
