package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ioclens/core"
)

const userColumns = `id, email, username, google_id`

// CreateUser inserts a user and returns it with its assigned id
func (s *SQLStore) CreateUser(ctx context.Context, user *core.User) (*core.User, error) {
	const op = "storage.CreateUser"
	if user == nil || user.Email == "" {
		return nil, core.NewValidationError(op, "user email is required", "email")
	}

	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()

	created := *user
	query := s.dialect.Rebind(`
		INSERT INTO users (email, username, google_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	err := s.db.Writer().QueryRowContext(ctx, query,
		user.Email, nullString(user.Username), nullString(user.GoogleID), now(),
	).Scan(&created.ID)
	if err != nil {
		return nil, storageFailure(op, fmt.Errorf("failed to insert user: %w", err))
	}

	s.logger.Infow("User created", "user_id", created.ID, "email", created.Email)
	return &created, nil
}

// GetUserByID returns the user with the given id
func (s *SQLStore) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return s.getUser(ctx, "storage.GetUserByID", "id", id)
}

// GetUserByGoogleID returns the user linked to a Google account
func (s *SQLStore) GetUserByGoogleID(ctx context.Context, googleID string) (*core.User, error) {
	return s.getUser(ctx, "storage.GetUserByGoogleID", "google_id", googleID)
}

// GetUserByEmail returns the first user registered with email
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return s.getUser(ctx, "storage.GetUserByEmail", "email", email)
}

// getUser looks a user up by one column. column is always a constant from this file.
func (s *SQLStore) getUser(ctx context.Context, op, column string, value interface{}) (*core.User, error) {
	ctx, cancel := context.WithTimeout(ctx, core.DBOperationTimeout)
	defer cancel()

	query := s.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? ORDER BY id ASC LIMIT 1`)

	var user core.User
	var username, googleID sql.NullString
	err := s.db.Reader().QueryRowContext(ctx, query, value).Scan(&user.ID, &user.Email, &username, &googleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, ErrUserNotFound)
	}
	if err != nil {
		return nil, storageFailure(op, err)
	}

	if username.Valid {
		user.Username = &username.String
	}
	if googleID.Valid {
		user.GoogleID = &googleID.String
	}
	return &user, nil
}
