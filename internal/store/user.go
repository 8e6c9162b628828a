package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
)

// GetUser returns nil without error when no user matches.
func (s *Store) GetUser(ctx context.Context, find *model.FindUser) (*model.User, error) {
	if find.ID != nil && find.Username == nil && find.Email == nil {
		if cache, ok := s.UserCache.Load(*find.ID); ok {
			return cache.(*model.User), nil
		}
	}

	list, err := s.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	user := list[0]
	s.UserCache.Store(user.ID, user)
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, find *model.FindUser) ([]*model.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.Username; v != nil {
		where, args = append(where, "username = ?"), append(args, *v)
	}
	if v := find.Email; v != nil {
		where, args = append(where, "email = ?"), append(args, *v)
	}

	// password_hash is returned as well, model.User never serializes it.
	query := `
		SELECT
			id,
			username,
			email,
			password_hash,
			admin,
			created_ts,
			updated_ts
		FROM user
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
	}

	log.Debug("SQL query and args", zap.String("query", query), zap.Any("args", args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query users")
	}
	defer rows.Close()

	list := make([]*model.User, 0)
	for rows.Next() {
		var user model.User
		// The ordering of query results should be consistent with query var
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.Admin,
			&user.CreatedTs,
			&user.UpdatedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// CreateUser inserts a user. A taken username or email yields ErrDuplicateKey.
func (s *Store) CreateUser(ctx context.Context, create *model.User) (*model.User, error) {
	fields := []string{"`username`", "`email`", "`password_hash`", "`admin`"}
	placeholder := []string{"?", "?", "?", "?"}
	args := []any{create.Username, create.Email, create.PasswordHash, create.Admin}
	stmt := "INSERT INTO user (" + strings.Join(fields, ", ") + ") VALUES (" + strings.Join(placeholder, ", ") + ") RETURNING id, created_ts, updated_ts, username, email, password_hash, admin"

	log.Debug("CreateUser", zap.String("stmt", stmt), zap.String("username", create.Username))

	var user model.User
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(
		&user.ID,
		&user.CreatedTs,
		&user.UpdatedTs,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Admin,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(ErrDuplicateKey, "user %s", create.Username)
		}
		return nil, errors.Wrap(err, "failed to insert user")
	}

	s.UserCache.Store(user.ID, &user)
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, update *model.UpdateUser) (*model.User, error) {
	set, args := []string{"updated_ts = strftime('%s', 'now')"}, []any{}
	if v := update.Username; v != nil {
		set, args = append(set, "username = ?"), append(args, *v)
	}
	if v := update.Email; v != nil {
		set, args = append(set, "email = ?"), append(args, *v)
	}
	if v := update.PasswordHash; v != nil {
		set, args = append(set, "password_hash = ?"), append(args, *v)
	}
	args = append(args, update.ID)

	stmt := "UPDATE user SET " + strings.Join(set, ", ") + " WHERE id = ? RETURNING id, created_ts, updated_ts, username, email, password_hash, admin"

	var user model.User
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(
		&user.ID,
		&user.CreatedTs,
		&user.UpdatedTs,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Admin,
	); err != nil {
		s.UserCache.Delete(update.ID)
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(ErrDuplicateKey, "user %d", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update user")
	}

	s.UserCache.Store(user.ID, &user)
	return &user, nil
}

// DeleteUser removes the user, their collection entries go with them.
func (s *Store) DeleteUser(ctx context.Context, del *model.DeleteUser) error {
	s.UserCache.Delete(del.ID)
	result, err := s.db.ExecContext(ctx, "DELETE FROM user WHERE id = ?", del.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.Errorf("user %d not found", del.ID)
	}
	return nil
}
