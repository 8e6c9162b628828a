package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/util"
)

// GetEntry returns nil without error when no entry matches.
func (s *Store) GetEntry(ctx context.Context, find *model.FindEntry) (*model.Entry, error) {
	list, err := s.ListEntries(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListEntries returns matching entries with their book populated, oldest
// first.
func (s *Store) ListEntries(ctx context.Context, find *model.FindEntry) ([]*model.Entry, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "e.id = ?"), append(args, *v)
	}
	if v := find.OwnerID; v != nil {
		where, args = append(where, "e.owner_id = ?"), append(args, *v)
	}
	if v := find.BookID; v != nil {
		where, args = append(where, "e.book_id = ?"), append(args, *v)
	}
	if v := find.Wishlist; v != nil {
		if *v {
			where, args = append(where, "e.status = ?"), append(args, model.StatusWishlist.String())
		} else {
			where, args = append(where, "e.status <> ?"), append(args, model.StatusWishlist.String())
		}
	}

	query := `
		SELECT
			e.id,
			e.owner_id,
			e.book_id,
			e.status,
			e.other_name,
			e.event_date,
			e.created_ts,
			e.updated_ts,
			b.work_key,
			b.title,
			` + authorsColumn + `
		FROM book_entry e
		JOIN book b ON b.id = e.book_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.created_ts ASC, e.rowid ASC`

	log.Debug("SQL query and args", zap.String("query", query), zap.Any("args", args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query entries")
	}
	defer rows.Close()

	list := make([]*model.Entry, 0)
	for rows.Next() {
		var (
			entry   model.Entry
			book    model.Book
			status  string
			date    sql.NullString
			authors string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.OwnerID,
			&entry.BookID,
			&status,
			&entry.OtherName,
			&date,
			&entry.CreatedTs,
			&entry.UpdatedTs,
			&book.Key,
			&book.Title,
			&authors,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan entry")
		}
		if entry.Status, err = model.ParseStatus(status); err != nil {
			return nil, errors.Wrapf(err, "entry %s", entry.ID)
		}
		if date.Valid && date.String != "" {
			d, err := model.ParseDate(date.String)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %s", entry.ID)
			}
			entry.Date = &d
		}
		book.ID = entry.BookID
		book.Author = util.SplitList(authors)
		entry.Book = &book
		list = append(list, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// CreateEntry stores a new entry. An empty ID is replaced by a random UUID.
func (s *Store) CreateEntry(ctx context.Context, create *model.Entry) (*model.Entry, error) {
	entry := *create
	if entry.ID == "" {
		entry.ID = util.GenUUID()
	}

	stmt := "INSERT INTO book_entry (`id`, `owner_id`, `book_id`, `status`, `other_name`, `event_date`) VALUES (?, ?, ?, ?, ?, ?) RETURNING created_ts, updated_ts"
	args := []any{entry.ID, entry.OwnerID, entry.BookID, entry.Status.String(), entry.OtherName, dateValue(entry.Date)}

	log.Debug("SQL query and args", zap.String("query", stmt), zap.Any("args", args))

	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&entry.CreatedTs, &entry.UpdatedTs); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(ErrDuplicateKey, "entry %s", entry.ID)
		}
		return nil, errors.Wrap(err, "failed to insert entry")
	}
	return &entry, nil
}

// UpdateEntry overwrites the mutable columns of an entry owned by
// update.OwnerID. sql.ErrNoRows is returned when nothing matched.
func (s *Store) UpdateEntry(ctx context.Context, update *model.Entry) (*model.Entry, error) {
	entry := *update
	stmt := `
		UPDATE book_entry
		SET
			book_id = ?,
			status = ?,
			other_name = ?,
			event_date = ?,
			updated_ts = strftime('%s', 'now')
		WHERE id = ? AND owner_id = ?
		RETURNING created_ts, updated_ts`
	args := []any{entry.BookID, entry.Status.String(), entry.OtherName, dateValue(entry.Date), entry.ID, entry.OwnerID}

	log.Debug("SQL query and args", zap.String("query", stmt), zap.Any("args", args))

	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&entry.CreatedTs, &entry.UpdatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to update entry")
	}
	return &entry, nil
}

// DeleteEntry removes the entry id owned by ownerID and reports how many
// rows were deleted.
func (s *Store) DeleteEntry(ctx context.Context, id string, ownerID int32) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM book_entry WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete entry")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}
	return affected, nil
}

func dateValue(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
