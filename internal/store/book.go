package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/util"
)

// GetBook returns nil without error when no book matches.
func (s *Store) GetBook(ctx context.Context, find *model.FindBook) (*model.Book, error) {
	if v := find.ID; v != nil {
		if cache, ok := s.BookCache.Load(*v); ok {
			return cache.(*model.Book), nil
		}
	}
	if v := find.Key; v != nil && find.ID == nil {
		if cache, ok := s.BookKeyCache.Load(*v); ok {
			return cache.(*model.Book), nil
		}
	}

	list, err := s.ListBooks(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	book := list[0]
	s.cacheBook(book)
	return book, nil
}

func (s *Store) ListBooks(ctx context.Context, find *model.FindBook) ([]*model.Book, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "b.id = ?"), append(args, *v)
	}
	if v := find.Key; v != nil {
		where, args = append(where, "b.work_key = ?"), append(args, *v)
	}

	query := `
		SELECT
			b.id,
			b.work_key,
			b.title,
			b.created_ts,
			` + authorsColumn + `
		FROM book b
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY b.id ASC`

	log.Debug("SQL query and args", zap.String("query", query), zap.Any("args", args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query books")
	}
	defer rows.Close()

	list := make([]*model.Book, 0)
	for rows.Next() {
		var book model.Book
		var authors string
		if err := rows.Scan(
			&book.ID,
			&book.Key,
			&book.Title,
			&book.CreatedTs,
			&authors,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan book")
		}
		book.Author = util.SplitList(authors)
		list = append(list, &book)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// CreateBook inserts a registry book with its authors. A book with the same
// key already stored yields ErrDuplicateKey.
func (s *Store) CreateBook(ctx context.Context, create *model.Book) (*model.Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt := "INSERT INTO book (`work_key`, `title`) VALUES (?, ?) RETURNING id, created_ts"
	book := &model.Book{
		Key:    create.Key,
		Title:  create.Title,
		Author: []string{},
	}
	if err := tx.QueryRowContext(ctx, stmt, create.Key, create.Title).Scan(&book.ID, &book.CreatedTs); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(ErrDuplicateKey, "book %s", create.Key)
		}
		return nil, errors.Wrap(err, "failed to insert book")
	}

	if book.Author, err = addBookAuthors(ctx, tx, book.ID, create.Author); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(ErrDuplicateKey, "book %s", create.Key)
		}
		return nil, err
	}

	log.Debug("Book created", zap.Int32("id", book.ID), zap.String("key", book.Key))
	s.cacheBook(book)
	return book, nil
}

func (s *Store) cacheBook(book *model.Book) {
	s.BookCache.Store(book.ID, book)
	s.BookKeyCache.Store(book.Key, book)
}
