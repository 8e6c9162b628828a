package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/util"
)

// authorsColumn re-assembles the ordered author list of b.
const authorsColumn = `COALESCE((SELECT sortconcat(a.position, a.name) FROM book_author a WHERE a.book_id = b.id), '')`

// addBookAuthors links names to a book in catalog order. Blank names are
// skipped and the stored list is returned.
func addBookAuthors(ctx context.Context, tx *sql.Tx, bookID int32, names []string) ([]string, error) {
	stmt := "INSERT INTO book_author (`book_id`, `position`, `name`) VALUES (?, ?, ?)"
	stored := []string{}
	for _, name := range names {
		name = strings.TrimSpace(strings.ReplaceAll(name, util.ListSeparator, " "))
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt, bookID, len(stored)+1, name); err != nil {
			return nil, errors.Wrap(err, "failed to insert book author")
		}
		stored = append(stored, name)
	}
	log.Debug("Book authors linked", zap.Int32("book_id", bookID), zap.Int("count", len(stored)))
	return stored, nil
}
