package store // import "github.com/Xunop/bookshelf/internal/store"

import (
	"database/sql"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateKey is returned when an insert hits a UNIQUE constraint.
var ErrDuplicateKey = errors.New("duplicate key")

type Store struct {
	db                 *sql.DB
	UserCache          sync.Map // map[int32]*User
	SystemSettingCache sync.Map // map[string]*SystemSetting
	// Registry books never change once created, so both caches are safe
	// without invalidation.
	BookCache    sync.Map // map[int32]*Book
	BookKeyCache sync.Map // map[string]*Book
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) DBStats() sql.DBStats {
	return s.db.Stats()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}
