package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/util"
	"github.com/Xunop/bookshelf/internal/version"
)

type DB struct {
	*sql.DB
	dsn string
}

func init() {
	util.RegisterSQLiteFunctions()
}

// NewDB opens the sqlite database at dsn. Foreign keys are enforced and
// writers wait on a locked database instead of failing immediately.
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	d, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dsn)
	}
	if err := d.Ping(); err != nil {
		d.Close()
		return nil, errors.Wrapf(err, "failed to connect to database %s", dsn)
	}

	return &DB{DB: d, dsn: dsn}, nil
}

func withPragmas(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (d *DB) Close() error {
	return d.DB.Close()
}

//go:embed migration
var migrationFS embed.FS

const latestSchemaFileName = "LATEST_SCHEMA.sql"

// Migrate creates the schema on an empty database and applies the pending
// minor version migrations on an existing one.
func (d *DB) Migrate(ctx context.Context) error {
	currentVersion := version.GetCurrentVersion()
	log.Info("Migrate database", zap.String("version", currentVersion))

	exist, err := d.CheckTableExists(ctx, "migration_history")
	if err != nil {
		return errors.Wrap(err, "failed to check database table")
	}
	if !exist {
		if err := d.applyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
		// Upsert the newest version to migration_history.
		if _, err := d.UpsertMigrationHistory(ctx, &model.UpsertMigrationHistory{
			Version: version.GetSchemaVersion(currentVersion),
		}); err != nil {
			return err
		}
		return nil
	}

	migrationHistoryList, err := d.FindMigrationHistoryList(ctx, &model.FindMigrationHistory{})
	if err != nil {
		return errors.Wrap(err, "failed to find migration history list")
	}
	if len(migrationHistoryList) == 0 {
		return errors.New("database has no migration history")
	}

	migrationHistoryVersionList := []string{}
	for _, migrationHistory := range migrationHistoryList {
		migrationHistoryVersionList = append(migrationHistoryVersionList, migrationHistory.Version)
	}
	version.Sort(migrationHistoryVersionList)
	latestMigrationHistoryVersion := migrationHistoryVersionList[len(migrationHistoryVersionList)-1]

	if !version.IsVersionGreaterThan(version.GetSchemaVersion(currentVersion), latestMigrationHistoryVersion) {
		return nil
	}

	log.Info("Start migration", zap.String("from", latestMigrationHistoryVersion), zap.String("to", currentVersion))
	for _, minorVersion := range getMinorVersionList() {
		// Patches never change the schema.
		normalizedVersion := minorVersion + ".0"
		if version.IsVersionGreaterThan(normalizedVersion, latestMigrationHistoryVersion) && version.IsVersionGreaterOrEqualThan(currentVersion, normalizedVersion) {
			log.Info("Applying migration", zap.String("version", normalizedVersion))
			if err := d.applyMigrationForMinorVersion(ctx, minorVersion); err != nil {
				return errors.Wrap(err, "failed to apply minor version migration")
			}
		}
	}
	log.Info("End migration")
	return nil
}

func (d *DB) applyLatestSchema(ctx context.Context) error {
	latestSchemaPath := fmt.Sprintf("migration/%s", latestSchemaFileName)
	buf, err := migrationFS.ReadFile(latestSchemaPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file: %q", latestSchemaPath)
	}

	if err := d.execute(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}

func (d *DB) applyMigrationForMinorVersion(ctx context.Context, minorVersion string) error {
	filenames, err := fs.Glob(migrationFS, fmt.Sprintf("migration/%s/*.sql", minorVersion))
	if err != nil {
		return errors.Wrapf(err, "failed to find migration files for version %s", minorVersion)
	}

	// Files are applied in name order: 00001_example.sql, 00002_example.sql, ...
	slices.Sort(filenames)
	for _, filename := range filenames {
		buf, err := migrationFS.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %q", filename)
		}
		if err := d.execute(ctx, string(buf)); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", filename)
		}
	}

	v := minorVersion + ".0"
	if _, err := d.UpsertMigrationHistory(ctx, &model.UpsertMigrationHistory{
		Version: v,
	}); err != nil {
		return errors.Wrapf(err, "failed to upsert migration history for version %s", v)
	}

	return nil
}

// execute runs a SQL script within a transaction.
func (d *DB) execute(ctx context.Context, stmt string) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to execute statement")
	}

	return tx.Commit()
}

// minorDirRegexp is a regular expression for minor version directory.
var minorDirRegexp = regexp.MustCompile(`^migration/[0-9]+\.[0-9]+$`)

func getMinorVersionList() []string {
	minorVersionList := []string{}

	if err := fs.WalkDir(migrationFS, "migration", func(path string, file fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if file.IsDir() && minorDirRegexp.MatchString(path) {
			minorVersionList = append(minorVersionList, file.Name())
		}

		return nil
	}); err != nil {
		panic(err)
	}

	version.Sort(minorVersionList)

	return minorVersionList
}
