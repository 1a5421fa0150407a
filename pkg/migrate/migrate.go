package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	DefaultDir = "pkg/migrate/migrations"
	dialect    = "postgres"
	embedDir   = "migrations"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Source selects where goose reads migration files from.
type Source struct {
	fsys fs.FS
	dir  string
}

// Embedded returns the migrations compiled into the binary.
func Embedded() Source {
	return Source{fsys: embedded, dir: embedDir}
}

// Dir returns migrations read from disk, used by create/validate during development.
func Dir(dir string) Source {
	return Source{fsys: os.DirFS("."), dir: dir}
}

// SourceFor prefers the embedded set when dir is the default layout.
func SourceFor(dir string) Source {
	if dir == "" || dir == DefaultDir {
		return Embedded()
	}
	return Dir(dir)
}

// Validate checks the file names and goose markers of every migration in the source.
func (s Source) Validate() ([]File, error) {
	if s.fsys == nil || s.dir == "" {
		return nil, fmt.Errorf("migration source is required")
	}
	return ValidateFS(s.fsys, s.dir)
}

func (s Source) prepare() error {
	if s.fsys == nil || s.dir == "" {
		return fmt.Errorf("migration source is required")
	}
	goose.SetBaseFS(s.fsys)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes a standard goose command that requires a DB connection.
func Run(ctx context.Context, db *sql.DB, src Source, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if err := src.prepare(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, src.dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up or down to the requested version.
func MigrateToVersion(ctx context.Context, db *sql.DB, src Source, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	if err := src.prepare(); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, src.dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, src.dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
