package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// ErrMigrate wraps every migration failure.
var ErrMigrate = errors.New("failed to apply migrations")

//go:embed migrations/mysql/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// migrationDir maps a sqlx driver name to its goose dialect and directory.
func migrationDir(driver string) (dialect, dir string, err error) {
	switch driver {
	case "mysql":
		return "mysql", "migrations/mysql", nil
	case "postgres":
		return "postgres", "migrations/postgres", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

// Migrate applies every pending embedded migration for db's driver.
func Migrate(ctx context.Context, db *sqlx.DB, log *zap.Logger) error {
	dialect, dir, err := migrationDir(db.DriverName())
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}

	// Route goose output through the application logger.
	goose.SetLogger(gooseLogger{log.Sugar()})
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return errors.Join(ErrMigrate, err)
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return errors.Join(ErrMigrate, err)
	}
	return nil
}

// gooseLogger bridges goose's Printf-style logging to zap.  Fatalf is
// logged at error level; goose returns the error to us anyway.
type gooseLogger struct{ s *zap.SugaredLogger }

func (g gooseLogger) Fatalf(format string, v ...any) { g.s.Errorf(format, v...) }
func (g gooseLogger) Printf(format string, v ...any) { g.s.Infof(format, v...) }
