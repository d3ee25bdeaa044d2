package db

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/hexlet/typoreporter/internal/config"
)

// Schema state errors reported by CheckSchema.
var (
	ErrSchemaDirty    = errors.New("database schema is dirty")
	ErrSchemaOutdated = errors.New("database schema is outdated")
)

// MigrateCommand is a parsed `migrate` invocation.
type MigrateCommand struct {
	Name    string // up, down, version or force
	Steps   int    // up/down only; 0 applies or reverts everything
	Version int    // force only
}

// ParseMigrateCommand parses "up [N]", "down [N]", "version" and "force N".
func ParseMigrateCommand(args []string) (MigrateCommand, error) {
	if len(args) == 0 {
		return MigrateCommand{}, errors.New("missing migrate command (use: up, down, version, force)")
	}
	cmd := MigrateCommand{Name: args[0]}
	rest := args[1:]
	switch cmd.Name {
	case "up", "down":
		if len(rest) > 1 {
			return MigrateCommand{}, fmt.Errorf("%s takes at most one step count", cmd.Name)
		}
		if len(rest) == 1 {
			n, err := strconv.Atoi(rest[0])
			if err != nil || n <= 0 {
				return MigrateCommand{}, fmt.Errorf("invalid step count %q", rest[0])
			}
			cmd.Steps = n
		}
	case "version":
		if len(rest) > 0 {
			return MigrateCommand{}, errors.New("version takes no arguments")
		}
	case "force":
		if len(rest) != 1 {
			return MigrateCommand{}, errors.New("force requires a version number argument")
		}
		v, err := strconv.Atoi(rest[0])
		if err != nil || v < -1 {
			return MigrateCommand{}, fmt.Errorf("invalid version %q", rest[0])
		}
		cmd.Version = v
	default:
		return MigrateCommand{}, fmt.Errorf("unknown migrate command: %s (use: up, down, version, force)", cmd.Name)
	}
	return cmd, nil
}

// RunMigrate executes cmd against the database described by cfg. The migrationsFS holds the
// .sql files at its root.
func RunMigrate(logger *slog.Logger, cfg config.PostgresConfig, migrationsFS fs.FS, cmd MigrateCommand) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := newMigrator(logger, cfg, migrationsFS)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd.Name {
	case "up":
		if cmd.Steps > 0 {
			err = m.Steps(cmd.Steps)
		} else {
			err = m.Up()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		return logVersion(logger, m, "schema migrated")
	case "down":
		if cmd.Steps > 0 {
			err = m.Steps(-cmd.Steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		return logVersion(logger, m, "schema rolled back")
	case "version":
		return logVersion(logger, m, "current schema")
	case "force":
		if err := m.Force(cmd.Version); err != nil {
			return fmt.Errorf("migrate force: %w", err)
		}
		logger.Info("forced schema version", slog.Int("version", cmd.Version))
		return nil
	default:
		return fmt.Errorf("unknown migrate command: %s", cmd.Name)
	}
}

// CheckSchema fails when the database is dirty or behind the newest embedded migration.
func CheckSchema(logger *slog.Logger, cfg config.PostgresConfig, migrationsFS fs.FS) error {
	if logger == nil {
		logger = slog.Default()
	}
	latest, err := LatestMigration(migrationsFS)
	if err != nil {
		return err
	}
	m, err := newMigrator(logger, cfg, migrationsFS)
	if err != nil {
		return err
	}
	defer m.Close()

	applied, dirty, err := schemaVersion(m)
	if err != nil {
		return err
	}
	switch {
	case dirty:
		return fmt.Errorf("%w at version %d; repair it and run `typoreporter migrate force N`", ErrSchemaDirty, applied)
	case applied < latest:
		return fmt.Errorf("%w: database at %d, binary expects %d; run `typoreporter migrate up`", ErrSchemaOutdated, applied, latest)
	case applied > latest:
		logger.Warn("database schema is newer than this binary",
			slog.Uint64("applied", uint64(applied)), slog.Uint64("latest", uint64(latest)))
	}
	return nil
}

// LatestMigration returns the highest migration version in migrationsFS.
func LatestMigration(migrationsFS fs.FS) (uint, error) {
	if migrationsFS == nil {
		return 0, errors.New("migrations source not configured")
	}
	source, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return 0, fmt.Errorf("migration source: %w", err)
	}
	defer source.Close()

	version, err := source.First()
	if err != nil {
		return 0, fmt.Errorf("no migrations found: %w", err)
	}
	for {
		next, err := source.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read migrations: %w", err)
		}
		version = next
	}
}

func newMigrator(logger *slog.Logger, cfg config.PostgresConfig, migrationsFS fs.FS) (*migrate.Migrate, error) {
	if migrationsFS == nil {
		return nil, errors.New("migrations source not configured")
	}
	source, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	m.Log = &migrateLogger{logger: logger.With(slog.String("component", "migrate"))}
	return m, nil
}

// schemaVersion reports version 0 for a database without any applied migration.
func schemaVersion(m *migrate.Migrate) (uint, bool, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migrate version: %w", err)
	}
	return version, dirty, nil
}

func logVersion(logger *slog.Logger, m *migrate.Migrate, msg string) error {
	version, dirty, err := schemaVersion(m)
	if err != nil {
		return err
	}
	logger.Info(msg, slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
