package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/noah-isme/job-portal-api/pkg/config"
	"github.com/noah-isme/job-portal-api/pkg/database"
	"github.com/noah-isme/job-portal-api/pkg/logger"
)

func main() {
	path := flag.String("path", "./migrations", "directory holding the migration files")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	m, err := migrate.New("file://"+*path, database.URL(cfg.Database))
	if err != nil {
		logr.Fatal("migration init failed", zap.Error(err))
	}
	defer m.Close()
	m.Log = &migrateLogger{logger: logr.Sugar()}

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logr.Fatal("migrate up failed", zap.Error(err))
		}
		logr.Info("migrations applied")
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				logr.Fatal("invalid steps argument", zap.String("steps", args[1]))
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logr.Fatal("migrate down failed", zap.Error(err))
		}
		logr.Info("migrations rolled back", zap.Int("steps", steps))
	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			logr.Fatal("read version failed", zap.Error(err))
		}
		fmt.Printf("version: %d dirty: %v\n", v, dirty)
	case "force":
		if len(args) < 2 {
			logr.Fatal("force requires a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			logr.Fatal("invalid version", zap.String("version", args[1]))
		}
		if err := m.Force(v); err != nil {
			logr.Fatal("force failed", zap.Error(err))
		}
		logr.Info("migration version forced", zap.Int("version", v))
	default:
		usage()
		os.Exit(2)
	}
}

type migrateLogger struct {
	logger *zap.SugaredLogger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [-path ./migrations] <command> [args]

Commands:
  up           apply all pending migrations
  down [N]     roll back N migrations (default 1)
  version      print the current version
  force <V>    set the version without running migrations

Connection settings come from the DB_* environment variables.`)
}
