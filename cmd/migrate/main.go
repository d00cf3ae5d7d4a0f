package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/m11312045/pneumatic-app/internal/config"
)

func main() {
	var migrationDir string
	flag.StringVar(&migrationDir, "path", "migrations", "Path to migration files")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		fatal(logger, "Failed to load configuration", err)
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationDir), cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "Migration failed to initialize", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "Up failed", err)
		}
		logger.Info("Migrated up")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "Down failed", err)
		}
		logger.Info("Migrated down")
	case "steps":
		if len(args) < 2 {
			fatal(logger, "steps requires a count", nil)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fatal(logger, "Invalid step count", err)
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal(logger, "Steps failed", err)
		}
		logger.Info("Migrated steps", "steps", n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			fatal(logger, "Version failed", err)
		}
		logger.Info("Current version", "version", version, "dirty", dirty)
	case "force":
		if len(args) < 2 {
			fatal(logger, "force requires a version", nil)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			fatal(logger, "Invalid version", err)
		}
		if err := m.Force(v); err != nil {
			fatal(logger, "Force failed", err)
		}
		logger.Info("Forced version", "version", v)
	default:
		printUsage()
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println("Commands: up, down, steps <n>, version, force <version>")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
