package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tourbook-backend/pkg/config"
	"github.com/angelmondragon/tourbook-backend/pkg/db"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/angelmondragon/tourbook-backend/pkg/migrate"
)

const usage = `tourbook migrate: manage the users, tours, reviews and bookings schema.

Usage:
  migrate -cmd <command> [-dir path] [-name text] [-version YYYYMMDDHHMMSS]

Commands:
  up        apply every pending migration
  down      roll back the latest migration
  status    print applied and pending migrations
  version   migrate up or down to -version
  create    write an empty migration named -name
  validate  check file names and goose sections
  list      print the migrations found in -dir

up, down, status and version need a postgres TOURBOOK_DB_DSN (or discrete
TOURBOOK_DB_* parts). SQLite databases are migrated by the api with
TOURBOOK_AUTO_MIGRATE=true in development.

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	cmd := flag.String("cmd", "up", "migration command")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version for -cmd=version")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": *dir})

	// Offline commands run without config so they work on a fresh checkout.
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		files, err := migrate.List(*dir)
		if err != nil {
			fail("validate migrations: %v", err)
		}
		fmt.Printf("%d tourbook migrations valid\n", len(files))
		return
	case "list":
		files, err := migrate.List(*dir)
		if err != nil {
			fail("list migrations: %v", err)
		}
		for _, f := range files {
			fmt.Printf("%d  %s\n", f.Version, f.Name)
		}
		return
	case "up", "down", "status", "version":
	default:
		flag.Usage()
		fail("unknown -cmd %q", *cmd)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	if cfg.DB.UsesSQLite() {
		fail("goose migrations target postgres; set TOURBOOK_AUTO_MIGRATE=true to migrate sqlite")
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	requireResource(ctx, logg, "sql database", err)

	if *cmd == "version" {
		if *version == "" {
			fail("missing -version for version")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, *dir, *version)
	} else {
		err = migrate.Run(ctx, sqlDB, *dir, *cmd)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration complete")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to initialize "+resource, err)
	os.Exit(1)
}
