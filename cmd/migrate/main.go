package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/agrigenai/agrigen-backend/pkg/config"
	"github.com/agrigenai/agrigen-backend/pkg/db"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/agrigenai/agrigen-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
	driver  string
	dsn     string
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory on disk (default: migrations compiled into the binary)")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.StringVar(&opts.driver, "driver", "", "override AGRIGEN_DB_DRIVER (postgres|sqlite)")
	flag.StringVar(&opts.dsn, "dsn", "", "override AGRIGEN_DB_DSN")
	flag.Parse()
	return opts
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()
	opts := parseFlags()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})
	ctx = logg.WithField(ctx, "cmd", opts.cmd)

	switch opts.cmd {
	case "create":
		if opts.name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(diskDir(opts.dir), opts.name)
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if opts.dir == "" {
			err = migrate.ValidateEmbedded()
		} else {
			err = migrate.ValidateDir(opts.dir)
		}
		if err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbCfg := cfg.DB
	if opts.driver != "" {
		dbCfg.Driver = strings.ToLower(opts.driver)
	}
	if opts.dsn != "" {
		dbCfg.DSN = opts.dsn
	}
	requireResource(ctx, logg, "database config", dbCfg.EnsureDSN())

	dbClient, err := db.New(ctx, dbCfg, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.SQLDB()
	requireResource(ctx, logg, "sql database", err)
	dialect := migrate.Dialect(dbCfg)

	source := opts.dir
	if source == "" {
		source = "embedded"
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"dialect": dialect, "source": source}), "migrate ready")

	switch opts.cmd {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, dialect, opts.dir, opts.cmd)
	case "version":
		if opts.version == "" {
			exitf("missing -version for version command")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, opts.version)
	default:
		exitf("unknown -cmd value: %s", opts.cmd)
	}
	if err != nil {
		exitf("goose %s failed: %v", opts.cmd, err)
	}
}

func diskDir(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
