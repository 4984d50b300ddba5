package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/introcar/introcar-backend/pkg/config"
	"github.com/introcar/introcar-backend/pkg/db"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up                 apply all pending migrations
  down               roll back the latest migration
  status             print applied and pending migrations
  to <version>       migrate up or down to version (YYYYMMDDHHMMSS)
  create <name>      write a new empty migration into -dir
  validate           check the embedded migrations
`

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "directory new migrations are written to")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command := args[0]

	// offline commands need neither config nor a database
	switch command {
	case "create":
		if len(args) < 2 {
			exitf("create needs a migration name")
		}
		path, err := migrate.CreateSQLMigration(*dir, args[1], time.Now())
		if err != nil {
			exitf("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.Validate(migrate.Files()); err != nil {
			exitf("invalid migrations:\n%v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": command,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to unwrap sql.DB", err)
		os.Exit(1)
	}

	switch command {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, command)
	case "to":
		if len(args) < 2 {
			exitf("to needs a target version")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, args[1])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
