package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pds_backend/database"
	"pds_backend/internal/config"
	"pds_backend/internal/logger"
	"pds_backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|validate")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if *cmd == "validate" {
		if err := migrate.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)

	if cfg.Database.Driver != "postgres" {
		logger.Fatal("goose migrations target postgres; use auto_migrate for sqlite", "driver", cfg.Database.Driver)
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, false)
	if err != nil {
		logger.Fatal("resource not working: database", "error", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("resource not working: sql database", "error", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	logger.Info("migrate ready", "cmd", *cmd)

	switch *cmd {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, *cmd)
	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, *version)
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
		os.Exit(1)
	}
}
