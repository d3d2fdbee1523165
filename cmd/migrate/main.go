// Command migrate applies the domain store schema.
//
//	go run ./cmd/migrate              # Run all pending migrations
//	go run ./cmd/migrate -down        # Rollback all migrations
//	go run ./cmd/migrate -steps 1     # Run one migration
//	go run ./cmd/migrate -steps -1    # Rollback one migration
//	go run ./cmd/migrate -force 1     # Force version 1
package main

import (
	"flag"

	"github.com/domainbrowser/searchjobs/internal/config"
	"github.com/domainbrowser/searchjobs/internal/db"
	"github.com/domainbrowser/searchjobs/internal/db/migrations"
	"github.com/domainbrowser/searchjobs/internal/logger"
)

func main() {
	logger.InitializeAndConfigure()

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	defaults := migrations.DefaultConfig()
	var (
		dbURLFlag = flag.String("db", "", "Database URL (optional, defaults to DB_* env vars)")
		migPath   = flag.String("path", defaults.MigrationsPath, "Path to migration files")
		down      = flag.Bool("down", false, "Roll back migrations")
		steps     = flag.Int("steps", 0, "Number of migrations to apply (up or down)")
		force     = flag.Int("force", -1, "Force a specific version")
		retries   = flag.Int("retries", defaults.RetryAttempts, "Number of connection retries")
		retryWait = flag.Duration("retry-wait", defaults.RetryDelay, "Wait time between retries")
	)
	flag.Parse()

	dbURL := *dbURLFlag
	if dbURL == "" {
		ssl := cfg.Database.SSLEnabled
		dbURL = db.URL(db.Options{
			Host:       cfg.Database.Host,
			Port:       cfg.Database.Port,
			User:       cfg.Database.User,
			Password:   cfg.Database.Password,
			DBName:     cfg.Database.DBName,
			SSLEnabled: &ssl,
		})
	}

	service, err := migrations.NewMigrationService(migrations.Config{
		MigrationsPath: *migPath,
		DatabaseURL:    dbURL,
		RetryAttempts:  *retries,
		RetryDelay:     *retryWait,
	})
	if err != nil {
		logger.Fatalf("Failed to create migration service: %v", err)
	}
	defer func() {
		if err := service.Close(); err != nil {
			logger.Warnf("Failed to close migration service: %v", err)
		}
	}()

	if *force >= 0 {
		if err := service.Force(*force); err != nil {
			logger.Fatalf("Failed to force version %d: %v", *force, err)
		}
		logger.Infof("Successfully forced version to %d", *force)
		return
	}

	if *steps != 0 {
		if err := service.Steps(*steps); err != nil {
			logger.Fatalf("Failed to apply %d steps: %v", *steps, err)
		}
		logger.Infof("Successfully applied %d steps", *steps)
		return
	}

	if *down {
		if err := service.Down(); err != nil {
			logger.Fatalf("Migration rollback failed: %v", err)
		}
	} else if err := service.Up(); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}

	version, dirty, err := service.Version()
	if err != nil {
		logger.Warnf("Could not get final version: %v", err)
	} else {
		logger.Infof("Current migration version: %d (dirty: %v)", version, dirty)
	}
}
