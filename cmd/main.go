package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"

	"github.com/domainbrowser/searchjobs/internal/api/v1/middleware"
	"github.com/domainbrowser/searchjobs/internal/config"
	"github.com/domainbrowser/searchjobs/internal/db"
	"github.com/domainbrowser/searchjobs/internal/db/repos"
	"github.com/domainbrowser/searchjobs/internal/events"
	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/internal/runner"
	"github.com/domainbrowser/searchjobs/internal/services"
	"github.com/domainbrowser/searchjobs/internal/structure"
	"github.com/domainbrowser/searchjobs/internal/types"
	"github.com/domainbrowser/searchjobs/pkg/api/v1/handlers"
	"github.com/domainbrowser/searchjobs/pkg/api/v1/routes"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger.InitializeAndConfigure()

	if err := run(); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Domain store
	sslEnabled := cfg.Database.SSLEnabled
	gdb, err := db.New(db.Options{
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		DBName:     cfg.Database.DBName,
		SSLEnabled: &sslEnabled,
		LogLevel:   gormlogger.Warn,
	})
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	defer sqlDB.Close()

	// Job directories
	store, err := jobstore.NewFileStore(cfg.JobRoot)
	if err != nil {
		return err
	}

	jobRunner, err := newRunner(cfg, store)
	if err != nil {
		return err
	}
	scheduler, _ := jobRunner.(runner.Scheduler)

	collector := metrics.NewCollector()
	bus := events.NewBus(events.EventChannelSize)
	collector.Subscribe(bus)
	bus.Start(ctx)

	fetcher := structure.NewHTTPFetcher(structure.FetcherOptions{
		PDBURLTemplate:       cfg.Fetch.PDBURLTemplate,
		AlphaFoldURLTemplate: cfg.Fetch.AlphaFoldURLTemplate,
		Timeout:              cfg.Fetch.Timeout,
	})

	// Services
	correlator := services.NewCorrelatorService(repos.NewDomainRepository(gdb), collector)
	gateway := services.NewGatewayService(services.GatewayOptions{
		Store:   store,
		Runner:  jobRunner,
		Fetcher: fetcher,
		Bus:     bus,
	})
	status := services.NewStatusService(services.StatusOptions{
		Store:      store,
		Scheduler:  scheduler,
		Correlator: correlator,
		Metrics:    collector,
		StaleAfter: cfg.StatusStaleAfter,
	})
	reaper := services.NewReaperService(services.ReaperOptions{
		Store:   store,
		Horizon: cfg.Retention.Horizon,
		Bus:     bus,
		Metrics: collector,
	})

	if cfg.Retention.Schedule != "" {
		schedule, err := config.ParseSchedule(cfg.Retention.Schedule)
		if err != nil {
			return fmt.Errorf("invalid CLEANUP_SCHEDULE: %w", err)
		}
		reaper.Start(ctx, schedule)
	}

	// HTTP API
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    16 * 1024 * 1024,
	})
	app.Use(middleware.Logger())
	routes.RegisterRoutes(
		app,
		handlers.NewJobHandler(gateway, status),
		handlers.NewAdminHandler(reaper, cfg.Retention.AdminToken),
		collector,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoWithFields("Starting search job server", map[string]interface{}{
			"addr":     cfg.ListenAddr,
			"job_root": store.Root(),
			"backend":  jobRunner.Name(),
		})
		return app.Listen(cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down search job server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	err = g.Wait()
	gateway.Wait()
	reaper.Wait()
	bus.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRunner(cfg *config.Config, store jobstore.Store) (runner.Runner, error) {
	tools := runner.ToolConfig{
		BlastBinary:     cfg.Runner.BlastBinary,
		BlastDB:         cfg.Runner.BlastDB,
		BlastMaxTargets: cfg.Runner.BlastMaxTargets,
		FoldseekBinary:  cfg.Runner.FoldseekBinary,
		FoldseekDB:      cfg.Runner.FoldseekDB,
	}

	switch cfg.Runner.Backend {
	case config.BackendSlurm:
		return runner.NewRunner(runner.RunnerSlurm, &runner.SlurmConfig{
			Tools:         tools,
			Store:         store,
			Sbatch:        cfg.Runner.Slurm.Sbatch,
			Squeue:        cfg.Runner.Slurm.Squeue,
			Partition:     cfg.Runner.Slurm.Partition,
			TimeLimit:     cfg.Runner.Slurm.TimeLimit,
			JobNamePrefix: cfg.Runner.Slurm.JobNamePrefix,
		})
	default:
		return runner.NewRunner(runner.RunnerLocal, &runner.LocalConfig{
			Tools: tools,
			Store: store,
		})
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	if code >= fiber.StatusInternalServerError {
		logger.ErrorWithFields("Unhandled request error", map[string]interface{}{
			"path":  c.Path(),
			"error": err.Error(),
		})
		return c.Status(code).JSON(types.ServerErrorResponse(handlers.ErrMsgServerError))
	}
	return c.Status(code).JSON(types.SlugResponse{Slug: types.ErrorSlug, Error: err.Error()})
}
