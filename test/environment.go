package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/domainbrowser/searchjobs/internal/api/v1/middleware"
	"github.com/domainbrowser/searchjobs/internal/db/dbtest"
	"github.com/domainbrowser/searchjobs/internal/db/repos"
	"github.com/domainbrowser/searchjobs/internal/events"
	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/internal/services"
	"github.com/domainbrowser/searchjobs/internal/types"
	"github.com/domainbrowser/searchjobs/pkg/api/v1/client"
	"github.com/domainbrowser/searchjobs/pkg/api/v1/handlers"
	"github.com/domainbrowser/searchjobs/pkg/api/v1/routes"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// TestEnvironment encapsulates all components needed for end-to-end testing.
// It provides a complete test setup with:
//   - In-memory domain store
//   - Temporary job root
//   - Real services behind a real API server and client
//   - Scripted runner and static structure fetcher
type TestEnvironment struct {
	t *testing.T

	// Server components
	App    *fiber.App
	Server *httptest.Server

	// Client components
	APIClient client.Client

	// Storage components
	DB      *gorm.DB
	Domains *repos.DomainRepository
	Store   *jobstore.FileStore

	// Collaborators
	Runner  *ScriptedRunner
	Fetcher *StaticFetcher
	Bus     *events.Bus
	Metrics *metrics.Collector

	// Services
	Gateway *services.Gateway
	Status  *services.Status
	Reaper  *services.Reaper

	adminToken string
	retention  time.Duration
	withServer bool

	ctx        context.Context
	cancelFunc context.CancelFunc

	cleanup func()
}

// WithServer returns an option that serves the API over HTTP and
// connects APIClient to it.
func WithServer() Option {
	return func(env *TestEnvironment) {
		env.withServer = true
	}
}

// NewTestEnvironment creates a new test environment with the given options.
// The environment must be cleaned up after use by calling Cleanup.
func NewTestEnvironment(t *testing.T, opts ...Option) *TestEnvironment {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)

	env := &TestEnvironment{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
	}

	store, err := jobstore.NewFileStore(t.TempDir())
	require.NoError(t, err, "Failed to create job store")
	env.Store = store
	env.DB = dbtest.NewSQLite(t)
	env.Domains = repos.NewDomainRepository(env.DB)
	env.Runner = NewScriptedRunner(store)
	env.Fetcher = NewStaticFetcher()
	env.Metrics = metrics.NewCollector()

	for _, opt := range opts {
		opt(env)
	}

	env.setupServices()
	if env.withServer {
		env.setupServer()
	}

	// Stop order: server, context, then everything draining on it
	inner := env.cleanup
	env.cleanup = func() {
		if inner != nil {
			inner()
		}
		if env.Server != nil {
			env.Server.Close()
		}
		env.cancelFunc()
		env.Gateway.Wait()
		env.Reaper.Wait()
		env.Bus.Wait()
	}
	return env
}

func (e *TestEnvironment) setupServices() {
	e.Bus = events.NewBus(events.EventChannelSize)
	e.Metrics.Subscribe(e.Bus)
	e.Bus.Start(e.ctx)

	correlator := services.NewCorrelatorService(e.Domains, e.Metrics)
	e.Gateway = services.NewGatewayService(services.GatewayOptions{
		Store:   e.Store,
		Runner:  e.Runner,
		Fetcher: e.Fetcher,
		Bus:     e.Bus,
	})
	e.Status = services.NewStatusService(services.StatusOptions{
		Store:      e.Store,
		Correlator: correlator,
		Metrics:    e.Metrics,
	})
	e.Reaper = services.NewReaperService(services.ReaperOptions{
		Store:   e.Store,
		Horizon: e.retention,
		Bus:     e.Bus,
		Metrics: e.Metrics,
	})
}

func (e *TestEnvironment) setupServer() {
	e.App = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	e.App.Use(middleware.Logger())

	routes.RegisterRoutes(
		e.App,
		handlers.NewJobHandler(e.Gateway, e.Status),
		handlers.NewAdminHandler(e.Reaper, e.adminToken),
		e.Metrics,
	)

	e.Server = httptest.NewServer(adaptor.FiberApp(e.App))

	apiClient, err := client.NewClient(&client.Options{
		BaseURL: e.Server.URL,
		Timeout: testClientTimeout,
	})
	e.Require().NoError(err, "Failed to create API client")
	e.APIClient = apiClient
}

// Context returns the environment's context, which is automatically
// canceled when the environment is cleaned up.
func (e *TestEnvironment) Context() context.Context {
	return e.ctx
}

// Cleanup tears down the test environment, releasing all resources.
// This should be deferred immediately after creating the environment.
func (e *TestEnvironment) Cleanup() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// Require returns a require.Assertions instance for this environment.
func (e *TestEnvironment) Require() *require.Assertions {
	return require.New(e.t)
}

// T returns the testing.T instance for this environment.
func (e *TestEnvironment) T() *testing.T {
	return e.t
}

// WaitForStatus polls the API until the job leaves the pending and
// running states or the environment context ends.
func (e *TestEnvironment) WaitForStatus(jobID string) (types.StatusResponse, error) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		resp, err := e.APIClient.GetJob(e.ctx, jobID)
		if err != nil {
			return resp, err
		}
		if resp.Status.IsTerminal() {
			return resp, nil
		}
		select {
		case <-e.ctx.Done():
			return resp, e.ctx.Err()
		case <-ticker.C:
		}
	}
}
