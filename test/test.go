package test

import (
	"context"
	"time"

	"github.com/domainbrowser/searchjobs/internal/db/models"
)

// DefaultTestTimeout is the default timeout for test environments.
const DefaultTestTimeout = 30 * time.Second

// Option represents a configuration option for the test environment.
type Option func(*TestEnvironment)

// WithTimeout returns an option that sets the test environment timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(env *TestEnvironment) {
		if env.cancelFunc != nil {
			env.cancelFunc()
		}
		env.ctx, env.cancelFunc = context.WithTimeout(context.Background(), timeout)
	}
}

// WithCleanupFunc returns an option that adds a cleanup function to be
// called when the environment is cleaned up.
func WithCleanupFunc(cleanup func()) Option {
	return func(env *TestEnvironment) {
		oldCleanup := env.cleanup
		env.cleanup = func() {
			if cleanup != nil {
				cleanup()
			}
			if oldCleanup != nil {
				oldCleanup()
			}
		}
	}
}

// WithDomains seeds the domain store with the given classifications.
func WithDomains(domains ...models.Domain) Option {
	return func(env *TestEnvironment) {
		if len(domains) == 0 {
			return
		}
		env.Require().NoError(env.DB.Create(&domains).Error, "Failed to seed domains")
	}
}

// WithAdminToken sets the token accepted by the cleanup endpoint.
func WithAdminToken(token string) Option {
	return func(env *TestEnvironment) {
		env.adminToken = token
	}
}

// WithRetention sets the reaper's retention horizon.
func WithRetention(horizon time.Duration) Option {
	return func(env *TestEnvironment) {
		env.retention = horizon
	}
}
