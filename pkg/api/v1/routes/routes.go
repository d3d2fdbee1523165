// Package routes defines the API routes and URL structure
package routes

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/pkg/api/v1/handlers"
)

/*

To keep this file organized, routes should be organized in the following way:

1. Smallest scope first (i.e. admin routes before job routes)
2. For similar scopes, put the endpoints in alphabetical order
3. Order routes in GET, POST, PUT, DELETE order.
	a. Within this ordering, param urls (ie /:id) should go last, otherwise fiber will interpret the route slug as that param.
	b. After param considerations, order alphabetically.
4. For clarity, naming should match the action (i.e. GetJob, SubmitSequence)

*/

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"
	// APIv1Prefix is the prefix for all API endpoints
	APIv1Prefix = "/api/v1"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Route names for lookup
const (
	// Admin routes
	AdminCleanup = "AdminCleanup"

	// Health check
	HealthCheck = "HealthCheck"

	// Metrics
	Metrics = "Metrics"

	// Job routes
	GetJob          = "GetJob"
	SubmitSequence  = "SubmitSequence"
	SubmitStructure = "SubmitStructure"
)

// routeCache stores extracted routes for use prior to compilation
var (
	routeCache     map[string]string
	routeCacheMu   sync.RWMutex
	routeCacheInit sync.Once
)

// RegisterRoutes configures all the v1 routes
//
// NOTE: route ordering is important because routes will try and match in the order they are registered.
func RegisterRoutes(
	app *fiber.App,
	jobHandler *handlers.JobHandler,
	adminHandler *handlers.AdminHandler,
	collector *metrics.Collector,
) {
	// API v1 routes
	v1 := app.Group(APIv1Prefix)

	// Admin endpoints
	admin := v1.Group("/admin")
	admin.Post("/cleanup", adminHandler.Cleanup).Name(AdminCleanup)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}).Name(HealthCheck)

	// Prometheus scrape endpoint
	if collector != nil {
		app.Get("/metrics", adaptor.HTTPHandler(collector.Handler())).Name(Metrics)
	}

	// Job endpoints
	jobs := v1.Group("/jobs")
	jobs.Get("/:id", jobHandler.GetJob).Name(GetJob)
	jobs.Post("/sequence", jobHandler.SubmitSequence).Name(SubmitSequence)
	jobs.Post("/structure", jobHandler.SubmitStructure).Name(SubmitStructure)
}

// initRouteCache initializes the route cache by creating a mock app and extracting routes
func initRouteCache() {
	routeCacheInit.Do(func() {
		routeCache = make(map[string]string)

		// Create a mock app
		app := fiber.New()

		// Register routes with empty handlers
		RegisterRoutes(app, &handlers.JobHandler{}, &handlers.AdminHandler{}, nil)

		// Extract routes from the app
		for _, route := range app.GetRoutes() {
			if route.Name != "" {
				routeCache[route.Name] = route.Path
			}
		}
	})
}

// GetRoute returns the route pattern for the given route name
func GetRoute(name string) string {
	initRouteCache()

	routeCacheMu.RLock()
	defer routeCacheMu.RUnlock()
	return routeCache[name]
}

// BuildURL builds a URL for the given route name and parameters
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	// Replace parameters in the route
	for param, value := range params {
		route = strings.ReplaceAll(route, ":"+param, url.PathEscape(value))
	}

	// Remove trailing slash if it's a base endpoint with no parameters
	if strings.HasSuffix(route, "/") && !strings.Contains(route, ":") {
		route = strings.TrimSuffix(route, "/")
	}

	// Add query parameters if any
	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

// Admin route helpers

// AdminCleanupURL returns the URL for triggering a retention sweep
func AdminCleanupURL() string {
	return BuildURL(AdminCleanup, nil, nil)
}

// Health check route helper

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// Job route helpers

// GetJobURL returns the URL for getting a job by ID
func GetJobURL(id string) string {
	return BuildURL(GetJob, map[string]string{"id": id}, nil)
}

// SubmitSequenceURL returns the URL for submitting a sequence search
func SubmitSequenceURL() string {
	return BuildURL(SubmitSequence, nil, nil)
}

// SubmitStructureURL returns the URL for submitting a structure search
func SubmitStructureURL() string {
	return BuildURL(SubmitStructure, nil, nil)
}
