package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/taskflow/config"
	"github.com/example/taskflow/modules/auth"
	"github.com/example/taskflow/modules/guard"
	"github.com/example/taskflow/modules/notification"
	"github.com/example/taskflow/modules/task"
	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// HealthChecker is a module whose health the status route reports.
type HealthChecker interface {
	Name() string
	Health(ctx context.Context) mono.HealthStatus
}

// APIModule is the HTTP API module.
type APIModule struct {
	serverConfig config.ServerConfig
	app          *fiber.App
	authAdapter  auth.AuthPort
	taskAdapter  task.TaskPort
	guardModule  *guard.Module
	hub          *notification.Hub
	checks       []HealthChecker
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(serverConfig config.ServerConfig) *APIModule {
	return &APIModule{serverConfig: serverConfig}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "task"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	case "task":
		m.taskAdapter = task.NewTaskAdapter(container)
	}
}

// SetGuardModule sets the in-flight guard used on task mutations.
func (m *APIModule) SetGuardModule(g *guard.Module) {
	m.guardModule = g
}

// SetHub enables the /ws live feed.
func (m *APIModule) SetHub(hub *notification.Hub) {
	m.hub = hub
}

// AddHealthChecks adds modules to the status route. Modules named "task" and
// "auth" back the database connectivity flag.
func (m *APIModule) AddHealthChecks(checks ...HealthChecker) {
	m.checks = append(m.checks, checks...)
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authAdapter == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.taskAdapter == nil {
		return fmt.Errorf("task dependency not set")
	}
	if m.guardModule == nil {
		return fmt.Errorf("guard module not set")
	}

	deps := appDeps{
		corsOrigins: m.serverConfig.CORSOrigins,
		handlers:    NewHandlers(m.authAdapter, m.taskAdapter),
		authAdapter: m.authAdapter,
		cooldown:    m.guardModule.Middleware(ownerFromLocals),
		checks:      m.checks,
	}
	if m.hub != nil {
		deps.feed = NewFeedHandlers(m.hub)
	}
	m.app = newApp(deps)

	addr := m.serverConfig.Addr()
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on %s", addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":      m.serverConfig.Port,
			"live_feed": m.hub != nil,
		},
	}
}

// appDeps is everything the router wires together.
type appDeps struct {
	corsOrigins string
	handlers    *Handlers
	authAdapter auth.AuthPort
	cooldown    *guard.Middleware
	feed        *FeedHandlers // nil disables /ws
	checks      []HealthChecker
}

// newApp builds the Fiber app with all middleware and routes.
func newApp(deps appDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	// Add middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	origins := deps.corsOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization," + TokenHeader,
	}))

	setupRoutes(app, deps)
	return app
}

// setupRoutes configures all API routes.
func setupRoutes(app *fiber.App, deps appDeps) {
	h := deps.handlers

	app.Get("/", statusHandler(deps.checks))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	// Public auth routes
	public := app.Group("/api")
	public.Post("/register", h.Register)
	public.Post("/login", h.Login)
	public.Post("/refresh", h.Refresh)

	v1 := app.Group("/api/v1/auth")
	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Post("/refresh", h.Refresh)

	// Protected routes (require authentication)
	requireAuth := AuthMiddleware(deps.authAdapter)
	app.Get("/api/profile", requireAuth, h.Profile)

	tasks := app.Group("/api/tasks", requireAuth)
	tasks.Get("/", h.ListTasks)
	tasks.Post("/", deps.cooldown.Cooldown("create-task"), h.CreateTask)
	tasks.Post("/sweep", deps.cooldown.Cooldown("sweep"), h.SweepTasks)
	tasks.Get("/:id", h.GetTask)
	tasks.Put("/:id", deps.cooldown.Cooldown("update-task"), h.UpdateTask)
	tasks.Delete("/:id", deps.cooldown.Cooldown("delete-task"), h.DeleteTask)

	if deps.feed != nil {
		app.Use("/ws", FeedAuth(deps.authAdapter))
		app.Get("/ws", websocket.New(deps.feed.HandleFeed))
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: fmt.Sprintf("Route %s not found", c.Path()),
		})
	})
}

// statusHandler reports whether the service and its store are reachable.
func statusHandler(checks []HealthChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		modules := make(map[string]fiber.Map, len(checks))
		stores, storesHealthy := 0, 0
		for _, check := range checks {
			status := check.Health(c.UserContext())
			modules[check.Name()] = fiber.Map{
				"healthy": status.Healthy,
				"message": status.Message,
			}
			if name := check.Name(); name == "task" || name == "auth" {
				stores++
				if status.Healthy {
					storesHealthy++
				}
			}
		}

		return c.JSON(fiber.Map{
			"message": "Task API is running",
			"database": fiber.Map{
				"connected": stores > 0 && stores == storesHealthy,
			},
			"modules": modules,
		})
	}
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("[api] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
