package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/example/taskflow/config"
	"github.com/example/taskflow/database"
	domain "github.com/example/taskflow/domain/task"
	"github.com/example/taskflow/modules/api"
	"github.com/example/taskflow/modules/auth"
	"github.com/example/taskflow/modules/guard"
	"github.com/example/taskflow/modules/notification"
	"github.com/example/taskflow/modules/sweep"
	"github.com/example/taskflow/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "Personal task manager with deadline tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("TASKFLOW_CONFIG"),
		"Path to a YAML config file (env TASKFLOW_CONFIG)")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(sweepCmd(&configPath))

	return rootCmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, live feed and background sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func sweepCmd(configPath *string) *cobra.Command {
	var today string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue tasks as Expired once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSweep(cmd.Context(), cfg, today, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&today, "today", "", "Day to sweep as of, YYYY-MM-DD (default: current UTC date)")

	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.Println("=== Taskflow ===")

	logLevel := mono.LogLevelInfo
	if cfg.Log.Level == "error" {
		logLevel = mono.LogLevelError
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	taskModule := task.NewModule(cfg.Database)
	authModule := auth.NewModule(cfg.Database, cfg.JWT)
	guardModule := guard.NewModule(cfg.Redis, cfg.Guard)
	notificationModule := notification.NewModule()
	sweepModule := sweep.NewModule(cfg.Sweep)

	apiModule := api.NewModule(cfg.Server)
	apiModule.SetGuardModule(guardModule)
	apiModule.SetHub(notificationModule.GetHub())
	apiModule.AddHealthChecks(taskModule, authModule, guardModule, notificationModule, sweepModule)

	// Register modules with the framework
	// Order: independent modules first, then dependent modules
	app.Register(taskModule)         // Provides task services, emits task events
	app.Register(authModule)         // Provides auth services
	app.Register(guardModule)        // In-flight guard backend
	app.Register(notificationModule) // Consumes task events
	app.Register(sweepModule)        // Depends on task module
	app.Register(apiModule)          // Depends on auth and task modules

	if err := app.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}

// runSweep makes one expiry pass directly against the store. Task events
// are not published because no bus is running.
func runSweep(ctx context.Context, cfg *config.Config, today string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	day := time.Now().UTC()
	if today != "" {
		parsed, err := domain.ParseDate(today)
		if err != nil {
			return fmt.Errorf("invalid --today %q: %w", today, err)
		}
		day = parsed
	}

	db, err := database.Open(cfg.Database, task.Models()...)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if cfg.Sweep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Sweep.Timeout)
		defer cancel()
	}

	service := task.NewService(task.NewRepository(db), nil)
	result, err := service.ExpireOverdue(ctx, day)
	if err != nil {
		return fmt.Errorf("expiry pass failed: %w", err)
	}

	fmt.Fprintf(out, "Expired %d task(s) with a deadline before %s\n", result.Updated, domain.FormatDate(day))
	return nil
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost%s):", cfg.Server.Addr())
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  GET    /                      - Service and database status")
	log.Println("  GET    /health                - Health check")
	log.Println("  POST   /api/register          - Register and get tokens")
	log.Println("  POST   /api/login             - Login and get tokens")
	log.Println("  POST   /api/refresh           - Refresh access token")
	log.Println("")
	log.Println("  Protected Endpoints (Bearer token or x-auth-token):")
	log.Println("  GET    /api/tasks             - List tasks (page, limit, sortField, sortDirection, status, priority, q, date)")
	log.Println("  POST   /api/tasks             - Create a task")
	log.Println("  GET    /api/tasks/:id         - Get a task")
	log.Println("  PUT    /api/tasks/:id         - Update a task")
	log.Println("  DELETE /api/tasks/:id         - Delete a task")
	log.Println("  POST   /api/tasks/sweep       - Expire overdue tasks now")
	log.Println("  GET    /api/profile           - Current user")
	log.Println("  GET    /ws?token=...          - Live task feed")
	log.Println("")
	if cfg.Sweep.Enabled {
		log.Printf("Expiry sweep runs at startup and every %s", cfg.Sweep.Interval)
	} else {
		log.Println("Expiry sweep is disabled")
	}
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
