package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/todo/internal/application/jobs"
	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/infrastructure/server"
	"github.com/taskmaster/todo/internal/ports"
)

// Build information, set with -ldflags at release time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// sessionRetention is how long expired or revoked auth sessions are kept.
const sessionRetention = 24 * time.Hour

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the todo API server",
		Long:  "Start the HTTP API with the storage backend selected by storage.mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the remote-mode schema (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(db *database.DB) error {
				applied, err := db.MigrateUp()
				if err != nil {
					return err
				}
				if !applied {
					fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migration up completed successfully")
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(db *database.DB) error {
				applied, err := db.MigrateDown()
				if err != nil {
					return err
				}
				if !applied {
					fmt.Fprintln(cmd.OutOrStdout(), "No migrations to roll back")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migration down completed successfully")
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(db *database.DB) error {
				status, err := db.MigrationVersion()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", status.Version)
				fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", status.Dirty)
				return nil
			})
		},
	})

	return migrateCmd
}

// NewTasksCommand manages the local-mode list from the terminal
func NewTasksCommand() *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with the local task list",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the task list",
		RunE: func(cmd *cobra.Command, args []string) error {
			sortKey, _ := cmd.Flags().GetString("sort")

			return withLocalStore(cmd.Context(), func(app *application, now time.Time) error {
				view := services.BuildView(app.store.Snapshot(), entities.ParseSortKey(sortKey), now)
				printView(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
	listCmd.Flags().String("sort", string(entities.SortNone), "Sort key (none, priority, dueDate, className, completed)")

	addCmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, _ := cmd.Flags().GetString("due")
			at, _ := cmd.Flags().GetString("at")
			priority, _ := cmd.Flags().GetString("priority")
			class, _ := cmd.Flags().GetString("class")

			if due != "" {
				if _, err := time.Parse(entities.DueDateLayout, due); err != nil {
					return fmt.Errorf("invalid --due %q, expected YYYY-MM-DD", due)
				}
			}
			if at != "" {
				if _, _, err := entities.ParseDueTime(at); err != nil {
					return fmt.Errorf("invalid --at %q, expected HH:MM", at)
				}
			}

			return withLocalStore(cmd.Context(), func(app *application, now time.Time) error {
				before := len(app.store.Snapshot().Tasks)
				list := app.store.Add(cmd.Context(), services.AddTaskInput{
					Text:      strings.Join(args, " "),
					DueDate:   due,
					DueTime:   at,
					Priority:  priority,
					ClassName: class,
				})
				if len(list.Tasks) == before {
					return errors.New("task text must not be blank")
				}
				printView(cmd.OutOrStdout(), services.BuildView(list, entities.SortNone, now))
				return nil
			})
		},
	}
	addCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().String("at", "", "Due time (HH:MM)")
	addCmd.Flags().String("priority", string(entities.PriorityMedium), "Priority (low, medium, high)")
	addCmd.Flags().String("class", "", "Class or category")

	tasksCmd.AddCommand(listCmd, addCmd)
	return tasksCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "todo %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, appLogger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize storage", "error", err)
		return err
	}
	defer app.Close()

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	scheduler := jobs.NewScheduler(loc, appLogger)
	reporter := jobs.NewOverdueReporter(app.lists(), app.metrics, loc, appLogger)
	if _, err := scheduler.Every("overdue_reporter", cfg.Jobs.OverdueInterval, reporter.Run); err != nil {
		return err
	}
	if app.authRepo != nil {
		cleaner := jobs.NewSessionCleaner(app.authRepo, sessionRetention, appLogger)
		if _, err := scheduler.Cron("session_cleanup", cfg.Jobs.SessionCleanupSchedule, cleaner.Run); err != nil {
			return err
		}

		idle := cfg.Jobs.SessionIdleTimeout
		if _, err := scheduler.Every("idle_session_eviction", idle, func(ctx context.Context) {
			app.sessions.Evict(idle)
		}); err != nil {
			return err
		}
	}
	reporter.Run(ctx)
	scheduler.Start()
	defer scheduler.Stop()

	srv, err := server.New(cfg, server.Dependencies{
		Store:    app.store,
		Sessions: app.sessions,
		Auth:     app.auth,
		Metrics:  app.metrics,
		Checks:   app.checks,
	}, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize server", "error", err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Errorw("Server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
		return err
	}

	appLogger.Infow("Server stopped")
	return nil
}

func withDatabase(ctx context.Context, fn func(db *database.DB) error) error {
	cfg, appLogger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer appLogger.Close()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(db)
}

func withLocalStore(ctx context.Context, fn func(app *application, now time.Time) error) error {
	cfg, appLogger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer appLogger.Close()

	if cfg.Storage.Mode != config.ModeLocal {
		return fmt.Errorf("tasks commands need storage.mode=%s, got %s", config.ModeLocal, cfg.Storage.Mode)
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app, time.Now().In(loc))
}

func printView(w io.Writer, view ports.ListView) {
	fmt.Fprintf(w, "%s (%d of %d completed)\n", view.Title, view.Stats.Completed, view.Stats.Total)

	for _, task := range view.Tasks {
		mark := " "
		if task.Completed {
			mark = "x"
		}

		line := fmt.Sprintf("[%s] %s  (%s)", mark, task.Text, task.PriorityLabel)
		if task.ClassName != nil {
			line += "  #" + *task.ClassName
		}
		if task.DueDisplay != nil {
			line += "  due " + *task.DueDisplay
			if task.Overdue && !task.Completed {
				line += " (overdue)"
			}
		}
		fmt.Fprintf(w, "%s  %s\n", line, task.ID)
	}
}
