package cli

import (
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasksync/internal/reminder"
	"github.com/alexanderramin/tasksync/internal/service"
)

// App holds everything the commands need.
type App struct {
	Tasks     service.TaskService
	Reminders *reminder.Scheduler
	Sync      SyncSettings
	Logger    *slog.Logger

	// IsInteractive reports whether stdin is a terminal. Nil means never.
	IsInteractive func() bool
	// Confirm asks a yes/no question. Defaults to a huh form.
	Confirm func(title string) (bool, error)
	// Now is the wall clock. Defaults to time.Now.
	Now func() time.Time
}

// SyncSettings drives the sync command's background jobs.
type SyncSettings struct {
	RefreshInterval  time.Duration
	ReminderInterval time.Duration
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewRootCmd creates the top-level "tasksync" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "tasksync",
		Short:         "Task list with recurring occurrences and optimistic sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTaskCmd(app),
		newSyncCmd(app),
	)

	return root
}
