package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasksync/internal/recurrence"
	"github.com/alexanderramin/tasksync/internal/schedule"
)

const (
	jobRefresh   = "refresh"
	jobReminders = "reminders"

	// reminderLookahead bounds how far ahead virtual occurrences are
	// considered for reminders.
	reminderLookahead = 2
)

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Keep the task list fresh and deliver reminders until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newSyncRunner(app)
			if err != nil {
				return err
			}
			if err := runner.RunNow(jobRefresh); err != nil {
				return fmt.Errorf("initial refresh: %w", err)
			}

			runner.Start()
			fmt.Fprintf(cmd.OutOrStdout(), "Syncing every %s (Ctrl-C to stop)\n", app.Sync.RefreshInterval)
			<-cmd.Context().Done()
			runner.Stop()
			fmt.Fprintln(cmd.OutOrStdout(), "Stopped.")
			return nil
		},
	}
}

func newSyncRunner(app *App) (*schedule.Runner, error) {
	if app.Sync.RefreshInterval <= 0 {
		return nil, errors.New("sync refresh interval must be positive")
	}
	runner := schedule.NewRunner(app.logger(), time.Local)
	if _, err := runner.Every(jobRefresh, app.Sync.RefreshInterval, app.refreshJob); err != nil {
		return nil, err
	}
	if app.Reminders != nil && app.Sync.ReminderInterval > 0 {
		if _, err := runner.Every(jobReminders, app.Sync.ReminderInterval, app.reminderJob); err != nil {
			return nil, err
		}
	}
	return runner, nil
}

// refreshJob reloads the task list and rebuilds pending reminders from it.
func (a *App) refreshJob(ctx context.Context) error {
	if err := a.Tasks.Refresh(ctx); err != nil {
		return err
	}
	if a.Reminders != nil {
		now := a.now()
		w := recurrence.NewWindow(now, now.AddDate(0, 0, reminderLookahead))
		a.Reminders.Reconcile(a.Tasks.Occurrences(w))
	}
	return nil
}

func (a *App) reminderJob(ctx context.Context) error {
	n, err := a.Reminders.Sweep(ctx, a.now())
	if n > 0 {
		a.logger().InfoContext(ctx, "reminders delivered", "count", n)
	}
	return err
}
