package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasksync/internal/cli/formatter"
	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/ordering"
	"github.com/alexanderramin/tasksync/internal/recurrence"
	"github.com/alexanderramin/tasksync/internal/service"
)

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Tasks.Refresh(cmd.Context())
		},
	}

	cmd.AddCommand(
		newTaskAddCmd(app),
		newTaskUpdateCmd(app),
		newTaskDoneCmd(app),
		newTaskSkipCmd(app),
		newTaskDeleteCmd(app),
		newTaskArchiveCmd(app),
		newTaskMoveCmd(app),
		newTaskListCmd(app),
		newTaskShowCmd(app),
	)

	return cmd
}

func newTaskAddCmd(app *App) *cobra.Command {
	var desc, notes, link, image, section, parent, due, remindAt, recur, priority string
	var order int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.NewTask{
				Description:   desc,
				Notes:         notes,
				Link:          link,
				ImageURL:      image,
				Priority:      domain.PriorityMedium,
				RecurringType: domain.RecurNone,
			}
			flags := cmd.Flags()
			in.SectionID, _ = optionalRef(flags, "section", section)
			in.ParentTaskID, _ = optionalRef(flags, "parent", parent)
			if flags.Changed("order") {
				in.Order = &order
			}
			if flags.Changed("priority") {
				p, err := parsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			if flags.Changed("recur") {
				r, err := parseRecurring(recur)
				if err != nil {
					return err
				}
				in.RecurringType = r
			}
			if flags.Changed("due") {
				d, err := parseDate(due)
				if err != nil {
					return err
				}
				in.DueDate = &d
			}
			if flags.Changed("remind-at") {
				at, err := parseDateTime(remindAt)
				if err != nil {
					return err
				}
				in.RemindAt = &at
			}

			t, err := app.Tasks.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s (%s)\n", t.Description, t.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&desc, "desc", "", "Task description")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&link, "link", "", "Related URL")
	cmd.Flags().StringVar(&image, "image", "", "Attachment path or URL")
	cmd.Flags().StringVar(&section, "section", "", "Section ID")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent task ID")
	cmd.Flags().IntVar(&order, "order", 0, "Position within the sibling group (default top)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&remindAt, "remind-at", "", "Reminder time (YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().StringVar(&recur, "recur", "", "Recurrence (none|daily|weekly|monthly|yearly)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent)")
	_ = cmd.MarkFlagRequired("desc")

	return cmd
}

func newTaskUpdateCmd(app *App) *cobra.Command {
	var desc, notes, link, image, category, status, priority, due, remindAt, recur string
	var clearDue, clearRemind, clearCategory bool

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a task or a virtual occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var patch domain.TaskPatch
			if flags.Changed("desc") {
				patch.Description = &desc
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			if flags.Changed("link") {
				patch.Link = &link
			}
			if flags.Changed("image") {
				patch.ImageURL = &image
			}
			if flags.Changed("category") {
				patch.CategoryID = &category
			}
			if flags.Changed("status") {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &st
			}
			if flags.Changed("priority") {
				p, err := parsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			if flags.Changed("recur") {
				r, err := parseRecurring(recur)
				if err != nil {
					return err
				}
				patch.RecurringType = &r
			}
			if flags.Changed("due") {
				d, err := parseDate(due)
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			if flags.Changed("remind-at") {
				at, err := parseDateTime(remindAt)
				if err != nil {
					return err
				}
				patch.RemindAt = &at
			}
			patch.ClearDueDate = clearDue
			patch.ClearRemindAt = clearRemind
			patch.ClearCategory = clearCategory
			if patch.IsEmpty() {
				return errors.New("nothing to update: pass at least one field flag")
			}

			t, err := app.Tasks.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s (%s)\n", t.Description, t.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&desc, "desc", "", "Task description")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&link, "link", "", "Related URL")
	cmd.Flags().StringVar(&image, "image", "", "Attachment path or URL")
	cmd.Flags().StringVar(&category, "category", "", "Category ID")
	cmd.Flags().StringVar(&status, "status", "", "Status (to-do|completed|archived|skipped)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&remindAt, "remind-at", "", "Reminder time (YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().StringVar(&recur, "recur", "", "Recurrence (none|daily|weekly|monthly|yearly)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().BoolVar(&clearRemind, "clear-remind", false, "Remove the reminder")
	cmd.Flags().BoolVar(&clearCategory, "clear-category", false, "Remove the category")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	cmd.MarkFlagsMutuallyExclusive("remind-at", "clear-remind")
	cmd.MarkFlagsMutuallyExclusive("category", "clear-category")

	return cmd
}

func newTaskDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Mark a task or occurrence completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := domain.StatusCompleted
			t, err := app.Tasks.Update(cmd.Context(), args[0], domain.TaskPatch{Status: &st})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s (%s)\n", t.Description, t.ID)
			return nil
		},
	}
}

func newTaskSkipCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "skip VIRTUAL_ID",
		Short: "Skip one occurrence of a recurring task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Tasks.SkipOccurrence(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s\n", args[0])
			return nil
		},
	}
}

func newTaskDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete tasks with their subtasks and occurrences",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !app.interactive() {
					return errors.New("refusing to delete without --yes in a non-interactive session")
				}
				title := fmt.Sprintf("Delete %d task(s)?", len(args))
				ok, err := app.confirm(title, "Subtasks and materialized occurrences are removed too.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			var err error
			if len(args) == 1 {
				err = app.Tasks.Delete(cmd.Context(), args[0])
			} else {
				err = app.Tasks.BulkDelete(cmd.Context(), args)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d task(s)\n", len(args))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newTaskArchiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "archive-completed",
		Short: "Archive every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Tasks.ArchiveCompleted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d task(s)\n", n)
			return nil
		},
	}
}

func newTaskMoveCmd(app *App) *cobra.Command {
	var parent, section, over string
	var down bool

	cmd := &cobra.Command{
		Use:   "move ID",
		Short: "Move a task within or across sibling groups",
		Long: `Move a task next to another sibling.

Without --parent or --section the task stays in its current group. Pass an
empty value (--parent "") to move to the top level. With --over the task
lands before that sibling, or after it with --down; without --over it is
appended to the end of the group.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := app.Tasks.Task(args[0])
			if err != nil {
				return err
			}
			req := ordering.MoveRequest{
				ActiveID:       active.ID,
				NewParentID:    active.ParentTaskID,
				NewSectionID:   active.SectionID,
				IsDraggingDown: down,
			}
			flags := cmd.Flags()
			if ref, ok := optionalRef(flags, "parent", parent); ok {
				req.NewParentID = ref
			}
			if ref, ok := optionalRef(flags, "section", section); ok {
				req.NewSectionID = ref
			}
			req.OverID, _ = optionalRef(flags, "over", over)

			if err := app.Tasks.Move(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s\n", active.Description)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "New parent task ID")
	cmd.Flags().StringVar(&section, "section", "", "New section ID")
	cmd.Flags().StringVar(&over, "over", "", "Sibling to drop onto")
	cmd.Flags().BoolVar(&down, "down", false, "Drop after the --over sibling")

	return cmd
}

func newTaskListCmd(app *App) *cobra.Command {
	var from, to, section string
	var days int
	var archived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks with upcoming recurring occurrences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := app.now()
			start := domain.DateOnly(now)
			if cmd.Flags().Changed("from") {
				d, err := parseDate(from)
				if err != nil {
					return err
				}
				start = d
			}
			end := start.AddDate(0, 0, days)
			if cmd.Flags().Changed("to") {
				d, err := parseDate(to)
				if err != nil {
					return err
				}
				end = d
			}
			if end.Before(start) {
				return fmt.Errorf("--to %s is before --from %s", end.Format(dateLayout), start.Format(dateLayout))
			}

			all := app.Tasks.Occurrences(recurrence.NewWindow(start, end))
			shown := make([]*domain.Task, 0, len(all))
			for _, t := range all {
				if !archived && t.Status == domain.StatusArchived {
					continue
				}
				if section != "" && (t.SectionID == nil || *t.SectionID != section) {
					continue
				}
				shown = append(shown, t)
			}
			sortForListing(shown)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTaskList(shown, now))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First occurrence date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&to, "to", "", "Last occurrence date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 7, "Occurrence window length when --to is not set")
	cmd.Flags().StringVar(&section, "section", "", "Only tasks in this section")
	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived tasks")

	return cmd
}

// sortForListing orders persisted tasks by section then sibling order, with
// virtual occurrences after them by date.
func sortForListing(tasks []*domain.Task) {
	sectionOf := func(t *domain.Task) string {
		if t.SectionID == nil {
			return ""
		}
		return *t.SectionID
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.IsVirtual() != b.IsVirtual() {
			return !a.IsVirtual()
		}
		if a.IsVirtual() {
			return a.DueDate.Before(*b.DueDate)
		}
		if sa, sb := sectionOf(a), sectionOf(b); sa != sb {
			return sa < sb
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return strings.Compare(a.ID, b.ID) < 0
	})
}

func newTaskShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.Tasks.Task(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTask(t, app.now()))
			return nil
		},
	}
}
