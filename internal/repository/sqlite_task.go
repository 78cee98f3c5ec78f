package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tasksync/internal/db"
	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/google/uuid"
)

// taskColumns is the canonical SELECT column list for tasks.
const taskColumns = `id, owner_id, description, notes, link, image_url, category_id,
		priority, status, due_date, remind_at, recurring_type,
		section_id, parent_task_id, sort_order, original_task_id,
		created_at, updated_at, completed_at`

// SQLiteTaskStore implements TaskStore using a SQLite database.
type SQLiteTaskStore struct {
	db  db.DBTX
	uow db.UnitOfWork
}

// NewSQLiteTaskStore creates a store that reads through conn and runs
// multi-row writes through uow.
func NewSQLiteTaskStore(conn db.DBTX, uow db.UnitOfWork) *SQLiteTaskStore {
	return &SQLiteTaskStore{db: conn, uow: uow}
}

var _ TaskStore = (*SQLiteTaskStore)(nil)

func (r *SQLiteTaskStore) Insert(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	row := t.Clone()
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if err := row.Validate(); err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	now := nowUTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}
	row.Priority = domain.Priority(domain.CoalesceStr(string(row.Priority), string(domain.PriorityMedium)))
	row.Status = domain.TaskStatus(domain.CoalesceStr(string(row.Status), string(domain.StatusTodo)))
	row.RecurringType = domain.RecurringType(domain.CoalesceStr(string(row.RecurringType), string(domain.RecurNone)))

	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		row.ID,
		row.OwnerID,
		row.Description,
		row.Notes,
		row.Link,
		row.ImageURL,
		nullableStrValue(row.CategoryID),
		string(row.Priority),
		string(row.Status),
		nullableTimeToString(row.DueDate, dateLayout),
		nullableTimeToString(row.RemindAt, time.RFC3339),
		string(row.RecurringType),
		nullableStrValue(row.SectionID),
		nullableStrValue(row.ParentTaskID),
		row.Order,
		nullableStrValue(row.OriginalTaskID),
		row.CreatedAt.UTC().Format(time.RFC3339),
		row.UpdatedAt.UTC().Format(time.RFC3339),
		nullableTimeToString(row.CompletedAt, time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	return getTask(ctx, r.db, row.OwnerID, row.ID)
}

func (r *SQLiteTaskStore) Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var updated *domain.Task
	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		t, err := getTask(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := patch.ApplyTo(t, nowUTC()); err != nil {
			return err
		}
		query := `UPDATE tasks SET description = ?, notes = ?, link = ?, image_url = ?, category_id = ?,
			priority = ?, status = ?, due_date = ?, remind_at = ?, recurring_type = ?,
			updated_at = ?, completed_at = ?
			WHERE owner_id = ? AND id = ?`
		_, err = tx.ExecContext(ctx, query,
			t.Description,
			t.Notes,
			t.Link,
			t.ImageURL,
			nullableStrValue(t.CategoryID),
			string(t.Priority),
			string(t.Status),
			nullableTimeToString(t.DueDate, dateLayout),
			nullableTimeToString(t.RemindAt, time.RFC3339),
			string(t.RecurringType),
			t.UpdatedAt.UTC().Format(time.RFC3339),
			nullableTimeToString(t.CompletedAt, time.RFC3339),
			ownerID,
			id,
		)
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SQLiteTaskStore) Delete(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `DELETE FROM tasks WHERE owner_id = ? AND id IN (` + placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting tasks: %w", err)
	}
	return nil
}

func (r *SQLiteTaskStore) SelectByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]*domain.Task, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{ownerID}
	)
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	if filter.SectionID != nil {
		where = append(where, "section_id = ?")
		args = append(args, *filter.SectionID)
	}
	if filter.OriginalTaskID != nil {
		where = append(where, "original_task_id = ?")
		args = append(args, *filter.OriginalTaskID)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY sort_order, created_at, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks by owner: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *SQLiteTaskStore) BatchSetOrder(ctx context.Context, ownerID string, entries []domain.OrderEntry) error {
	if len(entries) == 0 {
		return nil
	}
	updatedAt := nowUTC().Format(time.RFC3339)
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		query := `UPDATE tasks SET sort_order = ?, parent_task_id = ?, section_id = ?, updated_at = ?
			WHERE owner_id = ? AND id = ?`
		for _, e := range entries {
			res, err := tx.ExecContext(ctx, query,
				e.Order,
				nullableStrValue(e.ParentTaskID),
				nullableStrValue(e.SectionID),
				updatedAt,
				ownerID,
				e.ID,
			)
			if err != nil {
				return fmt.Errorf("setting order for task %s: %w", e.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("setting order for task %s: %w", e.ID, err)
			}
			if n == 0 {
				return fmt.Errorf("task %s: %w", e.ID, ErrNotFound)
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getTask(ctx context.Context, conn db.DBTX, ownerID, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ? AND id = ?`
	t, err := scanTask(conn.QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

// scanTask scans a single task from a *sql.Row or *sql.Rows.
func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var priorityStr, statusStr, recurStr string
	var categoryID, sectionID, parentID, originalID sql.NullString
	var dueDateStr, remindAtStr, completedAtStr sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Description, &t.Notes, &t.Link, &t.ImageURL, &categoryID,
		&priorityStr, &statusStr, &dueDateStr, &remindAtStr, &recurStr,
		&sectionID, &parentID, &t.Order, &originalID,
		&createdAtStr, &updatedAtStr, &completedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	t.Priority = domain.Priority(priorityStr)
	t.Status = domain.TaskStatus(statusStr)
	t.RecurringType = domain.RecurringType(recurStr)
	t.CategoryID = nullableStr(categoryID)
	t.SectionID = nullableStr(sectionID)
	t.ParentTaskID = nullableStr(parentID)
	t.OriginalTaskID = nullableStr(originalID)
	t.DueDate = parseNullableTime(dueDateStr, dateLayout)
	t.RemindAt = parseNullableTime(remindAtStr, time.RFC3339)
	t.CompletedAt = parseNullableTime(completedAtStr, time.RFC3339)

	var parseErr error
	t.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	t.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return &t, nil
}
