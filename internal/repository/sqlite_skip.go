package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/tasksync/internal/db"
	"github.com/alexanderramin/tasksync/internal/domain"
)

// SQLiteSkipLog implements SkipLog using the task_skips table.
type SQLiteSkipLog struct {
	db db.DBTX
}

func NewSQLiteSkipLog(conn db.DBTX) *SQLiteSkipLog {
	return &SQLiteSkipLog{db: conn}
}

var _ SkipLog = (*SQLiteSkipLog)(nil)

func (r *SQLiteSkipLog) Add(ctx context.Context, ownerID, templateID string, date time.Time) error {
	query := `INSERT OR IGNORE INTO task_skips (owner_id, template_id, skip_date, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, ownerID, templateID,
		domain.DateOnly(date).Format(dateLayout), nowUTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording skip: %w", err)
	}
	return nil
}

func (r *SQLiteSkipLog) Remove(ctx context.Context, ownerID, templateID string, date time.Time) error {
	query := `DELETE FROM task_skips WHERE owner_id = ? AND template_id = ? AND skip_date = ?`
	_, err := r.db.ExecContext(ctx, query, ownerID, templateID, domain.DateOnly(date).Format(dateLayout))
	if err != nil {
		return fmt.Errorf("removing skip: %w", err)
	}
	return nil
}

func (r *SQLiteSkipLog) List(ctx context.Context, ownerID string) ([]SkipKey, error) {
	query := `SELECT template_id, skip_date FROM task_skips WHERE owner_id = ? ORDER BY skip_date`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing skips: %w", err)
	}
	defer rows.Close()

	var keys []SkipKey
	for rows.Next() {
		var templateID, dateStr string
		if err := rows.Scan(&templateID, &dateStr); err != nil {
			return nil, fmt.Errorf("scanning skip: %w", err)
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing skip_date: %w", err)
		}
		keys = append(keys, SkipKey{TemplateID: templateID, Date: date})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating skips: %w", err)
	}
	return keys, nil
}
