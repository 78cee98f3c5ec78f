package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL,
		description      TEXT NOT NULL,
		notes            TEXT NOT NULL DEFAULT '',
		link             TEXT NOT NULL DEFAULT '',
		category_id      TEXT,
		priority         TEXT NOT NULL DEFAULT 'medium'
		                 CHECK(priority IN ('low','medium','high','urgent')),
		status           TEXT NOT NULL DEFAULT 'to-do'
		                 CHECK(status IN ('to-do','completed','archived','skipped')),
		due_date         TEXT,
		remind_at        TEXT,
		recurring_type   TEXT NOT NULL DEFAULT 'none'
		                 CHECK(recurring_type IN ('none','daily','weekly','monthly','yearly')),
		section_id       TEXT,
		parent_task_id   TEXT,
		sort_order       INTEGER NOT NULL DEFAULT 0,
		original_task_id TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		completed_at     TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_group ON tasks(owner_id, parent_task_id, section_id, sort_order)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_original ON tasks(original_task_id)`,

	`CREATE TABLE IF NOT EXISTS task_skips (
		owner_id     TEXT NOT NULL,
		template_id  TEXT NOT NULL,
		skip_date    TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		PRIMARY KEY (owner_id, template_id, skip_date)
	)`,

	// Attachments arrived after the first release.
	`ALTER TABLE tasks ADD COLUMN image_url TEXT NOT NULL DEFAULT ''`,
}
