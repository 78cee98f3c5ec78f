package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormTask is the GORM row model for tasks. It lives in its own table so a
// database file can host both backends side by side.
type gormTask struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"index;not null"`
	Description    string `gorm:"not null"`
	Notes          string
	Link           string
	ImageURL       string
	CategoryID     *string
	Priority       string `gorm:"default:medium"`
	Status         string `gorm:"default:to-do"`
	DueDate        *time.Time
	RemindAt       *time.Time
	RecurringType  string `gorm:"default:none"`
	SectionID      *string
	ParentTaskID   *string
	SortOrder      int
	OriginalTaskID *string `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

func (gormTask) TableName() string { return "gorm_tasks" }

// NewGormDB opens a SQLite database through GORM and migrates the task model.
func NewGormDB(dsn string) (*gorm.DB, error) {
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stderr, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open gorm db: %w", err)
	}
	if err := gdb.AutoMigrate(&gormTask{}); err != nil {
		return nil, fmt.Errorf("migrate gorm db: %w", err)
	}
	return gdb, nil
}

// ensureDirForSQLite creates the parent dir for a SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// GormTaskStore implements TaskStore on top of GORM.
type GormTaskStore struct {
	db *gorm.DB
}

func NewGormTaskStore(db *gorm.DB) *GormTaskStore {
	return &GormTaskStore{db: db}
}

var _ TaskStore = (*GormTaskStore)(nil)

func (r *GormTaskStore) Insert(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	row := t.Clone()
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if err := row.Validate(); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	m := toGormTask(row)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return fromGormTask(m), nil
}

func (r *GormTaskStore) Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var updated *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m gormTask
		if err := tx.Where("owner_id = ? AND id = ?", ownerID, id).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("task %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("load task: %w", err)
		}
		t := fromGormTask(m)
		if err := patch.ApplyTo(t, nowUTC()); err != nil {
			return err
		}
		m = toGormTask(t)
		if err := tx.Save(&m).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		updated = fromGormTask(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *GormTaskStore) Delete(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id IN ?", ownerID, ids).
		Delete(&gormTask{}).Error; err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return nil
}

func (r *GormTaskStore) SelectByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]*domain.Task, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.SectionID != nil {
		q = q.Where("section_id = ?", *filter.SectionID)
	}
	if filter.OriginalTaskID != nil {
		q = q.Where("original_task_id = ?", *filter.OriginalTaskID)
	}

	var models []gormTask
	if err := q.Order("sort_order, created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]*domain.Task, 0, len(models))
	for _, m := range models {
		tasks = append(tasks, fromGormTask(m))
	}
	return tasks, nil
}

func (r *GormTaskStore) BatchSetOrder(ctx context.Context, ownerID string, entries []domain.OrderEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			res := tx.Model(&gormTask{}).
				Where("owner_id = ? AND id = ?", ownerID, e.ID).
				Updates(map[string]any{
					"sort_order":     e.Order,
					"parent_task_id": nullableStrValue(e.ParentTaskID),
					"section_id":     nullableStrValue(e.SectionID),
				})
			if res.Error != nil {
				return fmt.Errorf("set order for task %s: %w", e.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("task %s: %w", e.ID, ErrNotFound)
			}
		}
		return nil
	})
}

func toGormTask(t *domain.Task) gormTask {
	return gormTask{
		ID:             t.ID,
		OwnerID:        t.OwnerID,
		Description:    t.Description,
		Notes:          t.Notes,
		Link:           t.Link,
		ImageURL:       t.ImageURL,
		CategoryID:     domain.CloneStr(t.CategoryID),
		Priority:       domain.CoalesceStr(string(t.Priority), string(domain.PriorityMedium)),
		Status:         domain.CoalesceStr(string(t.Status), string(domain.StatusTodo)),
		DueDate:        domain.CloneTime(t.DueDate),
		RemindAt:       domain.CloneTime(t.RemindAt),
		RecurringType:  domain.CoalesceStr(string(t.RecurringType), string(domain.RecurNone)),
		SectionID:      domain.CloneStr(t.SectionID),
		ParentTaskID:   domain.CloneStr(t.ParentTaskID),
		SortOrder:      t.Order,
		OriginalTaskID: domain.CloneStr(t.OriginalTaskID),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		CompletedAt:    domain.CloneTime(t.CompletedAt),
	}
}

func fromGormTask(m gormTask) *domain.Task {
	t := &domain.Task{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		Description:    m.Description,
		Notes:          m.Notes,
		Link:           m.Link,
		ImageURL:       m.ImageURL,
		CategoryID:     m.CategoryID,
		Priority:       domain.Priority(m.Priority),
		Status:         domain.TaskStatus(m.Status),
		DueDate:        m.DueDate,
		RemindAt:       m.RemindAt,
		RecurringType:  domain.RecurringType(m.RecurringType),
		SectionID:      m.SectionID,
		ParentTaskID:   m.ParentTaskID,
		Order:          m.SortOrder,
		OriginalTaskID: m.OriginalTaskID,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
		CompletedAt:    m.CompletedAt,
	}
	if t.DueDate != nil {
		d := domain.DateOnly(*t.DueDate)
		t.DueDate = &d
	}
	return t
}
