package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/tasksync/internal/config"
	"github.com/alexanderramin/tasksync/internal/domain"
	"github.com/alexanderramin/tasksync/internal/repository"
)

func TestOpenStore_BothDrivers(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite, config.DriverGorm} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Database.Driver = driver
			cfg.Database.Path = filepath.Join(t.TempDir(), "tasks.db")

			store, skips, closeDB, err := openStore(cfg)
			require.NoError(t, err)
			defer closeDB()

			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)
			_, err = store.Insert(ctx, &domain.Task{
				ID: "t1", OwnerID: "me", Description: "hello",
				Priority: domain.PriorityMedium, Status: domain.StatusTodo,
				RecurringType: domain.RecurNone, CreatedAt: now, UpdatedAt: now,
			})
			require.NoError(t, err)

			rows, err := store.SelectByOwner(ctx, "me", repository.TaskFilter{})
			require.NoError(t, err)
			require.Len(t, rows, 1)

			require.NoError(t, skips.Add(ctx, "me", "t1", now))
			keys, err := skips.List(ctx, "me")
			require.NoError(t, err)
			assert.Len(t, keys, 1)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.True(t, newLogger(&buf, "debug").Enabled(context.Background(), slog.LevelDebug))
}
