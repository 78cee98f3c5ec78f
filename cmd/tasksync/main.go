package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/tasksync/internal/blob"
	"github.com/alexanderramin/tasksync/internal/cache"
	"github.com/alexanderramin/tasksync/internal/cli"
	"github.com/alexanderramin/tasksync/internal/config"
	"github.com/alexanderramin/tasksync/internal/db"
	"github.com/alexanderramin/tasksync/internal/reminder"
	"github.com/alexanderramin/tasksync/internal/repository"
	"github.com/alexanderramin/tasksync/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(os.Stderr, cfg.Log.Level)

	// Open the task store for the configured driver.
	store, skips, closeDB, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	blobs, err := blob.NewFSStore(cfg.Attachments.Dir)
	if err != nil {
		return err
	}

	var deliverer reminder.Deliverer = reminder.LogDeliverer{Logger: logger}
	if cfg.Telegram.Token != "" {
		tg, err := reminder.NewTelegramDeliverer(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("telegram reminders: %w", err)
		}
		deliverer = tg
	}
	reminders := reminder.NewScheduler(deliverer, logger)

	var observer service.UseCaseObserver = service.NoopUseCaseObserver{}
	if cfg.Log.UseCases {
		observer = service.NewLogUseCaseObserver(logger)
	}

	session, err := service.NewSession(service.Options{
		OwnerID:   cfg.OwnerID,
		Store:     store,
		Skips:     skips,
		Blobs:     blobs,
		Reminders: reminders,
		Notifier:  service.LogNotifier{Logger: logger},
		Observer:  observer,
		Logger:    logger,
		Tracker: cache.NewTracker(
			cache.WithSettleWindow(cfg.Engine.SettleWindow),
			cache.WithMaxHold(cfg.Engine.MaxHold),
		),
		StoreTimeout: cfg.Engine.StoreTimeout,
	})
	if err != nil {
		return err
	}

	app := &cli.App{
		Tasks:     session,
		Reminders: reminders,
		Sync: cli.SyncSettings{
			RefreshInterval:  cfg.Sync.RefreshInterval,
			ReminderInterval: cfg.Sync.ReminderInterval,
		},
		Logger: logger,
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

func openStore(cfg *config.Config) (repository.TaskStore, repository.SkipLog, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverGorm:
		gdb, err := repository.NewGormDB(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening database: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(sqlDB); err != nil {
			sqlDB.Close()
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return repository.NewGormTaskStore(gdb), repository.NewSQLiteSkipLog(sqlDB), closer(sqlDB), nil
	default:
		database, err := db.OpenDB(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening database: %w", err)
		}
		uow := db.NewSQLiteUnitOfWork(database)
		return repository.NewSQLiteTaskStore(database, uow), repository.NewSQLiteSkipLog(database), closer(database), nil
	}
}

func closer(database *sql.DB) func() {
	return func() { database.Close() }
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
