package service

import (
	"context"
	"log/slog"
)

// LogNotifier reports operation outcomes through a logger. Used by
// non-interactive front ends.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, e Event) {
	if n.Logger == nil {
		return
	}
	if e.Success {
		n.Logger.InfoContext(ctx, e.Summary, "op", e.Operation)
		return
	}
	n.Logger.WarnContext(ctx, e.Summary, "op", e.Operation)
}
