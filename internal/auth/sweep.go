// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package auth

import (
	"context"
	"log/slog"
	"time"
)

// SweepExpiredSessions deletes expired sessions from store every interval
// until ctx is cancelled. Failed sweeps are logged and retried on the next
// tick.
func SweepExpiredSessions(ctx context.Context, store SessionStore, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.WarnContext(ctx, "expired session sweep failed",
					"operation", "delete_expired",
					"error", err.Error())
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "expired sessions deleted", "count", n)
			}
		}
	}
}
