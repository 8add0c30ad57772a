package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/ports"
)

// RunSweeper expires idle sessions every interval until ctx is done.
func RunSweeper(ctx context.Context, sweeper ports.SessionSweeper, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
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
		case now := <-ticker.C:
			expired, err := sweeper.ExpireIdle(ctx, now)
			if err != nil {
				logger.Warn("session_sweep_failed", "error", err)
				continue
			}
			if expired > 0 {
				logger.Info("session_sweep_done", "expired", expired)
			}
		}
	}
}
