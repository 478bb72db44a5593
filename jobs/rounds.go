package jobs

import (
	"context"
	"time"

	"lotto/logger"
	"lotto/services"
)

// StartRoundScheduler opens and closes rounds by their timestamps every
// interval until ctx is done.
func StartRoundScheduler(ctx context.Context, rounds *services.RoundService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				opened, closed, err := rounds.AdvanceSchedule(ctx, now.UTC())
				if err != nil {
					logger.Error(ctx).Err(err).Msg("round scheduler failed")
					continue
				}
				if opened+closed > 0 {
					logger.Info(ctx).Int("opened", opened).Int("closed", closed).Msg("round schedule advanced")
				}
			}
		}
	}()
}
