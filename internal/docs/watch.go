package docs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Watch runs fn for every target, then again every interval until ctx is
// done. Targets are handled one after another; an error from fn is logged
// and does not stop the loop. Watch returns nil once ctx is cancelled.
func (p *Processor) Watch(ctx context.Context, targets []string, interval time.Duration,
	fn func(ctx context.Context, target string) error,
) error {
	log := p.logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, target := range targets {
			if ctx.Err() != nil {
				return nil
			}

			err := fn(ctx, target)
			if err != nil && ctx.Err() == nil {
				log.Error("watch cycle failed", zap.String("target", target), zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
