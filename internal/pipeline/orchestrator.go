// Package pipeline runs the background loops of the auction service: the
// clock sweep that closes expired auctions and the cold-storage archiver.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/auprolis-code/auprolis/internal/auction"
	"github.com/auprolis-code/auprolis/internal/notify"
)

// Orchestrator manages the background goroutines: the auction clock sweep
// and cold-storage archival.
type Orchestrator struct {
	clock         *auction.Clock
	archiver      *Archiver
	alerts        *notify.Alerts
	sweepInterval time.Duration
	archiveCron   string
	logger        *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. archiver may be nil when blob
// storage is not configured; the archive loop is skipped in that case.
// alerts may be nil when no operator channels are configured.
func NewOrchestrator(
	clock *auction.Clock,
	archiver *Archiver,
	alerts *notify.Alerts,
	sweepInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		clock:         clock,
		archiver:      archiver,
		alerts:        alerts,
		sweepInterval: sweepInterval,
		archiveCron:   archiveCron,
		logger:        logger,
	}
}

// Run starts the background loops as concurrent goroutines using an errgroup.
// Each goroutine respects ctx cancellation. If any goroutine returns a
// non-context error, the errgroup cancels the shared context and Run returns
// that error.
//
// The sweep is a safety net: bid submissions already close expired auctions
// lazily, so the interval bounds how stale an idle auction's status can be,
// not the correctness of bid rejection.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("sweep_interval", o.sweepInterval),
		slog.String("archive_cron", o.archiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.logger.Info("starting auction clock sweep loop")
		err := o.clock.RunLoop(ctx, o.sweepInterval)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("auction clock: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			o.logger.Info("starting archiver cron")
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		o.alertError(err)
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}

// alertError pages operators about a dead background loop. The errgroup
// context is already cancelled at this point, so the alert gets its own
// deadline.
func (o *Orchestrator) alertError(err error) {
	if o.alerts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if alertErr := o.alerts.Error(ctx, "pipeline", err); alertErr != nil {
		o.logger.Error("pipeline error alert failed", slog.String("error", alertErr.Error()))
	}
}
