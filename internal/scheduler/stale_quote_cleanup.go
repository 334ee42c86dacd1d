package scheduler

import (
	"context"
	"time"

	quotesrepo "studiodesk_backend/internal/quotes/repository"
	"studiodesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultStaleQuoteSweepInterval = time.Hour

// StaleQuoteCleanup periodically removes quote requests that sat in pending
// or rejected for longer than the configured stale age.
type StaleQuoteCleanup struct {
	repo     *quotesrepo.Repo
	log      *logger.Logger
	interval time.Duration
	staleAge time.Duration
}

func NewStaleQuoteCleanup(pool *pgxpool.Pool, log *logger.Logger, interval, staleAge time.Duration) *StaleQuoteCleanup {
	if interval <= 0 {
		interval = defaultStaleQuoteSweepInterval
	}

	return &StaleQuoteCleanup{
		repo:     quotesrepo.New(pool),
		log:      log,
		interval: interval,
		staleAge: staleAge,
	}
}

func (c *StaleQuoteCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *StaleQuoteCleanup) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-c.staleAge)

	deleted, err := c.repo.DeleteStale(ctx, cutoff)
	if err != nil {
		c.log.Warn("stale quote sweep failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("stale quote sweep deleted abandoned requests", "deleted", deleted, "cutoff", cutoff)
	}
}
