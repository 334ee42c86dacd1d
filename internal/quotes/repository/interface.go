// Package repository persists quote requests and answers the slot queries
// the scheduling rules are built on.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"studiodesk_backend/internal/quotes/alerts"
	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/quotes/scheduling"
)

// ListQuotesParams filters and paginates quote listings. Zero values mean
// "no filter". Conflict filtering happens above the repository because the
// flag is recomputed on every read.
type ListQuotesParams struct {
	Statuses   []domain.Status
	DateFrom   *time.Time
	DateTo     *time.Time
	AssignedTo *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

// Repository is the persistence interface for quote requests. It embeds the
// read ports of the scheduling and alert layers so one store serves all
// three.
type Repository interface {
	scheduling.SlotReader
	alerts.Store

	// CreateLocked inserts the quote. When the quote occupies a slot the
	// insert runs under an advisory lock on (date, time) and the conflict
	// check is redone inside the same transaction, so two concurrent
	// submissions for one slot cannot both observe it free. The stored
	// has_conflict flag and the returned conflicting set reflect that
	// serialized check.
	CreateLocked(ctx context.Context, q *domain.Quote) (domain.Quote, []domain.Quote, error)

	GetByID(ctx context.Context, id uuid.UUID) (domain.Quote, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Quote, error)
	List(ctx context.Context, params ListQuotesParams) ([]domain.Quote, int, error)
	Update(ctx context.Context, q *domain.Quote) (domain.Quote, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateConflictFlag refreshes the cached has_conflict hint. Callers
	// treat failures as non-fatal; reads stay correct without the cache.
	UpdateConflictFlag(ctx context.Context, id uuid.UUID, hasConflict bool) error

	// UpdateSnapshots replaces the stored service snapshots, used when a
	// read finds them unpriced and re-enriches from the live catalog.
	UpdateSnapshots(ctx context.Context, id uuid.UUID, snapshots []domain.ServiceSnapshot) error

	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
	BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.Status) (int64, error)

	// DeleteStale removes pending and rejected quotes created before cutoff.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteExcessOn removes active quotes on the date beyond the first
	// keep by creation order. Returns 0 when the day is not overcrowded.
	DeleteExcessOn(ctx context.Context, date time.Time, keep int) (int64, error)
}
