package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studiodesk_backend/internal/quotes/alerts"
	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/platform/apperr"
)

const quoteNotFoundMessage = "quote request not found"

// event_time is stored as TIME; it is selected as text and parsed into the
// TimeOfDay value type so no pg-specific time handling leaks upward.
const quoteColumns = `id, created_at, updated_at, client_name, client_email, client_phone,
		company_name, event_type, event_date, event_time::text, event_location,
		budget_range, project_description, referral_source, selected_services,
		has_conflict, status, quoted_amount, quote_details, assigned_to,
		cancellation_reason, quote_sent_at, cancelled_at, valid_until`

// querier is satisfied by both the pool and a transaction, so slot queries
// can run inside the creation lock.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo implements the quote repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new quote repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

var (
	activeStatuses = statusStrings(domain.ActiveStatuses)
	staleStatuses  = statusStrings([]domain.Status{domain.StatusPending, domain.StatusRejected})
)

func scanQuote(row pgx.Row) (domain.Quote, error) {
	var q domain.Quote
	var eventTime *string
	var status string
	if err := row.Scan(
		&q.ID, &q.CreatedAt, &q.UpdatedAt,
		&q.ClientName, &q.ClientEmail, &q.ClientPhone, &q.Company,
		&q.EventType, &q.EventDate, &eventTime, &q.EventLocation,
		&q.BudgetRange, &q.ProjectDescription, &q.ReferralSource,
		&q.SelectedServices, &q.HasConflict, &status,
		&q.QuotedAmount, &q.QuoteDetails, &q.AssignedTo,
		&q.CancellationReason, &q.QuoteSentAt, &q.CancelledAt, &q.ValidUntil,
	); err != nil {
		return domain.Quote{}, err
	}
	q.Status = domain.Status(status)
	if eventTime != nil {
		tod, err := domain.ParseTimeOfDay(*eventTime)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("parse stored event_time: %w", err)
		}
		q.EventTime = &tod
	}
	return q, nil
}

func scanQuotes(rows pgx.Rows) ([]domain.Quote, error) {
	defer rows.Close()
	items := make([]domain.Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		items = append(items, q)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate quotes: %w", rows.Err())
	}
	return items, nil
}

func eventTimeParam(q *domain.Quote) *string {
	if q.EventTime == nil {
		return nil
	}
	s := q.EventTime.String()
	return &s
}

// slotKey is the advisory lock key for one (date, time) slot. hashtext folds
// it to the int the lock call needs.
func slotKey(date time.Time, t domain.TimeOfDay) string {
	return fmt.Sprintf("quote_slot:%s:%s", date.Format("2006-01-02"), t)
}

func (r *Repo) insert(ctx context.Context, db querier, q *domain.Quote) (domain.Quote, error) {
	query := fmt.Sprintf(`
		INSERT INTO quote_requests (
			client_name, client_email, client_phone, company_name, event_type,
			event_date, event_time, event_location, budget_range,
			project_description, referral_source, selected_services,
			has_conflict, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7::time, $8, $9, $10, $11, $12, $13, $14)
		RETURNING %s`, quoteColumns)

	created, err := scanQuote(db.QueryRow(ctx, query,
		q.ClientName, q.ClientEmail, q.ClientPhone, q.Company, q.EventType,
		q.EventDate, eventTimeParam(q), q.EventLocation, q.BudgetRange,
		q.ProjectDescription, q.ReferralSource, q.SelectedServices,
		q.HasConflict, string(q.Status),
	))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("insert quote: %w", err)
	}
	return created, nil
}

// ActiveQuotesAt implements scheduling.SlotReader.
func (r *Repo) ActiveQuotesAt(ctx context.Context, date time.Time, t domain.TimeOfDay, excludeID uuid.UUID) ([]domain.Quote, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM quote_requests
		WHERE event_date = $1 AND event_time = $2::time
			AND status = ANY($3) AND id <> $4
		ORDER BY created_at ASC`, quoteColumns)

	rows, err := r.pool.Query(ctx, query, date, t.String(), activeStatuses, excludeID)
	if err != nil {
		return nil, fmt.Errorf("query slot quotes: %w", err)
	}
	return scanQuotes(rows)
}

// CreateLocked inserts the quote. A slot-bearing quote takes a transaction
// scoped advisory lock on its (date, time) and redoes the conflict check
// under it, closing the race where two concurrent submissions both see the
// slot free.
func (r *Repo) CreateLocked(ctx context.Context, q *domain.Quote) (domain.Quote, []domain.Quote, error) {
	if !q.HasSlot() {
		q.HasConflict = false
		created, err := r.insert(ctx, r.pool, q)
		return created, nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Quote{}, nil, fmt.Errorf("begin create quote: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slotKey(*q.EventDate, *q.EventTime)); err != nil {
		return domain.Quote{}, nil, fmt.Errorf("lock slot: %w", err)
	}

	conflicting, err := r.slotQuotesTx(ctx, tx, *q.EventDate, *q.EventTime)
	if err != nil {
		return domain.Quote{}, nil, err
	}

	q.HasConflict = len(conflicting) > 0
	created, err := r.insert(ctx, tx, q)
	if err != nil {
		return domain.Quote{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Quote{}, nil, fmt.Errorf("commit create quote: %w", err)
	}
	return created, conflicting, nil
}

func (r *Repo) slotQuotesTx(ctx context.Context, tx pgx.Tx, date time.Time, t domain.TimeOfDay) ([]domain.Quote, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM quote_requests
		WHERE event_date = $1 AND event_time = $2::time AND status = ANY($3)
		ORDER BY created_at ASC`, quoteColumns)

	rows, err := tx.Query(ctx, query, date, t.String(), activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("query slot quotes: %w", err)
	}
	return scanQuotes(rows)
}

// GetByID retrieves a quote by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Quote, error) {
	query := fmt.Sprintf(`SELECT %s FROM quote_requests WHERE id = $1`, quoteColumns)
	q, err := scanQuote(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quote{}, apperr.NotFound(quoteNotFoundMessage)
		}
		return domain.Quote{}, fmt.Errorf("get quote by id: %w", err)
	}
	return q, nil
}

// GetByIDs retrieves quotes by their IDs. Missing IDs are silently omitted.
func (r *Repo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Quote, error) {
	if len(ids) == 0 {
		return []domain.Quote{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM quote_requests WHERE id = ANY($1) ORDER BY created_at ASC`, quoteColumns)
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get quotes by ids: %w", err)
	}
	return scanQuotes(rows)
}

// List lists quotes with filters and pagination, newest first.
func (r *Repo) List(ctx context.Context, params ListQuotesParams) ([]domain.Quote, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if len(params.Statuses) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("status = ANY($%d)", argIdx))
		args = append(args, statusStrings(params.Statuses))
		argIdx++
	}
	if params.DateFrom != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("event_date >= $%d", argIdx))
		args = append(args, *params.DateFrom)
		argIdx++
	}
	if params.DateTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("event_date <= $%d", argIdx))
		args = append(args, *params.DateTo)
		argIdx++
	}
	if params.AssignedTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("assigned_to = $%d", argIdx))
		args = append(args, *params.AssignedTo)
		argIdx++
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(client_name ILIKE $%d OR client_email ILIKE $%d OR event_type ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM quote_requests WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotes: %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM quote_requests
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, quoteColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotes: %w", err)
	}
	items, err := scanQuotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update persists every mutable field of the quote.
func (r *Repo) Update(ctx context.Context, q *domain.Quote) (domain.Quote, error) {
	query := fmt.Sprintf(`
		UPDATE quote_requests
		SET client_name = $2,
			client_email = $3,
			client_phone = $4,
			company_name = $5,
			event_type = $6,
			event_date = $7,
			event_time = $8::time,
			event_location = $9,
			budget_range = $10,
			project_description = $11,
			referral_source = $12,
			selected_services = $13,
			has_conflict = $14,
			status = $15,
			quoted_amount = $16,
			quote_details = $17,
			assigned_to = $18,
			cancellation_reason = $19,
			quote_sent_at = $20,
			cancelled_at = $21,
			valid_until = $22,
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, quoteColumns)

	updated, err := scanQuote(r.pool.QueryRow(ctx, query,
		q.ID, q.ClientName, q.ClientEmail, q.ClientPhone, q.Company,
		q.EventType, q.EventDate, eventTimeParam(q), q.EventLocation,
		q.BudgetRange, q.ProjectDescription, q.ReferralSource,
		q.SelectedServices, q.HasConflict, string(q.Status),
		q.QuotedAmount, q.QuoteDetails, q.AssignedTo, q.CancellationReason,
		q.QuoteSentAt, q.CancelledAt, q.ValidUntil,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quote{}, apperr.NotFound(quoteNotFoundMessage)
		}
		return domain.Quote{}, fmt.Errorf("update quote: %w", err)
	}
	return updated, nil
}

// Delete deletes a quote.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM quote_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMessage)
	}
	return nil
}

// UpdateConflictFlag refreshes the cached conflict hint.
func (r *Repo) UpdateConflictFlag(ctx context.Context, id uuid.UUID, hasConflict bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quote_requests SET has_conflict = $2, updated_at = now() WHERE id = $1`,
		id, hasConflict)
	if err != nil {
		return fmt.Errorf("update conflict flag: %w", err)
	}
	return nil
}

// UpdateSnapshots replaces the stored service snapshots.
func (r *Repo) UpdateSnapshots(ctx context.Context, id uuid.UUID, snapshots []domain.ServiceSnapshot) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quote_requests SET selected_services = $2, updated_at = now() WHERE id = $1`,
		id, snapshots)
	if err != nil {
		return fmt.Errorf("update snapshots: %w", err)
	}
	return nil
}

// BulkDelete deletes the given quotes and returns how many rows went away.
func (r *Repo) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM quote_requests WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete quotes: %w", err)
	}
	return result.RowsAffected(), nil
}

// BulkUpdateStatus sets the status on the given quotes. Transition
// validation happens in the service layer before this is called.
func (r *Repo) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.Status) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE quote_requests SET status = $2, updated_at = now() WHERE id = ANY($1)`,
		ids, string(status))
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteStale removes pending and rejected quotes created before cutoff.
func (r *Repo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM quote_requests WHERE created_at < $1 AND status = ANY($2)`,
		cutoff, staleStatuses)
	if err != nil {
		return 0, fmt.Errorf("delete stale quotes: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteExcessOn removes active quotes on the date beyond the first keep by
// creation order, so the earliest submissions survive a cleanup.
func (r *Repo) DeleteExcessOn(ctx context.Context, date time.Time, keep int) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM quote_requests WHERE id IN (
			SELECT id FROM quote_requests
			WHERE event_date = $1 AND status = ANY($2)
			ORDER BY created_at ASC
			OFFSET $3
		)`, date, activeStatuses, keep)
	if err != nil {
		return 0, fmt.Errorf("delete excess quotes: %w", err)
	}
	return result.RowsAffected(), nil
}

// CountActiveOn implements scheduling.SlotReader.
func (r *Repo) CountActiveOn(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quote_requests WHERE event_date = $1 AND status = ANY($2)`,
		date, activeStatuses).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count quotes on date: %w", err)
	}
	return count, nil
}

// BusyDays implements alerts.Store.
func (r *Repo) BusyDays(ctx context.Context, ceiling int) ([]alerts.BusyDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_date, COUNT(*) AS quote_count
		FROM quote_requests
		WHERE event_date IS NOT NULL AND status = ANY($1)
		GROUP BY event_date
		HAVING COUNT(*) > $2
		ORDER BY event_date ASC`, activeStatuses, ceiling)
	if err != nil {
		return nil, fmt.Errorf("query busy days: %w", err)
	}
	defer rows.Close()

	var out []alerts.BusyDay
	for rows.Next() {
		var day alerts.BusyDay
		if err := rows.Scan(&day.Date, &day.Count); err != nil {
			return nil, fmt.Errorf("scan busy day: %w", err)
		}
		out = append(out, day)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate busy days: %w", rows.Err())
	}
	return out, nil
}

// ActiveQuotesOn implements alerts.Store.
func (r *Repo) ActiveQuotesOn(ctx context.Context, date time.Time) ([]domain.Quote, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM quote_requests
		WHERE event_date = $1 AND status = ANY($2)
		ORDER BY created_at ASC`, quoteColumns)

	rows, err := r.pool.Query(ctx, query, date, activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("query quotes on date: %w", err)
	}
	return scanQuotes(rows)
}

// StaleQuotes implements alerts.Store.
func (r *Repo) StaleQuotes(ctx context.Context, cutoff time.Time) ([]domain.Quote, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM quote_requests
		WHERE created_at < $1 AND status = ANY($2)
		ORDER BY created_at ASC`, quoteColumns)

	rows, err := r.pool.Query(ctx, query, cutoff, staleStatuses)
	if err != nil {
		return nil, fmt.Errorf("query stale quotes: %w", err)
	}
	return scanQuotes(rows)
}

// StatusCounts implements alerts.Store.
func (r *Repo) StatusCounts(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM quote_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.Status(status)] = count
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate status counts: %w", rows.Err())
	}
	return counts, nil
}
