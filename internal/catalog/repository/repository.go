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

	"studiodesk_backend/platform/apperr"
)

const serviceNotFoundMessage = "service not found"

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

const serviceColumns = `id, category, title, slug, description, price_min, price_max, price_display,
		features, is_active, is_featured, display_order, icon_name, image_key, created_at, updated_at`

// Repo implements the catalog repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanService(row pgx.Row) (Service, error) {
	var svc Service
	var createdAt, updatedAt time.Time
	if err := row.Scan(
		&svc.ID, &svc.Category, &svc.Title, &svc.Slug, &svc.Description,
		&svc.PriceMin, &svc.PriceMax, &svc.PriceDisplay, &svc.Features,
		&svc.IsActive, &svc.IsFeatured, &svc.DisplayOrder, &svc.IconName,
		&svc.ImageKey, &createdAt, &updatedAt,
	); err != nil {
		return Service{}, err
	}
	svc.CreatedAt = createdAt.Format(time.RFC3339)
	svc.UpdatedAt = updatedAt.Format(time.RFC3339)
	return svc, nil
}

// Create creates a service.
func (r *Repo) Create(ctx context.Context, params CreateServiceParams) (Service, error) {
	query := fmt.Sprintf(`
		INSERT INTO services (
			category, title, slug, description, price_min, price_max, price_display,
			features, is_active, is_featured, display_order, icon_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s`, serviceColumns)

	svc, err := scanService(r.pool.QueryRow(ctx, query,
		params.Category, params.Title, params.Slug, params.Description,
		params.PriceMin, params.PriceMax, params.PriceDisplay, params.Features,
		params.IsActive, params.IsFeatured, params.DisplayOrder, params.IconName,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Service{}, apperr.Conflict("a service with this slug already exists")
		}
		return Service{}, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// Update updates a service. Nil params keep the current value.
func (r *Repo) Update(ctx context.Context, params UpdateServiceParams) (Service, error) {
	query := fmt.Sprintf(`
		UPDATE services
		SET category = COALESCE($2, category),
			title = COALESCE($3, title),
			slug = COALESCE($4, slug),
			description = COALESCE($5, description),
			price_min = COALESCE($6, price_min),
			price_max = COALESCE($7, price_max),
			price_display = COALESCE($8, price_display),
			features = COALESCE($9, features),
			is_featured = COALESCE($10, is_featured),
			display_order = COALESCE($11, display_order),
			icon_name = COALESCE($12, icon_name),
			image_key = COALESCE($13, image_key),
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, serviceColumns)

	svc, err := scanService(r.pool.QueryRow(ctx, query,
		params.ID, params.Category, params.Title, params.Slug, params.Description,
		params.PriceMin, params.PriceMax, params.PriceDisplay, params.Features,
		params.IsFeatured, params.DisplayOrder, params.IconName, params.ImageKey,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		if isUniqueViolation(err) {
			return Service{}, apperr.Conflict("a service with this slug already exists")
		}
		return Service{}, fmt.Errorf("update service: %w", err)
	}
	return svc, nil
}

// Delete deletes a service.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(serviceNotFoundMessage)
	}
	return nil
}

// GetByID retrieves a service by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services WHERE id = $1`, serviceColumns)
	svc, err := scanService(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return Service{}, fmt.Errorf("get service by id: %w", err)
	}
	return svc, nil
}

// GetBySlug retrieves a service by slug.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services WHERE slug = $1`, serviceColumns)
	svc, err := scanService(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return Service{}, fmt.Errorf("get service by slug: %w", err)
	}
	return svc, nil
}

// GetByIDs retrieves services by their IDs. Missing IDs are silently omitted.
func (r *Repo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Service, error) {
	if len(ids) == 0 {
		return []Service{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM services WHERE id = ANY($1)`, serviceColumns)
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get services by ids: %w", err)
	}
	defer rows.Close()

	items := make([]Service, 0, len(ids))
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		items = append(items, svc)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate services: %w", rows.Err())
	}
	return items, nil
}

// List lists services with filters and pagination.
func (r *Repo) List(ctx context.Context, params ListServicesParams) ([]Service, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if params.Category != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}
	if params.ActiveOnly {
		whereClauses = append(whereClauses, "is_active = true")
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM services WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM services
		WHERE %s
		ORDER BY display_order ASC, title ASC
		LIMIT $%d OFFSET $%d
	`, serviceColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	items := make([]Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan service: %w", err)
		}
		items = append(items, svc)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate services: %w", rows.Err())
	}

	return items, total, nil
}

// SetActive flips the active flag on a service.
func (r *Repo) SetActive(ctx context.Context, id uuid.UUID, active bool) (Service, error) {
	query := fmt.Sprintf(`
		UPDATE services
		SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, serviceColumns)

	svc, err := scanService(r.pool.QueryRow(ctx, query, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return Service{}, fmt.Errorf("set service active: %w", err)
	}
	return svc, nil
}
