// Package history records the outcome of every ride submission.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Submission is one recorded dispatch attempt.
type Submission struct {
	ID             uuid.UUID
	SessionID      string
	ClientID       string
	FareID         string
	ProductID      string
	RideType       string
	ScheduledFor   *time.Time
	Status         string
	Code           *string
	Message        string
	WebhookStatus  *string
	WebhookMessage *string
	SubmittedBy    uuid.UUID
	CreatedAt      time.Time
}

// ListParams filters and pages the history.
type ListParams struct {
	ClientID string
	Status   string
	Page     int
	PageSize int
}

// ListResult is one page of history.
type ListResult struct {
	Items      []Submission
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Store persists submissions.
type Store interface {
	Insert(ctx context.Context, s Submission) error
	List(ctx context.Context, params ListParams) (ListResult, error)
}

// Repository provides database operations for ride submissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new history repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, s Submission) error {
	query := `
		INSERT INTO ride_submissions (
			id, session_id, client_id, fare_id, product_id, ride_type, scheduled_for,
			status, code, message, webhook_status, webhook_message, submitted_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		s.ID, s.SessionID, s.ClientID, s.FareID, s.ProductID, s.RideType, s.ScheduledFor,
		s.Status, s.Code, s.Message, s.WebhookStatus, s.WebhookMessage, s.SubmittedBy, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ride submission: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	baseQuery := `
		FROM ride_submissions
		WHERE ($1::text IS NULL OR client_id = $1)
			AND ($2::text IS NULL OR status = $2)
	`
	args := []interface{}{optionalText(params.ClientID), optionalText(params.Status)}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count ride submissions: %w", err)
	}

	selectQuery := `
		SELECT id, session_id, client_id, fare_id, product_id, ride_type, scheduled_for,
			status, code, message, webhook_status, webhook_message, submitted_by, created_at
		` + baseQuery + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list ride submissions: %w", err)
	}
	defer rows.Close()

	items := make([]Submission, 0)
	for rows.Next() {
		var s Submission
		if err := rows.Scan(
			&s.ID,
			&s.SessionID,
			&s.ClientID,
			&s.FareID,
			&s.ProductID,
			&s.RideType,
			&s.ScheduledFor,
			&s.Status,
			&s.Code,
			&s.Message,
			&s.WebhookStatus,
			&s.WebhookMessage,
			&s.SubmittedBy,
			&s.CreatedAt,
		); err != nil {
			return ListResult{}, fmt.Errorf("scan ride submission: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate ride submissions: %w", err)
	}

	return ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// DeleteBefore removes successful submissions created before successBefore
// and failed ones created before failureBefore.
func (r *Repository) DeleteBefore(ctx context.Context, successBefore, failureBefore time.Time) (int64, error) {
	query := `
		DELETE FROM ride_submissions
		WHERE (status = 'success' AND created_at < $1)
			OR (status = 'failure' AND created_at < $2)
	`
	tag, err := r.pool.Exec(ctx, query, successBefore, failureBefore)
	if err != nil {
		return 0, fmt.Errorf("delete ride submissions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func optionalText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

var _ Store = (*Repository)(nil)
