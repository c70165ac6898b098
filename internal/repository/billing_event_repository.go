package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BillingEventRepository records processed provider event ids so duplicate
// webhook deliveries are applied at most once.
type BillingEventRepository interface {
	// MarkProcessed records the event id and reports whether this call was
	// the first to do so. False means a duplicate delivery.
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

type billingEventRepository struct {
	pool *pgxpool.Pool
}

// NewBillingEventRepository returns a Postgres-backed implementation.
func NewBillingEventRepository(pool *pgxpool.Pool) BillingEventRepository {
	return &billingEventRepository{pool: pool}
}

func (r *billingEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	const query = `
        INSERT INTO processed_billing_events (event_id, event_type)
        VALUES ($1, $2)
        ON CONFLICT (event_id) DO NOTHING`

	cmd, err := r.pool.Exec(ctx, query, eventID, eventType)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
