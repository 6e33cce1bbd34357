package dispute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("dispute: not found")
	ErrDuplicateDelivery = errors.New("dispute: webhook delivery already processed")
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertDelivery records a webhook delivery id inside tx. A second insert of
// the same id returns ErrDuplicateDelivery.
func (r *Repository) InsertDelivery(ctx context.Context, tx pgx.Tx, deliveryID, topic string) error {
	_, err := tx.Exec(ctx, `INSERT INTO webhook_deliveries (delivery_id, topic) VALUES ($1, $2)`, deliveryID, topic)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateDelivery
		}
		return fmt.Errorf("dispute: insert delivery: %w", err)
	}
	return nil
}

// UpsertSnapshot stores the latest mapped view of a Shopify dispute.
func (r *Repository) UpsertSnapshot(ctx context.Context, tx pgx.Tx, clientID string, d AppDispute) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("dispute: encode snapshot: %w", err)
	}

	const query = `
		INSERT INTO shopify_disputes (client_id, id, order_id, status, amount, currency, reason, evidence_due_by, payload)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9::jsonb)
		ON CONFLICT (client_id, id) DO UPDATE
		SET order_id = EXCLUDED.order_id,
		    status = EXCLUDED.status,
		    amount = EXCLUDED.amount,
		    currency = EXCLUDED.currency,
		    reason = EXCLUDED.reason,
		    evidence_due_by = EXCLUDED.evidence_due_by,
		    payload = EXCLUDED.payload,
		    updated_at = now()
	`
	if _, err := tx.Exec(ctx, query, clientID, d.ID, d.OrderID, string(d.Status), d.Amount, d.Currency, d.Reason, d.EvidenceDueBy, string(payload)); err != nil {
		return fmt.Errorf("dispute: upsert snapshot: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, clientID string, filters Filters) ([]AppDispute, error) {
	page, size := normalizePage(filters.Page, filters.PageSize)

	query := `
		SELECT payload
		FROM shopify_disputes
		WHERE client_id = $1
	`
	args := []any{clientID}
	if filters.Status != "" {
		query += " AND status = $2"
		args = append(args, string(filters.Status))
	}
	query += fmt.Sprintf(" ORDER BY evidence_due_by ASC NULLS LAST, created_at DESC LIMIT %d OFFSET %d", size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dispute: list: %w", err)
	}
	defer rows.Close()

	out := make([]AppDispute, 0, size)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("dispute: scan: %w", err)
		}
		var d AppDispute
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("dispute: decode snapshot: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate: %w", err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, clientID, disputeID string) (AppDispute, error) {
	const query = `
		SELECT payload
		FROM shopify_disputes
		WHERE client_id = $1 AND id = $2
	`

	var raw []byte
	if err := r.pool.QueryRow(ctx, query, clientID, disputeID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AppDispute{}, ErrNotFound
		}
		return AppDispute{}, fmt.Errorf("dispute: get: %w", err)
	}
	var d AppDispute
	if err := json.Unmarshal(raw, &d); err != nil {
		return AppDispute{}, fmt.Errorf("dispute: decode snapshot: %w", err)
	}
	return d, nil
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 50
	}
	return page, size
}
