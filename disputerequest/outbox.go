package disputerequest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGOutbox writes integration events next to the business rows that caused
// them and serves them to the relay.
type PGOutbox struct {
	pool *pgxpool.Pool
}

func NewOutbox(pool *pgxpool.Pool) *PGOutbox {
	return &PGOutbox{pool: pool}
}

func (o *PGOutbox) Enqueue(ctx context.Context, tx pgx.Tx, topic, key string, payload map[string]any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("disputerequest: marshal outbox payload: %w", err)
	}

	const insertSQL = `
INSERT INTO outbox (topic, key, payload)
VALUES ($1, $2, $3::jsonb);
`
	if _, err := tx.Exec(ctx, insertSQL, topic, key, payloadBytes); err != nil {
		return fmt.Errorf("disputerequest: insert outbox message: %w", err)
	}
	return nil
}

// Pending returns up to limit unsent messages, oldest first.
func (o *PGOutbox) Pending(ctx context.Context, limit int) ([]OutboxMessage, error) {
	const query = `
		SELECT id::text, topic, key, payload, status, attempts, created_at
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
	`
	rows, err := o.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("disputerequest: query outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &m.Payload, &m.Status, &m.Attempts, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("disputerequest: scan outbox: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("disputerequest: iterate outbox: %w", err)
	}
	return out, nil
}

func (o *PGOutbox) MarkSent(ctx context.Context, id string) error {
	if _, err := o.pool.Exec(ctx, `UPDATE outbox SET status = 'sent', attempts = attempts + 1, sent_at = now() WHERE id::text = $1`, id); err != nil {
		return fmt.Errorf("disputerequest: mark outbox sent: %w", err)
	}
	return nil
}

// MarkFailed counts the attempt; the message stays pending until maxAttempts
// is reached.
func (o *PGOutbox) MarkFailed(ctx context.Context, id string, maxAttempts int, cause error) error {
	const query = `
		UPDATE outbox
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE status END
		WHERE id::text = $1
	`
	if _, err := o.pool.Exec(ctx, query, id, cause.Error(), maxAttempts); err != nil {
		return fmt.Errorf("disputerequest: mark outbox failed: %w", err)
	}
	return nil
}
