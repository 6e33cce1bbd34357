package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationsRepository keeps the per-client unread badge of the dashboard
// menu.
type NotificationsRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationsRepository(pool *pgxpool.Pool) *NotificationsRepository {
	return &NotificationsRepository{pool: pool}
}

func (r *NotificationsRepository) BumpUnread(ctx context.Context, clientID string) error {
	const query = `
		INSERT INTO notifications_menu (client_id, unread_count, updated_at)
		VALUES ($1::uuid, 1, now())
		ON CONFLICT (client_id) DO UPDATE
		SET unread_count = notifications_menu.unread_count + 1,
		    updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, clientID); err != nil {
		return fmt.Errorf("notify: bump unread: %w", err)
	}
	return nil
}

// Unread returns the badge count, zero when no row exists.
func (r *NotificationsRepository) Unread(ctx context.Context, clientID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT unread_count FROM notifications_menu WHERE client_id::text = $1), 0)`,
		clientID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("notify: unread: %w", err)
	}
	return n, nil
}

func (r *NotificationsRepository) MarkRead(ctx context.Context, clientID string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE notifications_menu SET unread_count = 0, updated_at = now() WHERE client_id::text = $1`,
		clientID); err != nil {
		return fmt.Errorf("notify: mark read: %w", err)
	}
	return nil
}
