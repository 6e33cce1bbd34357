package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Oracle is a query that must return no rows while the system is healthy.
type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "protocol_number_unique",
			SQL: `SELECT protocol_number, COUNT(*) FROM dispute_requests
                  GROUP BY protocol_number HAVING COUNT(*) > 1`,
		},
		{
			Name: "protocol_number_format",
			SQL: `SELECT id, protocol_number FROM dispute_requests
                  WHERE protocol_number !~ '^REQ-[0-9]+-[A-Z0-9]{6}$'`,
		},
		{
			Name: "submitted_event_per_request",
			SQL: `SELECT r.id, COUNT(o.id) FROM dispute_requests r
                  LEFT JOIN outbox o
                    ON o.topic = 'dispute_request.submitted'
                   AND o.payload->>'request_id' = r.id::text
                  GROUP BY r.id HAVING COUNT(o.id) <> 1`,
		},
		{
			Name: "reviewed_requests_have_reviewer",
			SQL: `SELECT id, status FROM dispute_requests
                  WHERE (status = 'pending') <> (reviewed_by IS NULL AND reviewed_at IS NULL)`,
		},
		{
			Name: "status_change_emits_event",
			SQL: `SELECT r.id FROM dispute_requests r
                  WHERE r.status <> 'pending'
                    AND NOT EXISTS (
                      SELECT 1 FROM outbox o
                      WHERE o.topic = 'dispute_request.status_changed'
                        AND o.payload->>'request_id' = r.id::text
                        AND o.payload->>'next' = r.status)`,
		},
		{
			Name: "unread_never_exceeds_requests",
			SQL: `SELECT n.client_id, n.unread_count FROM notifications_menu n
                  WHERE n.unread_count > (SELECT COUNT(*) FROM dispute_requests r WHERE r.client_id = n.client_id)`,
		},
		{
			Name: "outbox_not_stale",
			SQL: `SELECT id FROM outbox
                  WHERE status = 'pending' AND now() - created_at > interval '5 minutes'`,
		},
	}
}

// Run executes every oracle and returns the name and first row of the first
// one that fails, or an empty name when all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
