package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested client or integration does not exist.
var ErrNotFound = errors.New("client: not found")

// Repository provides access to clients and their integrations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id::text, name, shop_domain, support_email,
		primary_color, secondary_color, accent_color, text_color, logo_url, sender_name, sender_email,
		refund_policy_url, shipping_policy_url, terms_url,
		monitoring_paused, dispute_count, created_at, updated_at`

// GetByID fetches a client by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, fmt.Errorf("client: query by id: %w", err)
	}
	return c, nil
}

// GetByShopDomain fetches the client installed on a Shopify store.
func (r *Repository) GetByShopDomain(ctx context.Context, shop string) (Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE shop_domain = $1`, shop))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, fmt.Errorf("client: query by shop: %w", err)
	}
	return c, nil
}

// UpsertByShopDomain creates the client for a store on first install and
// returns the existing one afterwards.
func (r *Repository) UpsertByShopDomain(ctx context.Context, shop, name, supportEmail string) (Client, bool, error) {
	query := `
		INSERT INTO clients (name, shop_domain, support_email)
		VALUES ($1, $2, $3)
		ON CONFLICT (shop_domain) DO UPDATE
		SET support_email = COALESCE(NULLIF(clients.support_email, ''), EXCLUDED.support_email),
		    updated_at = now()
		RETURNING ` + clientColumns + `, (xmax = 0)`

	var created bool
	c, err := scanClient(r.pool.QueryRow(ctx, query, name, shop, supportEmail), &created)
	if err != nil {
		return Client{}, false, fmt.Errorf("client: upsert by shop: %w", err)
	}
	return c, created, nil
}

// SaveBranding persists branding and policy links.
func (r *Repository) SaveBranding(ctx context.Context, id string, b Branding, p Policies) (Client, error) {
	query := `
		UPDATE clients
		SET primary_color = $2, secondary_color = $3, accent_color = $4, text_color = $5,
		    logo_url = $6, sender_name = $7, sender_email = $8,
		    refund_policy_url = $9, shipping_policy_url = $10, terms_url = $11,
		    updated_at = now()
		WHERE id::text = $1
		RETURNING ` + clientColumns

	c, err := scanClient(r.pool.QueryRow(ctx, query, id,
		b.PrimaryColor, b.SecondaryColor, b.AccentColor, b.TextColor,
		b.LogoURL, b.SenderName, b.SenderEmail,
		p.RefundURL, p.ShippingURL, p.TermsURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, fmt.Errorf("client: save branding: %w", err)
	}
	return c, nil
}

// UpsertIntegration stores the credential set for a provider. The unique
// (client_id, provider) index makes a reconnect replace the previous set.
func (r *Repository) UpsertIntegration(ctx context.Context, in Integration) (Integration, error) {
	const query = `
		INSERT INTO client_integrations (client_id, provider, access_token, scope, status, connected_at)
		VALUES ($1::uuid, $2, $3, $4, 'active', now())
		ON CONFLICT (client_id, provider) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    scope = EXCLUDED.scope,
		    status = 'active',
		    connected_at = now(),
		    disconnected_at = NULL
		RETURNING id::text, client_id::text, provider, access_token, scope, status, connected_at, disconnected_at
	`
	out, err := scanIntegration(r.pool.QueryRow(ctx, query, in.ClientID, string(in.Provider), in.AccessToken, in.Scope))
	if err != nil {
		return Integration{}, fmt.Errorf("client: upsert integration: %w", err)
	}
	return out, nil
}

func (r *Repository) GetIntegration(ctx context.Context, clientID string, provider Provider) (Integration, error) {
	const query = `
		SELECT id::text, client_id::text, provider, access_token, scope, status, connected_at, disconnected_at
		FROM client_integrations
		WHERE client_id::text = $1 AND provider = $2
	`
	out, err := scanIntegration(r.pool.QueryRow(ctx, query, clientID, string(provider)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Integration{}, ErrNotFound
		}
		return Integration{}, fmt.Errorf("client: get integration: %w", err)
	}
	return out, nil
}

// DisconnectIntegration clears the credentials but keeps the row for history.
func (r *Repository) DisconnectIntegration(ctx context.Context, clientID string, provider Provider) error {
	const query = `
		UPDATE client_integrations
		SET access_token = '', status = 'disconnected', disconnected_at = now()
		WHERE client_id::text = $1 AND provider = $2 AND status = 'active'
	`
	tag, err := r.pool.Exec(ctx, query, clientID, string(provider))
	if err != nil {
		return fmt.Errorf("client: disconnect integration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetMonitoringPaused(ctx context.Context, id string, paused bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE clients SET monitoring_paused = $2, updated_at = now() WHERE id::text = $1`, id, paused)
	if err != nil {
		return fmt.Errorf("client: set monitoring paused: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListShopifyMonitored returns clients with an active Shopify connection whose
// monitoring is not paused.
func (r *Repository) ListShopifyMonitored(ctx context.Context) ([]Monitored, error) {
	const query = `
		SELECT c.id::text, c.name, c.shop_domain, i.access_token, c.dispute_count
		FROM clients c
		JOIN client_integrations i ON i.client_id = c.id AND i.provider = 'shopify'
		WHERE i.status = 'active'
		  AND i.access_token <> ''
		  AND c.shop_domain <> ''
		  AND NOT c.monitoring_paused
		ORDER BY c.created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("client: list monitored: %w", err)
	}
	defer rows.Close()

	var out []Monitored
	for rows.Next() {
		var m Monitored
		if err := rows.Scan(&m.ClientID, &m.ClientName, &m.ShopDomain, &m.AccessToken, &m.DisputeCount); err != nil {
			return nil, fmt.Errorf("client: scan monitored: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("client: iterate monitored: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateDisputeCount(ctx context.Context, id string, count int) error {
	if _, err := r.pool.Exec(ctx, `UPDATE clients SET dispute_count = $2, dispute_count_checked_at = now() WHERE id::text = $1`, id, count); err != nil {
		return fmt.Errorf("client: update dispute count: %w", err)
	}
	return nil
}

func scanClient(row pgx.Row, extra ...any) (Client, error) {
	var c Client
	dest := []any{
		&c.ID,
		&c.Name,
		&c.ShopDomain,
		&c.SupportEmail,
		&c.Branding.PrimaryColor,
		&c.Branding.SecondaryColor,
		&c.Branding.AccentColor,
		&c.Branding.TextColor,
		&c.Branding.LogoURL,
		&c.Branding.SenderName,
		&c.Branding.SenderEmail,
		&c.Policies.RefundURL,
		&c.Policies.ShippingURL,
		&c.Policies.TermsURL,
		&c.MonitoringPaused,
		&c.DisputeCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Client{}, err
	}
	return c, nil
}

func scanIntegration(row pgx.Row) (Integration, error) {
	var (
		in       Integration
		provider string
		status   string
	)
	if err := row.Scan(&in.ID, &in.ClientID, &provider, &in.AccessToken, &in.Scope, &status, &in.ConnectedAt, &in.DisconnectedAt); err != nil {
		return Integration{}, err
	}
	in.Provider = Provider(provider)
	in.Status = IntegrationStatus(status)
	return in, nil
}
