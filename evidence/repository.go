package evidence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("evidence: field not found")
	ErrDuplicateKey = errors.New("evidence: field key already exists")
)

// Store is the persistence contract of the editor.
type Store interface {
	List(ctx context.Context, clientID string, problem ProblemType) ([]Config, error)
	Seed(ctx context.Context, clientID string, problem ProblemType, defaults []Config) error
	UpdateFlags(ctx context.Context, clientID string, problem ProblemType, key string, visible, required *bool) (Config, error)
	InsertCustom(ctx context.Context, cfg Config) (Config, error)
	DeleteCustom(ctx context.Context, clientID string, problem ProblemType, key string) (bool, error)
}

// PGStore implements Store backed by PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const configColumns = `id::text, client_id::text, problem_type, field_key, label, field_type, placeholder, help_text,
	options, is_visible, is_required, is_custom, sort_order, created_at, updated_at`

func (r *PGStore) List(ctx context.Context, clientID string, problem ProblemType) ([]Config, error) {
	query := `SELECT ` + configColumns + `
		FROM evidence_field_configs
		WHERE client_id = $1 AND problem_type = $2
		ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, clientID, string(problem))
	if err != nil {
		return nil, fmt.Errorf("evidence: list: %w", err)
	}
	defer rows.Close()

	out := make([]Config, 0, 8)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("evidence: scan: %w", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("evidence: iterate: %w", err)
	}
	return out, nil
}

// Seed inserts the predefined fields, leaving rows that already exist alone.
func (r *PGStore) Seed(ctx context.Context, clientID string, problem ProblemType, defaults []Config) error {
	const insert = `
		INSERT INTO evidence_field_configs
			(client_id, problem_type, field_key, label, field_type, placeholder, help_text, options, is_visible, is_required, is_custom, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, $11)
		ON CONFLICT (client_id, problem_type, field_key) DO NOTHING
	`
	batch := &pgx.Batch{}
	for _, c := range defaults {
		batch.Queue(insert, clientID, string(problem), c.Key, c.Label, string(c.Type), c.Placeholder, c.HelpText,
			nonNilOptions(c.Options), c.IsVisible, c.IsRequired, c.SortOrder)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("evidence: seed: %w", err)
	}
	return nil
}

func (r *PGStore) UpdateFlags(ctx context.Context, clientID string, problem ProblemType, key string, visible, required *bool) (Config, error) {
	query := `
		UPDATE evidence_field_configs
		SET is_visible = COALESCE($4, is_visible),
		    is_required = COALESCE($5, is_required),
		    updated_at = now()
		WHERE client_id = $1 AND problem_type = $2 AND field_key = $3
		RETURNING ` + configColumns

	cfg, err := scanConfig(r.pool.QueryRow(ctx, query, clientID, string(problem), key, visible, required))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, ErrNotFound
		}
		return Config{}, fmt.Errorf("evidence: update flags: %w", err)
	}
	return cfg, nil
}

func (r *PGStore) InsertCustom(ctx context.Context, c Config) (Config, error) {
	query := `
		INSERT INTO evidence_field_configs
			(client_id, problem_type, field_key, label, field_type, placeholder, help_text, options, is_visible, is_required, is_custom, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true,
			COALESCE((SELECT max(sort_order) + 10 FROM evidence_field_configs WHERE client_id = $1 AND problem_type = $2), 10))
		RETURNING ` + configColumns

	cfg, err := scanConfig(r.pool.QueryRow(ctx, query, c.ClientID, string(c.ProblemType), c.Key, c.Label, string(c.Type),
		c.Placeholder, c.HelpText, nonNilOptions(c.Options), c.IsVisible, c.IsRequired))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Config{}, ErrDuplicateKey
		}
		return Config{}, fmt.Errorf("evidence: insert custom: %w", err)
	}
	return cfg, nil
}

// DeleteCustom removes a custom field. It reports false when no custom field
// with that key exists.
func (r *PGStore) DeleteCustom(ctx context.Context, clientID string, problem ProblemType, key string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM evidence_field_configs
		WHERE client_id = $1 AND problem_type = $2 AND field_key = $3 AND is_custom
	`, clientID, string(problem), key)
	if err != nil {
		return false, fmt.Errorf("evidence: delete custom: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanConfig(row pgx.Row) (Config, error) {
	var (
		cfg       Config
		problem   string
		fieldType string
		options   []string
	)
	err := row.Scan(
		&cfg.ID,
		&cfg.ClientID,
		&problem,
		&cfg.Key,
		&cfg.Label,
		&fieldType,
		&cfg.Placeholder,
		&cfg.HelpText,
		&options,
		&cfg.IsVisible,
		&cfg.IsRequired,
		&cfg.IsCustom,
		&cfg.SortOrder,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return Config{}, err
	}
	cfg.ProblemType = ProblemType(problem)
	cfg.Type = FieldType(fieldType)
	cfg.Options = options
	return cfg, nil
}

func nonNilOptions(opts []string) []string {
	if opts == nil {
		return []string{}
	}
	return opts
}
