package disputerequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chargemind/evidence"
)

var (
	ErrNotFound          = errors.New("disputerequest: not found")
	ErrDuplicateProtocol = errors.New("disputerequest: protocol number already used")
)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, req Request) (Request, error)
	List(ctx context.Context, filters Filters) ([]Request, int, error)
	Get(ctx context.Context, clientID, id string) (Request, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, clientID, id string) (Request, error)
	UpdateReview(ctx context.Context, tx pgx.Tx, id string, status Status, reviewerID string, notes *string) (Request, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const requestColumns = `id::text, client_id::text, protocol_number, order_id, customer_email, problem_type,
        evidence_data, preferred_resolution, status, reviewed_by::text, reviewed_at, review_notes, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, req Request) (Request, error) {
	evidenceData, err := json.Marshal(req.EvidenceData)
	if err != nil {
		return Request{}, fmt.Errorf("disputerequest: encode evidence: %w", err)
	}

	query := `
        INSERT INTO dispute_requests (id, client_id, protocol_number, order_id, customer_email, problem_type,
            evidence_data, preferred_resolution, status)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
        RETURNING ` + requestColumns

	row := tx.QueryRow(ctx, query,
		req.ID,
		req.ClientID,
		req.ProtocolNumber,
		req.OrderID,
		req.CustomerEmail,
		string(req.ProblemType),
		evidenceData,
		string(req.PreferredResolution),
		string(req.Status),
	)
	created, err := scanRequest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Request{}, ErrDuplicateProtocol
		}
		return Request{}, fmt.Errorf("disputerequest: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Request, int, error) {
	filters.Page, filters.PageSize = normalizePage(filters.Page, filters.PageSize)

	where := []string{"client_id = $1"}
	args := []any{filters.ClientID}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filters.Status))
	}
	whereClause := " WHERE " + strings.Join(where, " AND ")

	offset := (filters.Page - 1) * filters.PageSize
	query := fmt.Sprintf(`SELECT %s FROM dispute_requests%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, whereClause, filters.PageSize, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("disputerequest: query list: %w", err)
	}
	defer rows.Close()

	list := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("disputerequest: scan: %w", err)
		}
		list = append(list, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("disputerequest: iterate: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM dispute_requests"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("disputerequest: count list: %w", err)
	}
	return list, total, nil
}

func (r *PGRepository) Get(ctx context.Context, clientID, id string) (Request, error) {
	query := `SELECT ` + requestColumns + ` FROM dispute_requests WHERE client_id = $1 AND id::text = $2`
	req, err := scanRequest(r.pool.QueryRow(ctx, query, clientID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("disputerequest: get: %w", err)
	}
	return req, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, clientID, id string) (Request, error) {
	query := `SELECT ` + requestColumns + ` FROM dispute_requests WHERE client_id = $1 AND id::text = $2 FOR UPDATE`
	req, err := scanRequest(tx.QueryRow(ctx, query, clientID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("disputerequest: get for update: %w", err)
	}
	return req, nil
}

func (r *PGRepository) UpdateReview(ctx context.Context, tx pgx.Tx, id string, status Status, reviewerID string, notes *string) (Request, error) {
	query := `
		UPDATE dispute_requests
		SET status = $2,
		    reviewed_by = NULLIF($3, '')::uuid,
		    reviewed_at = now(),
		    review_notes = COALESCE($4, review_notes),
		    updated_at = now()
		WHERE id::text = $1
		RETURNING ` + requestColumns

	req, err := scanRequest(tx.QueryRow(ctx, query, id, string(status), reviewerID, notes))
	if err != nil {
		return Request{}, fmt.Errorf("disputerequest: update review: %w", err)
	}
	return req, nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		req          Request
		problemType  string
		resolution   string
		status       string
		evidenceData []byte
	)
	if err := row.Scan(
		&req.ID,
		&req.ClientID,
		&req.ProtocolNumber,
		&req.OrderID,
		&req.CustomerEmail,
		&problemType,
		&evidenceData,
		&resolution,
		&status,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.ReviewNotes,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return Request{}, err
	}
	req.ProblemType = evidence.ProblemType(problemType)
	req.PreferredResolution = Resolution(resolution)
	req.Status = Status(status)
	req.EvidenceData = map[string]any{}
	if len(evidenceData) > 0 {
		if err := json.Unmarshal(evidenceData, &req.EvidenceData); err != nil {
			return Request{}, fmt.Errorf("disputerequest: decode evidence: %w", err)
		}
	}
	return req, nil
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
