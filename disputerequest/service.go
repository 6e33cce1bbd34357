package disputerequest

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"chargemind/evidence"
)

var (
	ErrInvalidInput      = errors.New("disputerequest: invalid input")
	ErrInvalidEvidence   = errors.New("disputerequest: evidence rejected")
	ErrInvalidTransition = errors.New("disputerequest: invalid status transition")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic, key string, payload map[string]any) error
}

// Notifier bumps the merchant's unread counter. It runs outside the request
// transaction.
type Notifier interface {
	BumpUnread(ctx context.Context, clientID string) error
}

// EvidenceValidator checks evidence_data against the client's field
// configuration.
type EvidenceValidator interface {
	ValidateSubmission(ctx context.Context, clientID string, problem evidence.ProblemType, data map[string]any) error
}

type Service struct {
	pool        TxBeginner
	repo        Repository
	outbox      OutboxWriter
	notifier    Notifier
	validator   EvidenceValidator
	log         *zap.Logger
	idGenerator func() string
	now         func() time.Time
	protocol    func(time.Time) string
}

func NewService(pool TxBeginner, repo Repository, outbox OutboxWriter, notifier Notifier, validator EvidenceValidator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		pool:        pool,
		repo:        repo,
		outbox:      outbox,
		notifier:    notifier,
		validator:   validator,
		log:         log,
		idGenerator: uuid.NewString,
		now:         time.Now,
		protocol:    NewProtocolNumber,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type SubmitParams struct {
	ClientID            string
	OrderID             string
	CustomerEmail       string
	ProblemType         evidence.ProblemType
	EvidenceData        map[string]any
	PreferredResolution Resolution
}

// Submit validates and stores a customer request as pending. The insert and
// its outbox event commit together; the notification bump is best effort.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Request, error) {
	if err := validateSubmit(&params); err != nil {
		return Request{}, err
	}
	if s.validator != nil {
		if err := s.validator.ValidateSubmission(ctx, params.ClientID, params.ProblemType, params.EvidenceData); err != nil {
			return Request{}, fmt.Errorf("%w: %w", ErrInvalidEvidence, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Request{}, fmt.Errorf("disputerequest: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := s.repo.Create(ctx, tx, Request{
		ID:                  s.idGenerator(),
		ClientID:            params.ClientID,
		ProtocolNumber:      s.protocol(s.now()),
		OrderID:             params.OrderID,
		CustomerEmail:       params.CustomerEmail,
		ProblemType:         params.ProblemType,
		EvidenceData:        params.EvidenceData,
		PreferredResolution: params.PreferredResolution,
		Status:              StatusPending,
	})
	if err != nil {
		return Request{}, err
	}

	if s.outbox != nil {
		payload := map[string]any{
			"request_id":           created.ID,
			"client_id":            created.ClientID,
			"protocol_number":      created.ProtocolNumber,
			"order_id":             created.OrderID,
			"problem_type":         created.ProblemType,
			"preferred_resolution": created.PreferredResolution,
		}
		if err := s.outbox.Enqueue(ctx, tx, TopicSubmitted, created.ClientID, payload); err != nil {
			return Request{}, fmt.Errorf("disputerequest: enqueue outbox: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, fmt.Errorf("disputerequest: commit tx: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.BumpUnread(ctx, created.ClientID); err != nil {
			s.log.Warn("notification bump failed",
				zap.String("client_id", created.ClientID),
				zap.String("protocol_number", created.ProtocolNumber),
				zap.Error(err))
		}
	}

	s.log.Info("dispute request submitted",
		zap.String("client_id", created.ClientID),
		zap.String("protocol_number", created.ProtocolNumber),
		zap.String("problem_type", string(created.ProblemType)))
	return created, nil
}

func validateSubmit(p *SubmitParams) error {
	p.OrderID = strings.TrimPrefix(strings.TrimSpace(p.OrderID), "#")
	p.CustomerEmail = strings.ToLower(strings.TrimSpace(p.CustomerEmail))

	if p.ClientID == "" {
		return fmt.Errorf("%w: client id required", ErrInvalidInput)
	}
	if p.OrderID == "" {
		return fmt.Errorf("%w: order_id required", ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(p.CustomerEmail); err != nil || addr.Address != p.CustomerEmail {
		return fmt.Errorf("%w: customer_email invalid", ErrInvalidInput)
	}
	if !p.ProblemType.Valid() {
		return fmt.Errorf("%w: problem_type invalid", ErrInvalidInput)
	}
	if p.PreferredResolution != ResolutionCredit && p.PreferredResolution != ResolutionRefund {
		return fmt.Errorf("%w: preferred_resolution must be credit or refund", ErrInvalidInput)
	}
	if p.EvidenceData == nil {
		p.EvidenceData = map[string]any{}
	}
	return nil
}

type ListResult struct {
	Items    []Request `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

func (s *Service) List(ctx context.Context, filters Filters) (ListResult, error) {
	if filters.ClientID == "" {
		return ListResult{}, fmt.Errorf("%w: client id required", ErrInvalidInput)
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return ListResult{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filters.Status)
	}
	filters.Page, filters.PageSize = normalizePage(filters.Page, filters.PageSize)

	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Page: filters.Page, PageSize: filters.PageSize}, nil
}

func (s *Service) Get(ctx context.Context, clientID, id string) (Request, error) {
	return s.repo.Get(ctx, clientID, id)
}

type ReviewParams struct {
	ClientID   string
	RequestID  string
	ReviewerID string
	Status     Status
	Notes      *string
}

// CanTransition reports whether staff may move a request from one status to
// another.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusReviewed:
		return from == StatusPending
	case StatusApproved, StatusRejected:
		return from == StatusPending || from == StatusReviewed
	}
	return false
}

// Review applies a staff decision and records the reviewer.
func (s *Service) Review(ctx context.Context, params ReviewParams) (Request, error) {
	if params.ClientID == "" || params.RequestID == "" {
		return Request{}, fmt.Errorf("%w: request id required", ErrInvalidInput)
	}
	if params.ReviewerID == "" {
		return Request{}, fmt.Errorf("%w: reviewer id required", ErrInvalidInput)
	}
	if params.Notes != nil {
		trimmed := strings.TrimSpace(*params.Notes)
		params.Notes = &trimmed
		if trimmed == "" {
			params.Notes = nil
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Request{}, fmt.Errorf("disputerequest: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, params.ClientID, params.RequestID)
	if err != nil {
		return Request{}, err
	}
	if !CanTransition(current.Status, params.Status) {
		return Request{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, params.Status)
	}

	updated, err := s.repo.UpdateReview(ctx, tx, current.ID, params.Status, params.ReviewerID, params.Notes)
	if err != nil {
		return Request{}, err
	}

	if s.outbox != nil {
		payload := map[string]any{
			"request_id":      updated.ID,
			"client_id":       updated.ClientID,
			"protocol_number": updated.ProtocolNumber,
			"previous":        current.Status,
			"next":            updated.Status,
			"reviewer_id":     params.ReviewerID,
		}
		if err := s.outbox.Enqueue(ctx, tx, TopicStatusChanged, updated.ClientID, payload); err != nil {
			return Request{}, fmt.Errorf("disputerequest: enqueue status outbox: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, fmt.Errorf("disputerequest: commit review: %w", err)
	}
	return updated, nil
}

const protocolAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewProtocolNumber formats REQ-<unix millis>-<6 uppercase alphanumerics>.
func NewProtocolNumber(now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("disputerequest: read random: %v", err))
	}
	for i, b := range buf {
		buf[i] = protocolAlphabet[int(b)%len(protocolAlphabet)]
	}
	return "REQ-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(buf)
}
