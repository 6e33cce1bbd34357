package dispute

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TopicDisputesCreate and TopicDisputesUpdate are the Shopify webhook topics
// ingested by the service.
const (
	TopicDisputesCreate = "disputes/create"
	TopicDisputesUpdate = "disputes/update"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SnapshotWriter persists mapped disputes inside a caller-owned transaction.
type SnapshotWriter interface {
	InsertDelivery(ctx context.Context, tx pgx.Tx, deliveryID, topic string) error
	UpsertSnapshot(ctx context.Context, tx pgx.Tx, clientID string, d AppDispute) error
}

// SnapshotReader serves dashboard reads.
type SnapshotReader interface {
	List(ctx context.Context, clientID string, filters Filters) ([]AppDispute, error)
	Get(ctx context.Context, clientID, disputeID string) (AppDispute, error)
}

type Service struct {
	pool   TxBeginner
	writer SnapshotWriter
	reader SnapshotReader
	log    *zap.Logger
}

func NewService(pool TxBeginner, writer SnapshotWriter, reader SnapshotReader, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{pool: pool, writer: writer, reader: reader, log: log}
}

// IngestWebhook maps a dispute webhook and stores the snapshot. Redelivered
// webhooks (same delivery id) are acknowledged without writing.
func (s *Service) IngestWebhook(ctx context.Context, clientID, deliveryID, topic string, raw ShopifyDisputeWebhook) (AppDispute, error) {
	if clientID == "" {
		return AppDispute{}, fmt.Errorf("dispute: missing client id")
	}
	if deliveryID == "" {
		return AppDispute{}, fmt.Errorf("dispute: missing delivery id")
	}
	if raw.ID == "" {
		return AppDispute{}, fmt.Errorf("dispute: missing dispute id")
	}

	mapped := MapShopifyDispute(raw)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return AppDispute{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.writer.InsertDelivery(ctx, tx, deliveryID, topic); err != nil {
		if errors.Is(err, ErrDuplicateDelivery) {
			s.log.Info("duplicate dispute webhook ignored",
				zap.String("client_id", clientID),
				zap.String("delivery_id", deliveryID))
			return mapped, nil
		}
		return AppDispute{}, err
	}

	if err := s.writer.UpsertSnapshot(ctx, tx, clientID, mapped); err != nil {
		return AppDispute{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return AppDispute{}, fmt.Errorf("dispute: commit tx: %w", err)
	}

	s.log.Info("dispute snapshot stored",
		zap.String("client_id", clientID),
		zap.String("dispute_id", mapped.ID),
		zap.String("status", string(mapped.Status)))
	return mapped, nil
}

func (s *Service) List(ctx context.Context, clientID string, filters Filters) ([]AppDispute, error) {
	return s.reader.List(ctx, clientID, filters)
}

func (s *Service) Get(ctx context.Context, clientID, disputeID string) (AppDispute, error) {
	return s.reader.Get(ctx, clientID, disputeID)
}
