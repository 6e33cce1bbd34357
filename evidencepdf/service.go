package evidencepdf

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"chargemind/dispute"
	"chargemind/tracking"
)

// DisputeSource loads the stored dispute snapshot.
type DisputeSource interface {
	Get(ctx context.Context, clientID, disputeID string) (dispute.AppDispute, error)
}

// TrackingSource resolves shipment evidence. Lookup never fails; Cached
// returns nil when no history is stored.
type TrackingSource interface {
	Lookup(ctx context.Context, number, email string) tracking.Shipment
	Cached(ctx context.Context, number string) *tracking.Shipment
}

// MerchantSource supplies the store identity printed on the document.
type MerchantSource interface {
	Merchant(ctx context.Context, clientID string) (Merchant, error)
}

type Service struct {
	disputes  DisputeSource
	tracking  TrackingSource
	merchants MerchantSource
	log       *zap.Logger
}

func NewService(disputes DisputeSource, tr TrackingSource, merchants MerchantSource, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{disputes: disputes, tracking: tr, merchants: merchants, log: log}
}

// Generate renders the evidence document for a stored dispute. Tracking and
// merchant details are best effort.
func (s *Service) Generate(ctx context.Context, clientID, disputeID string, w io.Writer) error {
	d, err := s.disputes.Get(ctx, clientID, disputeID)
	if err != nil {
		return fmt.Errorf("evidencepdf: load dispute: %w", err)
	}

	var live, history *tracking.Shipment
	if number := trackingNumber(d); number != "" && s.tracking != nil {
		email := d.Order.Email
		if d.Customer.Email != nil {
			email = *d.Customer.Email
		}
		if sh := s.tracking.Lookup(ctx, number, email); sh.Status != tracking.StatusUnavailable {
			live = &sh
		}
		history = s.tracking.Cached(ctx, number)
	}

	p := Prepare(d, live, history)
	if s.merchants != nil {
		m, err := s.merchants.Merchant(ctx, clientID)
		if err != nil {
			s.log.Warn("merchant details unavailable for evidence pdf",
				zap.String("client_id", clientID),
				zap.Error(err))
		} else {
			p.Merchant = m
		}
	}

	if err := Render(w, p); err != nil {
		s.log.Error("evidence pdf render failed",
			zap.String("client_id", clientID),
			zap.String("dispute_id", disputeID),
			zap.Error(err))
		return err
	}
	s.log.Info("evidence pdf generated",
		zap.String("client_id", clientID),
		zap.String("dispute_id", disputeID),
		zap.Bool("digital_only", p.DigitalOnly()),
		zap.Bool("synthesized_line_items", p.Synthesized))
	return nil
}

func trackingNumber(d dispute.AppDispute) string {
	for _, f := range d.Order.Fulfillments {
		if f.TrackingNumber != "" {
			return f.TrackingNumber
		}
	}
	return ""
}
