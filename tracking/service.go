package tracking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DemoTrackingNumber always resolves to a canned delivered shipment so
// merchants can preview the hub without a live parcel.
const DemoTrackingNumber = "2444"

// Carrier fetches live tracking data.
type Carrier interface {
	Track(ctx context.Context, number string) (Shipment, error)
}

// Cache stores the last successful lookup per tracking number.
type Cache interface {
	Get(ctx context.Context, number string) (*Shipment, error)
	Put(ctx context.Context, s Shipment) error
}

type Service struct {
	carrier Carrier
	cache   Cache
	log     *zap.Logger
	now     func() time.Time
}

func NewService(carrier Carrier, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{carrier: carrier, cache: cache, log: log, now: time.Now}
}

// WithClock overrides the clock used for synthesized data.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Lookup never fails: upstream problems come back as an "unavailable"
// shipment with no events so the hub can render an empty state.
func (s *Service) Lookup(ctx context.Context, number, email string) Shipment {
	number = strings.TrimSpace(number)
	if number == "" {
		return unavailable(number)
	}
	if number == DemoTrackingNumber {
		return DemoShipment(s.now())
	}

	if s.carrier != nil {
		shipment, err := s.carrier.Track(ctx, number)
		if err == nil {
			if s.cache != nil && shipment.HasEvents() {
				if cerr := s.cache.Put(ctx, shipment); cerr != nil {
					s.log.Warn("tracking cache write failed", zap.String("tracking_number", number), zap.Error(cerr))
				}
			}
			return shipment
		}
		level := s.log.Warn
		if errors.Is(err, ErrNotFound) {
			level = s.log.Info
		}
		level("tracking lookup failed",
			zap.String("tracking_number", number),
			zap.String("email", email),
			zap.Error(err))
	}

	if cached := s.Cached(ctx, number); cached != nil {
		out := *cached
		out.Source = "cache"
		return out
	}
	return unavailable(number)
}

// Cached returns the last stored shipment, or nil.
func (s *Service) Cached(ctx context.Context, number string) *Shipment {
	if number == DemoTrackingNumber {
		demo := DemoShipment(s.now())
		return &demo
	}
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, number)
	if err != nil {
		s.log.Warn("tracking cache read failed", zap.String("tracking_number", number), zap.Error(err))
		return nil
	}
	return cached
}

func unavailable(number string) Shipment {
	return Shipment{TrackingNumber: number, Status: StatusUnavailable, Events: []Event{}}
}

// DemoShipment builds the canned delivered shipment relative to now.
func DemoShipment(now time.Time) Shipment {
	now = now.UTC().Truncate(time.Hour)
	return Shipment{
		TrackingNumber: DemoTrackingNumber,
		Status:         StatusDelivered,
		Carrier:        "USPS",
		Source:         "demo",
		FetchedAt:      now,
		Events: []Event{
			{Time: now.Add(-2 * time.Hour), Location: "Austin, TX", Description: "Delivered, front door/porch", Status: StatusDelivered},
			{Time: now.Add(-8 * time.Hour), Location: "Austin, TX", Description: "Out for delivery", Status: StatusOutForDelivery},
			{Time: now.Add(-30 * time.Hour), Location: "Dallas, TX", Description: "Arrived at regional facility", Status: StatusInTransit},
			{Time: now.Add(-72 * time.Hour), Location: "Los Angeles, CA", Description: "Shipping label created, package accepted", Status: StatusInfoReceived},
		},
	}
}
