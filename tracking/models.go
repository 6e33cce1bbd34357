package tracking

import "time"

// Status is the carrier-agnostic shipment status.
type Status string

const (
	StatusPending        Status = "pending"
	StatusInfoReceived   Status = "info_received"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusException      Status = "exception"
	StatusExpired        Status = "expired"
	StatusUnknown        Status = "unknown"
	StatusUnavailable    Status = "unavailable"
)

// Shipment is the normalized tracking view returned to the hub and used as
// fulfillment evidence.
type Shipment struct {
	TrackingNumber string    `json:"trackingNumber"`
	Status         Status    `json:"status"`
	Carrier        string    `json:"carrier"`
	Events         []Event   `json:"events"`
	Source         string    `json:"source,omitempty"`
	FetchedAt      time.Time `json:"fetchedAt"`
}

// Event is one checkpoint reported by the carrier.
type Event struct {
	Time        time.Time `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
}

// Delivered reports whether the carrier considers the parcel delivered.
func (s Shipment) Delivered() bool { return s.Status == StatusDelivered }

// HasEvents reports whether granular checkpoints exist.
func (s Shipment) HasEvents() bool { return len(s.Events) > 0 }
