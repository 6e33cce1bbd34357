package evidencepdf

import (
	"sort"
	"strings"
	"time"

	"chargemind/dispute"
	"chargemind/money"
	"chargemind/tracking"
)

const (
	ConsolidatedLineTitle = "Consolidated Order Summary"
	AuthorizedCustomer    = "Authorized Customer"
)

// FallbackAddress stands in when neither a shipping nor a billing address is
// known for the order.
var FallbackAddress = dispute.Address{
	Address1: "Verified by Payment Method (AVS Match)",
	City:     "Verified by Payment Method",
	Province: "AVS Verified",
	Zip:      "AVS Match",
	Country:  "Verified",
}

var placeholderNames = map[string]bool{
	"":           true,
	"cardholder": true,
	"n/a":        true,
	"na":         true,
	"unknown":    true,
	"customer":   true,
}

// Merchant is the store identity printed on the document.
type Merchant struct {
	Name              string
	SupportEmail      string
	RefundPolicyURL   string
	ShippingPolicyURL string
	TermsURL          string
}

// Prepared is the fully populated view the renderer lays out. Nothing in it
// is empty where the document would otherwise show a blank.
type Prepared struct {
	Dispute         dispute.AppDispute
	Merchant        Merchant
	CustomerName    string
	CustomerEmail   string
	LineItems       []dispute.LineItem
	Synthesized     bool
	ShippingAddress dispute.Address
	BillingAddress  dispute.Address
	AddressFallback bool
	Tracking        *Tracking
	Invoice         Invoice
	GeneratedAt     time.Time
}

// Tracking is the fulfillment evidence chosen for the document.
type Tracking struct {
	Number      string
	Carrier     string
	Status      tracking.Status
	Events      []tracking.Event
	Source      string
	Synthesized bool
}

// DigitalOnly reports whether the document carries no shipment evidence.
func (p Prepared) DigitalOnly() bool { return p.Tracking == nil }

// Prepare enriches a dispute for rendering. live is the carrier response and
// history the cached or mock history; either may be nil.
func Prepare(d dispute.AppDispute, live, history *tracking.Shipment) Prepared {
	items, synthesized := resolveLineItems(d)
	shipping, billing, fallback := resolveAddresses(d.Order.ShippingAddress, d.Order.BillingAddress)

	p := Prepared{
		Dispute:         d,
		CustomerName:    sanitizeName(d.Customer.FullName()),
		CustomerEmail:   customerEmail(d),
		LineItems:       items,
		Synthesized:     synthesized,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		AddressFallback: fallback,
		Tracking:        resolveTracking(d, live, history),
		GeneratedAt:     documentDate(d),
	}
	p.Invoice = BuildInvoice(d, items, synthesized)
	return p
}

func resolveLineItems(d dispute.AppDispute) ([]dispute.LineItem, bool) {
	if len(d.Order.LineItems) > 0 {
		return d.Order.LineItems, false
	}
	if len(d.Products) > 0 {
		items := make([]dispute.LineItem, 0, len(d.Products))
		for _, p := range d.Products {
			qty := p.Quantity
			if qty <= 0 {
				qty = 1
			}
			items = append(items, dispute.LineItem{Title: p.Title, Quantity: qty, Price: money.ToMoney(p.Price)})
		}
		return items, false
	}
	return []dispute.LineItem{{
		Title:    ConsolidatedLineTitle,
		Quantity: 1,
		Price:    money.ToMoney(d.Amount),
	}}, true
}

func resolveAddresses(shipping, billing dispute.Address) (dispute.Address, dispute.Address, bool) {
	switch {
	case shipping.IsEmpty() && billing.IsEmpty():
		return FallbackAddress, FallbackAddress, true
	case shipping.IsEmpty():
		return billing, billing, false
	case billing.IsEmpty():
		return shipping, shipping, false
	}
	return shipping, billing, false
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if placeholderNames[strings.ToLower(name)] {
		return AuthorizedCustomer
	}
	return name
}

func customerEmail(d dispute.AppDispute) string {
	if d.Customer.Email != nil && *d.Customer.Email != "" {
		return *d.Customer.Email
	}
	if d.Order.Email != "" {
		return d.Order.Email
	}
	return "Not provided"
}

// resolveTracking picks live events first, then cached history, then a single
// synthesized delivery event when the carrier reports delivered without
// checkpoints. Nil means digital evidence only.
func resolveTracking(d dispute.AppDispute, live, history *tracking.Shipment) *Tracking {
	if live != nil && live.HasEvents() {
		return fromShipment(*live, live.Source)
	}
	if history != nil && history.HasEvents() {
		source := history.Source
		if source == "" {
			source = "cache"
		}
		return fromShipment(*history, source)
	}

	for _, s := range []*tracking.Shipment{live, history} {
		if s == nil || !s.Delivered() {
			continue
		}
		t := fromShipment(*s, s.Source)
		t.Synthesized = true
		t.Events = []tracking.Event{{
			Time:        deliveredAt(d),
			Location:    deliveryLocation(d.Order.ShippingAddress),
			Description: "Delivered",
			Status:      tracking.StatusDelivered,
		}}
		return t
	}
	return nil
}

func fromShipment(s tracking.Shipment, source string) *Tracking {
	events := make([]tracking.Event, len(s.Events))
	copy(events, s.Events)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.After(events[j].Time) })

	carrier := s.Carrier
	if carrier == "" {
		carrier = "Carrier"
	}
	return &Tracking{
		Number:  s.TrackingNumber,
		Carrier: carrier,
		Status:  s.Status,
		Events:  events,
		Source:  source,
	}
}

func deliveredAt(d dispute.AppDispute) time.Time {
	var latest time.Time
	for _, f := range d.Order.Fulfillments {
		if f.CreatedAt != nil && f.CreatedAt.After(latest) {
			latest = *f.CreatedAt
		}
	}
	if latest.IsZero() && d.Order.CreatedAt != nil {
		latest = *d.Order.CreatedAt
	}
	return latest
}

func deliveryLocation(a dispute.Address) string {
	parts := make([]string, 0, 3)
	for _, v := range []string{a.City, a.Province, a.Country} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// documentDate fixes the document timestamp from the dispute so identical
// input renders identical bytes.
func documentDate(d dispute.AppDispute) time.Time {
	for _, t := range []*time.Time{d.InitiatedAt, d.Order.CreatedAt, d.EvidenceDueBy} {
		if t != nil && !t.IsZero() {
			return t.UTC()
		}
	}
	return time.Unix(0, 0).UTC()
}
