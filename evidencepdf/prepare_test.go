package evidencepdf

import (
	"testing"
	"time"

	"chargemind/dispute"
	"chargemind/tracking"
)

func strPtr(s string) *string { return &s }

func TestPrepare_SynthesizesLineItemWhenMissing(t *testing.T) {
	d := dispute.MapShopifyDispute(dispute.ShopifyDisputeWebhook{ID: "d1", Amount: "149.5"})

	p := Prepare(d, nil, nil)
	if !p.Synthesized {
		t.Fatal("expected synthesized line items")
	}
	if len(p.LineItems) != 1 {
		t.Fatalf("expected exactly one line item, got %d", len(p.LineItems))
	}
	li := p.LineItems[0]
	if li.Title != ConsolidatedLineTitle || li.Price != "149.50" || li.Quantity != 1 {
		t.Fatalf("unexpected synthesized line: %+v", li)
	}
	if got := p.Invoice.Total.StringFixed(2); got != "149.50" {
		t.Fatalf("expected invoice total 149.50, got %s", got)
	}
}

func TestPrepare_ReconstructsFromProducts(t *testing.T) {
	d := dispute.AppDispute{
		ID:       "d1",
		Amount:   "30.00",
		Products: []dispute.Product{{Title: "Mug", Quantity: 2, Price: "15.00"}},
	}
	p := Prepare(d, nil, nil)
	if p.Synthesized {
		t.Fatal("products should be used before synthesizing")
	}
	if len(p.LineItems) != 1 || p.LineItems[0].Title != "Mug" || p.LineItems[0].Quantity != 2 {
		t.Fatalf("unexpected line items: %+v", p.LineItems)
	}
}

func TestPrepare_KeepsOriginalLineItems(t *testing.T) {
	items := []dispute.LineItem{
		{ID: "1", Title: "Shoes", Quantity: 1, Price: "80.00"},
		{ID: "2", Title: "Socks", Quantity: 3, Price: "5.00"},
	}
	d := dispute.AppDispute{ID: "d1", Amount: "95.00", Order: dispute.Order{LineItems: items, TotalPrice: "95.00"}}

	p := Prepare(d, nil, nil)
	if p.Synthesized || len(p.LineItems) != 2 || p.LineItems[1].Title != "Socks" {
		t.Fatalf("expected original line items, got %+v", p.LineItems)
	}
}

func TestPrepare_AddressFallback(t *testing.T) {
	p := Prepare(dispute.AppDispute{ID: "d1"}, nil, nil)
	if !p.AddressFallback {
		t.Fatal("expected fallback flag")
	}
	for _, a := range []dispute.Address{p.ShippingAddress, p.BillingAddress} {
		if a.City != "Verified by Payment Method" || a.Address1 != "Verified by Payment Method (AVS Match)" {
			t.Fatalf("unexpected fallback address: %+v", a)
		}
		if a.Province == "" || a.Zip == "" || a.Country == "" {
			t.Fatalf("fallback address must not contain empty strings: %+v", a)
		}
	}
}

func TestPrepare_AddressCopiedFromOtherSide(t *testing.T) {
	billing := dispute.Address{Name: "Jane Doe", Address1: "1 Main St", City: "Austin", Zip: "73301", Country: "US"}
	d := dispute.AppDispute{ID: "d1", Order: dispute.Order{BillingAddress: billing}}

	p := Prepare(d, nil, nil)
	if p.AddressFallback {
		t.Fatal("fallback should not be used when one address exists")
	}
	if p.ShippingAddress != billing {
		t.Fatalf("expected shipping copied from billing, got %+v", p.ShippingAddress)
	}
}

func TestPrepare_SanitizesCustomerName(t *testing.T) {
	cases := []struct {
		first *string
		want  string
	}{
		{strPtr("Cardholder"), AuthorizedCustomer},
		{strPtr(""), AuthorizedCustomer},
		{nil, AuthorizedCustomer},
		{strPtr(" N/A "), AuthorizedCustomer},
		{strPtr("customer"), AuthorizedCustomer},
		{strPtr("Maria"), "Maria"},
	}
	for _, tc := range cases {
		d := dispute.AppDispute{ID: "d1", Customer: dispute.Customer{FirstName: tc.first}}
		if got := Prepare(d, nil, nil).CustomerName; got != tc.want {
			t.Errorf("name %v: expected %q, got %q", tc.first, tc.want, got)
		}
	}
}

func TestPrepare_TrackingPriority(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withEvents := func(source string) *tracking.Shipment {
		return &tracking.Shipment{
			TrackingNumber: "1Z",
			Status:         tracking.StatusDelivered,
			Carrier:        "UPS",
			Source:         source,
			Events: []tracking.Event{
				{Time: now.Add(-48 * time.Hour), Description: "Picked up"},
				{Time: now, Description: "Delivered"},
			},
		}
	}
	deliveredNoEvents := &tracking.Shipment{TrackingNumber: "1Z", Status: tracking.StatusDelivered, Carrier: "UPS"}
	inTransitNoEvents := &tracking.Shipment{TrackingNumber: "1Z", Status: tracking.StatusInTransit}
	d := dispute.AppDispute{ID: "d1", Order: dispute.Order{CreatedAt: &now}}

	if tr := Prepare(d, withEvents("live"), withEvents("cache")).Tracking; tr == nil || tr.Source != "live" {
		t.Fatalf("expected live tracking, got %+v", tr)
	}
	tr := Prepare(d, deliveredNoEvents, withEvents("")).Tracking
	if tr == nil || tr.Source != "cache" {
		t.Fatalf("expected cached history, got %+v", tr)
	}
	if tr.Events[0].Description != "Delivered" {
		t.Fatalf("expected newest event first, got %+v", tr.Events)
	}

	tr = Prepare(d, deliveredNoEvents, nil).Tracking
	if tr == nil || !tr.Synthesized || len(tr.Events) != 1 || tr.Events[0].Status != tracking.StatusDelivered {
		t.Fatalf("expected one synthesized delivered event, got %+v", tr)
	}

	p := Prepare(d, inTransitNoEvents, nil)
	if !p.DigitalOnly() {
		t.Fatalf("expected digital evidence only, got %+v", p.Tracking)
	}
}

func TestPrepare_DocumentDateComesFromDispute(t *testing.T) {
	initiated := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)
	p := Prepare(dispute.AppDispute{ID: "d1", InitiatedAt: &initiated}, nil, nil)
	if !p.GeneratedAt.Equal(initiated) {
		t.Fatalf("expected %v, got %v", initiated, p.GeneratedAt)
	}
}
