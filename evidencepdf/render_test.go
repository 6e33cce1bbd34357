package evidencepdf

import (
	"bytes"
	"testing"
	"time"

	"chargemind/dispute"
	"chargemind/tracking"
)

func sampleDispute() dispute.AppDispute {
	created := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	due := created.Add(21 * 24 * time.Hour)
	return dispute.AppDispute{
		ID:            "gid-123",
		Type:          "chargeback",
		Reason:        "product_not_received",
		Status:        dispute.StatusNeedsResponse,
		Amount:        "89.00",
		Currency:      "EUR",
		EvidenceDueBy: &due,
		InitiatedAt:   &created,
		Order: dispute.Order{
			Name:          "#1042",
			CreatedAt:     &created,
			TotalPrice:    "89.00",
			TotalShipping: "9.00",
			LineItems:     []dispute.LineItem{{Title: "Café table lamp", Quantity: 1, Price: "80.00"}},
			ShippingAddress: dispute.Address{
				Name: "Zoë Müller", Address1: "Hauptstraße 5", City: "Berlin", Zip: "10115", Country: "DE",
			},
		},
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	live := &tracking.Shipment{
		TrackingNumber: "DHL1",
		Carrier:        "DHL",
		Status:         tracking.StatusDelivered,
		Events:         []tracking.Event{{Time: time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC), Description: "Delivered", Location: "Berlin"}},
	}
	var buf bytes.Buffer
	if err := Render(&buf, Prepare(sampleDispute(), live, nil)); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", buf.Bytes()[:8])
	}
}

func TestRender_Deterministic(t *testing.T) {
	p := Prepare(sampleDispute(), nil, nil)

	var a, b bytes.Buffer
	if err := Render(&a, p); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := Render(&b, p); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("expected identical output for identical input")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("123"); got != "chargemind-dispute-123.pdf" {
		t.Fatalf("unexpected file name %q", got)
	}
}
