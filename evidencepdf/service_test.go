package evidencepdf

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"chargemind/dispute"
	"chargemind/tracking"
)

type fakeDisputes struct {
	d   dispute.AppDispute
	err error
}

func (f fakeDisputes) Get(ctx context.Context, clientID, disputeID string) (dispute.AppDispute, error) {
	return f.d, f.err
}

type fakeTracking struct {
	live    tracking.Shipment
	cached  *tracking.Shipment
	lookups []string
}

func (f *fakeTracking) Lookup(ctx context.Context, number, email string) tracking.Shipment {
	f.lookups = append(f.lookups, number)
	return f.live
}

func (f *fakeTracking) Cached(ctx context.Context, number string) *tracking.Shipment {
	return f.cached
}

type fakeMerchants struct{ err error }

func (f fakeMerchants) Merchant(ctx context.Context, clientID string) (Merchant, error) {
	return Merchant{Name: "Acme"}, f.err
}

func TestGenerate_LooksUpTrackingFromFulfillment(t *testing.T) {
	d := sampleDispute()
	d.Order.Fulfillments = []dispute.Fulfillment{{TrackingNumber: "DHL1"}}
	tr := &fakeTracking{live: tracking.Shipment{TrackingNumber: "DHL1", Status: tracking.StatusUnavailable}}

	svc := NewService(fakeDisputes{d: d}, tr, fakeMerchants{err: errors.New("db down")}, nil)
	var buf bytes.Buffer
	if err := svc.Generate(context.Background(), "client-1", d.ID, &buf); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(tr.lookups) != 1 || tr.lookups[0] != "DHL1" {
		t.Fatalf("expected tracking lookup for DHL1, got %v", tr.lookups)
	}
	if buf.Len() == 0 {
		t.Fatal("expected PDF bytes")
	}
}

func TestGenerate_MissingDispute(t *testing.T) {
	svc := NewService(fakeDisputes{err: dispute.ErrNotFound}, nil, nil, nil)
	err := svc.Generate(context.Background(), "client-1", "missing", &bytes.Buffer{})
	if !errors.Is(err, dispute.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
