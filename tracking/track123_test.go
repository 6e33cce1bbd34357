package tracking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrack123Client_Track(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Track123-Api-Secret") != "secret" {
			t.Errorf("missing api secret header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"00000","data":{"accepted":{"content":[{
			"trackNo":"LX123",
			"transitStatus":"DELIVERED",
			"localLogisticsInfo":{"courierNameEN":"UPS","trackingDetails":[
				{"eventTime":"2024-03-01 09:00:00","address":"Reno, NV","eventDetail":"Picked up","transitSubStatus":"IN_TRANSIT"},
				{"eventTime":"2024-03-03 14:30:00","address":"Boise, ID","eventDetail":"Delivered","transitSubStatus":"DELIVERED"}
			]}}]}}}`))
	}))
	defer srv.Close()

	client := NewTrack123Client("secret", srv.URL, srv.Client())
	got, err := client.Track(context.Background(), "LX123")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if got.Status != StatusDelivered || got.Carrier != "UPS" {
		t.Fatalf("unexpected shipment: %+v", got)
	}
	if len(got.Events) != 2 || got.Events[0].Description != "Delivered" {
		t.Fatalf("expected newest event first, got %+v", got.Events)
	}
}

func TestTrack123Client_UnknownNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"00000","data":{"accepted":{"content":[]}}}`))
	}))
	defer srv.Close()

	_, err := NewTrack123Client("k", srv.URL, srv.Client()).Track(context.Background(), "NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrack123Client_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewTrack123Client("k", srv.URL, srv.Client()).Track(context.Background(), "X")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
