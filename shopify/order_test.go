package shopify

import (
	"testing"

	"chargemind/dispute"
	"chargemind/tracking"
)

func TestShipmentStatus(t *testing.T) {
	cases := []struct {
		name  string
		order dispute.Order
		want  tracking.Status
	}{
		{"unfulfilled", dispute.Order{}, tracking.StatusPending},
		{"fulfilled without records", dispute.Order{FulfillmentStatus: "fulfilled"}, tracking.StatusInTransit},
		{"latest wins", dispute.Order{Fulfillments: []dispute.Fulfillment{{ShipmentStatus: "delivered"}, {ShipmentStatus: "in_transit"}}}, tracking.StatusInTransit},
		{"attempted delivery", dispute.Order{Fulfillments: []dispute.Fulfillment{{ShipmentStatus: "attempted_delivery"}}}, tracking.StatusInTransit},
		{"label", dispute.Order{Fulfillments: []dispute.Fulfillment{{ShipmentStatus: "label_printed"}}}, tracking.StatusInfoReceived},
		{"failure", dispute.Order{Fulfillments: []dispute.Fulfillment{{ShipmentStatus: "failure"}}}, tracking.StatusException},
		{"no carrier status", dispute.Order{Fulfillments: []dispute.Fulfillment{{Status: "success"}}}, tracking.StatusInTransit},
		{"out for delivery", dispute.Order{Fulfillments: []dispute.Fulfillment{{ShipmentStatus: "out_for_delivery"}}}, tracking.StatusOutForDelivery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShipmentStatus(tc.order); got != tc.want {
				t.Fatalf("ShipmentStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
