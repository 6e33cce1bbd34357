package shopify

import (
	"strings"
	"time"

	"chargemind/dispute"
	"chargemind/tracking"
)

// OrderView is what the resolution hub receives after an order lookup.
type OrderView struct {
	ID                string             `json:"id"`
	Number            string             `json:"orderNumber"`
	Email             string             `json:"email"`
	CreatedAt         *time.Time         `json:"createdAt"`
	Currency          string             `json:"currency"`
	TotalPrice        string             `json:"totalPrice"`
	SubtotalPrice     string             `json:"subtotalPrice"`
	TotalTax          string             `json:"totalTax"`
	TotalShipping     string             `json:"totalShipping"`
	TotalDiscounts    string             `json:"totalDiscounts"`
	FinancialStatus   string             `json:"financialStatus"`
	FulfillmentStatus string             `json:"fulfillmentStatus"`
	ShipmentStatus    tracking.Status    `json:"shipmentStatus"`
	TrackingNumbers   []string           `json:"trackingNumbers"`
	TrackingCompany   string             `json:"trackingCompany"`
	LineItems         []dispute.LineItem `json:"lineItems"`
	ShippingAddress   dispute.Address    `json:"shippingAddress"`
	BillingAddress    dispute.Address    `json:"billingAddress"`
}

func NewOrderView(o dispute.Order) OrderView {
	view := OrderView{
		ID:                o.ID,
		Number:            strings.TrimPrefix(o.Name, "#"),
		Email:             o.Email,
		CreatedAt:         o.CreatedAt,
		Currency:          o.Currency,
		TotalPrice:        o.TotalPrice,
		SubtotalPrice:     o.SubtotalPrice,
		TotalTax:          o.TotalTax,
		TotalShipping:     o.TotalShipping,
		TotalDiscounts:    o.TotalDiscounts,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		ShipmentStatus:    ShipmentStatus(o),
		TrackingNumbers:   []string{},
		LineItems:         o.LineItems,
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
	}
	for _, f := range o.Fulfillments {
		if f.TrackingNumber != "" {
			view.TrackingNumbers = append(view.TrackingNumbers, f.TrackingNumber)
		}
		if f.TrackingCompany != "" {
			view.TrackingCompany = f.TrackingCompany
		}
	}
	return view
}

// ShipmentStatus derives the hub shipment status from the most recent
// fulfillment.
func ShipmentStatus(o dispute.Order) tracking.Status {
	if len(o.Fulfillments) == 0 {
		if o.FulfillmentStatus == "fulfilled" {
			return tracking.StatusInTransit
		}
		return tracking.StatusPending
	}

	latest := o.Fulfillments[len(o.Fulfillments)-1]
	switch strings.ToLower(strings.TrimSpace(latest.ShipmentStatus)) {
	case "delivered":
		return tracking.StatusDelivered
	case "out_for_delivery":
		return tracking.StatusOutForDelivery
	case "in_transit", "confirmed", "attempted_delivery", "ready_for_pickup":
		return tracking.StatusInTransit
	case "label_printed", "label_purchased":
		return tracking.StatusInfoReceived
	case "failure":
		return tracking.StatusException
	case "":
		if latest.Status == "success" {
			return tracking.StatusInTransit
		}
		return tracking.StatusPending
	}
	return tracking.NormalizeStatus(latest.ShipmentStatus)
}
