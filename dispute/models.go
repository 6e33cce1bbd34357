package dispute

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Status values reported by Shopify Payments for a dispute.
type Status string

const (
	StatusNeedsResponse  Status = "needs_response"
	StatusUnderReview    Status = "under_review"
	StatusChargeRefunded Status = "charge_refunded"
	StatusAccepted       Status = "accepted"
	StatusWon            Status = "won"
	StatusLost           Status = "lost"
)

// AppDispute is the normalized dispute the dashboard and the evidence PDF work
// with. Every collection is non-nil and every amount is a two-decimal string.
type AppDispute struct {
	ID                string     `json:"id"`
	OrderID           string     `json:"order_id"`
	Type              string     `json:"type"`
	Reason            string     `json:"reason"`
	NetworkReasonCode string     `json:"network_reason_code"`
	Status            Status     `json:"status"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	EvidenceDueBy     *time.Time `json:"evidence_due_by"`
	EvidenceSentOn    *time.Time `json:"evidence_sent_on"`
	FinalizedOn       *time.Time `json:"finalized_on"`
	InitiatedAt       *time.Time `json:"initiated_at"`
	Order             Order      `json:"order"`
	Customer          Customer   `json:"customer"`
	Products          []Product  `json:"products"`
}

// Order is the order the dispute was raised against.
type Order struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	CreatedAt         *time.Time     `json:"created_at"`
	Currency          string         `json:"currency"`
	TotalPrice        string         `json:"total_price"`
	SubtotalPrice     string         `json:"subtotal_price"`
	TotalTax          string         `json:"total_tax"`
	TotalDiscounts    string         `json:"total_discounts"`
	TotalShipping     string         `json:"total_shipping"`
	Gateway           string         `json:"gateway"`
	BrowserIP         string         `json:"browser_ip"`
	FinancialStatus   string         `json:"financial_status"`
	FulfillmentStatus string         `json:"fulfillment_status"`
	LineItems         []LineItem     `json:"line_items"`
	ShippingLines     []ShippingLine `json:"shipping_lines"`
	Fulfillments      []Fulfillment  `json:"fulfillments"`
	ShippingAddress   Address        `json:"shipping_address"`
	BillingAddress    Address        `json:"billing_address"`
}

// LineItem is a purchased product line.
type LineItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
}

// ShippingLine is a shipping method charged on the order.
type ShippingLine struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

// Fulfillment captures a shipment created for the order.
type Fulfillment struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	ShipmentStatus  string     `json:"shipment_status"`
	TrackingCompany string     `json:"tracking_company"`
	TrackingNumber  string     `json:"tracking_number"`
	TrackingURL     string     `json:"tracking_url"`
	CreatedAt       *time.Time `json:"created_at"`
}

// Address is a postal address. The zero value means "unknown".
type Address struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

// IsEmpty reports whether no meaningful address line is present.
func (a Address) IsEmpty() bool {
	return strings.TrimSpace(a.Address1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.Zip) == "" &&
		strings.TrimSpace(a.Country) == ""
}

// Customer identity fields stay nil when Shopify did not send them.
type Customer struct {
	ID          *string    `json:"id"`
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	Email       *string    `json:"email"`
	Phone       *string    `json:"phone"`
	OrdersCount int        `json:"orders_count"`
	CreatedAt   *time.Time `json:"created_at"`
}

// FullName joins the known name parts.
func (c Customer) FullName() string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{c.FirstName, c.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	return strings.Join(parts, " ")
}

// Product is the loose product summary some dispute sources carry instead of
// order line items.
type Product struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Filters narrows dispute listings for the dashboard.
type Filters struct {
	Status   Status
	Page     int
	PageSize int
}

// FlexString accepts either a JSON string or a JSON number. Shopify sends
// numeric ids in webhooks and string ids in GraphQL responses.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }
