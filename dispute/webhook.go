package dispute

import "time"

// ShopifyDisputeWebhook is the body of the disputes/create and disputes/update
// webhooks. Only id is guaranteed; the embedded order and customer are added
// by the app when it enriches the payload and may be missing entirely.
type ShopifyDisputeWebhook struct {
	ID                FlexString       `json:"id"`
	OrderID           FlexString       `json:"order_id"`
	Type              string           `json:"type"`
	Amount            any              `json:"amount"`
	Currency          string           `json:"currency"`
	Reason            string           `json:"reason"`
	NetworkReasonCode string           `json:"network_reason_code"`
	Status            string           `json:"status"`
	EvidenceDueBy     *time.Time       `json:"evidence_due_by"`
	EvidenceSentOn    *time.Time       `json:"evidence_sent_on"`
	FinalizedOn       *time.Time       `json:"finalized_on"`
	InitiatedAt       *time.Time       `json:"initiated_at"`
	Order             *ShopifyOrder    `json:"order"`
	Customer          *ShopifyCustomer `json:"customer"`
	Products          []ShopifyProduct `json:"products"`
}

// ShopifyOrder is the REST order resource as embedded in webhook payloads.
type ShopifyOrder struct {
	ID                  FlexString            `json:"id"`
	Name                string                `json:"name"`
	Email               string                `json:"email"`
	CreatedAt           *time.Time            `json:"created_at"`
	Currency            string                `json:"currency"`
	TotalPrice          any                   `json:"total_price"`
	SubtotalPrice       any                   `json:"subtotal_price"`
	TotalTax            any                   `json:"total_tax"`
	TotalDiscounts      any                   `json:"total_discounts"`
	Gateway             string                `json:"gateway"`
	PaymentGatewayNames []string              `json:"payment_gateway_names"`
	BrowserIP           string                `json:"browser_ip"`
	FinancialStatus     string                `json:"financial_status"`
	FulfillmentStatus   string                `json:"fulfillment_status"`
	LineItems           []ShopifyLineItem     `json:"line_items"`
	ShippingLines       []ShopifyShippingLine `json:"shipping_lines"`
	Fulfillments        []ShopifyFulfillment  `json:"fulfillments"`
	ShippingAddress     *ShopifyAddress       `json:"shipping_address"`
	BillingAddress      *ShopifyAddress       `json:"billing_address"`
	Customer            *ShopifyCustomer      `json:"customer"`
}

type ShopifyLineItem struct {
	ID           FlexString `json:"id"`
	Title        string     `json:"title"`
	Name         string     `json:"name"`
	VariantTitle string     `json:"variant_title"`
	SKU          string     `json:"sku"`
	Quantity     int        `json:"quantity"`
	Price        any        `json:"price"`
}

type ShopifyShippingLine struct {
	Title string `json:"title"`
	Price any    `json:"price"`
}

type ShopifyFulfillment struct {
	ID              FlexString `json:"id"`
	Status          string     `json:"status"`
	ShipmentStatus  string     `json:"shipment_status"`
	TrackingCompany string     `json:"tracking_company"`
	TrackingNumber  string     `json:"tracking_number"`
	TrackingURL     string     `json:"tracking_url"`
	CreatedAt       *time.Time `json:"created_at"`
}

type ShopifyAddress struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

type ShopifyCustomer struct {
	ID          FlexString `json:"id"`
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	Email       *string    `json:"email"`
	Phone       *string    `json:"phone"`
	OrdersCount int        `json:"orders_count"`
	CreatedAt   *time.Time `json:"created_at"`
}

type ShopifyProduct struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    any    `json:"price"`
}
