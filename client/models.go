package client

import "time"

// Provider is a commerce or payment platform a client can connect.
type Provider string

const (
	ProviderShopify     Provider = "shopify"
	ProviderStripe      Provider = "stripe"
	ProviderPayPal      Provider = "paypal"
	ProviderWooCommerce Provider = "woocommerce"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderShopify, ProviderStripe, ProviderPayPal, ProviderWooCommerce:
		return true
	}
	return false
}

type IntegrationStatus string

const (
	IntegrationActive       IntegrationStatus = "active"
	IntegrationDisconnected IntegrationStatus = "disconnected"
)

// Branding controls how the hub and outgoing emails look for a client.
type Branding struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
	TextColor      string `json:"text_color"`
	LogoURL        string `json:"logo_url"`
	SenderName     string `json:"sender_name"`
	SenderEmail    string `json:"sender_email"`
}

// WithDefaults fills unset colors with the stock palette.
func (b Branding) WithDefaults() Branding {
	if b.PrimaryColor == "" {
		b.PrimaryColor = "#4F46E5"
	}
	if b.SecondaryColor == "" {
		b.SecondaryColor = "#EEF2FF"
	}
	if b.AccentColor == "" {
		b.AccentColor = "#10B981"
	}
	if b.TextColor == "" {
		b.TextColor = "#111827"
	}
	return b
}

type Policies struct {
	RefundURL   string `json:"refund_policy_url"`
	ShippingURL string `json:"shipping_policy_url"`
	TermsURL    string `json:"terms_url"`
}

// Client is a merchant tenant.
type Client struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ShopDomain       string    `json:"shop_domain"`
	SupportEmail     string    `json:"support_email"`
	Branding         Branding  `json:"branding"`
	Policies         Policies  `json:"policies"`
	MonitoringPaused bool      `json:"monitoring_paused"`
	DisputeCount     int       `json:"dispute_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Integration is a provider credential set. At most one exists per provider
// per client.
type Integration struct {
	ID             string            `json:"id"`
	ClientID       string            `json:"client_id"`
	Provider       Provider          `json:"provider"`
	AccessToken    string            `json:"-"`
	Scope          string            `json:"scope"`
	Status         IntegrationStatus `json:"status"`
	ConnectedAt    *time.Time        `json:"connected_at"`
	DisconnectedAt *time.Time        `json:"disconnected_at"`
}

// Monitored is a client whose Shopify disputes are polled.
type Monitored struct {
	ClientID     string
	ClientName   string
	ShopDomain   string
	AccessToken  string
	DisputeCount int
}

// BrandingUpdate is a partial branding and policy change; nil fields are
// left untouched.
type BrandingUpdate struct {
	PrimaryColor   *string `json:"primary_color"`
	SecondaryColor *string `json:"secondary_color"`
	AccentColor    *string `json:"accent_color"`
	TextColor      *string `json:"text_color"`
	LogoURL        *string `json:"logo_url"`
	SenderName     *string `json:"sender_name"`
	SenderEmail    *string `json:"sender_email"`
	RefundURL      *string `json:"refund_policy_url"`
	ShippingURL    *string `json:"shipping_policy_url"`
	TermsURL       *string `json:"terms_url"`
}
