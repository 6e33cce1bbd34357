package client

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"chargemind/evidencepdf"
)

var (
	ErrInvalidBranding = errors.New("client: invalid branding")
	ErrInvalidProvider = errors.New("client: unknown provider")
	ErrMissingToken    = errors.New("client: access token required")
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Store abstracts repository operations for the service.
type Store interface {
	GetByID(ctx context.Context, id string) (Client, error)
	GetByShopDomain(ctx context.Context, shop string) (Client, error)
	UpsertByShopDomain(ctx context.Context, shop, name, supportEmail string) (Client, bool, error)
	SaveBranding(ctx context.Context, id string, b Branding, p Policies) (Client, error)
	UpsertIntegration(ctx context.Context, in Integration) (Integration, error)
	GetIntegration(ctx context.Context, clientID string, provider Provider) (Integration, error)
	DisconnectIntegration(ctx context.Context, clientID string, provider Provider) error
	SetMonitoringPaused(ctx context.Context, id string, paused bool) error
	ListShopifyMonitored(ctx context.Context) ([]Monitored, error)
	UpdateDisputeCount(ctx context.Context, id string, count int) error
}

// Service exposes tenant-level operations.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

func (s *Service) GetByID(ctx context.Context, id string) (Client, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) GetByShopDomain(ctx context.Context, shop string) (Client, error) {
	return s.store.GetByShopDomain(ctx, strings.ToLower(strings.TrimSpace(shop)))
}

// UpsertByShopDomain creates the tenant of a shop on first install and
// refreshes its name and support email afterwards. created reports which.
func (s *Service) UpsertByShopDomain(ctx context.Context, shop, name, supportEmail string) (Client, bool, error) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if shop == "" {
		return Client{}, false, fmt.Errorf("client: shop domain required")
	}
	c, created, err := s.store.UpsertByShopDomain(ctx, shop, strings.TrimSpace(name), strings.TrimSpace(supportEmail))
	if err != nil {
		return Client{}, false, err
	}
	if created {
		s.log.Info("client created", zap.String("client_id", c.ID), zap.String("shop", shop))
	}
	return c, created, nil
}

// UpdateBranding applies a partial branding change after validating colors,
// links and the sender address.
func (s *Service) UpdateBranding(ctx context.Context, clientID string, u BrandingUpdate) (Client, error) {
	current, err := s.store.GetByID(ctx, clientID)
	if err != nil {
		return Client{}, err
	}
	b, p := current.Branding, current.Policies

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&b.PrimaryColor, u.PrimaryColor)
	set(&b.SecondaryColor, u.SecondaryColor)
	set(&b.AccentColor, u.AccentColor)
	set(&b.TextColor, u.TextColor)
	set(&b.LogoURL, u.LogoURL)
	set(&b.SenderName, u.SenderName)
	set(&b.SenderEmail, u.SenderEmail)
	set(&p.RefundURL, u.RefundURL)
	set(&p.ShippingURL, u.ShippingURL)
	set(&p.TermsURL, u.TermsURL)

	if err := validateBranding(b, p); err != nil {
		return Client{}, err
	}
	return s.store.SaveBranding(ctx, clientID, b, p)
}

func validateBranding(b Branding, p Policies) error {
	for name, c := range map[string]string{
		"primary_color":   b.PrimaryColor,
		"secondary_color": b.SecondaryColor,
		"accent_color":    b.AccentColor,
		"text_color":      b.TextColor,
	} {
		if c != "" && !hexColor.MatchString(c) {
			return fmt.Errorf("%w: %s must be a hex color", ErrInvalidBranding, name)
		}
	}
	for name, link := range map[string]string{
		"logo_url":            b.LogoURL,
		"refund_policy_url":   p.RefundURL,
		"shipping_policy_url": p.ShippingURL,
		"terms_url":           p.TermsURL,
	} {
		if link == "" {
			continue
		}
		u, err := url.Parse(link)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an https URL", ErrInvalidBranding, name)
		}
	}
	if b.SenderEmail != "" {
		if _, err := mail.ParseAddress(b.SenderEmail); err != nil {
			return fmt.Errorf("%w: sender_email invalid", ErrInvalidBranding)
		}
	}
	return nil
}

// ConnectIntegration stores or replaces the credentials of a provider.
func (s *Service) ConnectIntegration(ctx context.Context, clientID string, provider Provider, token, scope string) (Integration, error) {
	if !provider.Valid() {
		return Integration{}, ErrInvalidProvider
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Integration{}, ErrMissingToken
	}
	in, err := s.store.UpsertIntegration(ctx, Integration{
		ClientID:    clientID,
		Provider:    provider,
		AccessToken: token,
		Scope:       strings.TrimSpace(scope),
	})
	if err != nil {
		return Integration{}, err
	}
	s.log.Info("integration connected",
		zap.String("client_id", clientID),
		zap.String("provider", string(provider)))
	return in, nil
}

func (s *Service) DisconnectIntegration(ctx context.Context, clientID string, provider Provider) error {
	if !provider.Valid() {
		return ErrInvalidProvider
	}
	if err := s.store.DisconnectIntegration(ctx, clientID, provider); err != nil {
		return err
	}
	s.log.Info("integration disconnected",
		zap.String("client_id", clientID),
		zap.String("provider", string(provider)))
	return nil
}

// ShopifyToken returns the active Shopify access token for a client.
func (s *Service) ShopifyToken(ctx context.Context, clientID string) (string, error) {
	in, err := s.store.GetIntegration(ctx, clientID, ProviderShopify)
	if err != nil {
		return "", err
	}
	if in.Status != IntegrationActive || in.AccessToken == "" {
		return "", ErrNotFound
	}
	return in.AccessToken, nil
}

func (s *Service) SetMonitoringPaused(ctx context.Context, clientID string, paused bool) error {
	return s.store.SetMonitoringPaused(ctx, clientID, paused)
}

func (s *Service) ListShopifyMonitored(ctx context.Context) ([]Monitored, error) {
	return s.store.ListShopifyMonitored(ctx)
}

func (s *Service) UpdateDisputeCount(ctx context.Context, clientID string, count int) error {
	if count < 0 {
		return fmt.Errorf("client: negative dispute count %d", count)
	}
	return s.store.UpdateDisputeCount(ctx, clientID, count)
}

// Merchant returns the identity printed on evidence documents.
func (s *Service) Merchant(ctx context.Context, clientID string) (evidencepdf.Merchant, error) {
	c, err := s.store.GetByID(ctx, clientID)
	if err != nil {
		return evidencepdf.Merchant{}, err
	}
	support := c.SupportEmail
	if c.Branding.SenderEmail != "" {
		support = c.Branding.SenderEmail
	}
	return evidencepdf.Merchant{
		Name:              c.Name,
		SupportEmail:      support,
		RefundPolicyURL:   c.Policies.RefundURL,
		ShippingPolicyURL: c.Policies.ShippingURL,
		TermsURL:          c.Policies.TermsURL,
	}, nil
}
