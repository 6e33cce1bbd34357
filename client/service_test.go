package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func str(s string) *string { return &s }

func TestUpdateBranding_AppliesPartialChange(t *testing.T) {
	store := newFakeStore()
	store.clients["c1"] = Client{ID: "c1", Name: "Acme", Branding: Branding{PrimaryColor: "#000000", AccentColor: "#ff0000"}}
	svc := NewService(store, nil)

	got, err := svc.UpdateBranding(context.Background(), "c1", BrandingUpdate{
		PrimaryColor: str(" #1a2B3c "),
		RefundURL:    str("https://acme.example/refunds"),
	})
	if err != nil {
		t.Fatalf("update branding: %v", err)
	}
	if got.Branding.PrimaryColor != "#1a2B3c" || got.Branding.AccentColor != "#ff0000" {
		t.Fatalf("unexpected branding: %+v", got.Branding)
	}
	if got.Policies.RefundURL != "https://acme.example/refunds" {
		t.Fatalf("unexpected policies: %+v", got.Policies)
	}
}

func TestUpdateBranding_Validation(t *testing.T) {
	cases := map[string]BrandingUpdate{
		"named color":     {PrimaryColor: str("red")},
		"short hex":       {AccentColor: str("#12")},
		"missing hash":    {TextColor: str("112233")},
		"http logo":       {LogoURL: str("http://cdn.example/logo.png")},
		"relative policy": {TermsURL: str("/terms")},
		"bad sender":      {SenderEmail: str("not-an-email")},
	}
	for name, u := range cases {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			store.clients["c1"] = Client{ID: "c1"}
			svc := NewService(store, nil)
			if _, err := svc.UpdateBranding(context.Background(), "c1", u); !errors.Is(err, ErrInvalidBranding) {
				t.Fatalf("expected ErrInvalidBranding, got %v", err)
			}
			if store.saves != 0 {
				t.Fatal("invalid branding must not be saved")
			}
		})
	}
}

func TestConnectIntegration_OneActiveSetPerProvider(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.ConnectIntegration(ctx, "c1", ProviderShopify, "tok-1", "read_orders"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := svc.ConnectIntegration(ctx, "c1", ProviderShopify, "tok-2", "read_orders"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if len(store.integrations) != 1 {
		t.Fatalf("expected one credential set, got %d", len(store.integrations))
	}
	token, err := svc.ShopifyToken(ctx, "c1")
	if err != nil || token != "tok-2" {
		t.Fatalf("expected latest token, got %q, %v", token, err)
	}

	if err := svc.DisconnectIntegration(ctx, "c1", ProviderShopify); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if _, err := svc.ShopifyToken(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after disconnect, got %v", err)
	}
}

func TestConnectIntegration_Validation(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	if _, err := svc.ConnectIntegration(context.Background(), "c1", "square", "tok", ""); !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
	if _, err := svc.ConnectIntegration(context.Background(), "c1", ProviderStripe, "  ", ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestMerchant_PrefersSenderEmail(t *testing.T) {
	store := newFakeStore()
	store.clients["c1"] = Client{
		ID: "c1", Name: "Acme", SupportEmail: "owner@acme.example",
		Branding: Branding{SenderEmail: "help@acme.example"},
		Policies: Policies{TermsURL: "https://acme.example/terms"},
	}
	m, err := NewService(store, nil).Merchant(context.Background(), "c1")
	if err != nil {
		t.Fatalf("merchant: %v", err)
	}
	if m.Name != "Acme" || m.SupportEmail != "help@acme.example" || m.TermsURL != "https://acme.example/terms" {
		t.Fatalf("unexpected merchant: %+v", m)
	}
}

func TestBranding_WithDefaults(t *testing.T) {
	b := Branding{PrimaryColor: "#123456"}.WithDefaults()
	if b.PrimaryColor != "#123456" || b.SecondaryColor == "" || b.AccentColor == "" || b.TextColor == "" {
		t.Fatalf("unexpected defaults: %+v", b)
	}
}

func TestUpsertByShopDomain_CreatesOnce(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	first, created, err := svc.UpsertByShopDomain(ctx, " Acme.myshopify.com ", "Acme", "ops@acme.example")
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	if first.ShopDomain != "acme.myshopify.com" {
		t.Fatalf("expected normalized shop, got %q", first.ShopDomain)
	}

	second, created, err := svc.UpsertByShopDomain(ctx, "acme.myshopify.com", "Acme Inc", "ops@acme.example")
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.Name != "Acme Inc" {
		t.Fatalf("expected refreshed existing client, got %+v", second)
	}

	if _, _, err := svc.UpsertByShopDomain(ctx, "  ", "x", ""); err == nil {
		t.Fatal("expected error for empty shop")
	}
}

type integrationKey struct {
	clientID string
	provider Provider
}

type fakeStore struct {
	clients      map[string]Client
	integrations map[integrationKey]Integration
	saves        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{clients: make(map[string]Client), integrations: make(map[integrationKey]Integration)}
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) GetByShopDomain(ctx context.Context, shop string) (Client, error) {
	for _, c := range f.clients {
		if c.ShopDomain == shop {
			return c, nil
		}
	}
	return Client{}, ErrNotFound
}

func (f *fakeStore) UpsertByShopDomain(ctx context.Context, shop, name, supportEmail string) (Client, bool, error) {
	for id, c := range f.clients {
		if c.ShopDomain == shop {
			c.Name, c.SupportEmail = name, supportEmail
			f.clients[id] = c
			return c, false, nil
		}
	}
	c := Client{ID: fmt.Sprintf("client-%d", len(f.clients)+1), ShopDomain: shop, Name: name, SupportEmail: supportEmail}
	f.clients[c.ID] = c
	return c, true, nil
}

func (f *fakeStore) SaveBranding(ctx context.Context, id string, b Branding, p Policies) (Client, error) {
	f.saves++
	c := f.clients[id]
	c.Branding, c.Policies = b, p
	f.clients[id] = c
	return c, nil
}

func (f *fakeStore) UpsertIntegration(ctx context.Context, in Integration) (Integration, error) {
	in.Status = IntegrationActive
	f.integrations[integrationKey{in.ClientID, in.Provider}] = in
	return in, nil
}

func (f *fakeStore) GetIntegration(ctx context.Context, clientID string, provider Provider) (Integration, error) {
	in, ok := f.integrations[integrationKey{clientID, provider}]
	if !ok {
		return Integration{}, ErrNotFound
	}
	return in, nil
}

func (f *fakeStore) DisconnectIntegration(ctx context.Context, clientID string, provider Provider) error {
	k := integrationKey{clientID, provider}
	in, ok := f.integrations[k]
	if !ok || in.Status != IntegrationActive {
		return ErrNotFound
	}
	in.Status = IntegrationDisconnected
	in.AccessToken = ""
	f.integrations[k] = in
	return nil
}

func (f *fakeStore) SetMonitoringPaused(ctx context.Context, id string, paused bool) error {
	c, ok := f.clients[id]
	if !ok {
		return ErrNotFound
	}
	c.MonitoringPaused = paused
	f.clients[id] = c
	return nil
}

func (f *fakeStore) ListShopifyMonitored(ctx context.Context) ([]Monitored, error) {
	return nil, nil
}

func (f *fakeStore) UpdateDisputeCount(ctx context.Context, id string, count int) error {
	return nil
}
