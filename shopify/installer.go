package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chargemind/auth"
	"chargemind/client"
)

const stateTTL = 10 * time.Minute

var (
	ErrInvalidCallback = errors.New("shopify: missing oauth parameters")
	ErrInvalidHMAC     = errors.New("shopify: hmac verification failed")
	ErrInvalidState    = errors.New("shopify: invalid or expired state")
	// ErrAccountConflict signals that the shop email already belongs to a
	// user of another client.
	ErrAccountConflict = errors.New("shopify: email registered to another client")
)

type OAuthAPI interface {
	AuthorizeURL(shop, state, redirectURI, scopes string) string
	ExchangeToken(ctx context.Context, shop, code string) (Token, error)
	ShopInfo(ctx context.Context, shop, token string) (Shop, error)
}

type StateStore interface {
	Save(ctx context.Context, state, shop string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (string, error)
}

type Tenants interface {
	UpsertByShopDomain(ctx context.Context, shop, name, supportEmail string) (client.Client, bool, error)
	ConnectIntegration(ctx context.Context, clientID string, provider client.Provider, token, scope string) (client.Integration, error)
}

type Accounts interface {
	FindByEmail(ctx context.Context, email string) (auth.User, error)
	CreateWithTemporaryPassword(ctx context.Context, clientID, email, fullName string, role auth.Role) (auth.User, string, error)
	IssueMagicLink(user auth.User, baseURL string) (string, error)
}

// WelcomeSender delivers the temporary password of a freshly created admin.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, to, shopName, password, loginURL string) error
}

type InstallerConfig struct {
	APISecret    string
	Scopes       string
	RedirectURI  string
	MagicLinkURL string
	DashboardURL string
}

// InstallResult describes a completed install. TemporaryPassword is only set
// for newly created admins.
type InstallResult struct {
	Client            client.Client
	ClientCreated     bool
	User              auth.User
	MagicLink         string
	TemporaryPassword string
	RedirectURL       string
}

// Installer runs the OAuth install handshake.
type Installer struct {
	cfg      InstallerConfig
	api      OAuthAPI
	states   StateStore
	tenants  Tenants
	accounts Accounts
	welcome  WelcomeSender
	log      *zap.Logger
	newState func() string
}

func NewInstaller(cfg InstallerConfig, api OAuthAPI, states StateStore, tenants Tenants, accounts Accounts, welcome WelcomeSender, log *zap.Logger) *Installer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Installer{
		cfg:      cfg,
		api:      api,
		states:   states,
		tenants:  tenants,
		accounts: accounts,
		welcome:  welcome,
		log:      log,
		newState: uuid.NewString,
	}
}

// Begin stores a state nonce and returns the Shopify authorize URL.
func (i *Installer) Begin(ctx context.Context, shop string) (string, error) {
	shop = NormalizeShopDomain(shop)
	if !ValidShopDomain(shop) {
		return "", ErrInvalidShop
	}
	state := i.newState()
	if err := i.states.Save(ctx, state, shop, stateTTL); err != nil {
		return "", err
	}
	return i.api.AuthorizeURL(shop, state, i.cfg.RedirectURI, i.cfg.Scopes), nil
}

// Complete handles the OAuth callback: it verifies the request, stores the
// access token and signs the merchant in. Existing users get a magic link,
// new admins a temporary password.
func (i *Installer) Complete(ctx context.Context, query url.Values) (InstallResult, error) {
	shop := NormalizeShopDomain(query.Get("shop"))
	code := strings.TrimSpace(query.Get("code"))
	state := strings.TrimSpace(query.Get("state"))
	if !ValidShopDomain(shop) {
		return InstallResult{}, ErrInvalidShop
	}
	if code == "" || state == "" || query.Get("hmac") == "" {
		return InstallResult{}, ErrInvalidCallback
	}
	if !VerifyOAuthHMAC(query, i.cfg.APISecret) {
		return InstallResult{}, ErrInvalidHMAC
	}
	issuedFor, err := i.states.Consume(ctx, state)
	if err != nil {
		return InstallResult{}, err
	}
	if issuedFor != shop {
		return InstallResult{}, ErrInvalidState
	}

	tok, err := i.api.ExchangeToken(ctx, shop, code)
	if err != nil {
		return InstallResult{}, err
	}
	info, err := i.api.ShopInfo(ctx, shop, tok.AccessToken)
	if err != nil {
		return InstallResult{}, err
	}
	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" {
		return InstallResult{}, fmt.Errorf("shopify: shop %s has no contact email", shop)
	}
	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = strings.TrimSuffix(shop, ".myshopify.com")
	}

	tenant, created, err := i.tenants.UpsertByShopDomain(ctx, shop, name, email)
	if err != nil {
		return InstallResult{}, err
	}
	if _, err := i.tenants.ConnectIntegration(ctx, tenant.ID, client.ProviderShopify, tok.AccessToken, tok.Scope); err != nil {
		return InstallResult{}, err
	}

	res := InstallResult{Client: tenant, ClientCreated: created}
	user, err := i.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.ClientID != tenant.ID {
			return InstallResult{}, ErrAccountConflict
		}
		link, err := i.accounts.IssueMagicLink(user, i.cfg.MagicLinkURL)
		if err != nil {
			return InstallResult{}, err
		}
		res.User = user
		res.MagicLink = link
		res.RedirectURL = link
	case errors.Is(err, auth.ErrUserNotFound):
		owner := strings.TrimSpace(info.ShopOwner)
		if owner == "" {
			owner = name
		}
		user, password, err := i.accounts.CreateWithTemporaryPassword(ctx, tenant.ID, email, owner, auth.RoleAdmin)
		if err != nil {
			return InstallResult{}, err
		}
		res.User = user
		res.TemporaryPassword = password
		res.RedirectURL = i.loginURL(email)
		if i.welcome != nil {
			if err := i.welcome.SendWelcome(ctx, email, name, password, res.RedirectURL); err != nil {
				i.log.Error("welcome email not queued",
					zap.String("client_id", tenant.ID),
					zap.String("email", email),
					zap.Error(err))
			}
		}
	default:
		return InstallResult{}, err
	}

	i.log.Info("shopify app installed",
		zap.String("shop", shop),
		zap.String("client_id", tenant.ID),
		zap.Bool("client_created", created),
		zap.Bool("magic_link", res.MagicLink != ""))
	return res, nil
}

func (i *Installer) loginURL(email string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("first_login", "1")
	return strings.TrimSuffix(i.cfg.DashboardURL, "/") + "/login?" + q.Encode()
}
