package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"chargemind/dispute"
)

const (
	DefaultAPIVersion = "2024-10"
	requestTimeout    = 15 * time.Second
)

var (
	ErrInvalidShop   = errors.New("shopify: invalid shop domain")
	ErrOrderNotFound = errors.New("shopify: order not found")
	ErrUnauthorized  = errors.New("shopify: access token rejected")
	ErrUpstream      = errors.New("shopify: upstream failure")
)

// Token is the result of an OAuth code exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// Shop is the subset of the shop resource used during install.
type Shop struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	ShopOwner string `json:"shop_owner"`
	Domain    string `json:"myshopify_domain"`
}

// Client talks to the Shopify Admin API on behalf of installed shops.
type Client struct {
	apiKey     string
	apiSecret  string
	apiVersion string
	http       *http.Client
	baseURL    func(shop string) string
	log        *zap.Logger
}

func NewClient(apiKey, apiSecret, apiVersion string, httpClient *http.Client, log *zap.Logger) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		apiVersion: apiVersion,
		http:       httpClient,
		baseURL:    func(shop string) string { return "https://" + shop },
		log:        log,
	}
}

// WithBaseURL overrides how a shop domain is turned into an origin.
func (c *Client) WithBaseURL(fn func(shop string) string) *Client {
	c.baseURL = fn
	return c
}

// AuthorizeURL builds the install URL the merchant is redirected to.
func (c *Client) AuthorizeURL(shop, state, redirectURI, scopes string) string {
	q := url.Values{}
	q.Set("client_id", c.apiKey)
	q.Set("scope", scopes)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return c.baseURL(shop) + "/admin/oauth/authorize?" + q.Encode()
}

// ExchangeToken trades an OAuth code for an offline access token.
func (c *Client) ExchangeToken(ctx context.Context, shop, code string) (Token, error) {
	if !ValidShopDomain(shop) {
		return Token{}, ErrInvalidShop
	}
	body := map[string]string{
		"client_id":     c.apiKey,
		"client_secret": c.apiSecret,
		"code":          code,
	}
	var tok Token
	if err := c.do(ctx, http.MethodPost, c.baseURL(shop)+"/admin/oauth/access_token", "", body, &tok); err != nil {
		return Token{}, fmt.Errorf("shopify: exchange token: %w", err)
	}
	if tok.AccessToken == "" {
		return Token{}, fmt.Errorf("shopify: exchange token: %w: empty access token", ErrUpstream)
	}
	return tok, nil
}

// ShopInfo returns the shop profile.
func (c *Client) ShopInfo(ctx context.Context, shop, token string) (Shop, error) {
	var resp struct {
		Shop Shop `json:"shop"`
	}
	if err := c.do(ctx, http.MethodGet, c.adminURL(shop, "/shop.json"), token, nil, &resp); err != nil {
		return Shop{}, fmt.Errorf("shopify: shop info: %w", err)
	}
	return resp.Shop, nil
}

// CountDisputes returns the number of Shopify Payments disputes of a shop.
func (c *Client) CountDisputes(ctx context.Context, shop, token string) (int, error) {
	var resp struct {
		Disputes []struct {
			ID dispute.FlexString `json:"id"`
		} `json:"disputes"`
	}
	if err := c.do(ctx, http.MethodGet, c.adminURL(shop, "/shopify_payments/disputes.json?limit=250"), token, nil, &resp); err != nil {
		return 0, fmt.Errorf("shopify: count disputes: %w", err)
	}
	return len(resp.Disputes), nil
}

// FindOrder looks an order up by its number and only returns it when the
// email matches the order or its customer. Addresses redacted from the REST
// payload are filled in through GraphQL.
func (c *Client) FindOrder(ctx context.Context, shop, token, number, email string) (OrderView, error) {
	if !ValidShopDomain(shop) {
		return OrderView{}, ErrInvalidShop
	}
	number = strings.TrimPrefix(strings.TrimSpace(number), "#")
	email = strings.ToLower(strings.TrimSpace(email))
	if number == "" || email == "" {
		return OrderView{}, ErrOrderNotFound
	}

	q := url.Values{}
	q.Set("name", "#"+number)
	q.Set("status", "any")
	var resp struct {
		Orders []dispute.ShopifyOrder `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, c.adminURL(shop, "/orders.json?"+q.Encode()), token, nil, &resp); err != nil {
		return OrderView{}, fmt.Errorf("shopify: find order: %w", err)
	}

	for _, raw := range resp.Orders {
		if strings.TrimPrefix(raw.Name, "#") != number || !emailMatches(raw, email) {
			continue
		}
		order := dispute.MapOrder(raw)
		if order.ShippingAddress.IsEmpty() || order.BillingAddress.IsEmpty() {
			shipping, billing, err := c.orderAddresses(ctx, shop, token, order.ID)
			if err != nil {
				c.log.Warn("graphql address lookup failed",
					zap.String("shop", shop),
					zap.String("order_id", order.ID),
					zap.Error(err))
			} else {
				if order.ShippingAddress.IsEmpty() {
					order.ShippingAddress = shipping
				}
				if order.BillingAddress.IsEmpty() {
					order.BillingAddress = billing
				}
			}
		}
		return NewOrderView(order), nil
	}
	return OrderView{}, ErrOrderNotFound
}

const orderAddressesQuery = `query OrderAddresses($id: ID!) {
  order(id: $id) {
    shippingAddress { name firstName lastName address1 address2 city province zip country phone }
    billingAddress { name firstName lastName address1 address2 city province zip country phone }
  }
}`

type graphqlAddress struct {
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

func (a *graphqlAddress) toAddress() dispute.Address {
	if a == nil {
		return dispute.Address{}
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
	}
	return dispute.Address{
		Name:     name,
		Address1: strings.TrimSpace(a.Address1),
		Address2: strings.TrimSpace(a.Address2),
		City:     strings.TrimSpace(a.City),
		Province: strings.TrimSpace(a.Province),
		Zip:      strings.TrimSpace(a.Zip),
		Country:  strings.TrimSpace(a.Country),
		Phone:    strings.TrimSpace(a.Phone),
	}
}

func (c *Client) orderAddresses(ctx context.Context, shop, token, orderID string) (dispute.Address, dispute.Address, error) {
	gid := orderID
	if !strings.HasPrefix(gid, "gid://") {
		gid = "gid://shopify/Order/" + orderID
	}
	body := map[string]any{
		"query":     orderAddressesQuery,
		"variables": map[string]any{"id": gid},
	}
	var resp struct {
		Data struct {
			Order *struct {
				ShippingAddress *graphqlAddress `json:"shippingAddress"`
				BillingAddress  *graphqlAddress `json:"billingAddress"`
			} `json:"order"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.do(ctx, http.MethodPost, c.adminURL(shop, "/graphql.json"), token, body, &resp); err != nil {
		return dispute.Address{}, dispute.Address{}, err
	}
	if len(resp.Errors) > 0 {
		return dispute.Address{}, dispute.Address{}, fmt.Errorf("%w: graphql: %s", ErrUpstream, resp.Errors[0].Message)
	}
	if resp.Data.Order == nil {
		return dispute.Address{}, dispute.Address{}, ErrOrderNotFound
	}
	return resp.Data.Order.ShippingAddress.toAddress(), resp.Data.Order.BillingAddress.toAddress(), nil
}

func (c *Client) adminURL(shop, path string) string {
	return c.baseURL(shop) + "/admin/api/" + c.apiVersion + path
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Shopify-Access-Token", token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", ErrUpstream, res.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrUpstream, err)
	}
	return nil
}

func emailMatches(o dispute.ShopifyOrder, email string) bool {
	if strings.EqualFold(strings.TrimSpace(o.Email), email) {
		return true
	}
	if o.Customer != nil && o.Customer.Email != nil {
		return strings.EqualFold(strings.TrimSpace(*o.Customer.Email), email)
	}
	return false
}
