package shopify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chargemind/tracking"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("key", "secret", "2024-10", srv.Client(), nil).
		WithBaseURL(func(string) string { return srv.URL })
}

const restOrder = `{"orders":[{
	"id": 450789469,
	"name": "#1001",
	"email": "Bob@Example.com",
	"currency": "usd",
	"total_price": "59.9",
	"subtotal_price": "49.9",
	"total_tax": "5",
	"total_discounts": "0",
	"financial_status": "paid",
	"fulfillment_status": "fulfilled",
	"line_items": [{"id": 1, "title": "Mug", "quantity": 2, "price": "24.95"}],
	"shipping_lines": [{"title": "Ground", "price": "5.00"}],
	"fulfillments": [{"id": 9, "status": "success", "shipment_status": "delivered", "tracking_company": "USPS", "tracking_number": "9400 1"}],
	"shipping_address": {"first_name": "Bob", "last_name": "Buyer", "address1": "1 Main St", "city": "Austin", "zip": "78701", "country": "US"}
}]}`

func TestFindOrder_MatchesEmailAndFillsRedactedAddress(t *testing.T) {
	var graphqlCalls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Shopify-Access-Token") != "tok" {
			t.Errorf("missing access token header")
		}
		switch r.URL.Path {
		case "/admin/api/2024-10/orders.json":
			if r.URL.Query().Get("name") != "#1001" || r.URL.Query().Get("status") != "any" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			io.WriteString(w, restOrder)
		case "/admin/api/2024-10/graphql.json":
			graphqlCalls++
			var body struct {
				Variables map[string]string `json:"variables"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Variables["id"] != "gid://shopify/Order/450789469" {
				t.Errorf("unexpected gid %q", body.Variables["id"])
			}
			io.WriteString(w, `{"data":{"order":{"shippingAddress":null,"billingAddress":{"name":"Bob Buyer","address1":"9 Card Rd","city":"Austin","zip":"78702","country":"US"}}}}`)
		default:
			http.NotFound(w, r)
		}
	})

	view, err := c.FindOrder(t.Context(), "acme.myshopify.com", "tok", "#1001", " bob@example.COM ")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if graphqlCalls != 1 {
		t.Fatalf("expected one graphql call, got %d", graphqlCalls)
	}
	if view.Number != "1001" || view.TotalPrice != "59.90" || view.Currency != "USD" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.ShippingAddress.Name != "Bob Buyer" || view.ShippingAddress.Address1 != "1 Main St" {
		t.Fatalf("REST shipping address should be kept, got %+v", view.ShippingAddress)
	}
	if view.BillingAddress.Address1 != "9 Card Rd" {
		t.Fatalf("billing address should come from graphql, got %+v", view.BillingAddress)
	}
	if view.ShipmentStatus != tracking.StatusDelivered {
		t.Fatalf("expected delivered, got %s", view.ShipmentStatus)
	}
	if len(view.TrackingNumbers) != 1 || view.TrackingNumbers[0] != "9400 1" || view.TrackingCompany != "USPS" {
		t.Fatalf("unexpected tracking %v %q", view.TrackingNumbers, view.TrackingCompany)
	}
	if len(view.LineItems) != 1 || view.LineItems[0].Price != "24.95" {
		t.Fatalf("unexpected line items %+v", view.LineItems)
	}
}

func TestFindOrder_EmailMismatchIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, restOrder)
	})
	_, err := c.FindOrder(t.Context(), "acme.myshopify.com", "tok", "1001", "mallory@example.com")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestFindOrder_GraphQLFailureKeepsRESTData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "graphql.json") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, restOrder)
	})
	view, err := c.FindOrder(t.Context(), "acme.myshopify.com", "tok", "1001", "bob@example.com")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if !view.BillingAddress.IsEmpty() {
		t.Fatalf("expected empty billing address, got %+v", view.BillingAddress)
	}
}

func TestFindOrder_UpstreamErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if _, err := c.FindOrder(t.Context(), "acme.myshopify.com", "tok", "1001", "bob@example.com"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := c.FindOrder(t.Context(), "acme.example.com", "tok", "1001", "bob@example.com"); !errors.Is(err, ErrInvalidShop) {
		t.Fatalf("expected ErrInvalidShop, got %v", err)
	}
}

func TestExchangeTokenAndCountDisputes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/oauth/access_token":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["code"] != "the-code" || body["client_secret"] != "secret" {
				t.Errorf("unexpected exchange body %v", body)
			}
			io.WriteString(w, `{"access_token":"shpat_1","scope":"read_orders"}`)
		case "/admin/api/2024-10/shopify_payments/disputes.json":
			io.WriteString(w, `{"disputes":[{"id":1},{"id":"2"},{"id":3}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	tok, err := c.ExchangeToken(t.Context(), "acme.myshopify.com", "the-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tok.AccessToken != "shpat_1" || tok.Scope != "read_orders" {
		t.Fatalf("unexpected token %+v", tok)
	}

	n, err := c.CountDisputes(t.Context(), "acme.myshopify.com", tok.AccessToken)
	if err != nil {
		t.Fatalf("count disputes: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 disputes, got %d", n)
	}
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient("key", "secret", "", nil, nil)
	got := c.AuthorizeURL("acme.myshopify.com", "st", "https://api.chargemind.io/shopify/callback", "read_orders")
	want := "https://acme.myshopify.com/admin/oauth/authorize?client_id=key&redirect_uri=https%3A%2F%2Fapi.chargemind.io%2Fshopify%2Fcallback&scope=read_orders&state=st"
	if got != want {
		t.Fatalf("AuthorizeURL =\n%s\nwant\n%s", got, want)
	}
}
