package main

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"chargemind/client"
	"chargemind/disputerequest"
	"chargemind/evidence"
	"chargemind/hub"
	"chargemind/shopify"
	"chargemind/tracking"
)

// proxySignature rejects unsigned App Proxy requests when enforcement is on.
func (s *Server) proxySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.enforceProxySig && !shopify.VerifyProxySignature(r.URL.Query(), s.shopifySecret) {
			writeError(w, http.StatusUnauthorized, "invalid proxy signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hubClient resolves the tenant from the shop parameter Shopify appends to
// every App Proxy request.
func (s *Server) hubClient(w http.ResponseWriter, r *http.Request) (client.Client, bool) {
	shop := shopify.NormalizeShopDomain(r.URL.Query().Get("shop"))
	if !shopify.ValidShopDomain(shop) {
		writeError(w, http.StatusBadRequest, "invalid shop")
		return client.Client{}, false
	}
	c, err := s.clientService.GetByShopDomain(r.Context(), shop)
	if err != nil {
		s.writeServiceError(w, r, err)
		return client.Client{}, false
	}
	return c, true
}

func (s *Server) handleProxyPage(w http.ResponseWriter, r *http.Request) {
	shop := shopify.NormalizeShopDomain(r.URL.Query().Get("shop"))
	if !shopify.ValidShopDomain(shop) {
		writeError(w, http.StatusBadRequest, "invalid shop")
		return
	}
	data, err := s.pages.Page(r.Context(), shop)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, data); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type hubOrderRequest struct {
	OrderNumber string `json:"orderNumber"`
	Email       string `json:"email"`
}

// handleHubOrder looks the order up in the merchant's store. Upstream trouble
// is reported as available=false with status 200 so the hub can degrade.
func (s *Server) handleHubOrder(w http.ResponseWriter, r *http.Request) {
	c, ok := s.hubClient(w, r)
	if !ok {
		return
	}
	var req hubOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.OrderNumber) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "orderNumber and email are required")
		return
	}

	token, err := s.clientService.ShopifyToken(r.Context(), c.ID)
	if err != nil {
		s.logger().Warn("hub order lookup without shopify token",
			zap.String("client_id", c.ID), zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	order, err := s.orders.FindOrder(r.Context(), c.ShopDomain, token, req.OrderNumber, req.Email)
	if err != nil {
		if errors.Is(err, shopify.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		s.logger().Warn("hub order lookup failed",
			zap.String("client_id", c.ID), zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "order": order})
}

func (s *Server) handleHubTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackingNumber string `json:"trackingNumber"`
		Email          string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.TrackingNumber) == "" {
		writeError(w, http.StatusBadRequest, "trackingNumber is required")
		return
	}
	shipment := s.tracker.Lookup(r.Context(), req.TrackingNumber, req.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"available": shipment.Status != tracking.StatusUnavailable,
		"shipment":  shipment,
	})
}

type hubSubmitRequest struct {
	OrderID    string         `json:"orderId"`
	Email      string         `json:"email"`
	Problem    string         `json:"problemType"`
	Evidence   map[string]any `json:"evidence"`
	Resolution string         `json:"resolution"`
}

func (s *Server) handleHubSubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.hubClient(w, r)
	if !ok {
		return
	}
	var req hubSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := s.requestService.Submit(r.Context(), disputerequest.SubmitParams{
		ClientID:            c.ID,
		OrderID:             req.OrderID,
		CustomerEmail:       req.Email,
		ProblemType:         evidence.ProblemType(req.Problem),
		EvidenceData:        req.Evidence,
		PreferredResolution: disputerequest.Resolution(req.Resolution),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":             created.ID,
		"protocolNumber": created.ProtocolNumber,
		"status":         string(created.Status),
	})
}

type hubFlowResponse struct {
	Flow       hub.Flow `json:"flow"`
	StepNumber int      `json:"stepNumber"`
	Terminal   bool     `json:"terminal"`
}

// handleHubFlow applies one customer action to the client-held flow state.
// A missing flow starts from the first step.
func (s *Server) handleHubFlow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Flow  *hub.Flow `json:"flow"`
		Event hub.Event `json:"event"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	current := hub.New()
	if req.Flow != nil {
		current = *req.Flow
	}
	next, err := current.Apply(req.Event)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hubFlowResponse{Flow: next, StepNumber: next.Step.Number(), Terminal: next.Terminal()})
}
