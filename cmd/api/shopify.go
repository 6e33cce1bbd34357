package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"chargemind/client"
	"chargemind/dispute"
	"chargemind/shopify"
)

func (s *Server) handleShopifyInstall(w http.ResponseWriter, r *http.Request) {
	target, err := s.installer.Begin(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleShopifyCallback(w http.ResponseWriter, r *http.Request) {
	res, err := s.installer.Complete(r.Context(), r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

// handleDisputeWebhook stores disputes/create and disputes/update deliveries.
// Deliveries for unknown shops or other topics are acknowledged and dropped so
// Shopify does not retry them.
func (s *Server) handleDisputeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if !shopify.VerifyWebhookHMAC(body, r.Header.Get("X-Shopify-Hmac-Sha256"), s.shopifySecret) {
		writeError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	if topic != dispute.TopicDisputesCreate && topic != dispute.TopicDisputesUpdate {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	deliveryID := r.Header.Get("X-Shopify-Webhook-Id")
	if deliveryID == "" {
		deliveryID = r.Header.Get("X-Shopify-Event-Id")
	}
	if deliveryID == "" {
		writeError(w, http.StatusBadRequest, "missing webhook id")
		return
	}

	var raw dispute.ShopifyDisputeWebhook
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if raw.ID == "" {
		writeError(w, http.StatusBadRequest, "missing dispute id")
		return
	}

	shop := shopify.NormalizeShopDomain(r.Header.Get("X-Shopify-Shop-Domain"))
	c, err := s.clientService.GetByShopDomain(r.Context(), shop)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			s.logger().Warn("dispute webhook for unknown shop", zap.String("shop", shop))
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	d, err := s.disputeService.IngestWebhook(r.Context(), c.ID, deliveryID, topic, raw)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": d.ID, "status": string(d.Status)})
}
