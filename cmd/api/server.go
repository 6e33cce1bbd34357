package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"chargemind/auth"
	"chargemind/client"
	"chargemind/dispute"
	"chargemind/disputerequest"
	"chargemind/evidence"
	"chargemind/hub"
	"chargemind/logging"
	"chargemind/proxy"
	"chargemind/shopify"
	"chargemind/tracking"
)

const maxBodyBytes = 1 << 20

type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	RedeemMagicLink(ctx context.Context, token string) (auth.LoginResult, error)
}

type DisputeService interface {
	IngestWebhook(ctx context.Context, clientID, deliveryID, topic string, raw dispute.ShopifyDisputeWebhook) (dispute.AppDispute, error)
	List(ctx context.Context, clientID string, filters dispute.Filters) ([]dispute.AppDispute, error)
	Get(ctx context.Context, clientID, disputeID string) (dispute.AppDispute, error)
}

type EvidenceDocuments interface {
	Generate(ctx context.Context, clientID, disputeID string, w io.Writer) error
}

type ClientService interface {
	GetByID(ctx context.Context, id string) (client.Client, error)
	GetByShopDomain(ctx context.Context, shop string) (client.Client, error)
	UpdateBranding(ctx context.Context, clientID string, u client.BrandingUpdate) (client.Client, error)
	ConnectIntegration(ctx context.Context, clientID string, provider client.Provider, token, scope string) (client.Integration, error)
	DisconnectIntegration(ctx context.Context, clientID string, provider client.Provider) error
	ShopifyToken(ctx context.Context, clientID string) (string, error)
	SetMonitoringPaused(ctx context.Context, clientID string, paused bool) error
}

type EvidenceEditor interface {
	Load(ctx context.Context, clientID string, problem evidence.ProblemType) (evidence.View, error)
	SetVisibility(ctx context.Context, ch evidence.Change, visible bool) (evidence.Config, error)
	SetRequired(ctx context.Context, ch evidence.Change, required bool) (evidence.Config, error)
	AddCustom(ctx context.Context, ch evidence.Change, in evidence.NewCustomField) (evidence.Config, error)
	DeleteCustom(ctx context.Context, ch evidence.Change) error
}

type RequestService interface {
	Submit(ctx context.Context, params disputerequest.SubmitParams) (disputerequest.Request, error)
	List(ctx context.Context, filters disputerequest.Filters) (disputerequest.ListResult, error)
	Review(ctx context.Context, params disputerequest.ReviewParams) (disputerequest.Request, error)
}

type Notifications interface {
	Unread(ctx context.Context, clientID string) (int, error)
	MarkRead(ctx context.Context, clientID string) error
}

type ShopInstaller interface {
	Begin(ctx context.Context, shop string) (string, error)
	Complete(ctx context.Context, query url.Values) (shopify.InstallResult, error)
}

type OrderFinder interface {
	FindOrder(ctx context.Context, shop, token, number, email string) (shopify.OrderView, error)
}

type ShipmentTracker interface {
	Lookup(ctx context.Context, number, email string) tracking.Shipment
}

type HubPages interface {
	Page(ctx context.Context, shop string) (proxy.PageData, error)
}

type PageRenderer interface {
	Render(w io.Writer, data proxy.PageData) error
}

// Server holds the HTTP handlers. Nil dependencies are only allowed in tests
// that do not reach the routes using them.
type Server struct {
	authService     AuthService
	verifier        auth.TokenVerifier
	disputeService  DisputeService
	documents       EvidenceDocuments
	clientService   ClientService
	editor          EvidenceEditor
	requestService  RequestService
	notifications   Notifications
	installer       ShopInstaller
	orders          OrderFinder
	tracker         ShipmentTracker
	pages           HubPages
	renderer        PageRenderer
	shopifySecret   string
	enforceProxySig bool
	log             *zap.Logger
}

func (s *Server) logger() *zap.Logger {
	if s.log == nil {
		return zap.NewNop()
	}
	return s.log
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger()))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/auth/magic", s.handleMagicLink)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.verifier))

			r.With(auth.RequireRole(auth.RoleAdmin)).Post("/auth/register", s.handleRegister)

			r.Get("/disputes", s.handleDisputes)
			r.Get("/disputes/{id}", s.handleDispute)
			r.Get("/disputes/{id}/pdf", s.handleDisputePDF)

			r.Get("/branding", s.handleBranding)
			r.Get("/evidence-fields/{problemType}", s.handleEvidenceFields)
			r.Get("/requests", s.handleRequests)
			r.Get("/notifications", s.handleNotifications)
			r.Post("/notifications/read", s.handleNotificationsRead)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleManager))
				r.Patch("/branding", s.handleUpdateBranding)
				r.Put("/integrations/{provider}", s.handleConnectIntegration)
				r.Delete("/integrations/{provider}", s.handleDisconnectIntegration)
				r.Put("/monitoring", s.handleMonitoring)
				r.Post("/evidence-fields/{problemType}", s.handleAddEvidenceField)
				r.Patch("/evidence-fields/{problemType}/{key}", s.handleUpdateEvidenceField)
				r.Delete("/evidence-fields/{problemType}/{key}", s.handleDeleteEvidenceField)
				r.Patch("/requests/{id}", s.handleReviewRequest)
			})
		})
	})

	r.Get("/shopify/install", s.handleShopifyInstall)
	r.Get("/shopify/callback", s.handleShopifyCallback)
	r.Post("/webhooks/shopify/disputes", s.handleDisputeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.proxySignature)
		r.Get("/proxy", s.handleProxyPage)
		r.Post("/proxy/api/order", s.handleHubOrder)
		r.Post("/proxy/api/track", s.handleHubTrack)
		r.Post("/proxy/api/submit", s.handleHubSubmit)
		r.Post("/proxy/api/flow", s.handleHubFlow)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// writeServiceError maps domain sentinels to status codes. Unknown errors are
// logged and reported as 500 without details.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrNotFound),
		errors.Is(err, dispute.ErrNotFound),
		errors.Is(err, disputerequest.ErrNotFound),
		errors.Is(err, evidence.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, shopify.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenUsed),
		errors.Is(err, shopify.ErrInvalidHMAC),
		errors.Is(err, shopify.ErrInvalidState):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, shopify.ErrAccountConflict),
		errors.Is(err, evidence.ErrFallbackReadOnly),
		errors.Is(err, evidence.ErrPredefined),
		errors.Is(err, disputerequest.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, disputerequest.ErrInvalidEvidence),
		errors.Is(err, hub.ErrInvalidTransition),
		errors.Is(err, hub.ErrChecklistIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, client.ErrInvalidBranding),
		errors.Is(err, client.ErrInvalidProvider),
		errors.Is(err, client.ErrMissingToken),
		errors.Is(err, evidence.ErrInvalidProblemType),
		errors.Is(err, evidence.ErrInvalidField),
		errors.Is(err, disputerequest.ErrInvalidInput),
		errors.Is(err, shopify.ErrInvalidShop),
		errors.Is(err, shopify.ErrInvalidCallback):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// queryInt reads a positive integer query parameter; anything else yields 0.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.ClientID == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return auth.Identity{}, false
	}
	return id, true
}
