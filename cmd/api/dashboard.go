package main

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chargemind/auth"
	"chargemind/client"
	"chargemind/dispute"
	"chargemind/disputerequest"
	"chargemind/evidence"
	"chargemind/evidencepdf"
)

type loginResponse struct {
	Token              string `json:"token"`
	UserID             string `json:"user_id"`
	ClientID           string `json:"client_id"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"must_change_password"`
}

func newLoginResponse(res auth.LoginResult) loginResponse {
	return loginResponse{
		Token:              res.Token,
		UserID:             res.User.ID,
		ClientID:           res.User.ClientID,
		Email:              res.User.Email,
		Role:               string(res.User.Role),
		MustChangePassword: res.User.MustChangePassword,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLoginResponse(res))
}

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	res, err := s.authService.RedeemMagicLink(r.Context(), token)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLoginResponse(res))
}

// handleRegister adds a user to the caller's client.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ClientID = id.ClientID
	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      string(user.Role),
	})
}

func (s *Server) handleDisputes(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	filters := dispute.Filters{
		Status:   dispute.Status(r.URL.Query().Get("status")),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "page_size"),
	}
	items, err := s.disputeService.List(r.Context(), id.ClientID, filters)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (s *Server) handleDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	d, err := s.disputeService.Get(r.Context(), id.ClientID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDisputePDF renders into memory first so a failed render still gets a
// JSON error instead of a truncated document.
func (s *Server) handleDisputePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	disputeID := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := s.documents.Generate(r.Context(), id.ClientID, disputeID, &buf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+evidencepdf.FileName(disputeID)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type brandingResponse struct {
	Branding client.Branding `json:"branding"`
	Policies client.Policies `json:"policies"`
}

func (s *Server) handleBranding(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	c, err := s.clientService.GetByID(r.Context(), id.ClientID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brandingResponse{Branding: c.Branding.WithDefaults(), Policies: c.Policies})
}

func (s *Server) handleUpdateBranding(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var u client.BrandingUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := s.clientService.UpdateBranding(r.Context(), id.ClientID, u)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brandingResponse{Branding: c.Branding.WithDefaults(), Policies: c.Policies})
}

type integrationRequest struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

func (s *Server) handleConnectIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req integrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	provider := client.Provider(chi.URLParam(r, "provider"))
	in, err := s.clientService.ConnectIntegration(r.Context(), id.ClientID, provider, req.AccessToken, req.Scope)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleDisconnectIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	provider := client.Provider(chi.URLParam(r, "provider"))
	if err := s.clientService.DisconnectIntegration(r.Context(), id.ClientID, provider); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Paused *bool `json:"paused"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Paused == nil {
		writeError(w, http.StatusBadRequest, "paused is required")
		return
	}
	if err := s.clientService.SetMonitoringPaused(r.Context(), id.ClientID, *req.Paused); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fieldResponse struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	HelpText    string   `json:"help_text,omitempty"`
	Options     []string `json:"options"`
	Visible     bool     `json:"visible"`
	Required    bool     `json:"required"`
	Custom      bool     `json:"custom"`
	SortOrder   int      `json:"sort_order"`
}

func newFieldResponse(c evidence.Config) fieldResponse {
	opts := c.Options
	if opts == nil {
		opts = []string{}
	}
	return fieldResponse{
		Key:         c.Key,
		Label:       c.Label,
		Type:        string(c.Type),
		Placeholder: c.Placeholder,
		HelpText:    c.HelpText,
		Options:     opts,
		Visible:     c.IsVisible,
		Required:    c.IsRequired,
		Custom:      c.IsCustom,
		SortOrder:   c.SortOrder,
	}
}

func (s *Server) handleEvidenceFields(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	view, err := s.editor.Load(r.Context(), id.ClientID, evidence.ProblemType(chi.URLParam(r, "problemType")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	fields := make([]fieldResponse, 0, len(view.Configs))
	for _, c := range view.Configs {
		fields = append(fields, newFieldResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"problem_type": view.ProblemType,
		"fallback":     view.Fallback,
		"fields":       fields,
	})
}

func (s *Server) evidenceChange(r *http.Request, id auth.Identity, fallback bool) evidence.Change {
	return evidence.Change{
		ClientID:    id.ClientID,
		ProblemType: evidence.ProblemType(chi.URLParam(r, "problemType")),
		Key:         chi.URLParam(r, "key"),
		Fallback:    fallback,
	}
}

func (s *Server) handleAddEvidenceField(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Label    string   `json:"label"`
		Type     string   `json:"type"`
		Options  []string `json:"options"`
		Required bool     `json:"required"`
		HelpText string   `json:"help_text"`
		Fallback bool     `json:"fallback"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg, err := s.editor.AddCustom(r.Context(), s.evidenceChange(r, id, req.Fallback), evidence.NewCustomField{
		Label:      req.Label,
		Type:       evidence.FieldType(req.Type),
		Options:    req.Options,
		IsRequired: req.Required,
		HelpText:   req.HelpText,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newFieldResponse(cfg))
}

func (s *Server) handleUpdateEvidenceField(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Visible  *bool `json:"visible"`
		Required *bool `json:"required"`
		Fallback bool  `json:"fallback"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Visible == nil && req.Required == nil {
		writeError(w, http.StatusBadRequest, "visible or required is required")
		return
	}

	ch := s.evidenceChange(r, id, req.Fallback)
	var (
		cfg evidence.Config
		err error
	)
	if req.Visible != nil {
		if cfg, err = s.editor.SetVisibility(r.Context(), ch, *req.Visible); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	if req.Required != nil {
		if cfg, err = s.editor.SetRequired(r.Context(), ch, *req.Required); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, newFieldResponse(cfg))
}

func (s *Server) handleDeleteEvidenceField(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	fallback, _ := strconv.ParseBool(r.URL.Query().Get("fallback"))
	if err := s.editor.DeleteCustom(r.Context(), s.evidenceChange(r, id, fallback)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	res, err := s.requestService.List(r.Context(), disputerequest.Filters{
		ClientID: id.ClientID,
		Status:   disputerequest.Status(r.URL.Query().Get("status")),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "page_size"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReviewRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string  `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := s.requestService.Review(r.Context(), disputerequest.ReviewParams{
		ClientID:   id.ClientID,
		RequestID:  chi.URLParam(r, "id"),
		ReviewerID: id.UserID,
		Status:     disputerequest.Status(req.Status),
		Notes:      req.Notes,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	n, err := s.notifications.Unread(r.Context(), id.ClientID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (s *Server) handleNotificationsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := s.notifications.MarkRead(r.Context(), id.ClientID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
