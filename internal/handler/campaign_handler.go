// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/outbound-campaigns/internal/auth"
	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/logger"
	"github.com/unclebandit/outbound-campaigns/internal/service"
)

// CampaignHandler serves read access to created campaigns
type CampaignHandler struct {
	Service *service.CampaignService
	Logger  *zap.Logger
}

func NewCampaignHandler(svc *service.CampaignService, l *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		Service: svc,
		Logger:  logger.Component(l, "campaign-handler"),
	}
}

func (h *CampaignHandler) Routes(r chi.Router) {
	r.Get("/campaigns", h.ListCampaignsHandler)
	r.Get("/campaigns/{id}", h.GetCampaignHandler)
	r.Get("/campaigns/{id}/contacts", h.ListContactsHandler)
}

// ListCampaignsHandler returns a paginated list of the user's campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 10)
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := h.Service.ListCampaigns(r.Context(), userID, page, pageSize, status)
	if err != nil {
		h.fail(w, "failed to fetch campaigns", err)
		return
	}

	response := map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetCampaignHandler returns details of a single campaign by ID
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.campaignRequest(w, r)
	if !ok {
		return
	}

	details, err := h.Service.GetCampaignDetails(r.Context(), userID, id)
	if err != nil {
		h.fail(w, "failed to fetch campaign", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

func (h *CampaignHandler) ListContactsHandler(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.campaignRequest(w, r)
	if !ok {
		return
	}

	contacts, err := h.Service.ListContacts(r.Context(), userID, id, queryInt(r, "page", 1), queryInt(r, "page_size", 100))
	if err != nil {
		h.fail(w, "failed to fetch contacts", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"data":        contacts,
	})
}

func (h *CampaignHandler) campaignRequest(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return "", 0, false
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return "", 0, false
	}
	return userID, id, true
}

func (h *CampaignHandler) fail(w http.ResponseWriter, msg string, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	if errors.As(err, &notFound) {
		http.Error(w, notFound.Error(), http.StatusNotFound)
		return
	}
	if h.Logger != nil {
		h.Logger.Error(msg, zap.Error(err))
	}
	http.Error(w, msg, http.StatusInternalServerError)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
