package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/estatetools/opsdash/internal/settings"
	"github.com/estatetools/opsdash/internal/validation"
)

// SettingsHandler handles billing-settings requests
type SettingsHandler struct {
	store     *settings.Store
	refresher *settings.RateRefresher
}

// NewSettingsHandler creates a new settings handler.
// The refresher may be nil when exchange-rate sync is disabled.
func NewSettingsHandler(store *settings.Store, refresher *settings.RateRefresher) *SettingsHandler {
	return &SettingsHandler{store: store, refresher: refresher}
}

// RegisterRoutes registers settings routes on the given router
// The router should already have the /settings prefix
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSettings).Methods("GET")
	r.HandleFunc("", h.UpdateSettings).Methods("PUT")
	r.HandleFunc("/sync-rate", h.SyncRate).Methods("POST")
}

// UpdateSettingsRequest represents a full settings replacement
type UpdateSettingsRequest struct {
	GasTariff          float64 `json:"gas_tariff" validate:"required,gt=0"`
	ElectricityTariff  float64 `json:"electricity_tariff" validate:"required,gt=0"`
	InternetFeeMonthly float64 `json:"internet_fee_monthly" validate:"gte=0"`
	EURToRONRate       float64 `json:"eur_to_ron_rate" validate:"required,gt=0"`
}

// GetSettings returns the current billing settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Get())
}

// UpdateSettings replaces the billing settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(err))
		return
	}

	next := settings.Settings{
		GasTariff:          req.GasTariff,
		ElectricityTariff:  req.ElectricityTariff,
		InternetFeeMonthly: req.InternetFeeMonthly,
		EURToRONRate:       req.EURToRONRate,
	}
	if err := h.store.Update(next); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to persist settings")
		return
	}

	respondJSON(w, http.StatusOK, h.store.Get())
}

// SyncRate fetches the current EUR/RON exchange rate and stores it
func (h *SettingsHandler) SyncRate(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Exchange-rate sync is disabled")
		return
	}
	if err := h.refresher.Refresh(r.Context()); err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to fetch exchange rate")
		return
	}
	respondJSON(w, http.StatusOK, h.store.Get())
}
