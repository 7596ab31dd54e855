package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"pricewatch/models"
	"pricewatch/repository"
	"pricewatch/services"
)

type Handlers struct {
	service     *services.PriceService
	historyRepo *repository.HistoryRepository
	logRepo     *repository.ExtractionLogRepository
}

func NewHandlers(service *services.PriceService, historyRepo *repository.HistoryRepository, logRepo *repository.ExtractionLogRepository) *Handlers {
	return &Handlers{
		service:     service,
		historyRepo: historyRepo,
		logRepo:     logRepo,
	}
}

// HealthCheck reports liveness plus extraction success rates for the last
// 24 hours, broken down by domain
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	rates, err := h.logRepo.SuccessRateByDomain(time.Now().Add(-24 * time.Hour))
	if err != nil {
		log.Printf("Failed to compute domain success rates: %v", err)
		rates = []models.DomainSuccessRate{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"domains":   rates,
	})
}

// UpdateStalePrices triggers a batch refresh of stale item prices.
// ?force=true refreshes every linked item regardless of age.
func (h *Handlers) UpdateStalePrices(w http.ResponseWriter, r *http.Request) {
	forceAll := r.URL.Query().Get("force") == "true"

	stats, err := h.service.UpdateStalePrices(r.Context(), forceAll)
	if err != nil {
		log.Printf("Failed to update stale prices: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update stale prices")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// RefreshItemPrice re-fetches the price for one item on demand
func (h *Handlers) RefreshItemPrice(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	result, err := h.service.RefreshItemPrice(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "Item not found")
			return
		}
		log.Printf("Failed to refresh price for item %d: %v", itemID, err)
		writeError(w, http.StatusInternalServerError, "Failed to refresh item price")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// FetchMetadata extracts title/price/image for a pasted product link
func (h *Handlers) FetchMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	meta, err := h.service.FetchMetadata(r.Context(), req.URL)
	if err != nil {
		log.Printf("Failed to fetch metadata for %s: %v", req.URL, err)
		writeError(w, http.StatusBadGateway, "Could not fetch metadata from URL")
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// GetPriceHistory returns recorded price points for an item, newest first
func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	points, err := h.historyRepo.Points(itemID, limit)
	if err != nil {
		log.Printf("Failed to get price history for item %d: %v", itemID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get price history")
		return
	}

	writeJSON(w, http.StatusOK, points)
}

// GetPriceHistoryStats summarizes an item's price history over ?days=N
// (default 30)
func (h *Handlers) GetPriceHistoryStats(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}

	stats, err := h.historyRepo.Stats(itemID, days)
	if err != nil {
		log.Printf("Failed to get history stats for item %d: %v", itemID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get price history stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetExtractionMetrics exposes per-domain extraction success rates over
// ?hours=N (default 24)
func (h *Handlers) GetExtractionMetrics(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 24*30 {
			hours = parsed
		}
	}

	rates, err := h.logRepo.SuccessRateByDomain(time.Now().Add(-time.Duration(hours) * time.Hour))
	if err != nil {
		log.Printf("Failed to compute extraction metrics: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute extraction metrics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window_hours": hours,
		"domains":      rates,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
