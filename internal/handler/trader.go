package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/service"
)

// TraderHandler handles HTTP requests for trader endpoints.
type TraderHandler struct {
	traderSvc *service.TraderService
}

// NewTraderHandler creates a new TraderHandler.
func NewTraderHandler(traderSvc *service.TraderService) *TraderHandler {
	return &TraderHandler{traderSvc: traderSvc}
}

// holdingResponse is a single position in the portfolio response.
type holdingResponse struct {
	Symbol         string  `json:"symbol"`
	Quantity       int64   `json:"quantity"`
	ReservedQty    int64   `json:"reserved_quantity"`
	ReferencePrice float64 `json:"reference_price"`
	Value          float64 `json:"value"`
}

// portfolioResponse is the JSON response for GET /traders/{trader_id}/portfolio.
type portfolioResponse struct {
	TraderID     string            `json:"trader_id"`
	State        string            `json:"state"`
	Cash         float64           `json:"cash"`
	ReservedCash float64           `json:"reserved_cash"`
	Holdings     []holdingResponse `json:"holdings"`
	TotalValue   float64           `json:"total_value"`
	SnapshotAt   string            `json:"snapshot_at"`
}

// GetPortfolio handles GET /traders/{trader_id}/portfolio.
func (h *TraderHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	traderID := chi.URLParam(r, "trader_id")

	p, err := h.traderSvc.Portfolio(traderID)
	if err != nil {
		if errors.Is(err, domain.ErrTraderNotFound) {
			WriteError(w, http.StatusNotFound, "trader_not_found", "Unknown trader: "+traderID)
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	holdings := make([]holdingResponse, len(p.Holdings))
	for i, hp := range p.Holdings {
		holdings[i] = holdingResponse{
			Symbol:         hp.Symbol,
			Quantity:       hp.Quantity,
			ReservedQty:    hp.ReservedQuantity,
			ReferencePrice: domain.CentsToDollars(hp.ReferencePrice),
			Value:          domain.CentsToDollars(hp.Value),
		}
	}

	WriteJSON(w, http.StatusOK, portfolioResponse{
		TraderID:     p.TraderID,
		State:        string(p.State),
		Cash:         domain.CentsToDollars(p.Cash),
		ReservedCash: domain.CentsToDollars(p.ReservedCash),
		Holdings:     holdings,
		TotalValue:   domain.CentsToDollars(p.TotalValue),
		SnapshotAt:   p.SnapshotAt.UTC().Format(time.RFC3339),
	})
}
