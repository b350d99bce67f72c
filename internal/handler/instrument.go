package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
)

// InstrumentHandler handles HTTP requests for instrument endpoints.
type InstrumentHandler struct {
	instruments *domain.InstrumentRegistry
	books       *engine.BookManager
}

// NewInstrumentHandler creates a new InstrumentHandler.
func NewInstrumentHandler(instruments *domain.InstrumentRegistry, books *engine.BookManager) *InstrumentHandler {
	return &InstrumentHandler{
		instruments: instruments,
		books:       books,
	}
}

// instrumentResponse is a single instrument in the listing.
type instrumentResponse struct {
	Symbol         string  `json:"symbol"`
	ReferencePrice float64 `json:"reference_price"`
}

// instrumentListResponse is the JSON response for GET /instruments.
type instrumentListResponse struct {
	Instruments []instrumentResponse `json:"instruments"`
}

// bookLevelResponse is a single price level in the book response.
type bookLevelResponse struct {
	Price         float64 `json:"price"`
	TotalQuantity int64   `json:"total_quantity"`
	OrderCount    int     `json:"order_count"`
}

// bookResponse is the JSON response for GET /instruments/{symbol}/book.
type bookResponse struct {
	Symbol     string              `json:"symbol"`
	Bids       []bookLevelResponse `json:"bids"`
	Asks       []bookLevelResponse `json:"asks"`
	Spread     *float64            `json:"spread"`
	SnapshotAt string              `json:"snapshot_at"`
}

// List handles GET /instruments.
func (h *InstrumentHandler) List(w http.ResponseWriter, r *http.Request) {
	symbols := h.instruments.Symbols()
	resp := instrumentListResponse{
		Instruments: make([]instrumentResponse, 0, len(symbols)),
	}
	for _, symbol := range symbols {
		inst, err := h.instruments.Get(symbol)
		if err != nil {
			continue
		}
		resp.Instruments = append(resp.Instruments, instrumentResponse{
			Symbol:         symbol,
			ReferencePrice: domain.CentsToDollars(inst.ReferencePrice()),
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetBook handles GET /instruments/{symbol}/book. The depth query
// parameter bounds the number of aggregated price levels per side
// (default 10).
func (h *InstrumentHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if _, err := h.instruments.Get(symbol); err != nil {
		WriteError(w, http.StatusNotFound, "instrument_not_found", "Unknown instrument: "+symbol)
		return
	}

	depth := 10
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "invalid_request", "depth must be a positive integer")
			return
		}
		depth = n
	}

	book := h.books.GetOrCreate(symbol)
	book.RLock()
	bids := book.TopBids(depth)
	asks := book.TopAsks(depth)
	book.RUnlock()

	resp := bookResponse{
		Symbol:     symbol,
		Bids:       toLevelResponses(bids),
		Asks:       toLevelResponses(asks),
		SnapshotAt: time.Now().UTC().Format(time.RFC3339),
	}
	if len(bids) > 0 && len(asks) > 0 {
		spread := domain.CentsToDollars(asks[0].Price - bids[0].Price)
		resp.Spread = &spread
	}
	WriteJSON(w, http.StatusOK, resp)
}

func toLevelResponses(levels []engine.PriceLevel) []bookLevelResponse {
	out := make([]bookLevelResponse, len(levels))
	for i, l := range levels {
		out[i] = bookLevelResponse{
			Price:         domain.CentsToDollars(l.Price),
			TotalQuantity: l.TotalQuantity,
			OrderCount:    l.OrderCount,
		}
	}
	return out
}
