package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-payments/internal/inventory"
	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/go-chi/chi/v5"
)

type StockCheckReq struct {
	Items []inventory.Line `json:"items"`
}

type StockCheckResp struct {
	Success   bool                  `json:"success"`
	StockInfo []inventory.StockInfo `json:"stockInfo"`
}

type StockHandler struct {
	Checker *inventory.Checker
	Log     *slog.Logger
}

func (h *StockHandler) Register(r chi.Router) {
	r.Post("/stock/check", h.check)
}

func (h *StockHandler) check(w http.ResponseWriter, r *http.Request) {
	var req StockCheckReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Log, fmt.Errorf("invalid json: %w", orders.ErrInvalidInput))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	info, err := h.Checker.Check(ctx, req.Items)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, StockCheckResp{Success: true, StockInfo: info})
}
