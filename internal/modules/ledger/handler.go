package ledger

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/retailops/pos-backend/internal/authn"
)

// Handler exposes the read-only stock ledger endpoints.
type Handler struct{ repo Repository }

func NewHandler(repo Repository) *Handler { return &Handler{repo: repo} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/stock-movements", func(r chi.Router) {
		r.Use(authn.RequireRoles(authn.RoleAdmin, authn.RoleManager))
		r.Get("/", h.list) // GET /api/v1/stock-movements?product_id=&limit=&offset=
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	var (
		movements []*StockMovement
		err       error
	)
	if productID := r.URL.Query().Get("product_id"); productID != "" {
		movements, err = h.repo.ListByProduct(r.Context(), productID, limit, offset)
	} else {
		movements, err = h.repo.List(r.Context(), limit, offset)
	}
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": "failed to list stock movements"})
		return
	}
	if movements == nil {
		movements = []*StockMovement{}
	}
	respond(w, http.StatusOK, movements)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
