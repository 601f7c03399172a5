package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Handler exposes derived-amount lookups.
type Handler struct {
	logger  *slog.Logger
	deriver *Deriver
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, deriver *Deriver) *Handler {
	return &Handler{logger: logger, deriver: deriver}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/derived-amount", h.derivedAmount)
}

// derivedAmount aggregates the derived invoice amount for a selection of
// orders, e.g. /orders/derived-amount?order_ids=12,15&partner_id=7.
func (h *Handler) derivedAmount(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r.URL.Query().Get("order_ids"))
	if err != nil || len(ids) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order_ids must be a comma separated list of positive integers")
		return
	}
	var partnerID int64
	if raw := r.URL.Query().Get("partner_id"); raw != "" {
		partnerID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "partner_id must be an integer")
			return
		}
	}

	amount, err := h.deriver.Derive(r.Context(), ids, partnerID)
	if err != nil {
		h.logger.Error("derive amount", slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.RespondError(w, httpx.ErrUpstream)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"order_ids":  ids,
		"partner_id": partnerID,
		"amount":     amount,
	})
}

func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("invalid order id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
