package advance

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terrapos/terrapos/internal/platform/httpx"
)

// Handler serves the advance ledger and analytics endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	analytics *Analytics
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, analytics *Analytics) *Handler {
	return &Handler{logger: logger, service: service, analytics: analytics}
}

// MountRoutes registers advance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.summary)
	r.Get("/orders/{orderID}/ledger", h.ledger)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summary(r.Context())
	if err != nil {
		h.logger.Error("advance summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid order id", httpx.ErrValidation))
		return
	}
	records, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err))
			return
		}
		h.logger.Error("advance ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}
