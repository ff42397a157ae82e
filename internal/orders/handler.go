package orders

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/terrapos/terrapos/internal/estimates"
	"github.com/terrapos/terrapos/internal/platform/httpx"
	"github.com/terrapos/terrapos/internal/pricing"
)

var validate = validator.New()

// Handler manages order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/number/{number}", h.getByNumber)
	r.Post("/{id}/payments", h.completePayment)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/from-estimate/{estimateID}", h.fromEstimate)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	order, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) fromEstimate(w http.ResponseWriter, r *http.Request) {
	estimateID, err := strconv.ParseInt(chi.URLParam(r, "estimateID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid estimate id", httpx.ErrValidation))
		return
	}
	var req ConvertEstimateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	order, err := h.service.CreateOrderFromEstimate(r.Context(), estimateID, req)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid order id", httpx.ErrValidation))
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) getByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		BusinessType:  pricing.BusinessType(q.Get("business_type")),
		Status:        q.Get("status"),
		PaymentStatus: q.Get("payment_status"),
		Limit:         50,
	}
	if b, err := strconv.ParseInt(q.Get("branch_id"), 10, 64); err == nil && b > 0 {
		filters.BranchID = b
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filters.From = from
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filters.To = to
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		filters.Limit = l
	}
	if o, err := strconv.Atoi(q.Get("offset")); err == nil && o >= 0 {
		filters.Offset = o
	}

	orders, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders, "total": total})
}

func (h *Handler) completePayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid order id", httpx.ErrValidation))
		return
	}
	var req CompletePaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	order, justCompleted, err := h.service.CompleteAdvancePayment(r.Context(), id, req)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order, "just_completed": justCompleted})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid order id", httpx.ErrValidation))
		return
	}
	var req CancelOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	order, err := h.service.Cancel(r.Context(), id, req)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) respondOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound) || errors.Is(err, estimates.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err))
	case errors.Is(err, ErrAlreadyCancelled) || errors.Is(err, estimates.ErrConverted):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrDuplicate, err))
	case errors.Is(err, ErrInvalidAdvance),
		errors.Is(err, ErrNotAdvance),
		errors.Is(err, ErrNothingRemaining),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrExceedsRemaining),
		errors.Is(err, estimates.ErrExpired):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("order request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
