// Package cancel реализует HTTP-обработчик отмены подписки.
//
// Операция идемпотентна: повторная отмена уже отменённой подписки
// не является ошибкой.
package cancel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-engine/internal/http/response"
	"github.com/magabrotheeeer/billing-engine/internal/lib/sl"
	"github.com/magabrotheeeer/billing-engine/internal/services/access"
	"github.com/magabrotheeeer/billing-engine/internal/services/billing"
)

// Request — структура входных данных для отмены.
type Request struct {
	ProcessID string `json:"process_id" validate:"required"`
}

// Handler управляет HTTP-запросами на отмену подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс операции отмены.
type Service interface {
	Cancel(ctx context.Context, caller, subscriptionID, processID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param id path string true "Ключ подписки"
// @Param request body Request true "Корреляционный идентификатор"
// @Success 200 {object} map[string]any "Подписка отменена"
// @Failure 403 {object} response.ErrorResponse "Нет права вызова"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Router /subscriptions/{id}/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subscriptionID := chi.URLParam(r, "id")

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	caller, ok := middlewarectx.CallerAddress(r.Context())
	if !ok {
		log.Error("caller address not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Cancel(r.Context(), caller, subscriptionID, req.ProcessID); err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		switch {
		case errors.Is(err, access.ErrNotAuthorized):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("caller is not authorized"))
		case errors.Is(err, access.ErrSystemPaused):
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("system is paused"))
		case errors.Is(err, billing.ErrSubscriptionNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not cancel subscription"))
		}
		return
	}

	log.Info("subscription cancelled", slog.String("id", subscriptionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": subscriptionID,
	}))
}
