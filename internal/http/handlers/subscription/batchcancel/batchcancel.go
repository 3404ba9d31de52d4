// Package batchcancel реализует HTTP-обработчик пакетной отмены подписок.
//
// Отмены применяются последовательно; ошибка по одному идентификатору
// не прерывает обработку остальных.
package batchcancel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-engine/internal/http/response"
	"github.com/magabrotheeeer/billing-engine/internal/lib/sl"
	"github.com/magabrotheeeer/billing-engine/internal/services/access"
)

// Request — структура входных данных для пакетной отмены.
type Request struct {
	SubscriptionIDs []string `json:"subscription_ids" validate:"required,min=1,dive,uuid"`
	ProcessID       string   `json:"process_id" validate:"required"`
}

// Handler управляет HTTP-запросами на пакетную отмену.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс операции пакетной отмены.
type Service interface {
	BatchCancel(ctx context.Context, caller string, subscriptionIDs []string, processID string)
	Authorize(ctx context.Context, caller string) error
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
// @Summary Отменить несколько подписок
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body Request true "Ключи подписок"
// @Success 200 {object} map[string]any "Пакет обработан"
// @Failure 403 {object} response.ErrorResponse "Нет права вызова"
// @Router /subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.batchcancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	// Право вызова проверяется заранее, чтобы не публиковать частичные отмены
	// от неавторизованной стороны.
	if err := h.service.Authorize(r.Context(), caller); err != nil {
		log.Error("caller is not authorized", sl.Err(err))
		switch {
		case errors.Is(err, access.ErrSystemPaused):
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("system is paused"))
		default:
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("caller is not authorized"))
		}
		return
	}

	h.service.BatchCancel(r.Context(), caller, req.SubscriptionIDs, req.ProcessID)

	log.Info("batch cancel processed", slog.Int("count", len(req.SubscriptionIDs)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"processed": len(req.SubscriptionIDs),
	}))
}
