// Package pause реализует HTTP-обработчик постановки подписки на паузу
// с немедленным расчётом комиссии за заморозку.
package pause

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

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-engine/internal/http/response"
	"github.com/magabrotheeeer/billing-engine/internal/lib/sl"
	"github.com/magabrotheeeer/billing-engine/internal/models"
	"github.com/magabrotheeeer/billing-engine/internal/services/access"
	"github.com/magabrotheeeer/billing-engine/internal/services/billing"
)

// Handler управляет HTTP-запросами на паузу подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс операции паузы с расчётом.
type Service interface {
	PauseWithSettlement(ctx context.Context, caller, subscriptionID string, payWithToken bool, tokenPrice int64, processID string) (models.Currency, error)
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
// @Summary Поставить подписку на паузу
// @Description Удерживает комиссию за заморозку и переводит подписку в состояние паузы.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param id path string true "Ключ подписки"
// @Param request body models.DummyPause true "Параметры расчёта комиссии"
// @Success 200 {object} map[string]any "Подписка поставлена на паузу"
// @Failure 402 {object} response.ErrorResponse "Перевод комиссии не прошёл"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Подписка не в подходящем состоянии"
// @Failure 422 {object} response.ErrorResponse "Неположительная цена токена"
// @Router /subscriptions/{id}/pause [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.pause"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subscriptionID := chi.URLParam(r, "id")

	var req models.DummyPause
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

	currency, err := h.service.PauseWithSettlement(r.Context(), caller, subscriptionID,
		req.PayWithToken, req.TokenPrice, req.ProcessID)
	if err != nil {
		log.Error("failed to pause subscription", sl.Err(err))
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
		case errors.Is(err, billing.ErrSubscriptionNotEligible):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, billing.ErrInvalidTokenPrice):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("token price must be positive"))
		case errors.Is(err, billing.ErrSettlementLegFailed),
			errors.Is(err, dispatch.ErrPaymentFailed):
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("pause fee settlement failed"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not pause subscription"))
		}
		return
	}

	log.Info("subscription paused", slog.String("id", subscriptionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": subscriptionID,
		"currency_used":   currency,
	}))
}
