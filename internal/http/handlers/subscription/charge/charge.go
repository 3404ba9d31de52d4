// Package charge реализует HTTP-обработчик планового списания по подписке.
package charge

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

// Handler управляет HTTP-запросами на плановое списание.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс операции планового списания.
type Service interface {
	ProcessPayment(ctx context.Context, caller, subscriptionID string, order models.PaymentOrder, rebillID string) (models.Currency, error)
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
// @Summary Списать очередной цикл подписки
// @Description Выполняет одну попытку списания. Неуспешная попытка сдвигает расписание на следующий цикл.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param id path string true "Ключ подписки"
// @Param request body models.DummyCharge true "Платёжное поручение"
// @Success 200 {object} map[string]any "Списание выполнено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 402 {object} response.ErrorResponse "Платёж отклонён шлюзом"
// @Failure 403 {object} response.ErrorResponse "Нет права вызова"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Статус или расписание не допускают списание"
// @Failure 422 {object} response.ErrorResponse "Сумма превышает цену цикла"
// @Failure 503 {object} response.ErrorResponse "Система на глобальной паузе"
// @Router /subscriptions/{id}/charge [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.charge"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subscriptionID := chi.URLParam(r, "id")

	var req models.DummyCharge
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

	currency, err := h.service.ProcessPayment(r.Context(), caller, subscriptionID, req.PaymentOrder, req.RebillID)
	if err != nil {
		log.Error("failed to process payment", sl.Err(err))
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
		case errors.Is(err, billing.ErrCyclesExhausted),
			errors.Is(err, billing.ErrProductPaused),
			errors.Is(err, billing.ErrSubscriptionNotEligible),
			errors.Is(err, billing.ErrTooEarlyToBill):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, dispatch.ErrOverchargeAttempt):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, dispatch.ErrPaymentFailed):
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("payment failed"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not process payment"))
		}
		return
	}

	log.Info("payment processed", slog.String("id", subscriptionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": subscriptionID,
		"currency_used":   currency,
		"rebill_id":       req.RebillID,
	}))
}
