// Package create реализует HTTP-обработчик создания подписки.
//
// Handler принимает JSON-запрос с данными подписки и начального платежа,
// валидирует их, извлекает адрес вызывающей стороны из контекста и вызывает
// операцию создания движка: запись подписки и немедленная первая попытка
// списания (цикл 0).
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

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

// Handler управляет HTTP-запросами на создание подписок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс операции создания подписки.
type Service interface {
	Create(ctx context.Context, caller string, req models.DummySubscription) (models.Currency, error)
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
// @Summary Создать подписку
// @Description Создает подписку и сразу выполняет первую попытку списания.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummySubscription true "Данные новой подписки"
// @Success 200 {object} map[string]any "Подписка создана и оплачена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Вызывающая сторона не идентифицирована"
// @Failure 402 {object} response.ErrorResponse "Первый платёж отклонён"
// @Failure 403 {object} response.ErrorResponse "Нет права вызова"
// @Failure 409 {object} response.ErrorResponse "Дубликат активной подписки или продукт на паузе"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Система на глобальной паузе"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscription
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

	currency, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		log.Error("failed to create subscription", sl.Err(err))
		switch {
		case errors.Is(err, access.ErrNotAuthorized):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("caller is not authorized"))
		case errors.Is(err, access.ErrSystemPaused):
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("system is paused"))
		case errors.Is(err, billing.ErrDuplicateActiveSubscription),
			errors.Is(err, billing.ErrProductPaused):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, billing.ErrInvalidBillingDay),
			errors.Is(err, dispatch.ErrOverchargeAttempt):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, dispatch.ErrPaymentFailed):
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("initial payment failed"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create subscription"))
		}
		return
	}

	log.Info("subscription created", slog.String("id", req.SubscriptionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": req.SubscriptionID,
		"currency_used":   currency,
	}))
}
