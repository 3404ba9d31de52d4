// Package setpaused реализует HTTP-обработчик постановки продукта
// на паузу и снятия с неё. Пауза продукта блокирует создание подписок
// и списания по нему, не меняя состояние самих подписок.
package setpaused

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-engine/internal/http/response"
	"github.com/magabrotheeeer/billing-engine/internal/lib/sl"
	"github.com/magabrotheeeer/billing-engine/internal/services/access"
)

// Request — структура входных данных для паузы продукта.
type Request struct {
	Paused bool `json:"paused"`
}

// Handler управляет HTTP-запросами на паузу продукта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс управления паузой продукта.
type Service interface {
	SetProductPaused(ctx context.Context, caller, productID string, paused bool) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Поставить продукт на паузу или снять с неё
// @Tags Products
// @Accept  json
// @Produce  json
// @Param id path string true "Идентификатор продукта"
// @Param request body Request true "Новое состояние паузы"
// @Success 200 {object} map[string]any "Состояние паузы обновлено"
// @Failure 403 {object} response.ErrorResponse "Нет права вызова"
// @Router /products/{id}/paused [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.product.setpaused"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	productID := chi.URLParam(r, "id")
	if productID == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("product id is required"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	caller, ok := middlewarectx.CallerAddress(r.Context())
	if !ok {
		log.Error("caller address not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.SetProductPaused(r.Context(), caller, productID, req.Paused); err != nil {
		log.Error("failed to set product pause", sl.Err(err))
		switch {
		case errors.Is(err, access.ErrNotAuthorized):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("caller is not authorized"))
		case errors.Is(err, access.ErrSystemPaused):
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("system is paused"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not update product pause"))
		}
		return
	}

	log.Info("product pause updated",
		slog.String("product_id", productID),
		slog.Bool("paused", req.Paused))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"product_id": productID,
		"paused":     req.Paused,
	}))
}
