// Package globalpause реализует HTTP-обработчик аварийной остановки
// движка. Пока стоит глобальная пауза, все операции с деньгами и
// состоянием подписок отклоняются.
package globalpause

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-engine/internal/http/response"
	"github.com/magabrotheeeer/billing-engine/internal/lib/sl"
	"github.com/magabrotheeeer/billing-engine/internal/services/access"
)

// Request — структура входных данных для глобальной паузы.
type Request struct {
	Paused bool `json:"paused"`
}

// Handler управляет HTTP-запросами на глобальную паузу.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс управления глобальной паузой.
type Service interface {
	SetSystemPaused(ctx context.Context, caller string, paused bool) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Включить или выключить глобальную паузу движка
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Новое состояние паузы"
// @Success 200 {object} map[string]any "Состояние паузы обновлено"
// @Failure 403 {object} response.ErrorResponse "Операция доступна только администратору"
// @Router /admin/paused [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.globalpause"
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

	caller, ok := middlewarectx.CallerAddress(r.Context())
	if !ok {
		log.Error("caller address not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.SetSystemPaused(r.Context(), caller, req.Paused); err != nil {
		log.Error("failed to update global pause", sl.Err(err))
		if errors.Is(err, access.ErrNotAuthorized) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("admin access required"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update global pause"))
		return
	}

	log.Info("global pause updated", slog.Bool("paused", req.Paused))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"paused": req.Paused,
	}))
}
