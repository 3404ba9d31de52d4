// Package setauthorized реализует HTTP-обработчик управления списком
// адресов, которым разрешено вызывать операции движка.
package setauthorized

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

// Request — структура входных данных для изменения списка доступа.
type Request struct {
	Address    string `json:"address" validate:"required"`
	Authorized bool   `json:"authorized"`
}

// Handler управляет HTTP-запросами на изменение списка доступа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс управления списком доступа.
type Service interface {
	SetAuthorized(ctx context.Context, caller, address string, authorized bool) error
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
// @Summary Разрешить или запретить адресу вызывать движок
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Адрес и новое значение доступа"
// @Success 200 {object} map[string]any "Список доступа обновлён"
// @Failure 403 {object} response.ErrorResponse "Операция доступна только администратору"
// @Router /admin/authorized [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.setauthorized"
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

	if err := h.service.SetAuthorized(r.Context(), caller, req.Address, req.Authorized); err != nil {
		log.Error("failed to update access list", sl.Err(err))
		if errors.Is(err, access.ErrNotAuthorized) {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("admin access required"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update access list"))
		return
	}

	log.Info("access list updated",
		slog.String("address", req.Address),
		slog.Bool("authorized", req.Authorized))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"address":    req.Address,
		"authorized": req.Authorized,
	}))
}
