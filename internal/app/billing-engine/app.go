// Package billingengine собирает и запускает основное HTTP-приложение
// биллингового движка.
package billingengine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/billing-engine/internal/cache"
	"github.com/magabrotheeeer/billing-engine/internal/config"
	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/gateway"
	"github.com/magabrotheeeer/billing-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-engine/internal/migrations"
	"github.com/magabrotheeeer/billing-engine/internal/rabbitmq"
	"github.com/magabrotheeeer/billing-engine/internal/schedule"
	accessservice "github.com/magabrotheeeer/billing-engine/internal/services/access"
	authservice "github.com/magabrotheeeer/billing-engine/internal/services/auth"
	billingservice "github.com/magabrotheeeer/billing-engine/internal/services/billing"
	"github.com/magabrotheeeer/billing-engine/internal/storage/repository"
)

// App представляет основное приложение биллингового движка.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение: хранилище, миграции, кэш, брокер,
// сервисы и HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.AddressRabbitMQ, cfg.ConnectRetries, cfg.ConnectDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetBillingQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, err
	}
	notifier := rabbitmq.NewEventPublisher(ch)

	gatewayClient := gateway.NewClient(cfg.GatewayAddress, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	dispatcher := dispatch.New(gatewayClient, logger)

	accessService := accessservice.New(db, notifier, cfg.AdminAddress, logger)
	billingService := billingservice.New(db, accessService, dispatcher,
		schedule.UTCCalendar{}, cacheRedis, notifier, cfg.FeeAccount, logger)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.New(db, jwtMaker)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, billingService, accessService, authService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и завершает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		closeResources(a.ch, a.conn, a.logger)
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Error("failed to close storage", slog.Any("err", cerr))
		}
		return err
	}
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
}
