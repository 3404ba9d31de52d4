// Package worker собирает приложение-потребитель команд перевыставления.
package worker

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/billing-engine/internal/cache"
	"github.com/magabrotheeeer/billing-engine/internal/config"
	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/gateway"
	"github.com/magabrotheeeer/billing-engine/internal/rabbitmq"
	"github.com/magabrotheeeer/billing-engine/internal/schedule"
	accessservice "github.com/magabrotheeeer/billing-engine/internal/services/access"
	billingservice "github.com/magabrotheeeer/billing-engine/internal/services/billing"
	workerservice "github.com/magabrotheeeer/billing-engine/internal/services/worker"
	"github.com/magabrotheeeer/billing-engine/internal/storage/repository"
)

// App представляет приложение обработчика перевыставлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	workerService *workerservice.Service
	logger        *slog.Logger
}

// New создает новый экземпляр приложения обработчика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
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
		conn.Close()
		return nil, err
	}
	notifier := rabbitmq.NewEventPublisher(ch)

	gatewayClient := gateway.NewClient(cfg.GatewayAddress, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	dispatcher := dispatch.New(gatewayClient, logger)

	accessService := accessservice.New(db, notifier, cfg.AdminAddress, logger)
	billingService := billingservice.New(db, accessService, dispatcher,
		schedule.UTCCalendar{}, cacheRedis, notifier, cfg.FeeAccount, logger)

	workerService := workerservice.New(billingService, db, cfg.WorkerAddress, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		workerService: workerService,
		logger:        logger,
	}, nil
}

// Run запускает потребителя очереди перевыставлений.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, "billing.rebill", a.workerService.HandleRebill)
	if err != nil {
		a.logger.Error("failed to start billing.rebill consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("rebill worker shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
