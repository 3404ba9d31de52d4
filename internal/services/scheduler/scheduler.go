// Package scheduler периодически находит подписки с наступившей плановой
// датой списания и публикует команды перевыставления в RabbitMQ.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/billing-engine/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/billing-engine/internal/lib/sl"
	"github.com/magabrotheeeer/billing-engine/internal/models"
	mq "github.com/magabrotheeeer/billing-engine/internal/rabbitmq"
)

// SubscriptionRepository определяет методы чтения подписок для планировщика.
type SubscriptionRepository interface {
	// ListDue возвращает активные подписки, чья плановая дата списания
	// уже наступила, с ограничением размера пачки.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error)
}

// Service реализует периодический поиск подписок к списанию.
type Service struct {
	repo      SubscriptionRepository
	log       *slog.Logger
	interval  time.Duration
	batchSize int
}

// New создает новый Service c интервалом сканирования и размером пачки.
func New(repo SubscriptionRepository, log *slog.Logger, interval time.Duration, batchSize int) *Service {
	return &Service{
		repo:      repo,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run запускает цикл сканирования до отмены контекста.
// Каждой найденной подписке публикуется команда перевыставления
// с новым rebillID для сквозной трассировки.
func (s *Service) Run(ctx context.Context, channel *amqp.Channel) {
	s.scan(ctx, channel)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.scan(ctx, channel)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) scan(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting scan for due subscriptions")
	due, err := s.repo.ListDue(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		s.log.Error("failed to list due subscriptions", sl.Err(err))
		return
	}
	if len(due) == 0 {
		s.log.Info("no due subscriptions found")
		return
	}
	s.log.Info("found due subscriptions", "count", len(due))
	for _, sub := range due {
		cmd := models.RebillCommand{
			SubscriptionID: sub.ID,
			RebillID:       uuid.New().String(),
		}
		err = rabbitmq.PublishMessage(channel, mq.Exchange, mq.RebillRoutingKey, cmd)
		if err != nil {
			s.log.Error("failed to publish rebill command", sl.Err(err))
		}
	}
}
