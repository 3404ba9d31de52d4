package rabbitmq

import (
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/billing-engine/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/billing-engine/internal/models"
)

// EventPublisher публикует события аудита в очередь billing.events.
type EventPublisher struct {
	ch *amqp.Channel
}

// NewEventPublisher создает новый EventPublisher.
func NewEventPublisher(ch *amqp.Channel) *EventPublisher {
	return &EventPublisher{ch: ch}
}

// Publish отправляет событие внешним потребителям.
func (p *EventPublisher) Publish(event models.Event) error {
	return rabbitmq.PublishMessage(p.ch, Exchange, EventsRoutingKey, event)
}
