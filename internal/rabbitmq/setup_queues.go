package rabbitmq

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// RebillRoutingKey — ключ маршрутизации команд планового списания.
const RebillRoutingKey = "rebill"

// EventsRoutingKey — ключ маршрутизации событий аудита для внешних потребителей.
const EventsRoutingKey = "events"

func GetBillingQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "billing.rebill", RoutingKey: RebillRoutingKey},
		{QueueName: "billing.events", RoutingKey: EventsRoutingKey},
	}
}
