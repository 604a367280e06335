package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeJobs Exchange = "rupor.jobs"
	ExchangeDLQ  Exchange = "rupor.dlq"
)

// Queues — имена очередей.
const (
	QueueJobsEnqueued Queue = "jobs.enqueued"
	QueueDLQ          Queue = "dlq"
)

// Routing keys.
const (
	RoutingKeyJobEnqueued   RoutingKey = "job.enqueued"
	RoutingKeyJobCompleted  RoutingKey = "job.completed"
	RoutingKeyJobDeadLetter RoutingKey = "job.dead_lettered"
	RoutingKeyDLQ           RoutingKey = "jobs"
)

// SetupTopology объявляет exchanges, queues и bindings.
// Операции идемпотентны: вызывается каждым процессом при старте.
//
// События job.completed и job.dead_lettered публикуются в rupor.jobs
// без привязанной очереди: это точка интеграции для внешних
// подписчиков (уведомления, аналитика), своя очередь им не нужна.
func SetupTopology(conn *Connection) error {
	ch := conn.Channel()
	if ch == nil {
		return fmt.Errorf("no channel available")
	}

	if err := declareExchanges(ch); err != nil {
		return err
	}
	if err := declareQueues(ch); err != nil {
		return err
	}
	return bindQueues(ch)
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeJobs, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Необрабатываемые сообщения jobs.enqueued уходят в DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQ),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueJobsEnqueued, dlqArgs},
		{QueueDLQ, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueJobsEnqueued, RoutingKeyJobEnqueued, ExchangeJobs},
		{QueueDLQ, RoutingKeyDLQ, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Rupor RabbitMQ Topology:

    rupor.jobs (direct)
    ├── jobs.enqueued [routing: job.enqueued]
    │       Consumer: Worker
    │       DLQ: dlq
    ├── [routing: job.completed]      — интеграционные события, без очереди
    └── [routing: job.dead_lettered]  — интеграционные события, без очереди

    rupor.dlq (direct)
    └── dlq [routing: jobs]
            Manual processing
  `
}
