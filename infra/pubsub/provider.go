// Package pubsub builds watermill AMQP publishers and subscribers bound to topic exchanges.
package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pizzeria/dashboard-delivery-service/config"
)

const defaultPrefetch = 32

// Provider creates AMQP endpoints sharing one broker URI and logger.
type Provider struct {
	url    string
	logger watermill.LoggerAdapter
}

func NewProvider(cfg *config.Config, logger watermill.LoggerAdapter) *Provider {
	return &Provider{url: cfg.AMQP.URL, logger: logger}
}

// BuildPublisher returns a publisher writing to exchange; the watermill topic becomes the routing key.
func (p *Provider) BuildPublisher(exchange string) (message.Publisher, error) {
	pub, err := amqp.NewPublisher(p.exchangeConfig(exchange), p.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp publisher %s: %w", exchange, err)
	}
	return pub, nil
}

// BuildSubscriber returns a subscriber consuming queue bound to exchange with routingKey.
// Queues are per node and disappear with their last consumer.
func (p *Provider) BuildSubscriber(queue, exchange, routingKey string) (message.Subscriber, error) {
	cfg := p.exchangeConfig(exchange)
	cfg.Queue = amqp.QueueConfig{
		GenerateName: func(string) string { return queue },
		AutoDelete:   true,
	}
	cfg.QueueBind = amqp.QueueBindConfig{
		GenerateRoutingKey: func(string) string { return routingKey },
	}
	cfg.Consume = amqp.ConsumeConfig{
		Qos: amqp.QosConfig{PrefetchCount: defaultPrefetch},
	}

	sub, err := amqp.NewSubscriber(cfg, p.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp subscriber %s: %w", queue, err)
	}
	return sub, nil
}

func (p *Provider) exchangeConfig(exchange string) amqp.Config {
	return amqp.Config{
		Connection: amqp.ConnectionConfig{AmqpURI: p.url},
		Marshaler:  amqp.DefaultMarshaler{},
		Exchange: amqp.ExchangeConfig{
			GenerateName: func(string) string { return exchange },
			Type:         "topic",
			Durable:      true,
		},
		Publish: amqp.PublishConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		TopologyBuilder: &amqp.DefaultTopologyBuilder{},
	}
}
