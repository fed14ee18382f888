package eventpublisher

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Supported values for EVENT_BROKER.
const (
	BrokerLog  = "log"
	BrokerAMQP = "amqp"
	BrokerNATS = "nats"
)

// BrokerConfig selects and configures the outbound broker.
type BrokerConfig struct {
	Broker            string
	AMQPURL           string
	AMQPExchange      string
	NATSURL           string
	NATSSubjectPrefix string
}

// NewPublisher builds the Publisher named by cfg.Broker. The returned close
// function releases broker connections and is never nil.
func NewPublisher(cfg BrokerConfig, logger zerolog.Logger) (Publisher, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Broker)) {
	case "", BrokerLog:
		return NewLogPublisher(logger), noop, nil
	case BrokerAMQP:
		p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	case BrokerNATS:
		p, err := NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown event broker %q", cfg.Broker)
	}
}
