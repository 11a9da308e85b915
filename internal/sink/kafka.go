package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barrage/internal/config"
	"barrage/internal/core"

	"github.com/segmentio/kafka-go"
)

type kafkaPublisher struct {
	writer *kafka.Writer
}

// newKafkaPublisher dials the bootstrap brokers before building the
// writer, since kafka.Writer connects lazily and would otherwise only fail
// on the first send.
func newKafkaPublisher(ctx context.Context, addr, topic string, timeout time.Duration) (*kafkaPublisher, error) {
	brokers := splitBrokers(addr)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka: empty bootstrap address", core.ErrConstruction)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &kafka.Dialer{Timeout: timeout}
	var errs []error
	reachable := false
	for _, b := range brokers {
		conn, err := dialer.DialContext(ctx, "tcp", b)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b, err))
			continue
		}
		_ = conn.Close()
		reachable = true
		break
	}
	if !reachable {
		return nil, fmt.Errorf("%w: kafka: no reachable broker: %w", core.ErrConstruction, errors.Join(errs...))
	}

	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			MaxAttempts:            1,
			BatchSize:              1,
			BatchTimeout:           time.Millisecond,
			ReadTimeout:            timeout,
			WriteTimeout:           timeout,
			AllowAutoTopicCreation: true,
			Transport:              &kafka.Transport{DialTimeout: timeout},
		},
	}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte{},
		Value: payload,
	})
}

func (p *kafkaPublisher) Transport() config.Transport { return config.TransportKafka }

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
