package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"barrage/internal/config"

	"go.uber.org/zap"
)

// DefaultBrokerTimeout bounds broker construction and each publish.
const DefaultBrokerTimeout = 5 * time.Second

// TransportRedisStream labels failures of the Redis stream publisher. It is
// chosen by a redis:// bootstrap address, never named as a task type.
const TransportRedisStream config.Transport = "redis"

// publisher is a connected producer bound to one topic.
type publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Transport() config.Transport
	Close() error
}

// BrokerSink publishes one message per send to a fixed topic with an empty
// key. The bootstrap address selects the client: redis:// and rediss://
// addresses publish to a Redis stream, anything else to Kafka.
type BrokerSink struct {
	pub     publisher
	addr    string
	topic   string
	timeout time.Duration
	log     *zap.Logger
}

// NewBrokerSink connects to the broker, failing if it cannot be reached
// within timeout.
func NewBrokerSink(ctx context.Context, addr, topic string, timeout time.Duration, log *zap.Logger) (*BrokerSink, error) {
	if timeout <= 0 {
		timeout = DefaultBrokerTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	var (
		pub publisher
		err error
	)
	if isRedisAddr(addr) {
		pub, err = newRedisPublisher(ctx, addr, topic, timeout)
	} else {
		pub, err = newKafkaPublisher(ctx, addr, topic, timeout)
	}
	if err != nil {
		return nil, err
	}

	log.Info("broker connected",
		zap.String("bootstrap", addr),
		zap.String("topic", topic),
		zap.Duration("timeout", timeout),
	)
	return &BrokerSink{pub: pub, addr: addr, topic: topic, timeout: timeout, log: log}, nil
}

func (s *BrokerSink) Send(ctx context.Context, payload json.RawMessage) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.pub.Publish(ctx, payload); err != nil {
		sendErr := &SendError{
			Transport: s.pub.Transport(),
			Target:    fmt.Sprintf("%s/%s", s.addr, s.topic),
			Err:       err,
		}
		s.log.Debug("broker send failed", zap.Error(sendErr))
		return sendErr
	}

	s.log.Debug("broker send succeeded", zap.String("topic", s.topic))
	return nil
}

func (s *BrokerSink) Close() error {
	return s.pub.Close()
}

func isRedisAddr(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	return strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://")
}

func splitBrokers(addr string) []string {
	var out []string
	for _, a := range strings.Split(addr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
