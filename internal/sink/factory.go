package sink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"barrage/internal/config"
	"barrage/internal/core"

	"go.uber.org/zap"
)

// Builder constructs a Sink for a task.
type Builder interface {
	New(ctx context.Context, task config.Task) (Sink, error)
}

// Factory is the only place transport-specific construction happens.
// HTTP construction is synchronous and cannot fail; broker construction
// connects and may return an error wrapping core.ErrConstruction.
type Factory struct {
	HTTPClient    *http.Client  // nil uses a client with a 30s timeout
	BrokerTimeout time.Duration // 0 uses DefaultBrokerTimeout
	Logger        *zap.Logger
}

func (f *Factory) New(ctx context.Context, task config.Task) (Sink, error) {
	log := f.Logger
	if log == nil {
		log = zap.NewNop()
	}

	switch task.Type {
	case config.TransportHTTP:
		return NewHTTPSink(task.Host, task.Path, f.HTTPClient, log), nil
	case config.TransportKafka:
		s, err := NewBrokerSink(ctx, task.Host, task.Topic, f.BrokerTimeout, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", core.ErrConfiguration, task.Type)
	}
}
