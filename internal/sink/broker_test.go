package sink

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"barrage/internal/config"
	"barrage/internal/core"
)

type fakePublisher struct {
	mu        sync.Mutex
	payloads  [][]byte
	block     bool
	err       error
	closed    bool
	transport config.Transport
}

func (p *fakePublisher) Transport() config.Transport {
	if p.transport == "" {
		return config.TransportKafka
	}
	return p.transport
}

func (p *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestBrokerSink_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	s := &BrokerSink{pub: pub, addr: "localhost:9092", topic: "events", timeout: time.Second, log: nopLogger()}

	if err := s.Send(context.Background(), json.RawMessage(`{"n":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.payloads) != 1 || string(pub.payloads[0]) != `{"n":1}` {
		t.Errorf("expected payload to be published unchanged, got %q", pub.payloads)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !pub.closed {
		t.Error("expected publisher to be closed")
	}
}

func TestBrokerSink_BrokerError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("leader not available")}
	s := &BrokerSink{pub: pub, addr: "localhost:9092", topic: "events", timeout: time.Second, log: nopLogger()}

	err := s.Send(context.Background(), json.RawMessage(`{}`))
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendError, got %v", err)
	}
	if sendErr.Transport != config.TransportKafka {
		t.Errorf("expected kafka transport, got %q", sendErr.Transport)
	}
	if sendErr.Target != "localhost:9092/events" {
		t.Errorf("unexpected target %q", sendErr.Target)
	}
}

func TestBrokerSink_RedisErrorsLabelledRedis(t *testing.T) {
	pub := &fakePublisher{err: errors.New("NOGROUP"), transport: TransportRedisStream}
	s := &BrokerSink{pub: pub, addr: "redis://localhost:6379/0", topic: "events", timeout: time.Second, log: nopLogger()}

	err := s.Send(context.Background(), json.RawMessage(`{}`))
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendError, got %v", err)
	}
	if sendErr.Transport != TransportRedisStream {
		t.Errorf("expected redis transport, got %q", sendErr.Transport)
	}
	if !strings.HasPrefix(err.Error(), "redis: ") {
		t.Errorf("unexpected error text %q", err.Error())
	}
}

func TestBrokerSink_SendTimeout(t *testing.T) {
	pub := &fakePublisher{block: true}
	s := &BrokerSink{pub: pub, addr: "localhost:9092", topic: "events", timeout: 50 * time.Millisecond, log: nopLogger()}

	start := time.Now()
	err := s.Send(context.Background(), json.RawMessage(`{}`))
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendError, got %T", err)
	}
	if elapsed > time.Second {
		t.Errorf("send took %v, expected to stop near the 50ms timeout", elapsed)
	}
}

func TestNewBrokerSink_UnreachableKafka(t *testing.T) {
	timeout := 500 * time.Millisecond
	start := time.Now()
	_, err := NewBrokerSink(context.Background(), "127.0.0.1:1", "events", timeout, nil)
	elapsed := time.Since(start)

	if !errors.Is(err, core.ErrConstruction) {
		t.Fatalf("expected ErrConstruction, got %v", err)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("construction took %v, expected to give up within its timeout", elapsed)
	}
}

func TestNewBrokerSink_UnreachableRedis(t *testing.T) {
	_, err := NewBrokerSink(context.Background(), "redis://127.0.0.1:1/0", "events", 500*time.Millisecond, nil)
	if !errors.Is(err, core.ErrConstruction) {
		t.Fatalf("expected ErrConstruction, got %v", err)
	}
}

func TestNewBrokerSink_EmptyAddress(t *testing.T) {
	_, err := NewBrokerSink(context.Background(), " , ", "events", time.Second, nil)
	if !errors.Is(err, core.ErrConstruction) {
		t.Fatalf("expected ErrConstruction, got %v", err)
	}
}

func TestIsRedisAddr(t *testing.T) {
	tests := map[string]bool{
		"redis://localhost:6379":      true,
		"REDISS://cache:6380/1":       true,
		"localhost:9092":              false,
		"broker-1:9092,broker-2:9092": false,
	}
	for addr, want := range tests {
		if got := isRedisAddr(addr); got != want {
			t.Errorf("isRedisAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestSplitBrokers(t *testing.T) {
	got := splitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("unexpected brokers %q", got)
	}
}
