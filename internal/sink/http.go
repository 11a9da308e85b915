package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"barrage/internal/config"

	"go.uber.org/zap"
)

// maxDrainSize bounds how much of a response body is read so the
// connection can be reused.
const maxDrainSize = 64 * 1024

// HTTPSink issues one POST per send to a fixed URL.
type HTTPSink struct {
	client *http.Client
	url    string
	log    *zap.Logger
}

// NewHTTPSink never fails: a malformed host or path only surfaces as a
// SendError when the request is built.
func NewHTTPSink(host, path string, client *http.Client, log *zap.Logger) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSink{
		client: client,
		url:    ResolveURL(host, path),
		log:    log,
	}
}

// ResolveURL joins host and path with exactly one slash. An empty path
// leaves host untouched.
func ResolveURL(host, path string) string {
	if path == "" {
		return host
	}
	return strings.TrimRight(host, "/") + "/" + strings.TrimLeft(path, "/")
}

func (s *HTTPSink) URL() string { return s.url }

func (s *HTTPSink) Send(ctx context.Context, payload json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return s.fail(0, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize)) // drain errors are ignorable

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.fail(resp.StatusCode, nil)
	}

	s.log.Debug("http send succeeded",
		zap.String("url", s.url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("lat", time.Since(start)),
	)
	return nil
}

func (s *HTTPSink) fail(status int, err error) error {
	sendErr := &SendError{
		Transport:  config.TransportHTTP,
		Target:     s.url,
		StatusCode: status,
		Err:        err,
	}
	s.log.Debug("http send failed", zap.Error(sendErr))
	return sendErr
}

// Close releases idle connections held by the client.
func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
