package collector

import (
	"net/http"
	"testing"
	"time"

	"barrage/internal/core"
)

func TestComputeMetrics_EmptyEvents(t *testing.T) {
	m := ComputeMetrics(nil, 10*time.Second)

	if m.TotalSends != 0 {
		t.Errorf("expected 0 sends, got %d", m.TotalSends)
	}
	if m.TestDuration != 10*time.Second {
		t.Errorf("expected 10s duration, got %v", m.TestDuration)
	}
	if m.Tasks == nil || m.StatusCodes == nil {
		t.Error("expected maps to be initialized")
	}
}

func TestComputeMetrics_SuccessRateAndThroughput(t *testing.T) {
	events := make([]core.Event, 0)

	// 7 successes, 3 failures
	for i := 0; i < 7; i++ {
		events = append(events, core.Event{Task: "t", Success: true, Duration: time.Millisecond, BytesSent: 10})
	}
	for i := 0; i < 3; i++ {
		events = append(events, core.Event{Task: "t", Success: false, Duration: time.Millisecond, BytesSent: 10})
	}

	m := ComputeMetrics(events, 2*time.Minute)

	if m.SuccessRate != 70.0 {
		t.Errorf("expected 70%% success rate, got %.1f%%", m.SuccessRate)
	}
	if m.SendsPerMin != 5.0 {
		t.Errorf("expected 5 sends/min, got %.1f", m.SendsPerMin)
	}
	if m.BytesSent != 100 {
		t.Errorf("expected 100 bytes, got %d", m.BytesSent)
	}
}

func TestComputeMetrics_ZeroDurationHasNoThroughput(t *testing.T) {
	m := ComputeMetrics([]core.Event{{Task: "t", Success: true}}, 0)
	if m.SendsPerMin != 0 {
		t.Errorf("expected 0 sends/min, got %f", m.SendsPerMin)
	}
}

func TestComputeMetrics_PerTask(t *testing.T) {
	events := []core.Event{
		{Task: "orders", Transport: "http", Success: true, Duration: 10 * time.Millisecond, StatusCode: http.StatusOK},
		{Task: "orders", Transport: "http", Success: false, Duration: 30 * time.Millisecond, StatusCode: http.StatusInternalServerError, Error: "status: 500"},
		{Task: "events", Transport: "kafka", Success: true, Duration: 5 * time.Millisecond},
	}

	m := ComputeMetrics(events, time.Second)

	orders := m.Tasks["orders"]
	if orders == nil {
		t.Fatal("expected orders task metrics")
	}
	if orders.Count != 2 || orders.Success != 1 || orders.Failed != 1 {
		t.Errorf("unexpected orders counts: %+v", orders)
	}
	if orders.Transport != "http" || orders.LastError != "status: 500" {
		t.Errorf("unexpected orders labels: %+v", orders)
	}
	if orders.Duration.Max != 30*time.Millisecond {
		t.Errorf("expected orders max 30ms, got %v", orders.Duration.Max)
	}

	if m.Tasks["events"].Transport != "kafka" {
		t.Errorf("expected kafka transport, got %q", m.Tasks["events"].Transport)
	}

	if m.StatusCodes[200] != 1 || m.StatusCodes[500] != 1 {
		t.Errorf("unexpected status codes: %v", m.StatusCodes)
	}
	if _, ok := m.StatusCodes[0]; ok {
		t.Error("broker sends must not be counted under status 0")
	}
}

func TestComputePercentile(t *testing.T) {
	durations := []time.Duration{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 10},
		{0.50, 50},
		{0.90, 90},
		{1, 100},
		{-0.5, 10},
		{1.5, 100},
	}
	for _, tt := range tests {
		if got := ComputePercentile(durations, tt.p); got != tt.want {
			t.Errorf("ComputePercentile(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}

	if got := ComputePercentile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty slice, got %v", got)
	}
}

func TestComputeDurationMetrics(t *testing.T) {
	original := []time.Duration{
		50 * time.Millisecond,
		10 * time.Millisecond,
		30 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}

	result := ComputeDurationMetrics(original)

	if result.Min != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %v", result.Min)
	}
	if result.Max != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %v", result.Max)
	}
	if result.Avg != 30*time.Millisecond {
		t.Errorf("expected avg 30ms, got %v", result.Avg)
	}
	if original[0] != 50*time.Millisecond {
		t.Error("input slice must not be reordered")
	}

	if empty := ComputeDurationMetrics(nil); empty != (DurationMetrics{}) {
		t.Errorf("expected zero metrics, got %+v", empty)
	}
}
