package collector

import (
	"sort"
	"time"

	"barrage/internal/core"
)

// Metrics is the summary of one session.
type Metrics struct {
	TotalSends   int                     `json:"totalSends"`
	SuccessCount int                     `json:"successCount"`
	FailureCount int                     `json:"failureCount"`
	SuccessRate  float64                 `json:"successRate"`
	SendsPerMin  float64                 `json:"sendsPerMin"`
	BytesSent    int64                   `json:"bytesSent"`
	TestDuration time.Duration           `json:"testDuration"`
	Duration     DurationMetrics         `json:"durations"`
	Tasks        map[string]*TaskMetrics `json:"tasks"`
	StatusCodes  map[int]int             `json:"statusCodes"`
}

// DurationMetrics contains send latency statistics.
type DurationMetrics struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// TaskMetrics contains per-task statistics.
type TaskMetrics struct {
	Transport string          `json:"transport"`
	Count     int             `json:"count"`
	Success   int             `json:"success"`
	Failed    int             `json:"failed"`
	LastError string          `json:"lastError,omitempty"`
	Duration  DurationMetrics `json:"durations"`
}

// ComputeMetrics computes metrics from events. Pure function, no side effects.
func ComputeMetrics(events []core.Event, testDuration time.Duration) *Metrics {
	m := &Metrics{
		Tasks:        make(map[string]*TaskMetrics),
		StatusCodes:  make(map[int]int),
		TestDuration: testDuration,
	}

	if len(events) == 0 {
		return m
	}

	allDurations := make([]time.Duration, 0, len(events))
	taskDurations := make(map[string][]time.Duration)

	for _, e := range events {
		m.TotalSends++
		m.BytesSent += e.BytesSent
		if e.Success {
			m.SuccessCount++
		} else {
			m.FailureCount++
		}
		if e.StatusCode != 0 {
			m.StatusCodes[e.StatusCode]++
		}

		allDurations = append(allDurations, e.Duration)

		task, exists := m.Tasks[e.Task]
		if !exists {
			task = &TaskMetrics{Transport: e.Transport}
			m.Tasks[e.Task] = task
		}
		task.Count++
		if e.Success {
			task.Success++
		} else {
			task.Failed++
			task.LastError = e.Error
		}
		taskDurations[e.Task] = append(taskDurations[e.Task], e.Duration)
	}

	m.SuccessRate = float64(m.SuccessCount) / float64(m.TotalSends) * 100

	if m.TestDuration > 0 {
		m.SendsPerMin = float64(m.TotalSends) / m.TestDuration.Minutes()
	}

	m.Duration = ComputeDurationMetrics(allDurations)

	for task, durations := range taskDurations {
		m.Tasks[task].Duration = ComputeDurationMetrics(durations)
	}

	return m
}

// ComputePercentile returns the nearest-rank percentile p (0..1) of an
// ascending slice.
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

// ComputeDurationMetrics calculates latency statistics without modifying
// durations.
func ComputeDurationMetrics(durations []time.Duration) DurationMetrics {
	if len(durations) == 0 {
		return DurationMetrics{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return DurationMetrics{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: ComputePercentile(sorted, 0.50),
		P90: ComputePercentile(sorted, 0.90),
		P95: ComputePercentile(sorted, 0.95),
		P99: ComputePercentile(sorted, 0.99),
	}
}
