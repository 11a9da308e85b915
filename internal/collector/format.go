package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// FormatText writes metrics in human-readable format.
func FormatText(w io.Writer, m *Metrics) {
	if m.TotalSends == 0 {
		fmt.Fprintln(w, "No sends recorded")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Barrage - Session Summary")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:     %v\n", m.TestDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Total Sends:  %s\n", formatNumber(m.TotalSends))
	fmt.Fprintf(w, "Success Rate: %.1f%% (%s / %s)\n",
		m.SuccessRate, formatNumber(m.SuccessCount), formatNumber(m.TotalSends))
	fmt.Fprintf(w, "Sends/min:    %.1f\n", m.SendsPerMin)
	fmt.Fprintf(w, "Bytes Sent:   %s\n", formatNumber(int(m.BytesSent)))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Send Latency:")
	fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(m.Duration.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(m.Duration.Avg))
	fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(m.Duration.P50))
	fmt.Fprintf(w, "  P90:    %s\n", FormatDuration(m.Duration.P90))
	fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(m.Duration.P95))
	fmt.Fprintf(w, "  P99:    %s\n", FormatDuration(m.Duration.P99))
	fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(m.Duration.Max))

	if len(m.StatusCodes) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Status Codes:")
		codes := make([]int, 0, len(m.StatusCodes))
		for code := range m.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "  %d: %s\n", code, formatNumber(m.StatusCodes[code]))
		}
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Task:")
	for _, name := range sortedTasks(m.Tasks) {
		tm := m.Tasks[name]
		fmt.Fprintf(w, "  %-20s %-6s %s sends  failed=%d  avg=%s  p95=%s\n",
			name, tm.Transport, formatNumber(tm.Count), tm.Failed,
			FormatDuration(tm.Duration.Avg),
			FormatDuration(tm.Duration.P95))
		if tm.LastError != "" {
			fmt.Fprintf(w, "    last error: %s\n", tm.LastError)
		}
	}
}

// FormatJSON writes metrics in JSON format.
func FormatJSON(w io.Writer, m *Metrics) error {
	output := struct {
		Duration     string                     `json:"duration"`
		TotalSends   int                        `json:"totalSends"`
		SuccessCount int                        `json:"successCount"`
		FailureCount int                        `json:"failureCount"`
		SuccessRate  float64                    `json:"successRate"`
		SendsPerMin  float64                    `json:"sendsPerMin"`
		BytesSent    int64                      `json:"bytesSent"`
		Durations    jsonDurationMetrics        `json:"durations"`
		StatusCodes  map[int]int                `json:"statusCodes,omitempty"`
		Tasks        map[string]jsonTaskMetrics `json:"tasks"`
	}{
		Duration:     m.TestDuration.Round(time.Millisecond).String(),
		TotalSends:   m.TotalSends,
		SuccessCount: m.SuccessCount,
		FailureCount: m.FailureCount,
		SuccessRate:  m.SuccessRate,
		SendsPerMin:  m.SendsPerMin,
		BytesSent:    m.BytesSent,
		Durations:    toJSONDurationMetrics(m.Duration),
		StatusCodes:  m.StatusCodes,
		Tasks:        make(map[string]jsonTaskMetrics),
	}

	for name, tm := range m.Tasks {
		output.Tasks[name] = jsonTaskMetrics{
			Transport:   tm.Transport,
			Count:       tm.Count,
			Success:     tm.Success,
			Failed:      tm.Failed,
			SuccessRate: float64(tm.Success) / float64(tm.Count) * 100,
			LastError:   tm.LastError,
			Durations:   toJSONDurationMetrics(tm.Duration),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type jsonTaskMetrics struct {
	Transport   string              `json:"transport"`
	Count       int                 `json:"count"`
	Success     int                 `json:"success"`
	Failed      int                 `json:"failed"`
	SuccessRate float64             `json:"successRate"`
	LastError   string              `json:"lastError,omitempty"`
	Durations   jsonDurationMetrics `json:"durations"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

func sortedTasks(tasks map[string]*TaskMetrics) []string {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1_000_000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1_000_000, (n/1000)%1000, n%1000)
}
