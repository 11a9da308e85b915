package collector_test

import (
	"fmt"
	"time"

	"barrage/internal/collector"
	"barrage/internal/core"
)

func ExampleNewCollector() {
	c := collector.NewCollector()

	// Schedulers report one event per send.
	c.Report(core.Event{Task: "orders", Tick: 0, Success: true, Duration: 50 * time.Millisecond})
	c.Report(core.Event{Task: "orders", Tick: 1, Success: true, Duration: 70 * time.Millisecond})

	c.Close()

	fmt.Printf("Collected %d events\n", len(c.Events()))
	// Output: Collected 2 events
}

func ExampleComputeMetrics() {
	events := []core.Event{
		{Task: "orders", Success: true, Duration: 10 * time.Millisecond},
		{Task: "orders", Success: true, Duration: 20 * time.Millisecond},
		{Task: "orders", Success: true, Duration: 30 * time.Millisecond},
		{Task: "orders", Success: false, Duration: 5 * time.Millisecond},
	}

	metrics := collector.ComputeMetrics(events, time.Minute)

	fmt.Printf("Total: %d, Success: %d, Rate: %.0f%%, Per minute: %.0f\n",
		metrics.TotalSends, metrics.SuccessCount, metrics.SuccessRate, metrics.SendsPerMin)
	// Output: Total: 4, Success: 3, Rate: 75%, Per minute: 4
}

func ExampleCollector_DroppedEvents() {
	c := collector.NewCollector()
	c.Close()

	if dropped := c.DroppedEvents(); dropped > 0 {
		fmt.Printf("Warning: %d events dropped\n", dropped)
	} else {
		fmt.Println("No events dropped")
	}
	// Output: No events dropped
}
