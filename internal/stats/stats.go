// Package stats reports inference timing.
package stats

import (
	"fmt"
	"time"
)

// Report accumulates the timed inference loop's results.
type Report struct {
	Total      time.Duration
	Iterations int
	BatchSize  int
}

// Average is the mean duration of one iteration.
func (r Report) Average() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Total / time.Duration(r.Iterations)
}

// Throughput is the frame rate in FPS over the whole run.
func (r Report) Throughput() float64 {
	ms := float64(r.Total) / float64(time.Millisecond)
	if ms == 0 {
		return 0
	}
	return 1000 * float64(r.Iterations) * float64(r.BatchSize) / ms
}

func (r Report) String() string {
	return fmt.Sprintf("total inference time: %.2f ms\nAverage running time of one iteration: %.2f ms\nThroughput: %.2f FPS",
		float64(r.Total)/float64(time.Millisecond),
		float64(r.Average())/float64(time.Millisecond),
		r.Throughput())
}
