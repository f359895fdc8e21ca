package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAverage(t *testing.T) {
	r := Report{Total: 100 * time.Millisecond, Iterations: 4, BatchSize: 1}
	assert.Equal(t, 25*time.Millisecond, r.Average())
}

func TestAverageZeroIterations(t *testing.T) {
	r := Report{Total: time.Second}
	assert.Zero(t, r.Average())
}

func TestThroughput(t *testing.T) {
	// throughput = 1000 * N * batch / total_ms
	r := Report{Total: 100 * time.Millisecond, Iterations: 4, BatchSize: 1}
	assert.InDelta(t, 40.0, r.Throughput(), 1e-9)

	r.BatchSize = 2
	assert.InDelta(t, 80.0, r.Throughput(), 1e-9)
}

func TestThroughputZeroTotal(t *testing.T) {
	r := Report{Iterations: 4, BatchSize: 1}
	assert.Zero(t, r.Throughput())
}

func TestString(t *testing.T) {
	r := Report{Total: 200 * time.Millisecond, Iterations: 2, BatchSize: 1}
	s := r.String()
	assert.Contains(t, s, "total inference time: 200.00 ms")
	assert.Contains(t, s, "100.00 ms")
	assert.Contains(t, s, "10.00 FPS")
}
