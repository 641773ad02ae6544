package pipeline

import (
	"time"

	"github.com/Brownie44l1/superres/internal/infer"
)

// Latency is the outcome of the timing loop.
type Latency struct {
	// PerCall holds every Infer duration in milliseconds.
	PerCall []float64
	Total   float64
	Average float64
}

// measure runs req synchronously iterations times. The output buffers keep
// the result of the last call.
func measure(req infer.Request, iterations int, clock func() time.Time) (Latency, error) {
	lat := Latency{PerCall: make([]float64, 0, iterations)}
	for iter := 0; iter < iterations; iter++ {
		t0 := clock()
		if err := req.Infer(); err != nil {
			return lat, err
		}
		t1 := clock()
		ms := float64(t1.Sub(t0)) / float64(time.Millisecond)
		lat.PerCall = append(lat.PerCall, ms)
		lat.Total += ms
	}
	if iterations > 0 {
		lat.Average = lat.Total / float64(iterations)
	}
	return lat, nil
}
