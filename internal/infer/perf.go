package infer

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// WritePerformanceCounts prints one line per layer, ordered by name, then
// the total real time of the layers that executed.
func WritePerformanceCounts(w io.Writer, counters []LayerCounter) error {
	rows := append([]LayerCounter(nil), counters...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Layer < rows[j].Layer })

	var total time.Duration
	for _, c := range rows {
		name := c.Layer
		if len(name) > 30 {
			name = name[:26] + "...."
		}
		_, err := fmt.Fprintf(w, "%-30s%-20s layerType: %-15s realTime: %-10d cpu: %-10d execType: %s\n",
			name, c.Status, c.Type, c.RealTime.Microseconds(), c.CPUTime.Microseconds(), c.ExecType)
		if err != nil {
			return err
		}
		if c.Status == StatusExecuted {
			total += c.RealTime
		}
	}
	_, err := fmt.Fprintf(w, "Total time: %d microseconds\n", total.Microseconds())
	return err
}

// Layer statuses reported by backends.
const (
	StatusExecuted = "EXECUTED"
	StatusNotRun   = "NOT_RUN"
)
