package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aegisflux/sshbreakin/internal/metrics"
)

// RunThroughputMonitor implements spec.md §4.8: it consumes the Start
// timestamp (start, passed by the caller before the source begins),
// the Total record from the Sequencer, and the Breakin stream's
// end-of-stream marker (done, closed once the Sink finishes draining),
// and writes ExecTime.txt ("elapsed total throughput") at every point
// one of those becomes newly known, overwriting the file each time —
// exactly as "Emits a single record ... whenever both Start and
// (Total ∨ finish) are known; successive records overwrite previous
// ones. Flushed to a sink file at every emit."
func RunThroughputMonitor(start time.Time, totalCh <-chan uint64, done <-chan struct{}, outputDir string, m *metrics.Metrics) error {
	path := filepath.Join(outputDir, "ExecTime.txt")
	var total uint64

	write := func() error {
		elapsed := time.Since(start).Seconds()
		if elapsed <= 0 {
			elapsed = 1e-9
		}
		throughput := float64(total) / elapsed
		if m != nil {
			m.PipelineElapsedSeconds.Set(elapsed)
			m.ThroughputLinesPerSec.Set(throughput)
		}
		return os.WriteFile(path, []byte(fmt.Sprintf("%.6f %d %.6f\n", elapsed, total, throughput)), 0o644)
	}

	for {
		select {
		case t, ok := <-totalCh:
			totalCh = nil
			if ok {
				total = t
				if m != nil {
					m.LinesTotal.Add(float64(t))
				}
				if err := write(); err != nil {
					return err
				}
			}
		case <-done:
			return write()
		}
	}
}
