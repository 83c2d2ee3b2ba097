// Package pipeline implements the streaming SSH break-in detection
// dataflow of spec.md §2: Sequencer, parser fan-out, Order-Preserving
// Merger, Classifier, failure re-sequencer, SuspectFinder, Correlator,
// Sink, and throughput monitor, wired together as a DAG of goroutines
// connected by buffered channels.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aegisflux/sshbreakin/internal/config"
	"github.com/aegisflux/sshbreakin/internal/metrics"
	"github.com/aegisflux/sshbreakin/internal/model"
)

// channelBuffer sizes every inter-operator channel. spec.md §5 requires
// bounded FIFOs with wait-on-full back-pressure; the pipeline's
// dataflow is acyclic (§5), so a single shared buffer size avoids
// deadlock without needing per-edge tuning.
const channelBuffer = 1024

// Run wires together every stage named in spec.md §2 and blocks until
// the Sink has drained the Breakin stream and flushed its output file.
func Run(cfg *config.Config, nc *nats.Conn, m *metrics.Metrics, logger *slog.Logger) error {
	start := time.Now()

	lines, closeSource, err := OpenSource(cfg.Input, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	numberedLines := make(chan model.Numbered[string], channelBuffer)
	totalCh := make(chan uint64, 1)
	go Sequence(lines, numberedLines, totalCh)

	parsedLines := make(chan model.Numbered[model.LogLine], channelBuffer)
	droppedLines := make(chan uint64, channelBuffer)
	parseLogLine := func(n model.Numbered[string]) (model.LogLine, error) {
		return ParseLogLine(cfg.LogYear, n)
	}
	onLineParseErr := func(n model.Numbered[string], err error) {
		logger.Warn("dropping malformed log line", "seq", n.Seq, "error", err)
		if m != nil {
			m.ParseErrorsTotal.Inc()
		}
	}
	FanOutParse(numberedLines, parsedLines, droppedLines, cfg.Parallelism, parseLogLine, onLineParseErr)

	mergedLines := make(chan model.Numbered[model.LogLine], channelBuffer)
	go Merge(parsedLines, droppedLines, mergedLines)

	failureLines := make(chan model.Numbered[model.LogLine], channelBuffer)
	successLines := make(chan model.Numbered[model.LogLine], channelBuffer)
	go countingClassify(mergedLines, failureLines, successLines, m)

	renumberedFailures := make(chan model.Numbered[model.LogLine], channelBuffer)
	go Renumber(failureLines, renumberedFailures)

	parsedFailures := make(chan model.Numbered[model.Failure], channelBuffer)
	droppedFailures := make(chan uint64, channelBuffer)
	onFailureParseErr := func(n model.Numbered[model.LogLine], err error) {
		logger.Warn("dropping malformed failure line", "seq", n.Seq, "error", err)
		if m != nil {
			m.ParseErrorsTotal.Inc()
		}
	}
	FanOutParse(renumberedFailures, parsedFailures, droppedFailures, cfg.Parallelism, ParseFailureMessage, onFailureParseErr)

	mergedFailures := make(chan model.Numbered[model.Failure], channelBuffer)
	go Merge(parsedFailures, droppedFailures, mergedFailures)

	suspects := make(chan model.Suspect, channelBuffer)
	go runSuspectFinder(mergedFailures, suspects, uint32(cfg.Attempts), cfg.Seconds, m)

	successes := make(chan model.Success, channelBuffer)
	go parseSuccesses(successLines, successes, logger, m)

	breakins := make(chan model.Breakin, channelBuffer)
	go RunCorrelator(suspects, successes, breakins, DefaultMatchWindowSeconds, DefaultUserCap)

	sink, err := NewSink(cfg.OutputDir, nc, m, logger)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	sinkErr := make(chan error, 1)
	go func() {
		defer close(done)
		sinkErr <- sink.Run(breakins)
	}()

	if err := RunThroughputMonitor(start, totalCh, done, cfg.OutputDir, m); err != nil {
		return fmt.Errorf("throughput monitor: %w", err)
	}

	if err := <-sinkErr; err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

func countingClassify(in <-chan model.Numbered[model.LogLine], failures, successes chan<- model.Numbered[model.LogLine], m *metrics.Metrics) {
	defer close(failures)
	defer close(successes)

	for tup := range in {
		switch {
		case IsFailureLine(tup.Payload):
			if m != nil {
				m.FailuresClassified.Inc()
			}
			failures <- tup
		case IsSuccessLine(tup.Payload):
			if m != nil {
				m.SuccessesClassified.Inc()
			}
			successes <- tup
		}
	}
}

func runSuspectFinder(in <-chan model.Numbered[model.Failure], out chan<- model.Suspect, attempts uint32, seconds float64, m *metrics.Metrics) {
	defer close(out)
	sf := NewSuspectFinder(attempts, seconds)
	for tup := range in {
		if suspect, ok := sf.Process(tup.Payload); ok {
			if m != nil {
				m.SuspectsEmitted.Inc()
			}
			out <- suspect
		}
	}
}

func parseSuccesses(in <-chan model.Numbered[model.LogLine], out chan<- model.Success, logger *slog.Logger, m *metrics.Metrics) {
	defer close(out)
	for tup := range in {
		success, err := ParseSuccess(tup)
		if err != nil {
			logger.Warn("dropping malformed success line", "seq", tup.Seq, "error", err)
			if m != nil {
				m.ParseErrorsTotal.Inc()
			}
			continue
		}
		out <- success
	}
}
