package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/aegisflux/sshbreakin/internal/metrics"
	"github.com/aegisflux/sshbreakin/internal/model"
)

// BreakinEvent is the JSON payload published to NATS when a Sink has a
// connection: the file sink's fixed "time rhost user" format (spec.md
// §6) is unaffected — this is purely additive, grounded on the
// teacher's FindingPublisher (internal/rules/finding_publisher.go).
type BreakinEvent struct {
	ID    string `json:"id"`
	Time  int64  `json:"time"`
	RHost string `json:"rhost"`
	User  string `json:"user"`
}

// Sink writes every Breakin to Breakins.txt (spec.md §6) and, when a
// NATS connection is available, additionally publishes it as JSON on
// "breakins.detected". A nil NATS connection degrades silently to
// file-only output, mirroring the teacher's config fallback pattern
// (config.Manager.Initialize) rather than failing the run: NATS
// publish is an enrichment, not part of the mandatory output contract.
type Sink struct {
	file    *os.File
	writer  *bufio.Writer
	nc      *nats.Conn
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSink opens outputDir/Breakins.txt for writing.
func NewSink(outputDir string, nc *nats.Conn, m *metrics.Metrics, logger *slog.Logger) (*Sink, error) {
	path := filepath.Join(outputDir, "Breakins.txt")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: creating %s: %w", path, err)
	}
	return &Sink{file: f, writer: bufio.NewWriter(f), nc: nc, metrics: m, logger: logger}, nil
}

// Run drains in, writing (and optionally publishing) every Breakin,
// and flushes/closes the file once in is exhausted.
func (s *Sink) Run(in <-chan model.Breakin) error {
	defer s.file.Close()

	for b := range in {
		fmt.Fprintf(s.writer, "%d %s %s\n", b.Time.Unix(), b.RHost, b.User)
		if s.metrics != nil {
			s.metrics.BreakinsDetected.Inc()
		}
		s.publish(b)
	}

	return s.writer.Flush()
}

func (s *Sink) publish(b model.Breakin) {
	if s.nc == nil || !s.nc.IsConnected() {
		return
	}

	event := BreakinEvent{
		ID:    uuid.New().String(),
		Time:  b.Time.Unix(),
		RHost: b.RHost,
		User:  b.User,
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("sink: marshaling breakin event", "error", err)
		if s.metrics != nil {
			s.metrics.NATSPublishErrors.Inc()
		}
		return
	}

	if err := s.nc.Publish("breakins.detected", data); err != nil {
		s.logger.Warn("sink: publishing breakin to NATS", "error", err)
		if s.metrics != nil {
			s.metrics.NATSPublishErrors.Inc()
		}
	}
}
