package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/pitwall-io/pitwall/internal/ingest"
)

// RunReport is the message published after each ingestion job.
type RunReport struct {
	RunID      string    `json:"runId"`
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// NewRunReport starts a report for one job. The run id is the message key,
// so retries of the same process invocation land in the same partition.
func NewRunReport(job string) RunReport {
	return RunReport{
		RunID:     uuid.NewString(),
		Job:       job,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the report with the job outcome.
func (r *RunReport) Finish(summary ingest.Summary, runErr error) {
	r.FinishedAt = time.Now().UTC()
	r.Created = summary.Created
	r.Updated = summary.Updated
	r.Skipped = summary.Skipped
	r.Failed = summary.Failed

	if runErr != nil {
		r.Error = runErr.Error()
	}
}

// messageWriter is the slice of kafka.Writer the publisher needs, kept as an
// interface so tests can capture messages without a broker.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes run reports to a Kafka topic. A nil Publisher is valid and
// drops every report, which is how disabled configurations behave.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka-backed publisher, or nil when the
// configuration has no brokers.
func NewPublisher(cfg *Config, logger *slog.Logger) *Publisher {
	if !cfg.Enabled() {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{writer: writer, topic: cfg.Topic, logger: logger}
}

// Publish sends one run report. Failures are returned, not fatal: the caller
// logs them and the ingestion outcome stands regardless.
func (p *Publisher) Publish(ctx context.Context, report RunReport) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(report.RunID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish run report: %w", err)
	}

	p.logger.Debug("run report published",
		slog.String("run_id", report.RunID),
		slog.String("job", report.Job),
		slog.String("topic", p.topic),
	)

	return nil
}

// Close closes the underlying writer. Safe on a nil publisher.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}

	return p.writer.Close()
}
