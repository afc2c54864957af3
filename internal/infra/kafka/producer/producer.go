package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/watermarker/internal/config"
	"github.com/aliskhannn/watermarker/internal/model"
	"github.com/aliskhannn/watermarker/internal/report"
)

// Event types published on the progress topic.
const (
	EventOutcome = "outcome"
	EventSummary = "summary"
)

// sendTimeout bounds a single publish including retries.
const sendTimeout = 10 * time.Second

// Event is the JSON message published for every notification.
type Event struct {
	Type    string            `json:"type"`
	RunID   string            `json:"run_id"`
	Done    int               `json:"done,omitempty"`
	Total   int               `json:"total,omitempty"`
	Outcome *model.JobOutcome `json:"outcome,omitempty"`
	Summary *report.Summary   `json:"summary,omitempty"`
}

// writer is the part of kafka.Writer used by the producer.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes batch progress to a Kafka topic. It implements
// progress.Sink; publish failures are logged and never affect the batch.
type Producer struct {
	Client   writer
	strategy retry.Strategy
	runID    string
}

// New creates a new Producer for the run identified by runID.
func New(cfg *config.Kafka, s retry.Strategy, runID string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{Client: w, strategy: s, runID: runID}
}

// OnOutcome publishes the outcome keyed by its job ID.
func (p *Producer) OnOutcome(o model.JobOutcome, counts report.Counts, total int) {
	e := Event{
		Type:    EventOutcome,
		RunID:   p.runID,
		Done:    counts.Done(),
		Total:   total,
		Outcome: &o,
	}

	if err := p.Produce(o.JobID.String(), e); err != nil {
		zlog.Logger.Err(err).Str("file", o.SourcePath).Msg("failed to publish outcome")
	}
}

// OnSummary publishes the summary keyed by the run ID.
func (p *Producer) OnSummary(s report.Summary) {
	e := Event{
		Type:    EventSummary,
		RunID:   p.runID,
		Done:    s.Counts.Done(),
		Total:   s.Total,
		Summary: &s,
	}

	if err := p.Produce(p.runID, e); err != nil {
		zlog.Logger.Err(err).Msg("failed to publish summary")
	}
}

// Produce serializes the event to JSON and sends it to Kafka with retries.
func (p *Producer) Produce(key string, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg := kafka.Message{Key: []byte(key), Value: data}
	err = retry.Do(func() error {
		return p.Client.WriteMessages(ctx, msg)
	}, p.strategy)
	if err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Producer) Close() error {
	return p.Client.Close()
}
