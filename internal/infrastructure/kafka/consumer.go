package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"txledger/internal/application"
	"txledger/internal/infrastructure/telemetry"
	"txledger/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type TriggerHandler interface {
	HandleTrigger(ctx context.Context, rawText, callerID string) application.Result
}

type OutcomePublisher interface {
	Publish(ctx context.Context, msg streaming.Message) error
}

type Replier interface {
	Text(result application.Result) string
}

type ConsumerMetrics interface {
	IncKafkaMessage()
	IncKafkaDecodeErr()
	IncKafkaFetchErr()
	IncKafkaCommitErr()
	IncKafkaPublishErr()
}

type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewReader(cfg ReaderConfig) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka topic and group id are required")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}), nil
}

// TriggerConsumer feeds trigger messages through the pipeline one at a time
// and publishes an outcome for every result that warrants a reply. Offsets
// are committed after the outcome is handed off, so a crash replays the
// trigger; the ledger's duplicate check makes a replayed log harmless.
type TriggerConsumer struct {
	reader    MessageReader
	handler   TriggerHandler
	publisher OutcomePublisher
	replier   Replier
	metrics   ConsumerMetrics
	backoff   time.Duration
}

func NewTriggerConsumer(reader MessageReader, handler TriggerHandler, publisher OutcomePublisher, replier Replier, metrics ConsumerMetrics) (*TriggerConsumer, error) {
	if reader == nil || handler == nil || publisher == nil || replier == nil {
		return nil, errors.New("trigger consumer dependencies must not be nil")
	}
	return &TriggerConsumer{
		reader:    reader,
		handler:   handler,
		publisher: publisher,
		replier:   replier,
		metrics:   metrics,
		backoff:   500 * time.Millisecond,
	}, nil
}

// Run blocks until ctx is cancelled or the reader is closed.
func (c *TriggerConsumer) Run(ctx context.Context) error {
	tracer := otel.Tracer(tracerName)
	var processed uint64

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			// A closed reader reports io.EOF.
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.inc(ConsumerMetrics.IncKafkaFetchErr)
			slog.Warn("kafka fetch error", "err", err)
			if !sleep(ctx, c.backoff) {
				return nil
			}
			continue
		}
		c.inc(ConsumerMetrics.IncKafkaMessage)

		trigger, err := streaming.Decode(message.Value)
		if err == nil && trigger.Type != streaming.MessageTypeTrigger {
			err = errors.New("unexpected message type " + string(trigger.Type))
		}
		if err != nil {
			slog.Warn("trigger decode error", "err", err, "offset", message.Offset)
			c.inc(ConsumerMetrics.IncKafkaDecodeErr)
			c.commit(ctx, message)
			continue
		}

		messageCtx := telemetry.ExtractKafkaHeaders(ctx, message.Headers)
		if !trace.SpanContextFromContext(messageCtx).IsValid() && trigger.TraceID != "" {
			if withTrace, ok := telemetry.ContextWithTraceID(messageCtx, trigger.TraceID); ok {
				messageCtx = withTrace
			}
		}
		messageCtx, span := tracer.Start(messageCtx, "ledger.process_trigger", trace.WithSpanKind(trace.SpanKindConsumer))
		span.SetAttributes(
			attribute.String("message.id", trigger.ID),
			attribute.String("caller.id", trigger.CallerID),
		)

		result := c.handler.HandleTrigger(messageCtx, trigger.Text, trigger.CallerID)
		span.SetAttributes(attribute.String("result.kind", string(result.Kind)))
		if result.Hash != "" {
			span.SetAttributes(attribute.String("tx.hash", result.Hash.String()))
		}

		if result.Kind != application.ResultIgnored {
			if trigger.TraceID == "" {
				trigger.TraceID = telemetry.TraceIDFromContext(messageCtx)
			}
			if err := c.publisher.Publish(messageCtx, c.outcome(trigger, result)); err != nil {
				slog.Error("outcome publish error", "err", err, "trigger", trigger.ID)
				c.inc(ConsumerMetrics.IncKafkaPublishErr)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()

		c.commit(ctx, message)
		processed++
		if processed%100 == 0 {
			slog.Info("trigger stream stats", "processed", processed, "last_kind", result.Kind)
		}
	}
}

func (c *TriggerConsumer) outcome(trigger streaming.Message, result application.Result) streaming.Message {
	out := streaming.NewOutcome(trigger)
	out.Kind = string(result.Kind)
	out.Hash = result.Hash.String()
	out.Reply = c.replier.Text(result)
	out.Detail = result.Detail
	out.Record = result.Record
	if result.Command != application.CommandNone {
		out.Command = result.CommandName()
	}
	if result.Kind == application.ResultLogged && result.TotalCount >= 0 {
		out.TotalCount = result.TotalCount
	}
	return out
}

func (c *TriggerConsumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		slog.Warn("kafka commit error", "err", err, "offset", message.Offset)
		c.inc(ConsumerMetrics.IncKafkaCommitErr)
	}
}

func (c *TriggerConsumer) inc(fn func(ConsumerMetrics)) {
	if c.metrics != nil {
		fn(c.metrics)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
