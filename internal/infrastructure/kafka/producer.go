package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"txledger/internal/infrastructure/telemetry"
	"txledger/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "txledger/kafka"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// Producer publishes envelopes to a single topic, keyed by caller so one
// caller's messages stay ordered.
type Producer struct {
	writer messageWriter
	topic  string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, topic: cfg.Topic}, nil
}

func (p *Producer) Topic() string {
	return p.topic
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func (p *Producer) Publish(ctx context.Context, msg streaming.Message) error {
	if msg.TraceID == "" {
		if id := telemetry.TraceIDFromContext(ctx); id != "" {
			msg.TraceID = id
		} else {
			ctx, msg.TraceID = telemetry.ContextWithNewTrace(ctx)
		}
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ledger.publish_"+string(msg.Type), trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination.name", p.topic),
		attribute.String("message.id", msg.ID),
	)
	if msg.Hash != "" {
		span.SetAttributes(attribute.String("tx.hash", msg.Hash))
	}

	payload, err := streaming.Encode(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(ctx, &headers)

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(messageKey(msg)),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func messageKey(msg streaming.Message) string {
	if msg.CallerID != "" {
		return msg.CallerID
	}
	return msg.ID
}
