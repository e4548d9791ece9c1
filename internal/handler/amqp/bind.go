package amqp

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DomainHandler is the business step run for one decoded order event.
type DomainHandler[T any] func(ctx context.Context, payload *T) error

// [INFRASTRUCTURE_BRIDGE]
// Bind connects a watermill consumer to a typed handler: decoding, panic recovery and tracing.
func Bind[T any](h *OrderHandler, fn DomainHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx, span := h.tracer.Start(msg.Context(), "amqp.consume",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.message.id", msg.UUID),
				attribute.String("messaging.trace_id", msg.Metadata.Get(traceIDMetadataKey)),
			),
		)
		defer span.End()

		// [PANIC_RECOVERY]
		// A panicking handler must not take the consumer down; the message is acked.
		defer func() {
			if r := recover(); r != nil {
				span.SetStatus(codes.Error, "panic")
				h.logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
			}
		}()

		// [DECODING]
		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			span.RecordError(err)
			h.logger.Error("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
			return nil // ACK: Poison Pill protection.
		}

		// [EXECUTION]
		if err := fn(ctx, payload); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err // NACK: Retry policy, then poison queue.
		}

		return nil
	}
}
