package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/aminsammara/foundry-stablecoin/internal/engine"
)

// OutboundPublisher publishes committed engine events to NATS for downstream
// consumers (risk dashboards, liquidation bots, indexers).
// Subjects follow the pattern: dsc.engine.events.{event_type}
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan engine.Output
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan engine.Output) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the outbound publisher loop. Publish failures are non-fatal:
// downstream consumers can always rebuild from the operation log.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case out, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, out); err != nil {
				log.Printf("WARN: outbound publish failed seq=%d: %v", out.Envelope.Sequence, err)
			}
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, out engine.Output) error {
	data, err := json.Marshal(out.Envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	subject := fmt.Sprintf("dsc.engine.events.%s", out.Envelope.EventType)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound events stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "DSC_ENGINE_EVENTS",
		Subjects:  []string{"dsc.engine.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream DSC_ENGINE_EVENTS")
	return nil
}
