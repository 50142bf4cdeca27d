package service

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerQR/internal/app/model"
)

// NATSVisitPublisher publishes visit events to NATS JetStream.
type NATSVisitPublisher struct {
	js nats.JetStreamContext
}

// NewNATSVisitPublisher creates a publisher bound to js.
func NewNATSVisitPublisher(js nats.JetStreamContext) *NATSVisitPublisher {
	return &NATSVisitPublisher{js: js}
}

// Publish queues event without waiting for the stream ack.
func (p *NATSVisitPublisher) Publish(event model.VisitRecorded) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal visit event: %w", err)
	}

	if _, err := p.js.PublishAsync(model.VisitStreamSubject, data, nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("publish visit event: %w", err)
	}
	return nil
}
