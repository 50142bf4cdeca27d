package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerQR/internal/app/model"
)

// stubJetStream records PublishAsync calls; other JetStream methods are not used.
type stubJetStream struct {
	nats.JetStreamContext
	subject string
	data    []byte
	err     error
}

func (s *stubJetStream) PublishAsync(subj string, data []byte, _ ...nats.PubOpt) (nats.PubAckFuture, error) {
	s.subject = subj
	s.data = data
	return nil, s.err
}

func TestNATSVisitPublisher_Publish(t *testing.T) {
	js := &stubJetStream{}
	pub := NewNATSVisitPublisher(js)

	event := model.VisitRecorded{
		ID:          "visit-1",
		MappingID:   "mapping-1",
		ShortCode:   "Ab3dEf9h",
		DeviceClass: model.DeviceMobile,
		IsUnique:    true,
		Timestamp:   time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	if err := pub.Publish(event); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if js.subject != model.VisitStreamSubject {
		t.Fatalf("expected subject %q, got %q", model.VisitStreamSubject, js.subject)
	}
	var got model.VisitRecorded
	if err := json.Unmarshal(js.data, &got); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if got.ID != event.ID || got.ShortCode != event.ShortCode || !got.IsUnique || !got.Timestamp.Equal(event.Timestamp) {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestNATSVisitPublisher_PublishError(t *testing.T) {
	js := &stubJetStream{err: nats.ErrConnectionClosed}
	err := NewNATSVisitPublisher(js).Publish(model.VisitRecorded{ID: "visit-1"})
	if !errors.Is(err, nats.ErrConnectionClosed) {
		t.Fatalf("expected wrapped connection error, got %v", err)
	}
}
