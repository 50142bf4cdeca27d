package natsclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerQR/config"
	"github.com/sifan077/PowerQR/internal/app/model"
	"go.uber.org/zap"
)

const defaultConnectTimeout = 5 * time.Second

// Connect opens a NATS connection with JetStream enabled. Async publish
// failures are reported to logger.
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	opts := []nats.Option{
		nats.Timeout(defaultConnectTimeout),
		nats.Name("powerqr"),
		nats.MaxReconnects(-1),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(URL(cfg), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream(nats.PublishAsyncErrHandler(publishErrHandler(logger)))
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}

	return conn, js, nil
}

func publishErrHandler(logger *zap.Logger) nats.MsgErrHandler {
	return func(_ nats.JetStream, msg *nats.Msg, err error) {
		logger.Warn("visit publish failed",
			zap.String("subject", msg.Subject),
			zap.String("msg_id", msg.Header.Get(nats.MsgIdHdr)),
			zap.Error(err),
		)
	}
}

// EnsureVisitStream creates the visit stream when it does not exist yet.
func EnsureVisitStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(model.VisitStreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("nats: stream info: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      model.VisitStreamName,
		Subjects:  []string{model.VisitStreamSubject},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxBytes:  model.VisitStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("nats: add stream %s: %w", model.VisitStreamName, err)
	}
	return nil
}

// URL returns the nats:// address for cfg, defaulting host and port.
func URL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 4222
	}
	return fmt.Sprintf("nats://%s:%d", host, port)
}
