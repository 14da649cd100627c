package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// Subjects.
const (
	SubjectRunsCompleted = "qgrid.runs.completed"
	StreamRuns           = "OPTIMIZATION_RUNS"
)

// SessionSubject returns the subject for one kind of session event.
func SessionSubject(sessionID, kind string) string {
	return "qgrid.session." + sessionID + "." + kind
}

// SessionWildcard matches every event of a session.
func SessionWildcard(sessionID string) string {
	return "qgrid.session." + sessionID + ".>"
}

// Publisher implements ports.EventPublisher using NATS. Session events are
// fire-and-forget core NATS; completed runs go through JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	cfg := nats.StreamConfig{
		Name:      StreamRuns,
		Subjects:  []string{"qgrid.runs.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// PublishRegion announces a new region, or null after a clear with no default.
func (p *Publisher) PublishRegion(ctx context.Context, sessionID string, region *domain.RegionDescriptor) error {
	data, err := json.Marshal(region)
	if err != nil {
		return err
	}
	return p.conn.Publish(SessionSubject(sessionID, "region"), data)
}

// PublishStatus announces a status transition with the full snapshot.
func (p *Publisher) PublishStatus(ctx context.Context, snap *domain.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.conn.Publish(SessionSubject(snap.ID, "status"), data)
}

// PublishRunCompleted persists an applied run on the runs stream.
func (p *Publisher) PublishRunCompleted(ctx context.Context, rec *domain.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	// Msg ID lets JetStream drop duplicate publishes of the same run.
	_, err = p.js.Publish(SubjectRunsCompleted, data, nats.MsgId(rec.RunID), nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
