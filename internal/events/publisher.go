// Package events publishes recording-deletion batch tasks onto NATS, so a
// separate storage-cleanup worker can delete the underlying S3 objects.
// Publishing is best-effort: a failed publish is logged and left for
// internal/reconcile to retry, never surfaced to the caller that triggered
// the deletion.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/scuffle-video/api/internal/logger"
	"github.com/scuffle-video/api/internal/models"
)

// Config configures the NATS connection a Publisher uses. Subject overrides
// the stream the storage-cleanup worker consumes; empty selects
// SubjectRecordingDeleteBatch.
type Config struct {
	URL      string
	User     string
	Password string
	Subject  string
}

// Publisher publishes recording delete-batch tasks to NATS. If NATS is
// unavailable at startup, it degrades to a disabled no-op rather than
// failing process startup: recordings still soft-delete. A disabled
// publisher reports every publish as successful, so the storage-cleanup
// batches it drops are not retried by reconcile.
type Publisher struct {
	conn    *nats.Conn
	subject string
	enabled bool
}

// NewPublisher connects to NATS using a standard connection-option pattern
// (reconnect wait, bounded retries, error/disconnect handlers).
func NewPublisher(cfg Config) (*Publisher, error) {
	subject := cfg.Subject
	if subject == "" {
		subject = SubjectRecordingDeleteBatch
	}
	if cfg.URL == "" {
		logger.GetLogger().Warn().Msg("NATS_URL not configured, event publishing disabled")
		return &Publisher{subject: subject, enabled: false}, nil
	}

	opts := []nats.Option{
		nats.Name("scuffle-video-api-publisher"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.GetLogger().Warn().Err(err).Msg("NATS publisher disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.GetLogger().Info().Str("url", nc.ConnectedUrl()).Msg("NATS publisher reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.GetLogger().Warn().Err(err).Msg("NATS publisher error")
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		logger.GetLogger().Warn().Err(err).Str("url", cfg.URL).Msg("failed to connect publisher to NATS, event publishing disabled")
		return &Publisher{subject: subject, enabled: false}, nil
	}

	return &Publisher{conn: conn, subject: subject, enabled: true}, nil
}

// IsEnabled reports whether this publisher holds a live NATS connection.
func (p *Publisher) IsEnabled() bool {
	return p.enabled
}

// Close drains and closes the underlying NATS connection.
func (p *Publisher) Close() error {
	if p.conn != nil {
		p.conn.Drain()
		p.conn.Close()
	}
	return nil
}

// Publish marshals payload to JSON and publishes it on subject. A disabled
// publisher silently drops the message rather than erroring, matching the
// no-op behavior callers depend on when NATS is unreachable.
func (p *Publisher) Publish(subject string, payload interface{}) error {
	if !p.enabled {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// RecordingDeleteBatchEvent envelopes a RecordingDeleteBatchTask with the
// event metadata every message on this bus carries.
type RecordingDeleteBatchEvent struct {
	EventID   string                         `json:"event_id"`
	Timestamp time.Time                      `json:"timestamp"`
	Task      models.RecordingDeleteBatchTask `json:"task"`
}

// PublishRecordingDeleteBatch stamps an EventID/Timestamp and publishes a
// delete-batch task on the configured subject.
func (p *Publisher) PublishRecordingDeleteBatch(task models.RecordingDeleteBatchTask) error {
	event := RecordingDeleteBatchEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Task:      task,
	}
	return p.Publish(p.subject, event)
}
