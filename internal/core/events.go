package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratumdb/controlplane/internal/model"
	"github.com/stratumdb/controlplane/internal/platform"
)

// EventSink records audit events. Writes are fire-and-forget: a failure is
// logged and swallowed, never propagated to the triggering state transition.
type EventSink interface {
	Record(event model.Event)
}

// PGEventSink is an async event writer backed by the cluster_events table.
type PGEventSink struct {
	db     DB
	logger zerolog.Logger
	ch     chan model.Event
}

func NewPGEventSink(db DB, logger zerolog.Logger) *PGEventSink {
	s := &PGEventSink{
		db:     db,
		logger: logger,
		ch:     make(chan model.Event, 1024),
	}
	go s.drain()
	return s
}

func (s *PGEventSink) drain() {
	for event := range s.ch {
		var metadata []byte
		if event.Metadata != nil {
			metadata, _ = json.Marshal(event.Metadata)
		}
		_, err := s.db.Exec(
			// context.Background since this is async
			context.Background(),
			`INSERT INTO cluster_events (id, org_id, project_id, cluster_id, type, severity, message, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			event.ID, event.OrgID, event.ProjectID, event.ClusterID,
			event.Type, event.Severity, event.Message, metadata, event.CreatedAt,
		)
		if err != nil {
			s.logger.Error().Err(err).Str("type", event.Type).Str("cluster_id", event.ClusterID).
				Msg("failed to write cluster event")
		}
	}
}

// Record queues an event for writing. If the queue is full the event is
// dropped with a log line rather than blocking the caller.
func (s *PGEventSink) Record(event model.Event) {
	if event.ID == "" {
		event.ID = platform.NewID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	select {
	case s.ch <- event:
	default:
		s.logger.Warn().Str("type", event.Type).Msg("event queue full, dropping event")
	}
}

// Close drains remaining events and stops the writer.
func (s *PGEventSink) Close() {
	close(s.ch)
}
