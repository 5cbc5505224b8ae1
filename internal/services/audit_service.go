package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tillworks/tillguard/internal/models"
)

// AuditSink receives events for durable storage. The in-memory log is the
// source of truth for queries; a sink is an optional persistence hook and
// its failures never surface to the login flow.
type AuditSink interface {
	Create(ctx context.Context, event *models.SecurityEvent) error
}

// AuditConfig holds audit log configuration
type AuditConfig struct {
	Capacity int // maximum events held in memory
}

// DefaultAuditConfig returns the production audit log configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{Capacity: 1000}
}

// AuditService keeps a bounded, insertion-ordered log of security events
// with dual-write to slog and an optional persistent sink. When the log is
// full the oldest events are dropped first. Record and Query are total;
// append-and-trim runs as a single critical section so the log never exceeds
// its capacity under concurrent writers.
type AuditService struct {
	mu       sync.Mutex
	events   []models.SecurityEvent
	capacity int
	logger   *slog.Logger
	sink     AuditSink
	now      func() time.Time
}

// NewAuditService creates a new AuditService without a persistent sink.
func NewAuditService(config AuditConfig, logger *slog.Logger) *AuditService {
	return NewAuditServiceWithSink(config, nil, logger)
}

// NewAuditServiceWithSink creates an AuditService that also forwards every
// event to the given sink. Pass nil to disable persistence.
func NewAuditServiceWithSink(config AuditConfig, sink AuditSink, logger *slog.Logger) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	capacity := config.Capacity
	if capacity <= 0 {
		capacity = DefaultAuditConfig().Capacity
	}
	return &AuditService{
		events:   make([]models.SecurityEvent, 0, capacity),
		capacity: capacity,
		logger:   logger,
		sink:     sink,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Test use only.
func (s *AuditService) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Record stamps and stores an event. It has no failure mode: sink errors
// are logged and swallowed so audit persistence problems cannot block a
// login.
func (s *AuditService) Record(ctx context.Context, input models.SecurityEventInput) {
	s.mu.Lock()
	event := models.SecurityEvent{
		ID:         uuid.New(),
		Type:       input.Type,
		Identifier: input.Identifier,
		UserID:     input.UserID,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		Timestamp:  s.now(),
		Success:    input.Success,
		Reason:     input.Reason,
	}

	s.events = append(s.events, event)
	if overflow := len(s.events) - s.capacity; overflow > 0 {
		s.events = append(s.events[:0], s.events[overflow:]...)
	}
	s.mu.Unlock()

	// Dual-write: immediate slog output
	attrs := []slog.Attr{
		slog.String("event_type", event.Type),
		slog.String("identifier", event.Identifier),
		slog.Bool("success", event.Success),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.UserID != nil {
		attrs = append(attrs, slog.String("user_id", *event.UserID))
	}
	if event.Reason != nil {
		attrs = append(attrs, slog.String("reason", *event.Reason))
	}
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "security_event", attrs...)

	if s.sink != nil {
		if err := s.sink.Create(ctx, &event); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist security event",
				slog.String("event_type", event.Type),
				slog.Any("error", err))
		}
	}
}

// Query returns a new slice of events matching every set filter field,
// sorted by timestamp descending with ties broken by most recent insertion
// first. An empty filter returns the whole log.
func (s *AuditService) Query(filter models.EventFilter) []models.SecurityEvent {
	s.mu.Lock()
	// Walk backwards so that, before sorting, results are already in
	// reverse insertion order; the stable sort then preserves that order
	// for equal timestamps.
	matched := make([]models.SecurityEvent, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		if filter.Matches(&s.events[i]) {
			matched = append(matched, s.events[i])
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched
}

// Len returns the number of events currently held.
func (s *AuditService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
