package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillworks/tillguard/internal/models"
	"github.com/tillworks/tillguard/internal/services"
)

func newAuditService(capacity int) *services.AuditService {
	return services.NewAuditService(services.AuditConfig{Capacity: capacity}, nil)
}

func recordLoginFailure(t *testing.T, svc *services.AuditService, identifier string) {
	t.Helper()
	reason := "invalid_credentials"
	svc.Record(context.Background(), models.SecurityEventInput{
		Type:       models.EventLoginFailure,
		Identifier: identifier,
		Success:    false,
		Reason:     &reason,
	})
}

func TestRecord_StampsIDAndTimestamp(t *testing.T) {
	svc := newAuditService(10)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return fixed })

	svc.Record(context.Background(), models.SecurityEventInput{
		Type:       models.EventLoginSuccess,
		Identifier: "alice@example.com",
		Success:    true,
	})

	events := svc.Query(models.EventFilter{})
	require.Len(t, events, 1)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, models.EventLoginSuccess, events[0].Type)
}

func TestRecord_CapacityEvictsOldestFirst(t *testing.T) {
	svc := newAuditService(1000)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	svc.SetClock(func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Second)
	})

	for n := 0; n < 1001; n++ {
		recordLoginFailure(t, svc, "alice@example.com")
	}

	assert.Equal(t, 1000, svc.Len())

	events := svc.Query(models.EventFilter{})
	require.Len(t, events, 1000)

	// The very first event was evicted; the oldest survivor is the second
	// one recorded.
	oldest := events[len(events)-1]
	assert.Equal(t, base.Add(2*time.Second), oldest.Timestamp)
}

func TestRecord_SmallCapacity(t *testing.T) {
	svc := newAuditService(3)

	for n := 0; n < 5; n++ {
		recordLoginFailure(t, svc, "alice@example.com")
	}

	assert.Equal(t, 3, svc.Len())
}

func TestQuery_EmptyFilterReturnsEverything(t *testing.T) {
	svc := newAuditService(10)
	recordLoginFailure(t, svc, "alice@example.com")
	recordLoginFailure(t, svc, "bob@example.com")

	events := svc.Query(models.EventFilter{})

	assert.Len(t, events, 2)
}

func TestQuery_FiltersCombineWithAND(t *testing.T) {
	svc := newAuditService(100)
	ctx := context.Background()
	userID := "user-1"

	svc.Record(ctx, models.SecurityEventInput{
		Type:       models.EventLoginFailure,
		Identifier: "alice@example.com",
		UserID:     &userID,
		Success:    false,
	})
	svc.Record(ctx, models.SecurityEventInput{
		Type:       models.EventLoginSuccess,
		Identifier: "alice@example.com",
		UserID:     &userID,
		Success:    true,
	})
	svc.Record(ctx, models.SecurityEventInput{
		Type:       models.EventLoginFailure,
		Identifier: "bob@example.com",
		Success:    false,
	})

	identifier := "alice@example.com"
	eventType := models.EventLoginFailure

	events := svc.Query(models.EventFilter{
		Identifier: &identifier,
		Type:       &eventType,
	})

	require.Len(t, events, 1)
	assert.Equal(t, "alice@example.com", events[0].Identifier)
	assert.Equal(t, models.EventLoginFailure, events[0].Type)
}

func TestQuery_UserIDFilterSkipsAnonymousEvents(t *testing.T) {
	svc := newAuditService(10)
	ctx := context.Background()
	userID := "user-1"

	svc.Record(ctx, models.SecurityEventInput{
		Type:       models.EventLoginAttempt,
		Identifier: "alice@example.com",
		Success:    true,
	})
	svc.Record(ctx, models.SecurityEventInput{
		Type:       models.EventLoginSuccess,
		Identifier: "alice@example.com",
		UserID:     &userID,
		Success:    true,
	})

	events := svc.Query(models.EventFilter{UserID: &userID})

	require.Len(t, events, 1)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, userID, *events[0].UserID)
}

func TestQuery_SinceFilter(t *testing.T) {
	svc := newAuditService(10)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	svc.SetClock(func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	})

	for n := 0; n < 5; n++ {
		recordLoginFailure(t, svc, "alice@example.com")
	}

	since := base.Add(3 * time.Minute)
	events := svc.Query(models.EventFilter{Since: &since})

	// Events at minute 3, 4 and 5; Since is inclusive.
	assert.Len(t, events, 3)
}

func TestQuery_SortedNewestFirst(t *testing.T) {
	svc := newAuditService(10)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	svc.SetClock(func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Second)
	})

	for n := 0; n < 4; n++ {
		recordLoginFailure(t, svc, "alice@example.com")
	}

	events := svc.Query(models.EventFilter{})
	require.Len(t, events, 4)
	for j := 1; j < len(events); j++ {
		assert.False(t, events[j].Timestamp.After(events[j-1].Timestamp),
			"events must be ordered newest first")
	}
	assert.Equal(t, base.Add(4*time.Second), events[0].Timestamp)
}

func TestQuery_EqualTimestampsOrderedByInsertion(t *testing.T) {
	svc := newAuditService(10)
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return fixed })

	ctx := context.Background()
	for _, id := range []string{"first", "second", "third"} {
		svc.Record(ctx, models.SecurityEventInput{
			Type:       models.EventLoginAttempt,
			Identifier: id,
			Success:    true,
		})
	}

	events := svc.Query(models.EventFilter{})
	require.Len(t, events, 3)
	assert.Equal(t, "third", events[0].Identifier)
	assert.Equal(t, "second", events[1].Identifier)
	assert.Equal(t, "first", events[2].Identifier)
}

func TestQuery_ReturnsCopy(t *testing.T) {
	svc := newAuditService(10)
	recordLoginFailure(t, svc, "alice@example.com")

	events := svc.Query(models.EventFilter{})
	require.Len(t, events, 1)
	events[0].Identifier = "tampered"

	again := svc.Query(models.EventFilter{})
	assert.Equal(t, "alice@example.com", again[0].Identifier)
}

// failingSink always errors; Record must swallow it.
type failingSink struct{ calls int }

func (f *failingSink) Create(ctx context.Context, event *models.SecurityEvent) error {
	f.calls++
	return errors.New("sink unavailable")
}

func TestRecord_SinkFailureDoesNotBlock(t *testing.T) {
	sink := &failingSink{}
	svc := services.NewAuditServiceWithSink(services.AuditConfig{Capacity: 10}, sink, nil)

	recordLoginFailure(t, svc, "alice@example.com")

	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, 1, svc.Len(), "the in-memory log keeps the event regardless")
}

func TestRecord_ConcurrentWritersStayBounded(t *testing.T) {
	svc := newAuditService(100)

	var wg sync.WaitGroup
	for n := 0; n < 500; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recordLoginFailure(t, svc, "alice@example.com")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, svc.Len())
}

func TestEventTypes_OneOfEach(t *testing.T) {
	svc := newAuditService(10)
	ctx := context.Background()

	types := []string{
		models.EventLoginAttempt,
		models.EventLoginSuccess,
		models.EventLoginFailure,
		models.EventPasswordReset,
		models.EventAccountLocked,
	}
	for _, eventType := range types {
		svc.Record(ctx, models.SecurityEventInput{
			Type:       eventType,
			Identifier: "alice@example.com",
			Success:    eventType != models.EventLoginFailure && eventType != models.EventAccountLocked,
		})
	}

	for _, eventType := range types {
		et := eventType
		events := svc.Query(models.EventFilter{Type: &et})
		require.Len(t, events, 1, et)
		assert.Equal(t, et, events[0].Type)
	}
}
