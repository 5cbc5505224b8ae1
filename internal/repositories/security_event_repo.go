package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tillworks/tillguard/internal/database"
	"github.com/tillworks/tillguard/internal/models"
)

// SecurityEventRepository persists audit events to Postgres. It implements
// services.AuditSink; the in-memory log stays the query surface while this
// store provides a durable trail for forensics.
type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityEventRepository creates a new SecurityEventRepository
func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{pool: db.Pool}
}

// Create inserts one event.
func (r *SecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (
			id, event_type, identifier, user_id, ip_address, user_agent,
			occurred_at, success, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID, event.Type, event.Identifier, event.UserID,
		event.IPAddress, event.UserAgent, event.Timestamp, event.Success, event.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", database.MapPostgresError(err))
	}
	return nil
}

// GetByIdentifier retrieves persisted events for an identifier, most
// recent first.
func (r *SecurityEventRepository) GetByIdentifier(ctx context.Context, identifier string, limit int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT id, event_type, identifier, user_id, ip_address, user_agent,
		       occurred_at, success, reason
		FROM security_events
		WHERE identifier = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	return scanSecurityEventRows(rows)
}

// Cleanup removes events older than the retention horizon.
func (r *SecurityEventRepository) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM security_events WHERE occurred_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup security events: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanSecurityEventRows(rows pgx.Rows) ([]*models.SecurityEvent, error) {
	defer rows.Close()

	events := make([]*models.SecurityEvent, 0)
	for rows.Next() {
		var e models.SecurityEvent
		err := rows.Scan(
			&e.ID, &e.Type, &e.Identifier, &e.UserID, &e.IPAddress,
			&e.UserAgent, &e.Timestamp, &e.Success, &e.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", database.MapPostgresError(err))
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security event rows: %w", err)
	}
	return events, nil
}
