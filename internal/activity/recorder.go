// internal/activity/recorder.go
package activity

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"agency-crm/internal/common/logger"
	"agency-crm/internal/models"
)

const esIndex = "crm-activity"

// Recorder appends audit entries. Recording is best-effort: a failed write is
// logged and swallowed so auditing never fails the operation it describes.
type Recorder struct {
	db  *sql.DB
	es  *elasticsearch.Client
	log logger.Logger
}

// NewRecorder builds a recorder. es may be nil; the search mirror is then
// skipped.
func NewRecorder(db *sql.DB, es *elasticsearch.Client, log logger.Logger) *Recorder {
	return &Recorder{db: db, es: es, log: log}
}

// Entry is the caller-facing shape of one audit event.
type Entry struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]interface{}
	IPAddress  string
	UserAgent  string
}

// Record appends one entry to the log and mirrors it to the search index.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	entry := models.ActivityLog{
		ID:         uuid.NewString(),
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		CreatedAt:  time.Now().UTC(),
	}

	if err := r.insert(ctx, entry); err != nil {
		r.log.Error("activity log write failed", map[string]interface{}{
			"action":    entry.Action,
			"entity_id": entry.EntityID,
			"error":     err.Error(),
		})
		return
	}

	r.mirror(ctx, entry)
}

func (r *Recorder) insert(ctx context.Context, e models.ActivityLog) error {
	var details []byte
	if e.Details != nil {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
	}

	var userID interface{}
	if e.UserID != "" {
		userID = e.UserID
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, user_id, action, entity_type, entity_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, userID, e.Action, e.EntityType, e.EntityID, details,
		nullable(e.IPAddress), nullable(e.UserAgent), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// mirror indexes the entry for search. Failures only log; Postgres stays the
// source of truth.
func (r *Recorder) mirror(ctx context.Context, e models.ActivityLog) {
	if r.es == nil {
		return
	}

	body, err := json.Marshal(e)
	if err != nil {
		return
	}

	res, err := r.es.Index(esIndex, bytes.NewReader(body),
		r.es.Index.WithContext(ctx),
		r.es.Index.WithDocumentID(e.ID),
	)
	if err != nil {
		r.log.Warn("activity search mirror failed", map[string]interface{}{
			"id":    e.ID,
			"error": err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		r.log.Warn("activity search mirror rejected", map[string]interface{}{
			"id":     e.ID,
			"status": res.Status(),
		})
	}
}

// List returns recent entries for an entity, newest first.
func (r *Recorder) List(ctx context.Context, entityType, entityID string, limit int) ([]*models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, entity_type, entity_id, details, ip_address, user_agent, created_at
		FROM activity_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC LIMIT $3`,
		entityType, entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []*models.ActivityLog
	for rows.Next() {
		var (
			e              models.ActivityLog
			userID, ip, ua sql.NullString
			details        []byte
		)
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.EntityType, &e.EntityID, &details, &ip, &ua, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if userID.Valid {
			e.UserID = userID.String
		}
		if ip.Valid {
			e.IPAddress = ip.String
		}
		if ua.Valid {
			e.UserAgent = ua.String
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal activity details: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes entries past the retention window. Used by the
// operator purge tool, never by request paths.
func (r *Recorder) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM activity_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge activity: %w", err)
	}
	return res.RowsAffected()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
