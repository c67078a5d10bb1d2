package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type HistoryEntry struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	ActorID   uuid.UUID
	Action    string
	Payload   map[string]any
	CreatedAt time.Time
}

type AppendHistoryParams struct {
	LeadID  uuid.UUID
	ActorID uuid.UUID
	Action  string
	Payload map[string]any
}

// AppendHistory records one audit entry for a lead.
func (r *Repository) AppendHistory(ctx context.Context, params AppendHistoryParams) (HistoryEntry, error) {
	payloadJSON, err := json.Marshal(params.Payload)
	if err != nil {
		return HistoryEntry{}, err
	}

	var entry HistoryEntry
	// payload is excluded from RETURNING: we already hold it as a Go value.
	err = r.pool.QueryRow(ctx, `
		INSERT INTO buyer_lead_history (lead_id, actor_id, action, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, actor_id, action, created_at
	`, params.LeadID, params.ActorID, params.Action, payloadJSON).Scan(
		&entry.ID, &entry.LeadID, &entry.ActorID, &entry.Action, &entry.CreatedAt,
	)
	if err != nil {
		return HistoryEntry{}, err
	}

	entry.Payload = params.Payload
	return entry, nil
}

// ListHistory returns the most recent audit entries for a lead, newest first.
func (r *Repository) ListHistory(ctx context.Context, leadID uuid.UUID, limit int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, actor_id, action, payload, created_at
		FROM buyer_lead_history
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var entry HistoryEntry
		var payloadJSON []byte
		if err := rows.Scan(&entry.ID, &entry.LeadID, &entry.ActorID, &entry.Action, &payloadJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &entry.Payload); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return entries, nil
}
