package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Note is a free-form annotation on a lead, separate from the structured
// triage and handover notes.
type Note struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

func (r *Repository) AddNote(ctx context.Context, leadID, authorID uuid.UUID, body string) (Note, error) {
	var n Note
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_notes (lead_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, lead_id, author_id, body, created_at`,
		leadID, authorID, body,
	).Scan(&n.ID, &n.LeadID, &n.AuthorID, &n.Body, &n.CreatedAt)
	return n, err
}

func (r *Repository) ListNotes(ctx context.Context, leadID uuid.UUID) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, author_id, body, created_at
		FROM lead_notes
		WHERE lead_id = $1
		ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.LeadID, &n.AuthorID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
