package repository

import (
	"context"

	"github.com/xcastelo/saf-server/internal/models"
)

// ListEvents returns events most-recent-first. A positive before id turns the
// call into a cursor page: only events older than it are returned.
func (r *SQLiteRepository) ListEvents(ctx context.Context, limit int, before int64) ([]models.Event, error) {
	query := `SELECT id, event_type, data, created_at, loan_id, person_id FROM events`
	args := []interface{}{}

	if before > 0 {
		query += ` WHERE id < ?`
		args = append(args, before)
	}

	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	events := []models.Event{}
	err := r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, err
	}

	return events, nil
}

// ListEventsByLoan returns the full history recorded for one loan,
// most-recent-first.
func (r *SQLiteRepository) ListEventsByLoan(ctx context.Context, loanID string) ([]models.Event, error) {
	events := []models.Event{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, event_type, data, created_at, loan_id, person_id
		FROM events
		WHERE loan_id = ?
		ORDER BY id DESC`,
		loanID)
	if err != nil {
		return nil, err
	}

	return events, nil
}
