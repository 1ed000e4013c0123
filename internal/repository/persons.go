package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/xcastelo/saf-server/internal/apperr"
	"github.com/xcastelo/saf-server/internal/models"
)

const personColumns = `id, external_id, name, address, phone, email, notes, active, created_at, updated_at`

// Person repository methods
func (r *SQLiteRepository) CreatePerson(ctx context.Context, req models.CreatePersonRequest) (*models.Person, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO persons (id, external_id, name, address, phone, email, notes, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			id, req.ExternalID, req.Name, req.Address, req.Phone, req.Email, req.Notes, now, now)
		if err != nil {
			return err
		}

		return appendEventTx(ctx, tx, models.UserCreatedPayload{
			UserID: id,
			Name:   req.Name,
		}, nil, &id)
	})
	if err != nil {
		return nil, err
	}

	return r.GetPerson(ctx, id)
}

// ReactivatePerson revives a deactivated person under the same id, overwriting
// its fields with the new registration. From the caller's point of view this
// is indistinguishable from a creation, so it appends USER_CREATED.
func (r *SQLiteRepository) ReactivatePerson(ctx context.Context, id string, req models.CreatePersonRequest) (*models.Person, error) {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE persons
			SET external_id = ?, name = ?, address = ?, phone = ?, email = ?, notes = ?,
				active = 1, updated_at = ?
			WHERE id = ?`,
			req.ExternalID, req.Name, req.Address, req.Phone, req.Email, req.Notes,
			time.Now().UTC(), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.New(apperr.NotFound, "person %s not found", id)
		}

		return appendEventTx(ctx, tx, models.UserCreatedPayload{
			UserID:      id,
			Name:        req.Name,
			Reactivated: true,
		}, nil, &id)
	})
	if err != nil {
		return nil, err
	}

	return r.GetPerson(ctx, id)
}

func (r *SQLiteRepository) GetPerson(ctx context.Context, id string) (*models.Person, error) {
	var person models.Person
	err := r.db.GetContext(ctx, &person,
		`SELECT `+personColumns+` FROM persons WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "person %s not found", id)
		}
		return nil, err
	}

	return &person, nil
}

// GetPersonByExternalID looks up the natural key over both active and inactive
// records, preferring the active one. A nil result without error means no
// person has ever registered with this external id.
func (r *SQLiteRepository) GetPersonByExternalID(ctx context.Context, externalID string) (*models.Person, error) {
	var person models.Person
	err := r.db.GetContext(ctx, &person, `
		SELECT `+personColumns+` FROM persons
		WHERE external_id = ?
		ORDER BY active DESC, updated_at DESC
		LIMIT 1`,
		externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No person with this natural key
		}
		return nil, err
	}

	return &person, nil
}

// ListPersons returns all persons, optionally filtered by a case-insensitive
// substring over name, external id and address.
func (r *SQLiteRepository) ListPersons(ctx context.Context, query string) ([]models.Person, error) {
	persons := []models.Person{}

	if query == "" {
		err := r.db.SelectContext(ctx, &persons,
			`SELECT `+personColumns+` FROM persons ORDER BY name`)
		return persons, err
	}

	pattern := "%" + query + "%"
	err := r.db.SelectContext(ctx, &persons, `
		SELECT `+personColumns+` FROM persons
		WHERE name LIKE ? OR external_id LIKE ? OR address LIKE ?
		ORDER BY name`,
		pattern, pattern, pattern)
	return persons, err
}

func (r *SQLiteRepository) UpdatePerson(ctx context.Context, id string, changes models.PersonChanges) (*models.Person, error) {
	if changes.Empty() {
		return r.GetPerson(ctx, id)
	}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		updates := []string{}
		args := []interface{}{}

		if changes.ExternalID != nil {
			updates = append(updates, "external_id = ?")
			args = append(args, *changes.ExternalID)
		}
		if changes.Name != nil {
			updates = append(updates, "name = ?")
			args = append(args, *changes.Name)
		}
		if changes.Address != nil {
			updates = append(updates, "address = ?")
			args = append(args, *changes.Address)
		}
		if changes.Phone != nil {
			updates = append(updates, "phone = ?")
			args = append(args, *changes.Phone)
		}
		if changes.Email != nil {
			updates = append(updates, "email = ?")
			args = append(args, *changes.Email)
		}
		if changes.Notes != nil {
			updates = append(updates, "notes = ?")
			args = append(args, *changes.Notes)
		}
		if changes.Active != nil {
			updates = append(updates, "active = ?")
			args = append(args, *changes.Active)
		}

		updates = append(updates, "updated_at = ?")
		args = append(args, time.Now().UTC(), id)

		query := "UPDATE persons SET " + strings.Join(updates, ", ") + " WHERE id = ?"
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.New(apperr.NotFound, "person %s not found", id)
		}

		return appendEventTx(ctx, tx, models.UserUpdatedPayload{
			UserID:  id,
			Changes: changes,
		}, nil, &id)
	})
	if err != nil {
		return nil, err
	}

	return r.GetPerson(ctx, id)
}

// DeactivatePerson soft-deletes a person. The record and its loan history are
// kept; only the active flag changes, recorded as a USER_UPDATED event.
func (r *SQLiteRepository) DeactivatePerson(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var active bool
		err := tx.GetContext(ctx, &active, `SELECT active FROM persons WHERE id = ?`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.NotFound, "person %s not found", id)
			}
			return err
		}

		var openLoans int
		err = tx.GetContext(ctx, &openLoans,
			`SELECT COUNT(*) FROM loans WHERE person_id = ? AND status = ?`,
			id, models.LoanStatusActive)
		if err != nil {
			return err
		}
		if openLoans > 0 {
			return apperr.New(apperr.ConflictState,
				"person has %d open loan(s) and cannot be deactivated", openLoans)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE persons SET active = 0, updated_at = ? WHERE id = ?`,
			time.Now().UTC(), id)
		if err != nil {
			return err
		}

		inactive := false
		return appendEventTx(ctx, tx, models.UserUpdatedPayload{
			UserID:  id,
			Changes: models.PersonChanges{Active: &inactive},
		}, nil, &id)
	})
}
