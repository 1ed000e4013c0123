package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/xcastelo/saf-server/internal/apperr"
	"github.com/xcastelo/saf-server/internal/models"
)

const loanColumns = `
	l.id, l.person_id, p.name AS person_name, l.start_date, l.expected_end_date,
	l.actual_end_date, l.status, l.notes, l.created_at, l.updated_at`

// CreateLoan creates a loan in state "active" and reserves stock for every
// line item as a single all-or-nothing operation: all availability checks run
// up front, and any failure rolls back without touching stock.
func (r *SQLiteRepository) CreateLoan(
	ctx context.Context,
	personID string,
	items []models.LoanLineItem,
	startDate string,
	expectedEndDate string,
	notes *string,
) (*models.Loan, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var person struct {
			Name   string `db:"name"`
			Active bool   `db:"active"`
		}
		err := tx.GetContext(ctx, &person,
			`SELECT name, active FROM persons WHERE id = ?`, personID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.NotFound, "person %s not found", personID)
			}
			return err
		}
		if !person.Active {
			return apperr.New(apperr.ConflictState,
				"person %q is deactivated and cannot borrow", person.Name)
		}

		// Check every line item before mutating anything.
		for _, item := range items {
			var stock struct {
				Name          string `db:"name"`
				TotalStock    int    `db:"total_stock"`
				ReservedStock int    `db:"reserved_stock"`
			}
			err := tx.GetContext(ctx, &stock,
				`SELECT name, total_stock, reserved_stock FROM items WHERE id = ?`,
				item.ItemID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return apperr.New(apperr.NotFound, "article type %s not found", item.ItemID)
				}
				return err
			}

			available := stock.TotalStock - stock.ReservedStock
			if item.Quantity > available {
				return apperr.New(apperr.InsufficientStock,
					"insufficient stock for %q: requested %d, available %d",
					stock.Name, item.Quantity, available)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO loans (id, person_id, start_date, expected_end_date, status, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, personID, startDate, expectedEndDate, models.LoanStatusActive, notes, now, now)
		if err != nil {
			return err
		}

		for _, item := range items {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO loan_items (id, loan_id, item_id, quantity) VALUES (?, ?, ?, ?)`,
				uuid.New().String(), id, item.ItemID, item.Quantity)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx,
				`UPDATE items SET reserved_stock = reserved_stock + ?, updated_at = ? WHERE id = ?`,
				item.Quantity, now, item.ItemID)
			if err != nil {
				return err
			}
		}

		err = appendEventTx(ctx, tx, models.LoanCreatedPayload{
			LoanID:          id,
			PersonID:        personID,
			Items:           items,
			StartDate:       startDate,
			ExpectedEndDate: expectedEndDate,
		}, &id, &personID)
		if err != nil {
			return err
		}

		for _, item := range items {
			err = appendEventTx(ctx, tx, models.StockReservedPayload{
				ItemID:   item.ItemID,
				Quantity: item.Quantity,
				LoanID:   id,
			}, &id, &personID)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetLoan(ctx, id)
}

func (r *SQLiteRepository) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.GetContext(ctx, &loan, `
		SELECT `+loanColumns+`
		FROM loans l
		JOIN persons p ON l.person_id = p.id
		WHERE l.id = ?`,
		id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "loan %s not found", id)
		}
		return nil, err
	}

	loan.Items, err = r.loanItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *SQLiteRepository) ListLoans(ctx context.Context) ([]models.Loan, error) {
	loans := []models.Loan{}
	err := r.db.SelectContext(ctx, &loans, `
		SELECT `+loanColumns+`
		FROM loans l
		JOIN persons p ON l.person_id = p.id
		ORDER BY l.created_at DESC`)
	if err != nil {
		return nil, err
	}

	for i := range loans {
		loans[i].Items, err = r.loanItems(ctx, loans[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return loans, nil
}

func (r *SQLiteRepository) loanItems(ctx context.Context, loanID string) ([]models.LoanItem, error) {
	items := []models.LoanItem{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT li.id, li.loan_id, li.item_id, i.name AS item_name, li.quantity
		FROM loan_items li
		JOIN items i ON li.item_id = i.id
		WHERE li.loan_id = ?`,
		loanID)
	return items, err
}

// loanItemsTx reads a loan's line items inside a running transaction.
func loanItemsTx(ctx context.Context, tx *sqlx.Tx, loanID string) ([]models.LoanItem, error) {
	items := []models.LoanItem{}
	err := tx.SelectContext(ctx, &items, `
		SELECT li.id, li.loan_id, li.item_id, i.name AS item_name, li.quantity
		FROM loan_items li
		JOIN items i ON li.item_id = i.id
		WHERE li.loan_id = ?`,
		loanID)
	return items, err
}

// ReturnLoan closes a loan and releases its reserved stock. Returning a loan
// twice is a state conflict and leaves the ledger untouched.
func (r *SQLiteRepository) ReturnLoan(
	ctx context.Context,
	id string,
	condition *string,
	notes *string,
	today string,
) (*models.Loan, error) {
	now := time.Now().UTC()

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, `SELECT status FROM loans WHERE id = ?`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.NotFound, "loan %s not found", id)
			}
			return err
		}
		if status == models.LoanStatusReturned {
			return apperr.New(apperr.ConflictState, "loan %s has already been returned", id)
		}

		items, err := loanItemsTx(ctx, tx, id)
		if err != nil {
			return err
		}

		for _, item := range items {
			var reserved int
			err := tx.GetContext(ctx, &reserved,
				`SELECT reserved_stock FROM items WHERE id = ?`, item.ArticleTypeID)
			if err != nil {
				return err
			}
			// A release exceeding what is reserved means the ledger itself is
			// inconsistent, not that the caller did anything wrong.
			if item.Quantity > reserved {
				return apperr.New(apperr.InvariantViolation,
					"release of %d exceeds reserved stock %d for article type %s",
					item.Quantity, reserved, item.ArticleTypeID)
			}

			_, err = tx.ExecContext(ctx,
				`UPDATE items SET reserved_stock = reserved_stock - ?, updated_at = ? WHERE id = ?`,
				item.Quantity, now, item.ArticleTypeID)
			if err != nil {
				return err
			}

			err = appendEventTx(ctx, tx, models.StockReleasedPayload{
				ItemID:   item.ArticleTypeID,
				Quantity: item.Quantity,
				LoanID:   id,
			}, &id, nil)
			if err != nil {
				return err
			}
		}

		// The loan keeps its original notes; condition and return notes are
		// recorded on the LOAN_RETURNED event.
		_, err = tx.ExecContext(ctx, `
			UPDATE loans
			SET status = ?, actual_end_date = ?, updated_at = ?
			WHERE id = ?`,
			models.LoanStatusReturned, today, now, id)
		if err != nil {
			return err
		}

		return appendEventTx(ctx, tx, models.LoanReturnedPayload{
			LoanID:    id,
			Condition: condition,
			Notes:     notes,
		}, &id, nil)
	})
	if err != nil {
		return nil, err
	}

	return r.GetLoan(ctx, id)
}

// CancelReturn reopens a returned loan, reserving its stock again. The
// re-reservation can fail with InsufficientStock if the stock was lent out or
// shrunk in the meantime.
func (r *SQLiteRepository) CancelReturn(ctx context.Context, id string, reason *string) (*models.Loan, error) {
	now := time.Now().UTC()

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, `SELECT status FROM loans WHERE id = ?`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.NotFound, "loan %s not found", id)
			}
			return err
		}
		if status != models.LoanStatusReturned {
			return apperr.New(apperr.ConflictState, "loan %s is not returned", id)
		}

		items, err := loanItemsTx(ctx, tx, id)
		if err != nil {
			return err
		}

		for _, item := range items {
			var stock struct {
				Name          string `db:"name"`
				TotalStock    int    `db:"total_stock"`
				ReservedStock int    `db:"reserved_stock"`
			}
			err := tx.GetContext(ctx, &stock,
				`SELECT name, total_stock, reserved_stock FROM items WHERE id = ?`,
				item.ArticleTypeID)
			if err != nil {
				return err
			}

			available := stock.TotalStock - stock.ReservedStock
			if item.Quantity > available {
				return apperr.New(apperr.InsufficientStock,
					"cannot reopen loan: insufficient stock for %q (requested %d, available %d)",
					stock.Name, item.Quantity, available)
			}
		}

		for _, item := range items {
			_, err = tx.ExecContext(ctx,
				`UPDATE items SET reserved_stock = reserved_stock + ?, updated_at = ? WHERE id = ?`,
				item.Quantity, now, item.ArticleTypeID)
			if err != nil {
				return err
			}

			err = appendEventTx(ctx, tx, models.StockReservedPayload{
				ItemID:   item.ArticleTypeID,
				Quantity: item.Quantity,
				LoanID:   id,
				Reason:   "return_cancelled",
			}, &id, nil)
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE loans
			SET status = ?, actual_end_date = NULL, updated_at = ?
			WHERE id = ?`,
			models.LoanStatusActive, now, id)
		if err != nil {
			return err
		}

		return appendEventTx(ctx, tx, models.ReturnCancelledPayload{
			LoanID: id,
			Reason: reason,
		}, &id, nil)
	})
	if err != nil {
		return nil, err
	}

	return r.GetLoan(ctx, id)
}
