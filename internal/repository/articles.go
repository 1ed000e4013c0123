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

// available_stock is computed on read, never written.
const articleColumns = `
	id, name, category, icon, description, notes,
	total_stock, reserved_stock,
	total_stock - reserved_stock AS available_stock,
	created_at, updated_at`

// Article type repository methods
func (r *SQLiteRepository) CreateArticleType(
	ctx context.Context,
	req models.CreateArticleTypeRequest,
	source string,
) (*models.ArticleType, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM items WHERE name = ?)`, req.Name)
		if err != nil {
			return err
		}
		if exists {
			return apperr.New(apperr.ConflictState,
				"an article type named %q already exists", req.Name)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO items (id, name, category, icon, description, notes,
				total_stock, reserved_stock, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			id, req.Name, req.Category, req.Icon, req.Description, req.Notes,
			req.InitialStock, now, now)
		if err != nil {
			return err
		}

		return appendEventTx(ctx, tx, models.ItemCreatedPayload{
			ItemID: id,
			Name:   req.Name,
			Source: source,
		}, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	return r.GetArticleType(ctx, id)
}

func (r *SQLiteRepository) GetArticleType(ctx context.Context, id string) (*models.ArticleType, error) {
	var article models.ArticleType
	err := r.db.GetContext(ctx, &article,
		`SELECT `+articleColumns+` FROM items WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "article type %s not found", id)
		}
		return nil, err
	}

	return &article, nil
}

// ListArticleTypes returns all article types, optionally filtered by a
// case-insensitive substring over name and description.
func (r *SQLiteRepository) ListArticleTypes(ctx context.Context, query string) ([]models.ArticleType, error) {
	articles := []models.ArticleType{}

	if query == "" {
		err := r.db.SelectContext(ctx, &articles,
			`SELECT `+articleColumns+` FROM items ORDER BY name`)
		return articles, err
	}

	pattern := "%" + query + "%"
	err := r.db.SelectContext(ctx, &articles, `
		SELECT `+articleColumns+` FROM items
		WHERE name LIKE ? OR description LIKE ?
		ORDER BY name`,
		pattern, pattern)
	return articles, err
}

func (r *SQLiteRepository) AdjustTotalStock(ctx context.Context, id string, newTotal int) (*models.ArticleType, error) {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var current struct {
			TotalStock    int `db:"total_stock"`
			ReservedStock int `db:"reserved_stock"`
		}
		err := tx.GetContext(ctx, &current,
			`SELECT total_stock, reserved_stock FROM items WHERE id = ?`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.NotFound, "article type %s not found", id)
			}
			return err
		}

		if newTotal < current.ReservedStock {
			return apperr.New(apperr.ConflictState,
				"cannot set total stock to %d: %d units are on loan",
				newTotal, current.ReservedStock)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET total_stock = ?, updated_at = ? WHERE id = ?`,
			newTotal, time.Now().UTC(), id)
		if err != nil {
			return err
		}

		return appendEventTx(ctx, tx, models.StockUpdatedPayload{
			ItemID:        id,
			PreviousTotal: current.TotalStock,
			NewTotal:      newTotal,
		}, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	return r.GetArticleType(ctx, id)
}

func (r *SQLiteRepository) DeleteArticleType(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var current struct {
			Name          string `db:"name"`
			TotalStock    int    `db:"total_stock"`
			ReservedStock int    `db:"reserved_stock"`
		}
		err := tx.GetContext(ctx, &current,
			`SELECT name, total_stock, reserved_stock FROM items WHERE id = ?`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.NotFound, "article type %s not found", id)
			}
			return err
		}

		if current.TotalStock != 0 || current.ReservedStock != 0 {
			return apperr.New(apperr.ConflictState,
				"article type %q still has stock and cannot be deleted", current.Name)
		}

		var referenced bool
		err = tx.GetContext(ctx, &referenced,
			`SELECT EXISTS(SELECT 1 FROM loan_items WHERE item_id = ?)`, id)
		if err != nil {
			return err
		}
		if referenced {
			return apperr.New(apperr.ConflictState,
				"article type %q is referenced by loan history and cannot be deleted", current.Name)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return err
		}

		return appendEventTx(ctx, tx, models.ItemDeletedPayload{
			ItemID: id,
			Name:   current.Name,
		}, nil, nil)
	})
}
