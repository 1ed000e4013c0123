package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xcastelo/saf-server/internal/apperr"
	"github.com/xcastelo/saf-server/internal/config"
	"github.com/xcastelo/saf-server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Article type operations
	CreateArticleType(ctx context.Context, req models.CreateArticleTypeRequest, source string) (*models.ArticleType, error)
	GetArticleType(ctx context.Context, id string) (*models.ArticleType, error)
	ListArticleTypes(ctx context.Context, query string) ([]models.ArticleType, error)
	AdjustTotalStock(ctx context.Context, id string, newTotal int) (*models.ArticleType, error)
	DeleteArticleType(ctx context.Context, id string) error

	// Person operations
	CreatePerson(ctx context.Context, req models.CreatePersonRequest) (*models.Person, error)
	ReactivatePerson(ctx context.Context, id string, req models.CreatePersonRequest) (*models.Person, error)
	GetPerson(ctx context.Context, id string) (*models.Person, error)
	GetPersonByExternalID(ctx context.Context, externalID string) (*models.Person, error)
	ListPersons(ctx context.Context, query string) ([]models.Person, error)
	UpdatePerson(ctx context.Context, id string, changes models.PersonChanges) (*models.Person, error)
	DeactivatePerson(ctx context.Context, id string) error

	// Loan operations
	CreateLoan(ctx context.Context, personID string, items []models.LoanLineItem, startDate, expectedEndDate string, notes *string) (*models.Loan, error)
	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	ListLoans(ctx context.Context) ([]models.Loan, error)
	ReturnLoan(ctx context.Context, id string, condition, notes *string, today string) (*models.Loan, error)
	CancelReturn(ctx context.Context, id string, reason *string) (*models.Loan, error)

	// Event operations
	ListEvents(ctx context.Context, limit int, before int64) ([]models.Event, error)
	ListEventsByLoan(ctx context.Context, loanID string) ([]models.Event, error)

	// Projections
	DashboardStats(ctx context.Context, today string) (*models.DashboardStats, error)
	AnnualReport(ctx context.Context, year int) ([]models.LoanSummary, error)

	// Handle lifecycle
	Close() error
	Reopen() error
}

// SQLiteRepository implements the Repository interface using SQLite
type SQLiteRepository struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteRepository creates a new SQLite repository over an open database
func NewSQLiteRepository(db *sqlx.DB, path string) *SQLiteRepository {
	return &SQLiteRepository{
		db:   db,
		path: path,
	}
}

// GetDB returns the underlying database connection
func (r *SQLiteRepository) GetDB() *sqlx.DB {
	return r.db
}

// Close releases the database handle. After Close, only Reopen is valid.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Reopen replaces the database handle with a fresh one opened from the same
// path. This is the explicit state transition a restore goes through: the old
// handle (and anything cached on it) is discarded, never silently reused.
func (r *SQLiteRepository) Reopen() error {
	db, err := config.OpenDatabase(r.path)
	if err != nil {
		return apperr.Wrap(apperr.StorageFailure, err, "reopen ledger database")
	}
	r.db = db
	return nil
}

// withTx runs fn in a transaction, rolling back on any error. Every logical
// mutation of the ledger goes through here so that state changes and the
// events they append either all persist or none do.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.StorageFailure, err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.StorageFailure, err, "commit transaction")
	}
	return nil
}

// appendEventTx appends one event to the audit trail within the transaction of
// the mutation that produced it.
func appendEventTx(ctx context.Context, tx *sqlx.Tx, payload models.EventPayload, loanID, personID *string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", payload.EventType(), err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (event_type, data, created_at, loan_id, person_id) VALUES (?, ?, ?, ?, ?)`,
		payload.EventType(), string(data), time.Now().UTC(), loanID, personID)
	if err != nil {
		return apperr.Wrap(apperr.StorageFailure, err, "append event")
	}
	return nil
}
