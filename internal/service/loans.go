package service

import (
	"context"

	"github.com/xcastelo/saf-server/internal/apperr"
	"github.com/xcastelo/saf-server/internal/backup"
	"github.com/xcastelo/saf-server/internal/models"
)

const defaultEventLimit = 50

// Loan methods
func (s *DefaultService) CreateLoan(ctx context.Context, req models.CreateLoanRequest) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := validateLineItems(req.Items)
	if err != nil {
		return nil, err
	}
	if !models.ValidDate(req.StartDate) || !models.ValidDate(req.ExpectedEndDate) {
		return nil, apperr.New(apperr.InvalidRequest,
			"loan dates must be calendar dates in the form %s", models.DateLayout)
	}

	loan, err := s.repo.CreateLoan(ctx, req.PersonID, items, req.StartDate, req.ExpectedEndDate, req.Notes)
	if err != nil {
		return nil, err
	}

	s.projectLoan(loan)
	return loan, nil
}

// validateLineItems rejects malformed requests before anything touches the
// ledger: a loan needs at least one line, positive quantities, and no article
// type twice.
func validateLineItems(reqs []models.LoanItemRequest) ([]models.LoanLineItem, error) {
	if len(reqs) == 0 {
		return nil, apperr.New(apperr.InvalidRequest, "a loan needs at least one line item")
	}

	seen := map[string]bool{}
	items := make([]models.LoanLineItem, 0, len(reqs))
	for _, r := range reqs {
		if r.Quantity < 1 {
			return nil, apperr.New(apperr.InvalidRequest,
				"quantity for article type %s must be at least 1", r.ArticleTypeID)
		}
		if seen[r.ArticleTypeID] {
			return nil, apperr.New(apperr.InvalidRequest,
				"article type %s appears more than once", r.ArticleTypeID)
		}
		seen[r.ArticleTypeID] = true
		items = append(items, models.LoanLineItem{ItemID: r.ArticleTypeID, Quantity: r.Quantity})
	}

	return items, nil
}

func (s *DefaultService) ReturnLoan(ctx context.Context, id string, req models.ReturnLoanRequest) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, err := s.repo.ReturnLoan(ctx, id, req.Condition, req.Notes, models.Today())
	if err != nil {
		return nil, s.surface("return loan", err)
	}

	return loan, nil
}

func (s *DefaultService) CancelReturn(ctx context.Context, id string, req models.CancelReturnRequest) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, err := s.repo.CancelReturn(ctx, id, req.Reason)
	if err != nil {
		return nil, err
	}

	s.projectLoan(loan)
	return loan, nil
}

func (s *DefaultService) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, err := s.repo.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}

	s.projectLoan(loan)
	return loan, nil
}

// ListLoans returns all loans with their projected status, optionally
// filtered to one status. The filter runs after the overdue projection, so
// "active" means genuinely current and "overdue" selects the projected ones.
func (s *DefaultService) ListLoans(ctx context.Context, status string) ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch status {
	case "", models.LoanStatusActive, models.LoanStatusReturned, models.LoanStatusOverdue:
	default:
		return nil, apperr.New(apperr.InvalidRequest, "unknown loan status %q", status)
	}

	loans, err := s.repo.ListLoans(ctx)
	if err != nil {
		return nil, err
	}

	today := models.Today()
	for i := range loans {
		loans[i].Status = loans[i].EffectiveStatus(today)
	}

	if status == "" {
		return loans, nil
	}

	filtered := []models.Loan{}
	for _, loan := range loans {
		if loan.Status == status {
			filtered = append(filtered, loan)
		}
	}
	return filtered, nil
}

// projectLoan overlays the read-time overdue status onto a stored loan.
func (s *DefaultService) projectLoan(loan *models.Loan) {
	loan.Status = loan.EffectiveStatus(models.Today())
}

// History and projections
func (s *DefaultService) ListEvents(ctx context.Context, limit int, before int64) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultEventLimit
	}

	return s.repo.ListEvents(ctx, limit, before)
}

func (s *DefaultService) ListLoanEvents(ctx context.Context, loanID string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.repo.ListEventsByLoan(ctx, loanID)
}

func (s *DefaultService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := models.Today()
	stats, err := s.repo.DashboardStats(ctx, today)
	if err != nil {
		return nil, err
	}

	for i := range stats.RecentLoans {
		stats.RecentLoans[i].Status = stats.RecentLoans[i].EffectiveStatus(today)
	}

	return stats, nil
}

func (s *DefaultService) AnnualReport(ctx context.Context, year int) ([]models.LoanSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if year < 1 {
		return nil, apperr.New(apperr.InvalidRequest, "invalid report year %d", year)
	}

	summaries, err := s.repo.AnnualReport(ctx, year)
	if err != nil {
		return nil, err
	}

	today := models.Today()
	for i := range summaries {
		if summaries[i].Status == models.LoanStatusActive && summaries[i].ExpectedEndDate < today {
			summaries[i].Status = models.LoanStatusOverdue
		}
	}

	return summaries, nil
}

// Snapshot/restore methods
func (s *DefaultService) CreateSnapshot(ctx context.Context) (*models.BackupInfo, error) {
	// The write lock keeps writers out while the database file is copied.
	s.mu.Lock()
	defer s.mu.Unlock()

	return backup.Create(s.dbPath, s.backupDir)
}

func (s *DefaultService) ListSnapshots(ctx context.Context) ([]models.BackupInfo, error) {
	return backup.List(s.backupDir)
}

// Restore destructively replaces the whole ledger from a snapshot archive.
// It runs exclusively: the write lock is held across closing the handle,
// swapping the database file and reopening, so no request ever observes a
// torn state.
func (s *DefaultService) Restore(ctx context.Context, archivePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Close(); err != nil {
		return apperr.Wrap(apperr.StorageFailure, err, "close ledger before restore")
	}

	restoreErr := backup.Restore(archivePath, s.dbPath)

	// Reopen regardless: on a rejected archive the old database is untouched
	// and the ledger must keep serving.
	if err := s.repo.Reopen(); err != nil {
		s.logger.Error("reopen after restore failed: %v", err)
		return err
	}

	return restoreErr
}
