package repository

import (
	"context"
	"fmt"

	"github.com/xcastelo/saf-server/internal/models"
)

const (
	recentLoanCount  = 5
	recentEventCount = 10
)

// DashboardStats answers the dashboard from the current-state tables; nothing
// here replays the event log. Overdue is counted by comparing expected end
// dates against today, since it is never stored as a status.
func (r *SQLiteRepository) DashboardStats(ctx context.Context, today string) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := r.db.GetContext(ctx, &stats.ActiveLoanCount,
		`SELECT COUNT(*) FROM loans WHERE status = ?`, models.LoanStatusActive)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &stats.OverdueCount,
		`SELECT COUNT(*) FROM loans WHERE status = ? AND expected_end_date < ?`,
		models.LoanStatusActive, today)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &stats.TotalAvailable,
		`SELECT COALESCE(SUM(total_stock - reserved_stock), 0) FROM items`)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &stats.TotalPersons,
		`SELECT COUNT(*) FROM persons WHERE active = 1`)
	if err != nil {
		return nil, err
	}

	recentLoans := []models.Loan{}
	err = r.db.SelectContext(ctx, &recentLoans, `
		SELECT `+loanColumns+`
		FROM loans l
		JOIN persons p ON l.person_id = p.id
		ORDER BY l.created_at DESC
		LIMIT ?`,
		recentLoanCount)
	if err != nil {
		return nil, err
	}
	for i := range recentLoans {
		recentLoans[i].Items, err = r.loanItems(ctx, recentLoans[i].ID)
		if err != nil {
			return nil, err
		}
	}
	stats.RecentLoans = recentLoans

	stats.RecentEvents, err = r.ListEvents(ctx, recentEventCount, 0)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// AnnualReport lists every loan whose start date falls in the given year,
// with the borrower and line items resolved for display. Loans carry their own
// dates, so this is a plain query over current state, not an event replay.
func (r *SQLiteRepository) AnnualReport(ctx context.Context, year int) ([]models.LoanSummary, error) {
	from := fmt.Sprintf("%04d-01-01", year)
	to := fmt.Sprintf("%04d-12-31", year)

	loans := []models.Loan{}
	err := r.db.SelectContext(ctx, &loans, `
		SELECT `+loanColumns+`
		FROM loans l
		JOIN persons p ON l.person_id = p.id
		WHERE l.start_date >= ? AND l.start_date <= ?
		ORDER BY l.start_date, l.created_at`,
		from, to)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.LoanSummary, 0, len(loans))
	for i := range loans {
		items, err := r.loanItems(ctx, loans[i].ID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, models.LoanSummary{
			LoanID:          loans[i].ID,
			PersonID:        loans[i].PersonID,
			PersonName:      loans[i].PersonName,
			StartDate:       loans[i].StartDate,
			ExpectedEndDate: loans[i].ExpectedEndDate,
			ActualEndDate:   loans[i].ActualEndDate,
			Status:          loans[i].Status,
			Items:           items,
		})
	}

	return summaries, nil
}
