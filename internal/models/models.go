package models

import (
	"time"
)

// DateLayout is the wire and storage format for calendar dates. Dates carry no
// time-of-day component, so the ISO form also sorts lexicographically.
const DateLayout = "2006-01-02"

// ValidDate reports whether s is a well-formed ISO calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Today returns the current calendar date in ISO form. It uses UTC like every
// stored timestamp, so date derivations never disagree with event times around
// midnight.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// ArticleType is a category of loanable equipment tracked by unit counts.
// AvailableStock is always derived from total minus reserved; it is computed in
// queries and never stored on its own.
type ArticleType struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Category       string    `db:"category" json:"category"`
	Icon           string    `db:"icon" json:"icon"`
	Description    *string   `db:"description" json:"description,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	TotalStock     int       `db:"total_stock" json:"totalStock"`
	ReservedStock  int       `db:"reserved_stock" json:"reservedStock"`
	AvailableStock int       `db:"available_stock" json:"availableStock"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Person is a registered borrower. Persons are soft-deleted: Active=false
// keeps the record and its loan history while freeing the natural key
// (ExternalID) for reactivation.
type Person struct {
	ID         string    `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"externalId"`
	Name       string    `db:"name" json:"name"`
	Address    string    `db:"address" json:"address"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	Email      *string   `db:"email" json:"email,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Loan statuses. Only "active" and "returned" are ever stored: "overdue" is a
// read-time projection of an active loan past its expected end date, and
// "pending" is a UI draft concept that never reaches the ledger.
const (
	LoanStatusActive   = "active"
	LoanStatusReturned = "returned"
	LoanStatusOverdue  = "overdue"
)

// Loan records who borrowed what and when. Terminal loans are retained forever
// for audit and reporting.
type Loan struct {
	ID              string     `db:"id" json:"id"`
	PersonID        string     `db:"person_id" json:"personId"`
	PersonName      string     `db:"person_name" json:"personName"`
	StartDate       string     `db:"start_date" json:"startDate"`
	ExpectedEndDate string     `db:"expected_end_date" json:"expectedEndDate"`
	ActualEndDate   *string    `db:"actual_end_date" json:"actualEndDate,omitempty"`
	Status          string     `db:"status" json:"status"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
	Items           []LoanItem `db:"-" json:"items"`
}

// EffectiveStatus projects the overdue state at read time. It is a pure
// function of the stored status, the expected end date and today's date, so
// "overdue" never becomes a second source of truth in storage.
func (l *Loan) EffectiveStatus(today string) string {
	if l.Status == LoanStatusActive && l.ExpectedEndDate < today {
		return LoanStatusOverdue
	}
	return l.Status
}

// LoanItem is one line of a loan: an article type plus a quantity. An article
// type appears at most once per loan.
type LoanItem struct {
	ID            string `db:"id" json:"id"`
	LoanID        string `db:"loan_id" json:"loanId"`
	ArticleTypeID string `db:"item_id" json:"articleTypeId"`
	ArticleName   string `db:"item_name" json:"articleName"`
	Quantity      int    `db:"quantity" json:"quantity"`
}

// DashboardStats is the aggregate read model behind the dashboard view.
type DashboardStats struct {
	ActiveLoanCount int64   `json:"activeLoanCount"`
	OverdueCount    int64   `json:"overdueCount"`
	TotalAvailable  int64   `json:"totalAvailable"`
	TotalPersons    int64   `json:"totalPersons"`
	RecentLoans     []Loan  `json:"recentLoans"`
	RecentEvents    []Event `json:"recentEvents"`
}

// LoanSummary is one row of the annual activity report, with referenced
// entities resolved for display.
type LoanSummary struct {
	LoanID          string     `json:"loanId"`
	PersonID        string     `json:"personId"`
	PersonName      string     `json:"personName"`
	StartDate       string     `json:"startDate"`
	ExpectedEndDate string     `json:"expectedEndDate"`
	ActualEndDate   *string    `json:"actualEndDate,omitempty"`
	Status          string     `json:"status"`
	Items           []LoanItem `json:"items"`
}

// BackupInfo describes one snapshot archive on disk.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Path      string    `json:"path"`
}
