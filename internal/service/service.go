package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xcastelo/saf-server/internal/apperr"
	"github.com/xcastelo/saf-server/internal/config"
	"github.com/xcastelo/saf-server/internal/models"
	"github.com/xcastelo/saf-server/internal/repository"
	"github.com/xcastelo/saf-server/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Article types and stock
	ListArticleTypes(ctx context.Context, query string) ([]models.ArticleType, error)
	CreateArticleType(ctx context.Context, req models.CreateArticleTypeRequest) (*models.ArticleType, error)
	AdjustTotalStock(ctx context.Context, id string, newTotal int) (*models.ArticleType, error)
	DeleteArticleType(ctx context.Context, id string) error
	DefaultCatalog() []models.CatalogEntry
	ApplyDefaultCatalog(ctx context.Context) ([]models.ArticleType, error)

	// Persons
	ListPersons(ctx context.Context, query string) ([]models.Person, error)
	CreatePerson(ctx context.Context, req models.CreatePersonRequest) (*models.Person, error)
	UpdatePerson(ctx context.Context, id string, req models.UpdatePersonRequest) (*models.Person, error)
	DeactivatePerson(ctx context.Context, id string) error

	// Loans
	CreateLoan(ctx context.Context, req models.CreateLoanRequest) (*models.Loan, error)
	ReturnLoan(ctx context.Context, id string, req models.ReturnLoanRequest) (*models.Loan, error)
	CancelReturn(ctx context.Context, id string, req models.CancelReturnRequest) (*models.Loan, error)
	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	ListLoans(ctx context.Context, status string) ([]models.Loan, error)

	// History and projections
	ListEvents(ctx context.Context, limit int, before int64) ([]models.Event, error)
	ListLoanEvents(ctx context.Context, loanID string) ([]models.Event, error)
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	AnnualReport(ctx context.Context, year int) ([]models.LoanSummary, error)

	// Snapshot/restore
	CreateSnapshot(ctx context.Context) (*models.BackupInfo, error)
	ListSnapshots(ctx context.Context) ([]models.BackupInfo, error)
	Restore(ctx context.Context, archivePath string) error
}

// DefaultService implements the Service interface. A single RWMutex makes the
// ledger single-writer: commands take the write lock, read requests share the
// read lock, and restore runs with the write lock held for its whole duration.
type DefaultService struct {
	repo          repository.Repository
	logger        *utils.Logger
	dbPath        string
	backupDir     string
	jwtSecret     []byte
	adminHash     []byte
	tokenDuration time.Duration
	mu            sync.RWMutex
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, cfg *config.Config, logger *utils.Logger) (*DefaultService, error) {
	adminHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &DefaultService{
		repo:          repo,
		logger:        logger,
		dbPath:        cfg.Database.Path,
		backupDir:     cfg.Backup.Dir,
		jwtSecret:     []byte(cfg.Auth.JWTSecret),
		adminHash:     adminHash,
		tokenDuration: 24 * time.Hour,
	}, nil
}

// Authentication methods
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(req.Password)); err != nil {
		return nil, errors.New("invalid password")
	}

	expirationTime := time.Now().Add(s.tokenDuration)
	claims := jwt.MapClaims{
		"sub": "operator",
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Status:    "success",
		Token:     signed,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Article type methods
func (s *DefaultService) ListArticleTypes(ctx context.Context, query string) ([]models.ArticleType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.repo.ListArticleTypes(ctx, query)
}

func (s *DefaultService) CreateArticleType(ctx context.Context, req models.CreateArticleTypeRequest) (*models.ArticleType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.InitialStock < 0 {
		return nil, apperr.New(apperr.InvalidRequest, "initial stock cannot be negative")
	}

	return s.repo.CreateArticleType(ctx, req, models.ItemSourceCustom)
}

func (s *DefaultService) AdjustTotalStock(ctx context.Context, id string, newTotal int) (*models.ArticleType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newTotal < 0 {
		return nil, apperr.New(apperr.InvalidRequest, "total stock cannot be negative")
	}

	return s.repo.AdjustTotalStock(ctx, id, newTotal)
}

func (s *DefaultService) DeleteArticleType(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.DeleteArticleType(ctx, id)
}

// DefaultCatalog returns the predefined equipment catalog without touching
// the inventory.
func (s *DefaultService) DefaultCatalog() []models.CatalogEntry {
	return models.DefaultCatalog
}

// ApplyDefaultCatalog creates every catalog entry not yet present in the
// inventory, each with zero stock, and returns the ones it added.
func (s *DefaultService) ApplyDefaultCatalog(ctx context.Context) ([]models.ArticleType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := []models.ArticleType{}
	for _, entry := range models.DefaultCatalog {
		description := entry.Description
		req := models.CreateArticleTypeRequest{
			Name:        entry.Name,
			Category:    entry.Category,
			Icon:        entry.Icon,
			Description: &description,
		}

		article, err := s.repo.CreateArticleType(ctx, req, models.ItemSourceCatalog)
		if err != nil {
			if apperr.IsKind(err, apperr.ConflictState) {
				continue // Already in the inventory
			}
			return nil, err
		}
		added = append(added, *article)
	}

	return added, nil
}

// Person methods
func (s *DefaultService) ListPersons(ctx context.Context, query string) ([]models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.repo.ListPersons(ctx, query)
}

// CreatePerson registers a borrower. The natural key lookup has three
// outcomes: an active holder of the external id makes the registration a
// duplicate, an inactive holder is reactivated under its existing identity,
// and otherwise a fresh person is created.
func (s *DefaultService) CreatePerson(ctx context.Context, req models.CreatePersonRequest) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.GetPersonByExternalID(ctx, req.ExternalID)
	if err != nil {
		return nil, err
	}

	switch {
	case existing == nil:
		return s.repo.CreatePerson(ctx, req)
	case existing.Active:
		return nil, apperr.New(apperr.DuplicateIdentity,
			"an active person with identity %q already exists", req.ExternalID)
	default:
		return s.repo.ReactivatePerson(ctx, existing.ID, req)
	}
}

func (s *DefaultService) UpdatePerson(ctx context.Context, id string, req models.UpdatePersonRequest) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ExternalID != nil {
		other, err := s.repo.GetPersonByExternalID(ctx, *req.ExternalID)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id && other.Active {
			return nil, apperr.New(apperr.DuplicateIdentity,
				"an active person with identity %q already exists", *req.ExternalID)
		}
	}

	changes := models.PersonChanges{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
		Notes:      req.Notes,
	}

	return s.repo.UpdatePerson(ctx, id, changes)
}

func (s *DefaultService) DeactivatePerson(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.DeactivatePerson(ctx, id)
}

// surface reports invariant violations to the log before handing the error to
// the caller. They signal a single-operation defect; the service keeps going.
func (s *DefaultService) surface(op string, err error) error {
	if err != nil && apperr.IsKind(err, apperr.InvariantViolation) {
		s.logger.Error("invariant violation in %s: %v", op, err)
	}
	return err
}
