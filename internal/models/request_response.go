package models

// Request models
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type CreateArticleTypeRequest struct {
	Name         string  `json:"name" binding:"required"`
	Category     string  `json:"category" binding:"required"`
	Icon         string  `json:"icon" binding:"required"`
	Description  *string `json:"description"`
	Notes        *string `json:"notes"`
	InitialStock int     `json:"initialStock" binding:"gte=0"`
}

type AdjustStockRequest struct {
	// Pointer so an explicit zero passes the required binding.
	NewTotalStock *int `json:"newTotalStock" binding:"required"`
}

type CreatePersonRequest struct {
	ExternalID string  `json:"externalId" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Address    string  `json:"address" binding:"required"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Notes      *string `json:"notes"`
}

type UpdatePersonRequest struct {
	ExternalID *string `json:"externalId"`
	Name       *string `json:"name"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Notes      *string `json:"notes"`
}

type LoanItemRequest struct {
	ArticleTypeID string `json:"articleTypeId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required"`
}

type CreateLoanRequest struct {
	PersonID        string            `json:"personId" binding:"required"`
	Items           []LoanItemRequest `json:"items" binding:"required"`
	StartDate       string            `json:"startDate" binding:"required"`
	ExpectedEndDate string            `json:"expectedEndDate" binding:"required"`
	Notes           *string           `json:"notes"`
}

type ReturnLoanRequest struct {
	Condition *string `json:"condition"`
	Notes     *string `json:"notes"`
}

type CancelReturnRequest struct {
	Reason *string `json:"reason"`
}

type RestoreRequest struct {
	ArchivePath string `json:"archivePath" binding:"required"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
