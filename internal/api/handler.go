package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xcastelo/saf-server/internal/apperr"
	"github.com/xcastelo/saf-server/internal/models"
	"github.com/xcastelo/saf-server/internal/service"
	"github.com/xcastelo/saf-server/internal/utils"
)

// Handler holds the HTTP handlers for the API
type Handler struct {
	svc       service.Service
	logger    *utils.Logger
	jwtSecret []byte
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, logger *utils.Logger, jwtSecret []byte) *Handler {
	return &Handler{
		svc:       svc,
		logger:    logger,
		jwtSecret: jwtSecret,
	}
}

// SetupRoutes registers all API routes on the given router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.POST("/api/auth/login", h.Login)

	authed := router.Group("/api")
	authed.Use(AuthMiddleware(h.jwtSecret))
	{
		authed.GET("/items", h.ListArticleTypes)
		authed.POST("/items", h.CreateArticleType)
		authed.PUT("/items/:id/stock", h.AdjustTotalStock)
		authed.DELETE("/items/:id", h.DeleteArticleType)

		authed.GET("/catalog", h.DefaultCatalog)
		authed.POST("/catalog", h.ApplyDefaultCatalog)

		authed.GET("/persons", h.ListPersons)
		authed.POST("/persons", h.CreatePerson)
		authed.PATCH("/persons/:id", h.UpdatePerson)
		authed.DELETE("/persons/:id", h.DeactivatePerson)

		authed.GET("/loans", h.ListLoans)
		authed.POST("/loans", h.CreateLoan)
		authed.GET("/loans/:id", h.GetLoan)
		authed.POST("/loans/:id/return", h.ReturnLoan)
		authed.POST("/loans/:id/cancel-return", h.CancelReturn)
		authed.GET("/loans/:id/events", h.ListLoanEvents)

		authed.GET("/events", h.ListEvents)
		authed.GET("/dashboard", h.DashboardStats)
		authed.GET("/reports/annual/:year", h.AnnualReport)

		authed.GET("/backups", h.ListSnapshots)
		authed.POST("/backups", h.CreateSnapshot)
		authed.POST("/backups/restore", h.Restore)
	}
}

// Login handles operator authentication
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status:  "error",
			Code:    "UNAUTHORIZED",
			Message: "Invalid credentials",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Article type handlers
func (h *Handler) ListArticleTypes(c *gin.Context) {
	items, err := h.svc.ListArticleTypes(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateArticleType(c *gin.Context) {
	var req models.CreateArticleTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	item, err := h.svc.CreateArticleType(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) AdjustTotalStock(c *gin.Context) {
	var req models.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewTotalStock == nil {
		badRequest(c, "Invalid request format")
		return
	}

	item, err := h.svc.AdjustTotalStock(c.Request.Context(), c.Param("id"), *req.NewTotalStock)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteArticleType(c *gin.Context) {
	if err := h.svc.DeleteArticleType(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

func (h *Handler) DefaultCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.DefaultCatalog())
}

func (h *Handler) ApplyDefaultCatalog(c *gin.Context) {
	items, err := h.svc.ApplyDefaultCatalog(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, items)
}

// Person handlers
func (h *Handler) ListPersons(c *gin.Context) {
	persons, err := h.svc.ListPersons(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, persons)
}

func (h *Handler) CreatePerson(c *gin.Context) {
	var req models.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	person, err := h.svc.CreatePerson(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, person)
}

func (h *Handler) UpdatePerson(c *gin.Context) {
	var req models.UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	person, err := h.svc.UpdatePerson(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, person)
}

func (h *Handler) DeactivatePerson(c *gin.Context) {
	if err := h.svc.DeactivatePerson(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

// Loan handlers
func (h *Handler) ListLoans(c *gin.Context) {
	loans, err := h.svc.ListLoans(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (h *Handler) CreateLoan(c *gin.Context) {
	var req models.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	loan, err := h.svc.CreateLoan(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *Handler) GetLoan(c *gin.Context) {
	loan, err := h.svc.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *Handler) ReturnLoan(c *gin.Context) {
	var req models.ReturnLoanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format")
			return
		}
	}

	loan, err := h.svc.ReturnLoan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *Handler) CancelReturn(c *gin.Context) {
	var req models.CancelReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format")
			return
		}
	}

	loan, err := h.svc.CancelReturn(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *Handler) ListLoanEvents(c *gin.Context) {
	events, err := h.svc.ListLoanEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// History and projection handlers
func (h *Handler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)

	events, err := h.svc.ListEvents(c.Request.Context(), limit, before)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.svc.DashboardStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) AnnualReport(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		badRequest(c, "Invalid year")
		return
	}

	report, err := h.svc.AnnualReport(c.Request.Context(), year)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Snapshot handlers
func (h *Handler) ListSnapshots(c *gin.Context) {
	backups, err := h.svc.ListSnapshots(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, backups)
}

func (h *Handler) CreateSnapshot(c *gin.Context) {
	info, err := h.svc.CreateSnapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *Handler) Restore(c *gin.Context) {
	var req models.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	if err := h.svc.Restore(c.Request.Context(), req.ArchivePath); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Ledger restored"})
}

// respondError maps a service error to an HTTP response by its kind.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.InvalidRequest, apperr.CorruptArchive:
		status = http.StatusBadRequest
	case apperr.InsufficientStock, apperr.DuplicateIdentity, apperr.ConflictState:
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    kind.String(),
		Message: err.Error(),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: msg,
	})
}
