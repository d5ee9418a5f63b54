package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
)

const defaultUpcomingDays = 30

// RecurringHandler handles recurring schedule requests.
type RecurringHandler struct {
	recurringService services.RecurringServicer
	auditService     services.AuditServicer
	now              func() time.Time
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer, auditService services.AuditServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, auditService: auditService, now: time.Now}
}

// CreateRecurringRequest represents the request payload for creating a recurring definition.
type CreateRecurringRequest struct {
	Type          models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount        int64                  `json:"amount" binding:"required,gt=0"`
	CategoryID    *string                `json:"category_id" binding:"omitempty,uuid"`
	Description   string                 `json:"description" binding:"max=500"`
	Frequency     models.Frequency       `json:"frequency" binding:"required,frequency"`
	DayOfWeek     *int                   `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	DayOfMonth    *int                   `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	MonthOfYear   *int                   `json:"month_of_year" binding:"omitempty,min=1,max=12"`
	StartDate     time.Time              `json:"start_date" binding:"required"`
	EndDate       *time.Time             `json:"end_date"`
	MaxExecutions *int                   `json:"max_executions" binding:"omitempty,min=1"`
}

// UpdateRecurringRequest represents the request payload for editing a recurring definition.
type UpdateRecurringRequest struct {
	Amount        *int64            `json:"amount" binding:"omitempty,gt=0"`
	CategoryID    *string           `json:"category_id" binding:"omitempty,uuid"`
	Description   *string           `json:"description" binding:"omitempty,max=500"`
	Frequency     *models.Frequency `json:"frequency" binding:"omitempty,frequency"`
	DayOfWeek     *int              `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	DayOfMonth    *int              `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	MonthOfYear   *int              `json:"month_of_year" binding:"omitempty,min=1,max=12"`
	EndDate       *time.Time        `json:"end_date"`
	MaxExecutions *int              `json:"max_executions" binding:"omitempty,min=1"`
}

// CreateRecurring handles the creation of a recurring definition.
// @Summary     Create a recurring transaction
// @Description Create a schedule that materializes transactions when due
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecurringRequest true "Schedule details"
// @Success     201 {object} models.RecurringTransaction "Recurring transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [post]
func (h *RecurringHandler) CreateRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	def, err := h.recurringService.CreateRecurring(c.Request.Context(), userID, services.RecurringInput{
		Type:          req.Type,
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		Frequency:     req.Frequency,
		DayOfWeek:     req.DayOfWeek,
		DayOfMonth:    req.DayOfMonth,
		MonthOfYear:   req.MonthOfYear,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		MaxExecutions: req.MaxExecutions,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_RECURRING", "recurring_transaction", def.ID, c.ClientIP(),
		map[string]interface{}{"frequency": req.Frequency, "amount": req.Amount})

	c.JSON(http.StatusCreated, gin.H{"recurring": def})
}

// GetRecurring handles listing recurring definitions.
// @Summary     Get recurring transactions
// @Description Get a paginated list of recurring definitions
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       active_only query bool false "Only active definitions"
// @Param       page        query int  false "Page number (default 1)"
// @Param       page_size   query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.RecurringTransaction] "Paginated recurring transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [get]
func (h *RecurringHandler) GetRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	activeOnly, err := parseQueryBool(c, "active_only")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurringService.GetUserRecurring(c.Request.Context(), userID, activeOnly != nil && *activeOnly, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurringByID handles retrieving a recurring definition.
// @Summary     Get recurring transaction by ID
// @Description Get a specific recurring definition
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring transaction ID"
// @Success     200 {object} models.RecurringTransaction "Recurring transaction"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [get]
func (h *RecurringHandler) GetRecurringByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	def, err := h.recurringService.GetRecurringByID(c.Request.Context(), userID, recurringID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring": def})
}

// UpdateRecurring handles editing a recurring definition.
// @Summary     Update recurring transaction
// @Description Edit a schedule; a changed cadence re-anchors the next due date
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Recurring transaction ID"
// @Param       request body UpdateRecurringRequest true "Changed fields"
// @Success     200 {object} models.RecurringTransaction "Updated recurring transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [put]
func (h *RecurringHandler) UpdateRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	def, err := h.recurringService.UpdateRecurring(c.Request.Context(), userID, recurringID, services.RecurringUpdate{
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		Frequency:     req.Frequency,
		DayOfWeek:     req.DayOfWeek,
		DayOfMonth:    req.DayOfMonth,
		MonthOfYear:   req.MonthOfYear,
		EndDate:       req.EndDate,
		MaxExecutions: req.MaxExecutions,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_RECURRING", "recurring_transaction", recurringID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurring": def})
}

// ActivateRecurring resumes a paused definition.
// @Summary     Activate recurring transaction
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring transaction ID"
// @Success     200 {object} models.RecurringTransaction "Activated"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Failure     409 {object} ErrorResponse "Schedule has no occurrences left"
// @Router      /recurring/{id}/activate [post]
func (h *RecurringHandler) ActivateRecurring(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateRecurring pauses a definition.
// @Summary     Deactivate recurring transaction
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring transaction ID"
// @Success     200 {object} models.RecurringTransaction "Deactivated"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Router      /recurring/{id}/deactivate [post]
func (h *RecurringHandler) DeactivateRecurring(c *gin.Context) {
	h.setActive(c, false)
}

func (h *RecurringHandler) setActive(c *gin.Context, active bool) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	def, err := h.recurringService.SetRecurringActive(c.Request.Context(), userID, recurringID, active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	action := "DEACTIVATE_RECURRING"
	if active {
		action = "ACTIVATE_RECURRING"
	}
	h.auditService.Log(c.Request.Context(), userID, action, "recurring_transaction", recurringID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurring": def})
}

// DeleteRecurring handles deleting a recurring definition.
// @Summary     Delete recurring transaction
// @Description Delete a schedule; transactions it already produced are kept
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring transaction ID"
// @Success     200 {object} MessageResponse "Recurring transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [delete]
func (h *RecurringHandler) DeleteRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.DeleteRecurring(c.Request.Context(), userID, recurringID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_RECURRING", "recurring_transaction", recurringID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Recurring transaction deleted successfully"})
}

// RunDue materializes the caller's due occurrences now.
// @Summary     Run due recurring transactions
// @Description Materialize every due occurrence of the caller's definitions
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.RunResult "Run summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/run [post]
func (h *RecurringHandler) RunDue(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurringService.RunDueForUser(c.Request.Context(), userID, h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// GetUpcoming projects the next occurrences without materializing them.
// @Summary     Get upcoming occurrences
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       days query int false "Days ahead (default 30, max 366)"
// @Success     200 {array}  services.UpcomingOccurrence "Upcoming occurrences"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /recurring/upcoming [get]
func (h *RecurringHandler) GetUpcoming(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	days := defaultUpcomingDays
	if v := c.Query("days"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 1 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must be a positive integer"))
			return
		}
		days = n
	}

	upcoming, err := h.recurringService.Upcoming(c.Request.Context(), userID, days, h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"upcoming": upcoming})
}
