package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
)

// GoalHandler handles savings goal requests.
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
	now          func() time.Time
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService, auditService: auditService, now: time.Now}
}

// CreateGoalRequest represents the request payload for creating a goal.
type CreateGoalRequest struct {
	Name         string    `json:"name" binding:"required,min=1,max=100"`
	Description  string    `json:"description" binding:"max=500"`
	TargetAmount int64     `json:"target_amount" binding:"required,gt=0"`
	TargetDate   time.Time `json:"target_date" binding:"required"`
}

// UpdateGoalRequest represents the request payload for editing a goal.
type UpdateGoalRequest struct {
	Name         *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Description  *string    `json:"description" binding:"omitempty,max=500"`
	TargetAmount *int64     `json:"target_amount" binding:"omitempty,gt=0"`
	TargetDate   *time.Time `json:"target_date"`
}

// GoalStatusRequest represents an owner-requested status change.
type GoalStatusRequest struct {
	Status models.GoalStatus `json:"status" binding:"required,goal_status"`
}

// ContributionRequest represents a deposit towards a goal.
type ContributionRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Note   string `json:"note" binding:"max=200"`
}

// ReminderRequest represents a reminder to schedule on a goal.
type ReminderRequest struct {
	Message string    `json:"message" binding:"required,min=1,max=200"`
	Date    time.Time `json:"date" binding:"required"`
}

// CreateGoal handles the creation of a savings goal.
// @Summary     Create a goal
// @Description Create a savings goal with a target amount and date
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} models.Goal "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.CreateGoal(c.Request.Context(), userID, req.Name, req.Description, req.TargetAmount, req.TargetDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_GOAL", "goal", goal.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "target_amount": req.TargetAmount})

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetGoals handles listing goals.
// @Summary     Get goals
// @Description Get a paginated list of savings goals
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       status    query string false "Filter by status (active/completed/paused/cancelled)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Goal] "Paginated goals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [get]
func (h *GoalHandler) GetGoals(c *gin.Context) {
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

	var status *models.GoalStatus
	if v := c.Query("status"); v != "" {
		s := models.GoalStatus(v)
		switch s {
		case models.GoalStatusActive, models.GoalStatusCompleted, models.GoalStatusPaused, models.GoalStatusCancelled:
			status = &s
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be active, completed, paused or cancelled"))
			return
		}
	}

	result, err := h.goalService.GetUserGoals(c.Request.Context(), userID, status, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetGoal handles retrieving a goal with its contributions and reminders.
// @Summary     Get goal by ID
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} models.Goal "Goal details"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoal(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	goal, err := h.goalService.GetGoalByID(c.Request.Context(), userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// UpdateGoal handles editing a goal.
// @Summary     Update goal
// @Description Edit a goal; a changed target re-evaluates completion
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Goal ID"
// @Param       request body UpdateGoalRequest true "Changed fields"
// @Success     200 {object} models.Goal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.UpdateGoal(c.Request.Context(), userID, goalID, services.GoalUpdate{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		TargetDate:   req.TargetDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// SetGoalStatus handles pausing, resuming and cancelling a goal.
// @Summary     Change goal status
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Goal ID"
// @Param       request body GoalStatusRequest true "Target status"
// @Success     200 {object} models.Goal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     409 {object} ErrorResponse "Invalid status transition"
// @Router      /goals/{id}/status [put]
func (h *GoalHandler) SetGoalStatus(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	var req GoalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.SetGoalStatus(c.Request.Context(), userID, goalID, req.Status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "SET_GOAL_STATUS", "goal", goalID, c.ClientIP(),
		map[string]interface{}{"status": req.Status})

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal handles deleting a goal.
// @Summary     Delete goal
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	if err := h.goalService.DeleteGoal(c.Request.Context(), userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

// AddContribution handles a deposit towards a goal.
// @Summary     Add contribution
// @Description Record a deposit; the goal completes once the target is reached
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Goal ID"
// @Param       request body ContributionRequest true "Contribution"
// @Success     201 {object} models.Goal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid amount"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     409 {object} ErrorResponse "Goal not active"
// @Router      /goals/{id}/contributions [post]
func (h *GoalHandler) AddContribution(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.AddContribution(c.Request.Context(), userID, goalID, req.Amount, req.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "ADD_CONTRIBUTION", "goal", goalID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount})

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// RemoveContribution handles removing a deposit from a goal.
// @Summary     Remove contribution
// @Description Remove a deposit; a completed goal under its target becomes active again
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id             path string true "Goal ID"
// @Param       contributionId path string true "Contribution ID"
// @Success     200 {object} models.Goal "Updated goal"
// @Failure     404 {object} ErrorResponse "Goal or contribution not found"
// @Router      /goals/{id}/contributions/{contributionId} [delete]
func (h *GoalHandler) RemoveContribution(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	contributionID, err := parsePathID(c, "contributionId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.RemoveContribution(c.Request.Context(), userID, goalID, contributionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "REMOVE_CONTRIBUTION", "goal", goalID, c.ClientIP(),
		map[string]interface{}{"contribution_id": contributionID})

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// AddReminder handles scheduling a reminder on a goal.
// @Summary     Add reminder
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true "Goal ID"
// @Param       request body ReminderRequest true "Reminder"
// @Success     201 {object} models.Goal "Updated goal"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     422 {object} ErrorResponse "Reminder date not in the future"
// @Router      /goals/{id}/reminders [post]
func (h *GoalHandler) AddReminder(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	var req ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.AddReminder(c.Request.Context(), userID, goalID, req.Message, req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// RemoveReminder handles deleting a reminder.
// @Summary     Remove reminder
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id         path string true "Goal ID"
// @Param       reminderId path string true "Reminder ID"
// @Success     200 {object} models.Goal "Updated goal"
// @Failure     404 {object} ErrorResponse "Goal or reminder not found"
// @Router      /goals/{id}/reminders/{reminderId} [delete]
func (h *GoalHandler) RemoveReminder(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	reminderID, err := parsePathID(c, "reminderId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.RemoveReminder(c.Request.Context(), userID, goalID, reminderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// GetGoalPacing handles computing the monthly amount needed to reach a goal.
// @Summary     Get goal pacing
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} services.GoalPacing "Pacing"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id}/pacing [get]
func (h *GoalHandler) GetGoalPacing(c *gin.Context) {
	userID, goalID, ok := h.goalPath(c)
	if !ok {
		return
	}

	pacing, err := h.goalService.GetGoalPacing(c.Request.Context(), userID, goalID, h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pacing": pacing})
}

// goalPath resolves the caller and the :id parameter, writing the error
// response itself when either is missing.
func (h *GoalHandler) goalPath(c *gin.Context) (userID, goalID string, ok bool) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	goalID, err = parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	return userID, goalID, true
}
