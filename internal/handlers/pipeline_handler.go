package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pennywise/internal/services"
)

// PipelineHandler exposes the periodic jobs to an external trigger such as a
// cron runner. Routes are guarded by the pipeline API key, not a user token.
type PipelineHandler struct {
	recurringService services.RecurringServicer
	budgetService    services.BudgetServicer
	goalService      services.GoalServicer
	now              func() time.Time
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(recurringService services.RecurringServicer, budgetService services.BudgetServicer, goalService services.GoalServicer) *PipelineHandler {
	return &PipelineHandler{
		recurringService: recurringService,
		budgetService:    budgetService,
		goalService:      goalService,
		now:              time.Now,
	}
}

// RunRecurring materializes every due occurrence across all users.
// @Summary     Run due recurring transactions
// @Description Materialize due occurrences for every user; failures are reported per definition
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} services.RunResult "Run summary"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/recurring/run [post]
func (h *PipelineHandler) RunRecurring(c *gin.Context) {
	result, err := h.recurringService.RunDue(c.Request.Context(), h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// RenewBudgets rolls every expired auto-renewing budget into its next window.
// @Summary     Renew expired budgets
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} map[string]int "Number of budgets renewed"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/budgets/renew [post]
func (h *PipelineHandler) RenewBudgets(c *gin.Context) {
	n, err := h.budgetService.RenewExpired(c.Request.Context(), h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"renewed": n})
}

// SendReminders delivers every goal reminder that has come due.
// @Summary     Send due goal reminders
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Success     200 {object} map[string]int "Number of reminders sent"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/goals/reminders [post]
func (h *PipelineHandler) SendReminders(c *gin.Context) {
	n, err := h.goalService.SendDueReminders(c.Request.Context(), h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": n})
}
