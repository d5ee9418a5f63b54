package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pennywise/internal/services"
)

func setupPipelineRouter(handler *PipelineHandler) *gin.Engine {
	r := gin.New()
	r.POST("/pipeline/recurring/run", handler.RunRecurring)
	r.POST("/pipeline/budgets/renew", handler.RenewBudgets)
	r.POST("/pipeline/goals/reminders", handler.SendReminders)
	return r
}

func TestPipelineHandler_RunRecurring(t *testing.T) {
	fixed := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	t.Run("reports partial failure", func(t *testing.T) {
		recurringSvc := &mockRecurringService{
			runDueFn: func(now time.Time) (*services.RunResult, error) {
				if !now.Equal(fixed) {
					t.Errorf("expected %v, got %v", fixed, now)
				}
				return &services.RunResult{
					Status:       services.RunStatusPartial,
					Due:          2,
					Materialized: 1,
					Failures:     []services.RunFailure{{RecurringID: testRecurringID, Reason: "store unavailable"}},
				}, nil
			},
		}
		handler := NewPipelineHandler(recurringSvc, &mockBudgetService{}, &mockGoalService{})
		handler.now = func() time.Time { return fixed }
		r := setupPipelineRouter(handler)

		rec := doRequest(r, "POST", "/pipeline/recurring/run", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)["result"].(map[string]interface{})
		if result["status"] != services.RunStatusPartial {
			t.Errorf("expected partial_failure, got %v", result["status"])
		}
		if len(result["failures"].([]interface{})) != 1 {
			t.Errorf("expected one failure, got %v", result["failures"])
		}
	})

	t.Run("returns 500 when listing fails", func(t *testing.T) {
		recurringSvc := &mockRecurringService{
			runDueFn: func(time.Time) (*services.RunResult, error) {
				return nil, errors.New("connection refused")
			},
		}
		r := setupPipelineRouter(NewPipelineHandler(recurringSvc, &mockBudgetService{}, &mockGoalService{}))

		rec := doRequest(r, "POST", "/pipeline/recurring/run", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INTERNAL_ERROR")
	})
}

func TestPipelineHandler_Counts(t *testing.T) {
	r := setupPipelineRouter(NewPipelineHandler(&mockRecurringService{}, &mockBudgetService{}, &mockGoalService{}))

	rec := doRequest(r, "POST", "/pipeline/budgets/renew", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if parseJSON(t, rec)["renewed"].(float64) != 0 {
		t.Error("expected zero renewed")
	}

	rec = doRequest(r, "POST", "/pipeline/goals/reminders", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if parseJSON(t, rec)["sent"].(float64) != 0 {
		t.Error("expected zero sent")
	}
}
