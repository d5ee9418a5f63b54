package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
)

const testRecurringID = "0190a1b2-0000-7000-8000-00000000e001"

// --- mock recurring service ---

type mockRecurringService struct {
	createRecurringFn    func(userID string, in services.RecurringInput) (*models.RecurringTransaction, error)
	getUserRecurringFn   func(userID string, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringTransaction], error)
	getRecurringByIDFn   func(userID, recurringID string) (*models.RecurringTransaction, error)
	updateRecurringFn    func(userID, recurringID string, in services.RecurringUpdate) (*models.RecurringTransaction, error)
	setRecurringActiveFn func(userID, recurringID string, active bool) (*models.RecurringTransaction, error)
	deleteRecurringFn    func(userID, recurringID string) error
	runDueFn             func(now time.Time) (*services.RunResult, error)
	runDueForUserFn      func(userID string, now time.Time) (*services.RunResult, error)
	upcomingFn           func(userID string, days int, now time.Time) ([]services.UpcomingOccurrence, error)
}

func (m *mockRecurringService) CreateRecurring(_ context.Context, userID string, in services.RecurringInput) (*models.RecurringTransaction, error) {
	if m.createRecurringFn != nil {
		return m.createRecurringFn(userID, in)
	}
	return &models.RecurringTransaction{}, nil
}

func (m *mockRecurringService) GetUserRecurring(_ context.Context, userID string, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringTransaction], error) {
	if m.getUserRecurringFn != nil {
		return m.getUserRecurringFn(userID, activeOnly, page)
	}
	resp := pagination.NewPageResponse([]models.RecurringTransaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockRecurringService) GetRecurringByID(_ context.Context, userID, recurringID string) (*models.RecurringTransaction, error) {
	if m.getRecurringByIDFn != nil {
		return m.getRecurringByIDFn(userID, recurringID)
	}
	return &models.RecurringTransaction{}, nil
}

func (m *mockRecurringService) UpdateRecurring(_ context.Context, userID, recurringID string, in services.RecurringUpdate) (*models.RecurringTransaction, error) {
	if m.updateRecurringFn != nil {
		return m.updateRecurringFn(userID, recurringID, in)
	}
	return &models.RecurringTransaction{}, nil
}

func (m *mockRecurringService) SetRecurringActive(_ context.Context, userID, recurringID string, active bool) (*models.RecurringTransaction, error) {
	if m.setRecurringActiveFn != nil {
		return m.setRecurringActiveFn(userID, recurringID, active)
	}
	return &models.RecurringTransaction{}, nil
}

func (m *mockRecurringService) DeleteRecurring(_ context.Context, userID, recurringID string) error {
	if m.deleteRecurringFn != nil {
		return m.deleteRecurringFn(userID, recurringID)
	}
	return nil
}

func (m *mockRecurringService) RunDue(_ context.Context, now time.Time) (*services.RunResult, error) {
	if m.runDueFn != nil {
		return m.runDueFn(now)
	}
	return &services.RunResult{Status: services.RunStatusNothingDue}, nil
}

func (m *mockRecurringService) RunDueForUser(_ context.Context, userID string, now time.Time) (*services.RunResult, error) {
	if m.runDueForUserFn != nil {
		return m.runDueForUserFn(userID, now)
	}
	return &services.RunResult{Status: services.RunStatusNothingDue}, nil
}

func (m *mockRecurringService) Upcoming(_ context.Context, userID string, days int, now time.Time) ([]services.UpcomingOccurrence, error) {
	if m.upcomingFn != nil {
		return m.upcomingFn(userID, days, now)
	}
	return []services.UpcomingOccurrence{}, nil
}

var _ services.RecurringServicer = (*mockRecurringService)(nil)

func setupRecurringRouter(handler *RecurringHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/recurring", handler.CreateRecurring)
	auth.GET("/recurring", handler.GetRecurring)
	auth.POST("/recurring/run", handler.RunDue)
	auth.GET("/recurring/upcoming", handler.GetUpcoming)
	auth.GET("/recurring/:id", handler.GetRecurringByID)
	auth.PUT("/recurring/:id", handler.UpdateRecurring)
	auth.DELETE("/recurring/:id", handler.DeleteRecurring)
	auth.POST("/recurring/:id/activate", handler.ActivateRecurring)
	auth.POST("/recurring/:id/deactivate", handler.DeactivateRecurring)
	return r
}

func TestRecurringHandler_CreateRecurring(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var captured services.RecurringInput
		svc := &mockRecurringService{
			createRecurringFn: func(userID string, in services.RecurringInput) (*models.RecurringTransaction, error) {
				captured = in
				return &models.RecurringTransaction{Base: models.Base{ID: testRecurringID}, UserID: userID, Frequency: in.Frequency, NextDue: in.StartDate}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring",
			`{"type":"expense","amount":120000,"frequency":"monthly","day_of_month":31,"start_date":"2024-01-31T00:00:00Z","max_executions":2}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.DayOfMonth == nil || *captured.DayOfMonth != 31 {
			t.Errorf("expected day_of_month 31, got %v", captured.DayOfMonth)
		}
		if captured.MaxExecutions == nil || *captured.MaxExecutions != 2 {
			t.Errorf("expected max_executions 2, got %v", captured.MaxExecutions)
		}
	})

	t.Run("returns 400 on unknown frequency", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring",
			`{"type":"expense","amount":100,"frequency":"hourly","start_date":"2024-01-31T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on out of range anchor", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring",
			`{"type":"expense","amount":100,"frequency":"weekly","day_of_week":7,"start_date":"2024-01-31T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_RunDue(t *testing.T) {
	fixed := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	var gotUser string
	var gotNow time.Time
	svc := &mockRecurringService{
		runDueForUserFn: func(userID string, now time.Time) (*services.RunResult, error) {
			gotUser, gotNow = userID, now
			return &services.RunResult{Status: services.RunStatusCompleted, Due: 1, Materialized: 2}, nil
		},
	}
	handler := NewRecurringHandler(svc, &mockAuditService{})
	handler.now = func() time.Time { return fixed }
	r := setupRecurringRouter(handler)

	rec := doRequest(r, "POST", "/recurring/run", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUser != testUserID || !gotNow.Equal(fixed) {
		t.Errorf("expected run for %s at %v, got %s at %v", testUserID, fixed, gotUser, gotNow)
	}
	result := parseJSON(t, rec)["result"].(map[string]interface{})
	if result["status"] != services.RunStatusCompleted {
		t.Errorf("expected completed, got %v", result["status"])
	}
	if result["materialized"].(float64) != 2 {
		t.Errorf("expected 2 materialized, got %v", result["materialized"])
	}
}

func TestRecurringHandler_GetUpcoming(t *testing.T) {
	t.Run("defaults to 30 days", func(t *testing.T) {
		var gotDays int
		svc := &mockRecurringService{
			upcomingFn: func(_ string, days int, _ time.Time) ([]services.UpcomingOccurrence, error) {
				gotDays = days
				return []services.UpcomingOccurrence{{RecurringID: testRecurringID}}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/recurring/upcoming", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotDays != 30 {
			t.Errorf("expected 30 days, got %d", gotDays)
		}
		if len(parseJSON(t, rec)["upcoming"].([]interface{})) != 1 {
			t.Error("expected one upcoming occurrence")
		}
	})

	t.Run("returns 400 on bad days", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/recurring/upcoming?days=-1", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_SetActive(t *testing.T) {
	var got []bool
	svc := &mockRecurringService{
		setRecurringActiveFn: func(_, id string, active bool) (*models.RecurringTransaction, error) {
			got = append(got, active)
			return &models.RecurringTransaction{Base: models.Base{ID: id}, IsActive: active}, nil
		},
	}
	audit := &mockAuditService{}
	r := setupRecurringRouter(NewRecurringHandler(svc, audit))

	doRequest(r, "POST", "/recurring/"+testRecurringID+"/deactivate", "")
	doRequest(r, "POST", "/recurring/"+testRecurringID+"/activate", "")

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("expected [false true], got %v", got)
	}
	if len(audit.entries) != 2 || audit.entries[0].Action != "DEACTIVATE_RECURRING" || audit.entries[1].Action != "ACTIVATE_RECURRING" {
		t.Errorf("unexpected audit entries %+v", audit.entries)
	}
}

func TestRecurringHandler_ActivateExhausted(t *testing.T) {
	svc := &mockRecurringService{
		setRecurringActiveFn: func(_, _ string, _ bool) (*models.RecurringTransaction, error) {
			return nil, apperrors.ErrRecurringExhausted
		},
	}
	audit := &mockAuditService{}
	r := setupRecurringRouter(NewRecurringHandler(svc, audit))

	rec := doRequest(r, "POST", "/recurring/"+testRecurringID+"/activate", "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "RECURRING_EXHAUSTED")
	if len(audit.entries) != 0 {
		t.Errorf("expected no audit entry, got %+v", audit.entries)
	}
}

func TestRecurringHandler_GetRecurringByID(t *testing.T) {
	svc := &mockRecurringService{
		getRecurringByIDFn: func(_, _ string) (*models.RecurringTransaction, error) {
			return nil, apperrors.ErrRecurringNotFound
		},
	}
	r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/recurring/"+testRecurringID, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "RECURRING_NOT_FOUND")
}
