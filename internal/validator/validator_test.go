package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestCustomTags(t *testing.T) {
	v := validator.New()
	RegisterOn(v)

	tests := []struct {
		tag   string
		value string
		valid bool
	}{
		{"hex_color", "#FFF", true},
		{"hex_color", "#00ff00", true},
		{"hex_color", "red", false},
		{"transaction_type", "expense", true},
		{"transaction_type", "transfer", false},
		{"transaction_status", "pending", true},
		{"transaction_status", "void", false},
		{"category_type", "income", true},
		{"category_type", "savings", false},
		{"budget_period", "weekly", true},
		{"budget_period", "custom", true},
		{"budget_period", "daily", false},
		{"frequency", "yearly", true},
		{"frequency", "hourly", false},
		{"goal_status", "paused", true},
		{"goal_status", "archived", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag+"_"+tt.value, func(t *testing.T) {
			err := v.Var(tt.value, tt.tag)
			if tt.valid && err != nil {
				t.Errorf("expected %q to pass %s, got %v", tt.value, tt.tag, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected %q to fail %s", tt.value, tt.tag)
			}
		})
	}
}
