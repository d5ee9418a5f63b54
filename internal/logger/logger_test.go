package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("falls_back_to_global", func(t *testing.T) {
		if FromContext(context.Background()) != Get() {
			t.Error("expected global logger for a bare context")
		}
	})

	t.Run("returns_scoped_logger", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		scoped := zap.New(core).Sugar().With("request_id", "req-1")

		ctx := WithContext(context.Background(), scoped)
		FromContext(ctx).Infow("hello")

		entries := logs.All()
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if got := entries[0].ContextMap()["request_id"]; got != "req-1" {
			t.Errorf("expected request_id req-1, got %v", got)
		}
	})
}
