package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestGet_BeforeSetup(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get() should never return nil")
	}
}

func TestSetup_Idempotent(t *testing.T) {
	Setup("debug")
	first := Get()
	Setup("error")
	if Get() != first {
		t.Error("Setup should only initialize once")
	}
}

func TestWithComponent(t *testing.T) {
	logger := WithComponent("webhook")
	if logger == nil {
		t.Fatal("WithComponent returned nil")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("component logger should log at INFO by default")
	}
}

func TestWithDelivery(t *testing.T) {
	if WithDelivery("abc-123") == nil {
		t.Fatal("WithDelivery returned nil")
	}
}

func TestWithTopic(t *testing.T) {
	if WithTopic("orders/create") == nil {
		t.Fatal("WithTopic returned nil")
	}
}
