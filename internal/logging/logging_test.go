package logging

import (
	"testing"

	"github.com/gromdron/bitrix-push-workspace/internal/config"
)

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, err := NewLogger(config.LogConfig{Level: "not-a-level"}); err == nil {
		t.Fatal("expected an error for an invalid log level")
	}
}

func TestNewLoggerAppliesSamplingDefaults(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "info"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned a nil logger")
	}
}

func TestNewLoggerHonorsExplicitSampling(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{
		Level:            "debug",
		SampleInitial:    10,
		SampleThereafter: 5,
		ServiceName:      "test-service",
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned a nil logger")
	}
}
