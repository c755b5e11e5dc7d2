package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	for _, production := range []bool{false, true} {
		logger, err := New("warn", production)
		if err != nil {
			t.Fatalf("expected logger, got %v", err)
		}
		if logger.Core().Enabled(zapcore.InfoLevel) {
			t.Fatalf("expected info to be filtered at warn level (production=%v)", production)
		}
		if !logger.Core().Enabled(zapcore.ErrorLevel) {
			t.Fatalf("expected error to be enabled (production=%v)", production)
		}
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New("loud", false); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
