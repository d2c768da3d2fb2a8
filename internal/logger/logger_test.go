package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

// TestSetup_JSONOutput はJSON形式でログが出力されることを検証する。
func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Info("test message", "user_id", "user-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want %q", entry["user_id"], "user-1")
	}
}

// TestSetup_DebugSuppressed はInfoレベル未満のログが抑制されることを検証する。
func TestSetup_DebugSuppressed(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Debug("debug message")

	if buf.Len() != 0 {
		t.Errorf("debug log should be suppressed, got %q", buf.String())
	}
}
