package logging

import "testing"

func TestNewBuildsAtRequestedLevel(t *testing.T) {
	logger, err := New("debug", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewFallsBackToInfoOnUnparseableLevel(t *testing.T) {
	logger, err := New("not-a-real-level", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewNopReturnsUsableLogger(t *testing.T) {
	logger := NewNop()
	logger.Info("this should not panic")
}
