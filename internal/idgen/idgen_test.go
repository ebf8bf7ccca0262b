package idgen

import (
	"testing"

	"github.com/google/uuid"
)

func TestMessageIDLength(t *testing.T) {
	if got := len(MessageID()); got != 16 {
		t.Fatalf("len(MessageID()) = %d, want 16", got)
	}
}

func TestMessageIDVaries(t *testing.T) {
	a, b := MessageID(), MessageID()
	equal := true
	for i := range a {
		if a[i] != b[i] {
			equal = false
			break
		}
	}
	if equal {
		t.Fatal("two successive MessageID() calls returned identical bytes")
	}
}

func TestSessionIDIsUUIDv7(t *testing.T) {
	id, err := uuid.Parse(SessionID())
	if err != nil {
		t.Fatalf("SessionID() = %q is not a valid UUID: %v", id, err)
	}
	if id.Version() != 7 {
		t.Fatalf("SessionID() version = %d, want 7", id.Version())
	}
}

func TestSessionIDVaries(t *testing.T) {
	if SessionID() == SessionID() {
		t.Fatal("two successive SessionID() calls returned identical values")
	}
}
