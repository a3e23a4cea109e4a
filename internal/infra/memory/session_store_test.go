package memory

import "testing"

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := store.GetOrCreate("quiz-1", "m1")
	if session == nil {
		t.Fatalf("expected session")
	}
	if session.MasterID() != "m1" {
		t.Fatalf("expected master m1, got %s", session.MasterID())
	}
	if again := store.GetOrCreate("quiz-1", "other"); again != session {
		t.Fatalf("expected existing session to be reused")
	}
	if _, ok := store.Get("quiz-1"); !ok {
		t.Fatalf("expected session present")
	}

	store.DeleteIfEmpty("quiz-1")
	if _, ok := store.Get("quiz-1"); ok {
		t.Fatalf("expected session removed when empty")
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore()
	store.GetOrCreate("quiz-1", "m1")
	store.Delete("quiz-1")
	if _, ok := store.Get("quiz-1"); ok {
		t.Fatalf("expected session removed")
	}
}
