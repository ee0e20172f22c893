package memory

import (
	"testing"

	"internmatch-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession("s1", "cand-1", "go", nil)
	store.Put(session)
	if got, ok := store.Get("s1"); !ok || got != session {
		t.Fatalf("expected stored session back")
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}

	if _, ok := store.Get("missing"); ok {
		t.Fatalf("expected miss for unknown session")
	}
}
