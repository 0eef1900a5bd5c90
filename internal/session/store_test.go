package session

import (
	"testing"
	"time"
)

func TestMemoryStore_SaveGet(t *testing.T) {
	store := NewMemoryStore()
	session := NewSession("reverse-words", "python")

	if err := store.Save(session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Get(session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if loaded.ID != session.ID || loaded.QuestionID != "reverse-words" {
		t.Errorf("loaded = %+v", loaded)
	}

	// Mutating a loaded copy must not affect the stored session.
	loaded.State.RecordSyntaxError()
	again, _ := store.Get(session.ID)
	if again.State.NumConsecutiveLanguageUnfamiliarityErrors != 0 {
		t.Error("store returned a shared session")
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get("nonexistent"); err != ErrSessionNotFound {
		t.Errorf("Get() error = %v; want ErrSessionNotFound", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	session := NewSession("q", "python")
	_ = store.Save(session)

	if err := store.Delete(session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(session.ID); err != ErrSessionNotFound {
		t.Errorf("Delete() twice error = %v; want ErrSessionNotFound", err)
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	older := NewSession("a", "python")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := NewSession("b", "python")
	_ = store.Save(older)
	_ = store.Save(newer)

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != newer.ID {
		t.Errorf("List() order wrong: %v", sessions)
	}
}
