package overlaystudio

import (
	"errors"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "studio.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(name string) CanvasSession {
	return CanvasSession{
		Name:          name,
		BackgroundURL: "/uploads/bg.png",
		OverlayJSON:   `{"version":1,"objects":[]}`,
		Metadata:      `{}`,
		Thumbnail:     "data:image/jpeg;base64,AAAA",
	}
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestSaveAndGetSession(t *testing.T) {
	s := setupTestStore(t)

	saved, err := s.SaveSession(testSession("Launch poster"))
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if saved.CreatedAt == "" || saved.UpdatedAt == "" {
		t.Errorf("timestamps not set: %+v", saved)
	}

	got, err := s.GetSession(saved.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	want := testSession("Launch poster")
	if got.Name != want.Name {
		t.Errorf("Name = %q, want %q", got.Name, want.Name)
	}
	if got.BackgroundURL != want.BackgroundURL {
		t.Errorf("BackgroundURL = %q, want %q", got.BackgroundURL, want.BackgroundURL)
	}
	if got.OverlayJSON != want.OverlayJSON {
		t.Errorf("OverlayJSON = %q, want %q", got.OverlayJSON, want.OverlayJSON)
	}
	if got.Metadata != want.Metadata {
		t.Errorf("Metadata = %q, want %q", got.Metadata, want.Metadata)
	}
	if got.Thumbnail != want.Thumbnail {
		t.Errorf("Thumbnail = %q, want %q", got.Thumbnail, want.Thumbnail)
	}
}

func TestSaveSessionUpdatesInPlace(t *testing.T) {
	s := setupTestStore(t)

	first, err := s.SaveSession(testSession("Draft"))
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	update := testSession("Final")
	update.ID = first.ID
	update.OverlayJSON = `{"version":1,"objects":[{"type":"text"}]}`
	second, err := s.SaveSession(update)
	if err != nil {
		t.Fatalf("SaveSession update failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("ID = %q, want %q", second.ID, first.ID)
	}
	if second.Name != "Final" {
		t.Errorf("Name = %q, want %q", second.Name, "Final")
	}
	if second.OverlayJSON != update.OverlayJSON {
		t.Errorf("OverlayJSON = %q, want %q", second.OverlayJSON, update.OverlayJSON)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("CreatedAt = %q, want unchanged %q", second.CreatedAt, first.CreatedAt)
	}

	list, err := s.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetSession("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListSessionsOmitsOverlayState(t *testing.T) {
	s := setupTestStore(t)

	for _, name := range []string{"One", "Two", "Three"} {
		if _, err := s.SaveSession(testSession(name)); err != nil {
			t.Fatalf("SaveSession(%s) failed: %v", name, err)
		}
	}

	list, err := s.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(list))
	}
	for _, cs := range list {
		if cs.OverlayJSON != "" || cs.Metadata != "" {
			t.Errorf("session %s carries overlay state in the list", cs.Name)
		}
		if cs.Thumbnail == "" {
			t.Errorf("session %s has no thumbnail", cs.Name)
		}
	}

	limited, err := s.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(limited))
	}
}

func TestDeleteSession(t *testing.T) {
	s := setupTestStore(t)

	saved, err := s.SaveSession(testSession("Doomed"))
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := s.DeleteSession(saved.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if _, err := s.GetSession(saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession after delete err = %v, want ErrNotFound", err)
	}
	list, err := s.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected deleted session to be hidden, got %d", len(list))
	}
	if err := s.DeleteSession(saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteSession("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete unknown err = %v, want ErrNotFound", err)
	}
}

func TestSaveRevivesDeletedSession(t *testing.T) {
	s := setupTestStore(t)

	saved, err := s.SaveSession(testSession("Phoenix"))
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := s.DeleteSession(saved.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	again := testSession("Phoenix")
	again.ID = saved.ID
	if _, err := s.SaveSession(again); err != nil {
		t.Fatalf("SaveSession over deleted row failed: %v", err)
	}
	if _, err := s.GetSession(saved.ID); err != nil {
		t.Errorf("GetSession after revive: %v", err)
	}
}
