package registry

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCreateDefaults(t *testing.T) {
	r := NewRegistry(testLogger())

	s := r.Create(CreateOptions{})
	if s.ID == "" {
		t.Fatal("Create() returned empty ID")
	}
	if len(s.ID) != sessionIDLen {
		t.Errorf("ID length = %d, want %d", len(s.ID), sessionIDLen)
	}
	if s.Language != DefaultLanguage {
		t.Errorf("Language = %q, want %q", s.Language, DefaultLanguage)
	}
	if s.InitialCode != DefaultInitialCode {
		t.Errorf("InitialCode = %q, want %q", s.InitialCode, DefaultInitialCode)
	}
	if s.Status != StatusActive {
		t.Errorf("Status = %q, want %q", s.Status, StatusActive)
	}
	if s.Participants != 0 {
		t.Errorf("Participants = %d, want 0", s.Participants)
	}
	if s.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestCreateWithOptions(t *testing.T) {
	r := NewRegistry(testLogger())

	code := "console.log('hi')\n"
	s := r.Create(CreateOptions{
		Language:    LangJavaScript,
		InitialCode: &code,
		Title:       "pairing",
	})
	if s.Language != LangJavaScript {
		t.Errorf("Language = %q, want %q", s.Language, LangJavaScript)
	}
	if s.InitialCode != code {
		t.Errorf("InitialCode = %q, want %q", s.InitialCode, code)
	}
	if s.Title != "pairing" {
		t.Errorf("Title = %q, want %q", s.Title, "pairing")
	}
}

func TestCreateExplicitEmptyInitialCode(t *testing.T) {
	r := NewRegistry(testLogger())

	empty := ""
	s := r.Create(CreateOptions{InitialCode: &empty})
	if s.InitialCode != "" {
		t.Errorf("InitialCode = %q, want empty", s.InitialCode)
	}
}

func TestCreateIDsUnique(t *testing.T) {
	r := NewRegistry(testLogger())

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		s := r.Create(CreateOptions{})
		if _, dup := seen[s.ID]; dup {
			t.Fatalf("duplicate session ID %q after %d creates", s.ID, i)
		}
		seen[s.ID] = struct{}{}
	}
}

func TestGetNotFound(t *testing.T) {
	r := NewRegistry(testLogger())

	if _, ok := r.Get("missing"); ok {
		t.Error("Get should miss for unknown ID")
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	r := NewRegistry(testLogger())

	created := r.Create(CreateOptions{Title: "before"})

	got, ok := r.Get(created.ID)
	if !ok {
		t.Fatal("Get missed a live session")
	}
	got.Title = "mutated copy"

	again, _ := r.Get(created.ID)
	if again.Title != "before" {
		t.Errorf("registry state mutated through snapshot: Title = %q", again.Title)
	}
}

func TestUpdatePartial(t *testing.T) {
	r := NewRegistry(testLogger())
	s := r.Create(CreateOptions{Title: "orig"})

	lang := LangGo
	updated, ok := r.Update(s.ID, UpdateOptions{Language: &lang})
	if !ok {
		t.Fatal("Update missed a live session")
	}
	if updated.Language != LangGo {
		t.Errorf("Language = %q, want %q", updated.Language, LangGo)
	}
	if updated.Title != "orig" {
		t.Errorf("Title = %q, want unchanged %q", updated.Title, "orig")
	}
	if updated.ID != s.ID || !updated.CreatedAt.Equal(s.CreatedAt) {
		t.Error("ID and CreatedAt must be immutable")
	}

	title := "renamed"
	updated, _ = r.Update(s.ID, UpdateOptions{Title: &title})
	if updated.Title != "renamed" {
		t.Errorf("Title = %q, want %q", updated.Title, "renamed")
	}
	if updated.Language != LangGo {
		t.Errorf("Language = %q, want untouched %q", updated.Language, LangGo)
	}
}

func TestUpdateNotFound(t *testing.T) {
	r := NewRegistry(testLogger())

	if _, ok := r.Update("missing", UpdateOptions{}); ok {
		t.Error("Update should miss for unknown ID")
	}
}

func TestDelete(t *testing.T) {
	r := NewRegistry(testLogger())
	s := r.Create(CreateOptions{})

	if !r.Delete(s.ID) {
		t.Error("Delete(existing) = false, want true")
	}
	if r.Delete(s.ID) {
		t.Error("Delete(deleted) = true, want false")
	}
	if _, ok := r.Get(s.ID); ok {
		t.Error("Get should miss after Delete")
	}
}

func TestListOrderAndPagination(t *testing.T) {
	r := NewRegistry(testLogger())

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = r.Create(CreateOptions{}).ID
		time.Sleep(time.Millisecond)
	}

	page, total := r.List(50, 0)
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page) != 5 {
		t.Fatalf("len(page) = %d, want 5", len(page))
	}
	// Newest first.
	for i := range page {
		if page[i].ID != ids[len(ids)-1-i] {
			t.Fatalf("page[%d].ID = %q, want %q", i, page[i].ID, ids[len(ids)-1-i])
		}
	}

	page, total = r.List(2, 1)
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}
	if page[0].ID != ids[3] || page[1].ID != ids[2] {
		t.Errorf("page = [%q %q], want [%q %q]", page[0].ID, page[1].ID, ids[3], ids[2])
	}

	page, _ = r.List(10, 99)
	if len(page) != 0 {
		t.Errorf("len(page) past end = %d, want 0", len(page))
	}
}

func TestCountActive(t *testing.T) {
	r := NewRegistry(testLogger())

	a := r.Create(CreateOptions{})
	b := r.Create(CreateOptions{})

	if got := r.CountActive(); got != 2 {
		t.Errorf("CountActive() = %d, want 2", got)
	}

	// A session with no remaining participants goes idle.
	r.AddParticipant(a.ID, "conn-1")
	r.RemoveParticipant(a.ID, "conn-1")
	if got := r.CountActive(); got != 1 {
		t.Errorf("CountActive() after idle = %d, want 1", got)
	}

	// Joining again reactivates it.
	r.AddParticipant(a.ID, "conn-2")
	if got := r.CountActive(); got != 2 {
		t.Errorf("CountActive() after rejoin = %d, want 2", got)
	}

	_ = b
}

func TestParticipantAccounting(t *testing.T) {
	r := NewRegistry(testLogger())
	s := r.Create(CreateOptions{})

	r.AddParticipant(s.ID, "c1")
	r.AddParticipant(s.ID, "c2")
	r.AddParticipant(s.ID, "c2") // idempotent

	got, _ := r.Get(s.ID)
	if got.Participants != 2 {
		t.Errorf("Participants = %d, want 2", got.Participants)
	}

	r.RemoveParticipant(s.ID, "c1")
	r.RemoveParticipant(s.ID, "c1") // idempotent
	got, _ = r.Get(s.ID)
	if got.Participants != 1 {
		t.Errorf("Participants = %d, want 1", got.Participants)
	}
}

func TestParticipantOpsOnMissingSession(t *testing.T) {
	r := NewRegistry(testLogger())

	// Must not panic; these race against disconnect cleanup.
	r.AddParticipant("missing", "c1")
	r.RemoveParticipant("missing", "c1")
}

func TestLanguageValid(t *testing.T) {
	for _, l := range []Language{LangPython, LangJavaScript, LangTypeScript, LangJava, LangCpp, LangGo, LangRust, LangRuby, LangPHP, LangSQL} {
		if !l.Valid() {
			t.Errorf("%q should be a supported language", l)
		}
	}
	if Language("cobol").Valid() {
		t.Error("unsupported language should not validate")
	}
	if Language("").Valid() {
		t.Error("empty language should not validate")
	}
}
