package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/service"
	"github.com/karierin/career-assistant/internal/store"
	"github.com/karierin/career-assistant/pkg/logger"
)

var ana = identity.Identity{UserID: "ana"}

type recordingCanceller struct {
	cancelled []string
}

func (c *recordingCanceller) Cancel(sessionID string) bool {
	c.cancelled = append(c.cancelled, sessionID)
	return false
}

type failingSessions struct {
	Sessions
	err error
}

func (f failingSessions) List(ctx context.Context, id identity.Identity) ([]model.ChatSession, error) {
	return nil, f.err
}

// seed creates sessions oldest first so the last name is the most recent.
func seed(t *testing.T, st *store.Memory, names ...string) {
	t.Helper()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	for i, name := range names {
		at := base.Add(time.Duration(i) * time.Minute)
		if _, err := st.CreateSession(context.Background(), &model.ChatSession{
			ID: name, UserID: ana.UserID, Title: name, CreatedAt: at, UpdatedAt: at,
		}); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
}

func newDashboard(t *testing.T, names ...string) (*Dashboard, *recordingCanceller) {
	t.Helper()
	st := store.NewMemory()
	seed(t, st, names...)
	turns := &recordingCanceller{}
	d := New(ana, service.NewSessionService(st, nil, logger.NewNop()), turns, logger.NewNop())
	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return d, turns
}

func ids(v View) []string {
	out := make([]string, len(v.Sessions))
	for i, s := range v.Sessions {
		out[i] = s.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadSelectsMostRecent(t *testing.T) {
	d, _ := newDashboard(t, "old", "mid", "new")

	v := d.Snapshot()
	if !equal(ids(v), []string{"new", "mid", "old"}) {
		t.Errorf("sessions = %v", ids(v))
	}
	if v.ActiveSessionID != "new" {
		t.Errorf("active = %q, want new", v.ActiveSessionID)
	}
	if v.Active() == nil || v.Active().Title != "new" {
		t.Errorf("Active() = %+v", v.Active())
	}
}

func TestLoadKeepsExistingSelection(t *testing.T) {
	d, _ := newDashboard(t, "old", "new")

	if err := d.Select("old"); err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := d.Snapshot().ActiveSessionID; got != "old" {
		t.Errorf("active = %q, want old", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	d, _ := newDashboard(t)

	v := d.Snapshot()
	if len(v.Sessions) != 0 || v.ActiveSessionID != "" || v.Active() != nil {
		t.Errorf("expected empty view, got %+v", v)
	}
}

func TestNewSessionPrependsAndActivates(t *testing.T) {
	d, _ := newDashboard(t, "a", "b")

	s, err := d.NewSession(context.Background(), "")
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	if s.Title != model.DefaultSessionTitle {
		t.Errorf("Title = %q", s.Title)
	}

	v := d.Snapshot()
	if !equal(ids(v), []string{s.ID, "b", "a"}) {
		t.Errorf("sessions = %v", ids(v))
	}
	if v.ActiveSessionID != s.ID {
		t.Errorf("active = %q, want %q", v.ActiveSessionID, s.ID)
	}
}

func TestDeleteActiveSelectsNext(t *testing.T) {
	d, turns := newDashboard(t, "a", "b", "c")

	if err := d.Delete(context.Background(), "c"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	v := d.Snapshot()
	if !equal(ids(v), []string{"b", "a"}) {
		t.Errorf("sessions = %v", ids(v))
	}
	if v.ActiveSessionID != "b" {
		t.Errorf("active = %q, want b", v.ActiveSessionID)
	}
	if !equal(turns.cancelled, []string{"c"}) {
		t.Errorf("cancelled = %v, want [c]", turns.cancelled)
	}
}

func TestDeleteLastSessionClearsActive(t *testing.T) {
	d, _ := newDashboard(t, "only")

	if err := d.Delete(context.Background(), "only"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	v := d.Snapshot()
	if len(v.Sessions) != 0 || v.ActiveSessionID != "" {
		t.Errorf("expected empty view, got %+v", v)
	}
}

func TestDeleteInactiveKeepsSelection(t *testing.T) {
	d, _ := newDashboard(t, "a", "b", "c")

	if err := d.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if got := d.Snapshot().ActiveSessionID; got != "c" {
		t.Errorf("active = %q, want c", got)
	}
}

func TestDeleteFailureLeavesListIntact(t *testing.T) {
	d, _ := newDashboard(t, "a", "b")

	err := d.Delete(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	v := d.Snapshot()
	if !equal(ids(v), []string{"b", "a"}) || v.ActiveSessionID != "b" {
		t.Errorf("unexpected view after failed delete: %+v", v)
	}
}

func TestSelectUnknownSession(t *testing.T) {
	d, _ := newDashboard(t, "a")

	if err := d.Select("nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	d, _ := newDashboard(t, "a", "b")

	v := d.Snapshot()
	v.Sessions[0].Title = "mutated"
	if d.Snapshot().Sessions[0].Title == "mutated" {
		t.Error("snapshot shares memory with dashboard")
	}
}

func TestRegistryLoadsOncePerUser(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, "a")
	r := NewRegistry(service.NewSessionService(st, nil, logger.NewNop()), nil, logger.NewNop())

	d1, err := r.For(context.Background(), ana)
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	d2, err := r.For(context.Background(), ana)
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if d1 != d2 {
		t.Error("expected the same dashboard for the same user")
	}
	if d1.Snapshot().ActiveSessionID != "a" {
		t.Errorf("active = %q", d1.Snapshot().ActiveSessionID)
	}

	r.Forget(ana.UserID)
	d3, _ := r.For(context.Background(), ana)
	if d3 == d1 {
		t.Error("expected a fresh dashboard after Forget")
	}
}

func TestRegistrySessionUpdatedRefreshes(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, "a", "b")
	r := NewRegistry(service.NewSessionService(st, nil, logger.NewNop()), nil, logger.NewNop())

	d, err := r.For(context.Background(), ana)
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	renamed, err := st.RenameSession(context.Background(), "a", "Renamed", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RenameSession error: %v", err)
	}
	r.SessionUpdated(context.Background(), ana, renamed)

	v := d.Snapshot()
	if v.Sessions[0].ID != "a" || v.Sessions[0].Title != "Renamed" {
		t.Errorf("expected renamed session first, got %+v", v.Sessions)
	}
	if v.ActiveSessionID != "b" {
		t.Errorf("refresh should keep active selection, got %q", v.ActiveSessionID)
	}
}

func TestRegistryRetriesFailedLoad(t *testing.T) {
	st := store.NewMemory()
	base := service.NewSessionService(st, nil, logger.NewNop())
	r := NewRegistry(failingSessions{Sessions: base, err: errors.New("db down")}, nil, logger.NewNop())

	if _, err := r.For(context.Background(), ana); err == nil {
		t.Fatal("expected load error")
	}

	r.sessions = base
	if _, err := r.For(context.Background(), ana); err != nil {
		t.Errorf("expected retry to succeed, got %v", err)
	}
}
