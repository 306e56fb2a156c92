package service

import (
	"errors"
	"testing"
	"time"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

func newTestStore() *SessionStore {
	return NewSessionStore(5, time.Hour, nil, nil)
}

func TestSessionStoreCreateAndGet(t *testing.T) {
	st := newTestStore()
	id, err := st.Create("u1", "g1", "lofi", tracks(12), map[string]string{domain.ExtraVoiceChannel: "vc"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("len(id) = %d, want 32", len(id))
	}

	s, err := st.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.OwnerUserID != "u1" || s.GuildID != "g1" || s.CurrentPage != 1 || s.State != domain.SessionBrowsing {
		t.Errorf("unexpected session %+v", s)
	}

	// la copia no comparte los sets
	s.Selected[3] = struct{}{}
	s.Extra["x"] = "y"
	again, _ := st.Get(id)
	if again.IsSelected(3) || again.Extra["x"] != "" {
		t.Error("Get returned shared state")
	}
}

func TestSessionStoreUpdatePageClamps(t *testing.T) {
	st := newTestStore()
	id, _ := st.Create("u1", "g1", "q", tracks(12), nil)

	tests := []struct{ page, want int }{{999, 3}, {-5, 1}, {2, 2}, {0, 1}}
	for _, tt := range tests {
		if !st.UpdatePage(id, tt.page) {
			t.Fatalf("UpdatePage(%d) = false", tt.page)
		}
		s, _ := st.Get(id)
		if s.CurrentPage != tt.want {
			t.Errorf("UpdatePage(%d): page = %d, want %d", tt.page, s.CurrentPage, tt.want)
		}
	}
	if st.UpdatePage("nope", 1) {
		t.Error("UpdatePage on unknown session = true")
	}
}

func TestSessionStoreToggleRoundTrip(t *testing.T) {
	st := newTestStore()
	id, _ := st.Create("u1", "g1", "q", tracks(4), nil)

	if sel, ok := st.ToggleSelection(id, 2); !ok || !sel {
		t.Fatalf("first toggle = %v,%v", sel, ok)
	}
	if sel, ok := st.ToggleSelection(id, 2); !ok || sel {
		t.Fatalf("second toggle = %v,%v", sel, ok)
	}
	s, _ := st.Get(id)
	if len(s.Selected) != 0 {
		t.Errorf("selection not restored: %v", s.SelectedIndices())
	}

	for _, idx := range []int{-1, 4, 100} {
		if _, ok := st.ToggleSelection(id, idx); ok {
			t.Errorf("ToggleSelection(%d) ok = true", idx)
		}
	}
	s, _ = st.Get(id)
	if len(s.Selected) != 0 {
		t.Error("out of range toggle changed the selection")
	}
}

func TestSessionStoreIDsAreUnique(t *testing.T) {
	st := newTestStore()
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id, err := st.Create("u", "g", "q", tracks(1), nil)
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestSessionStoreDeleteThenGet(t *testing.T) {
	st := newTestStore()
	id, _ := st.Create("u1", "g1", "q", tracks(3), nil)

	if !st.Delete(id) {
		t.Fatal("Delete = false")
	}
	if _, err := st.Get(id); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("Get after delete err = %v, want SessionExpired", err)
	}
	if st.Delete(id) {
		t.Error("second Delete = true")
	}
	if _, err := st.Get("0123456789abcdef0123456789abcdef"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get unknown err = %v, want SessionNotFound", err)
	}
}

func TestSessionStoreSweepWithZeroMaxAgeRemovesAll(t *testing.T) {
	st := newTestStore()
	for i := 0; i < 3; i++ {
		if _, err := st.Create("u", "g", "q", tracks(2), nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := st.SweepExpired(0); n != 3 {
		t.Errorf("SweepExpired(0) = %d, want 3", n)
	}
	if st.Len() != 0 {
		t.Errorf("Len = %d after sweep", st.Len())
	}
}

func TestSessionStoreSweepKeepsYoungSessions(t *testing.T) {
	st := newTestStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	old, _ := st.Create("u", "g", "q", tracks(2), nil)
	now = now.Add(20 * time.Minute)
	young, _ := st.Create("u", "g", "q", tracks(2), nil)
	now = now.Add(15 * time.Minute)

	if n := st.SweepExpired(30 * time.Minute); n != 1 {
		t.Fatalf("SweepExpired = %d, want 1", n)
	}
	if _, err := st.Get(old); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("old session err = %v", err)
	}
	if _, err := st.Get(young); err != nil {
		t.Errorf("young session swept: %v", err)
	}
}

func TestSessionStoreIDGenerationFailure(t *testing.T) {
	st := newTestStore()
	calls := 0
	st.newID = func() (string, error) {
		calls++
		return "", errors.New("entropy exhausted")
	}
	if _, err := st.Create("u", "g", "q", tracks(1), nil); !errors.Is(err, domain.ErrSessionCreationFailed) {
		t.Fatalf("err = %v, want SessionCreationFailed", err)
	}
	if calls != idAttempts {
		t.Errorf("newID called %d times, want %d", calls, idAttempts)
	}
	if st.Len() != 0 {
		t.Error("failed Create left a session behind")
	}
}

func TestSessionStoreNeverReusesRetiredIDs(t *testing.T) {
	st := newTestStore()
	st.newID = func() (string, error) { return "fixedid", nil }

	id, err := st.Create("u", "g", "q", tracks(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	st.Delete(id)
	if _, err := st.Create("u", "g", "q", tracks(1), nil); !errors.Is(err, domain.ErrSessionCreationFailed) {
		t.Errorf("retired id reissued: err = %v", err)
	}
}

func TestSessionStoreExpireGuild(t *testing.T) {
	st := newTestStore()
	a, _ := st.Create("u", "g1", "q", tracks(1), nil)
	b, _ := st.Create("u", "g1", "q", tracks(1), nil)
	c, _ := st.Create("u", "g2", "q", tracks(1), nil)

	if n := st.ExpireGuild("g1"); n != 2 {
		t.Errorf("ExpireGuild = %d, want 2", n)
	}
	for _, id := range []string{a, b} {
		if _, err := st.Get(id); !errors.Is(err, domain.ErrSessionExpired) {
			t.Errorf("session %s err = %v", id, err)
		}
	}
	if _, err := st.Get(c); err != nil {
		t.Errorf("other guild affected: %v", err)
	}
}
