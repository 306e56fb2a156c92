package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

type searchFixture struct {
	engine   *fakeEngine
	listener *fakeListener
	player   *PlayerService
	store    *SessionStore
	svc      *SearchService
}

func newSearchFixture(n int) *searchFixture {
	eng := &fakeEngine{results: tracks(n)}
	l := &fakeListener{}
	player := NewPlayerService(eng, nil, 0, 0, nil, nil)
	player.SetListener(l)
	store := NewSessionStore(5, 0, nil, nil)
	return &searchFixture{
		engine:   eng,
		listener: l,
		player:   player,
		store:    store,
		svc:      NewSearchService(eng, store, player, nil, 0, nil, nil),
	}
}

func (f *searchFixture) open(t *testing.T, owner string) domain.SearchSession {
	t.Helper()
	sess, err := f.svc.Search(context.Background(), SearchRequest{
		GuildID: "g1", UserID: owner, Query: "daft punk", TextChannelID: "tc", VoiceChannelID: "vc",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	return sess
}

func TestSearchCapsResults(t *testing.T) {
	f := newSearchFixture(40)
	sess := f.open(t, "userA")
	if len(sess.Tracks) != MaxSearchResults {
		t.Errorf("len(Tracks) = %d, want %d", len(sess.Tracks), MaxSearchResults)
	}
	if sess.TotalPages() != 5 {
		t.Errorf("TotalPages = %d, want 5", sess.TotalPages())
	}
	if sess.Extra[domain.ExtraVoiceChannel] != "vc" {
		t.Errorf("voice channel not kept in Extra: %v", sess.Extra)
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	f := newSearchFixture(3)
	_, err := f.svc.Search(context.Background(), SearchRequest{GuildID: "g1", UserID: "u", Query: "   "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want InvalidInput", err)
	}
	if f.engine.searches != 0 {
		t.Error("engine called with invalid query")
	}
}

func TestSearchEngineUnavailable(t *testing.T) {
	f := newSearchFixture(3)
	f.engine.unavailable = true
	_, err := f.svc.Search(context.Background(), SearchRequest{GuildID: "g1", UserID: "u", Query: "x"})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("err = %v, want ServiceUnavailable", err)
	}
}

func TestSearchNoResults(t *testing.T) {
	f := newSearchFixture(0)
	_, err := f.svc.Search(context.Background(), SearchRequest{GuildID: "g1", UserID: "u", Query: "x"})
	if !errors.Is(err, domain.ErrNoResults) {
		t.Errorf("err = %v, want NoResults", err)
	}
	if f.store.Len() != 0 {
		t.Error("session created without results")
	}
}

func TestSearchUsesCache(t *testing.T) {
	f := newSearchFixture(3)
	f.svc.cache = &fakeCache{}
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Tracks(context.Background(), "  same   query "); err != nil {
			t.Fatal(err)
		}
	}
	if f.engine.searches != 1 {
		t.Errorf("engine searched %d times, want 1", f.engine.searches)
	}
}

func TestToggleByOtherUserIsRejectedWithoutMutation(t *testing.T) {
	f := newSearchFixture(6)
	sess := f.open(t, "userA")

	_, err := f.svc.Toggle(context.Background(), sess.ID, "userB", 0)
	if !errors.Is(err, domain.ErrInvalidUser) {
		t.Fatalf("err = %v, want InvalidUser", err)
	}
	after, _ := f.store.Get(sess.ID)
	if len(after.Selected) != 0 || len(after.Queued) != 0 {
		t.Errorf("session mutated: selected=%v queued=%v", after.SelectedIndices(), after.QueuedIndices())
	}
	if f.engine.connects != 0 || f.player.Has("g1") {
		t.Error("player created for a foreign user")
	}

	if _, err := f.svc.Navigate(sess.ID, "userB", 1); !errors.Is(err, domain.ErrInvalidUser) {
		t.Errorf("Navigate err = %v, want InvalidUser", err)
	}
	if _, err := f.svc.Cancel(sess.ID, "userB"); !errors.Is(err, domain.ErrInvalidUser) {
		t.Errorf("Cancel err = %v, want InvalidUser", err)
	}
}

func TestToggleEnqueuesAndRemoves(t *testing.T) {
	f := newSearchFixture(6)
	sess := f.open(t, "userA")
	ctx := context.Background()

	s, err := f.svc.Toggle(ctx, sess.ID, "userA", 0)
	if err != nil {
		t.Fatalf("Toggle(0): %v", err)
	}
	if !s.IsSelected(0) || !s.IsQueued(0) {
		t.Errorf("track 0 not marked: %+v", s)
	}
	if f.engine.connects != 1 || f.engine.lastPlayed() != "enc-0" {
		t.Errorf("connects=%d lastPlayed=%q", f.engine.connects, f.engine.lastPlayed())
	}

	if _, err := f.svc.Toggle(ctx, sess.ID, "userA", 1); err != nil {
		t.Fatal(err)
	}
	snap, _ := f.player.Snapshot("g1")
	if len(snap.Upcoming) != 1 || snap.Upcoming[0].Track.Encoded != "enc-1" {
		t.Fatalf("upcoming = %+v", snap.Upcoming)
	}

	s, err = f.svc.Toggle(ctx, sess.ID, "userA", 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.IsSelected(1) || s.IsQueued(1) {
		t.Error("track 1 still marked after second toggle")
	}
	snap, _ = f.player.Snapshot("g1")
	if len(snap.Upcoming) != 0 {
		t.Errorf("track 1 still in queue: %+v", snap.Upcoming)
	}
}

func TestToggleRollsBackWhenPlayerCannotConnect(t *testing.T) {
	f := newSearchFixture(3)
	f.engine.connectErr = errors.New("voice timeout")
	sess := f.open(t, "userA")

	_, err := f.svc.Toggle(context.Background(), sess.ID, "userA", 0)
	if !errors.Is(err, domain.ErrPlayerCreationFailed) {
		t.Fatalf("err = %v, want PlayerCreationFailed", err)
	}
	s, _ := f.store.Get(sess.ID)
	if s.IsSelected(0) || s.IsQueued(0) {
		t.Error("selection kept after failed enqueue")
	}
	if f.player.Has("g1") {
		t.Error("half-created player left behind")
	}
	if f.engine.destroys != 1 {
		t.Errorf("destroys = %d, want 1", f.engine.destroys)
	}
}

func TestToggleAfterFailedPlayStartsNextTrack(t *testing.T) {
	f := newSearchFixture(3)
	sess := f.open(t, "userA")
	ctx := context.Background()
	f.engine.playErr = errors.New("track load failed")

	if _, err := f.svc.Toggle(ctx, sess.ID, "userA", 0); err == nil {
		t.Fatal("toggle with failing play succeeded")
	}
	s, _ := f.store.Get(sess.ID)
	if s.IsSelected(0) || s.IsQueued(0) {
		t.Error("selection kept after failed play")
	}

	f.engine.playErr = nil
	if _, err := f.svc.Toggle(ctx, sess.ID, "userA", 1); err != nil {
		t.Fatal(err)
	}
	snap, _ := f.player.Snapshot("g1")
	want := sess.Tracks[1].Encoded
	if snap.Current == nil || snap.Current.Track.Encoded != want || f.engine.lastPlayed() != want {
		t.Errorf("current=%+v played=%q, want %s playing", snap.Current, f.engine.lastPlayed(), want)
	}
}

func TestToggleInvalidIndex(t *testing.T) {
	f := newSearchFixture(3)
	sess := f.open(t, "userA")
	if _, err := f.svc.Toggle(context.Background(), sess.ID, "userA", 3); !errors.Is(err, domain.ErrInvalidTrackIndex) {
		t.Errorf("err = %v, want InvalidTrackIndex", err)
	}
}

func TestSelectAppliesDiffOnCurrentPage(t *testing.T) {
	f := newSearchFixture(12)
	sess := f.open(t, "userA")
	ctx := context.Background()

	s, err := f.svc.Select(ctx, sess.ID, "userA", []string{"0", "2"})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.SelectedIndices(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("selected = %v, want [0 2]", got)
	}

	s, err = f.svc.Select(ctx, sess.ID, "userA", []string{"2"})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.SelectedIndices(); len(got) != 1 || got[0] != 2 {
		t.Errorf("selected = %v, want [2]", got)
	}

	if _, err := f.svc.Select(ctx, sess.ID, "userA", []string{"7"}); !errors.Is(err, domain.ErrInvalidTrackIndex) {
		t.Errorf("off-page value err = %v, want InvalidTrackIndex", err)
	}
	if _, err := f.svc.Select(ctx, sess.ID, "userA", []string{"abc"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("non numeric value err = %v, want InvalidInput", err)
	}
}

func TestNavigateSaturates(t *testing.T) {
	f := newSearchFixture(12)
	sess := f.open(t, "userA")

	s, _ := f.svc.Navigate(sess.ID, "userA", -1)
	if s.CurrentPage != 1 {
		t.Errorf("prev on first page = %d", s.CurrentPage)
	}
	for i := 0; i < 5; i++ {
		s, _ = f.svc.Navigate(sess.ID, "userA", 1)
	}
	if s.CurrentPage != 3 {
		t.Errorf("next past the end = %d, want 3", s.CurrentPage)
	}
}

func TestCommitAndCancelAreTerminal(t *testing.T) {
	f := newSearchFixture(6)
	ctx := context.Background()

	committed := f.open(t, "userA")
	if _, err := f.svc.Toggle(ctx, committed.ID, "userA", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Commit(committed.ID, "userA"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Navigate(committed.ID, "userA", 1); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("after commit err = %v, want SessionExpired", err)
	}

	cancelled := f.open(t, "userA")
	if _, err := f.svc.Toggle(ctx, cancelled.ID, "userA", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Cancel(cancelled.ID, "userA"); err != nil {
		t.Fatal(err)
	}
	snap, _ := f.player.Snapshot("g1")
	for _, it := range snap.Upcoming {
		if it.Track.Encoded == "enc-3" {
			t.Error("cancel left its queued track in the queue")
		}
	}
	if snap.Current == nil || snap.Current.Track.Encoded != "enc-0" {
		t.Error("cancel touched the track committed by another session")
	}
	if _, err := f.svc.Cancel(cancelled.ID, "userA"); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("second cancel err = %v, want SessionExpired", err)
	}
}
