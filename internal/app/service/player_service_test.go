package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

func newTestPlayer() (*PlayerService, *fakeEngine, *fakeListener) {
	eng := &fakeEngine{}
	l := &fakeListener{}
	p := NewPlayerService(eng, nil, time.Second, 0, nil, nil)
	p.SetListener(l)
	return p, eng, l
}

func enqueue(t *testing.T, p *PlayerService, encoded ...string) {
	t.Helper()
	for _, e := range encoded {
		_, err := p.Enqueue(context.Background(), EnqueueRequest{
			GuildID: "g1", VoiceChannelID: "vc", TextChannelID: "tc", RequesterID: "u1", Track: item(e),
		})
		if err != nil {
			t.Fatalf("Enqueue(%s): %v", e, err)
		}
	}
}

func TestEnqueueStartsFirstTrackAndQueuesTheRest(t *testing.T) {
	p, eng, _ := newTestPlayer()

	res, err := p.Enqueue(context.Background(), EnqueueRequest{GuildID: "g1", VoiceChannelID: "vc", Track: item("a")})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Started || eng.lastPlayed() != "a" {
		t.Errorf("first enqueue: %+v played=%q", res, eng.lastPlayed())
	}

	res, err = p.Enqueue(context.Background(), EnqueueRequest{GuildID: "g1", VoiceChannelID: "vc", Track: item("b")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Started || res.Position != 0 {
		t.Errorf("second enqueue: %+v", res)
	}
	if eng.connects != 1 {
		t.Errorf("connects = %d, want 1", eng.connects)
	}
}

func TestEnqueueFromAnotherVoiceChannel(t *testing.T) {
	p, _, _ := newTestPlayer()
	enqueue(t, p, "a")
	_, err := p.Enqueue(context.Background(), EnqueueRequest{GuildID: "g1", VoiceChannelID: "other", Track: item("b")})
	if !errors.Is(err, domain.ErrVoiceChannelMismatch) {
		t.Errorf("err = %v, want VoiceChannelMismatch", err)
	}
	_, err = p.Enqueue(context.Background(), EnqueueRequest{GuildID: "g1", Track: item("b")})
	if !errors.Is(err, domain.ErrNotInVoice) {
		t.Errorf("err = %v, want NotInVoice", err)
	}
}

func TestConcurrentEnqueueConnectsOnce(t *testing.T) {
	p, eng, _ := newTestPlayer()
	eng.connectDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.Enqueue(context.Background(), EnqueueRequest{
				GuildID: "g1", VoiceChannelID: "vc", Track: item(string(rune('a' + i))),
			})
			if err != nil {
				t.Errorf("Enqueue: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if eng.connects != 1 {
		t.Errorf("connects = %d, want 1", eng.connects)
	}
	snap, _ := p.Snapshot("g1")
	if snap.Current == nil || len(snap.Upcoming) != 9 {
		t.Errorf("current=%v upcoming=%d, want 1+9", snap.Current, len(snap.Upcoming))
	}
}

func TestControlGates(t *testing.T) {
	p, _, _ := newTestPlayer()
	ctx := context.Background()

	if _, err := p.Skip(ctx, "g1", "vc"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Errorf("no player: err = %v, want PlayerNotFound", err)
	}

	enqueue(t, p, "a", "b")
	if _, err := p.Skip(ctx, "g1", "elsewhere"); !errors.Is(err, domain.ErrVoiceChannelMismatch) {
		t.Errorf("other channel: err = %v, want VoiceChannelMismatch", err)
	}
	if err := p.Shuffle("g1", ""); !errors.Is(err, domain.ErrNotInVoice) {
		t.Errorf("not in voice: err = %v, want NotInVoice", err)
	}
	if _, err := p.CycleLoop("g1", AnyVoiceChannel); err != nil {
		t.Errorf("AnyVoiceChannel rejected: %v", err)
	}
}

func TestSkipToEndStopsPlayback(t *testing.T) {
	p, eng, l := newTestPlayer()
	enqueue(t, p, "a")

	next, err := p.Skip(context.Background(), "g1", "vc")
	if err != nil {
		t.Fatal(err)
	}
	if next != nil {
		t.Errorf("next = %+v, want nil", next)
	}
	if eng.stops != 1 || l.ended != 1 {
		t.Errorf("stops=%d ended=%d, want 1/1", eng.stops, l.ended)
	}
	if _, err := p.Skip(context.Background(), "g1", "vc"); !errors.Is(err, domain.ErrEmptyQueue) {
		t.Errorf("skip on empty err = %v, want EmptyQueue", err)
	}
}

func TestBackReplaysPrevious(t *testing.T) {
	p, eng, _ := newTestPlayer()
	enqueue(t, p, "a", "b")
	ctx := context.Background()

	if _, err := p.Back(ctx, "g1", "vc"); !errors.Is(err, domain.ErrNoPrevious) {
		t.Errorf("back without history err = %v, want NoPrevious", err)
	}
	if _, err := p.Skip(ctx, "g1", "vc"); err != nil {
		t.Fatal(err)
	}
	prev, err := p.Back(ctx, "g1", "vc")
	if err != nil {
		t.Fatal(err)
	}
	if prev.Track.Encoded != "a" || eng.lastPlayed() != "a" {
		t.Errorf("back = %s played=%s", prev.Track.Encoded, eng.lastPlayed())
	}
	snap, _ := p.Snapshot("g1")
	if len(snap.Upcoming) != 1 || snap.Upcoming[0].Track.Encoded != "b" {
		t.Errorf("upcoming = %+v, want [b]", snap.Upcoming)
	}
}

func TestJumpPlaysTargetAndDropsEarlier(t *testing.T) {
	p, eng, _ := newTestPlayer()
	enqueue(t, p, "cur", "t0", "t1", "t2", "t3")

	got, err := p.Jump(context.Background(), "g1", "vc", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Track.Encoded != "t2" || eng.lastPlayed() != "t2" {
		t.Errorf("jump = %s played=%s", got.Track.Encoded, eng.lastPlayed())
	}
	snap, _ := p.Snapshot("g1")
	if len(snap.Upcoming) != 1 || snap.Upcoming[0].Track.Encoded != "t3" {
		t.Errorf("upcoming = %+v, want [t3]", snap.Upcoming)
	}

	if _, err := p.Jump(context.Background(), "g1", "vc", 5); !errors.Is(err, domain.ErrInvalidTrackIndex) {
		t.Errorf("invalid jump err = %v", err)
	}
}

func TestStopDestroysPlayer(t *testing.T) {
	p, eng, l := newTestPlayer()
	enqueue(t, p, "a", "b")

	if err := p.Stop(context.Background(), "g1", "vc"); err != nil {
		t.Fatal(err)
	}
	if p.Has("g1") {
		t.Error("player still present after stop")
	}
	if eng.destroys != 1 || len(l.destroyed) != 1 {
		t.Errorf("destroys=%d listener=%v", eng.destroys, l.destroyed)
	}
}

func TestTrackEndAdvancesOnlyWhenAllowed(t *testing.T) {
	p, eng, l := newTestPlayer()
	enqueue(t, p, "a", "b")
	ctx := context.Background()

	p.OnTrackEnd(ctx, "g1", false)
	if eng.lastPlayed() != "a" {
		t.Errorf("replaced/stopped end advanced the queue: %s", eng.lastPlayed())
	}

	p.OnTrackEnd(ctx, "g1", true)
	if eng.lastPlayed() != "b" {
		t.Errorf("finished end: lastPlayed = %s, want b", eng.lastPlayed())
	}

	p.OnTrackEnd(ctx, "g1", true)
	if l.ended != 1 {
		t.Errorf("PlaybackEnded calls = %d, want 1", l.ended)
	}
}

func TestTogglePause(t *testing.T) {
	p, eng, _ := newTestPlayer()
	enqueue(t, p, "a")
	ctx := context.Background()

	paused, err := p.TogglePause(ctx, "g1", "vc")
	if err != nil || !paused || !eng.paused {
		t.Fatalf("first toggle: paused=%v engine=%v err=%v", paused, eng.paused, err)
	}
	paused, err = p.TogglePause(ctx, "g1", "vc")
	if err != nil || paused || eng.paused {
		t.Fatalf("second toggle: paused=%v engine=%v err=%v", paused, eng.paused, err)
	}
}

func TestLoopTrackRepeatsOnTrackEnd(t *testing.T) {
	p, eng, _ := newTestPlayer()
	enqueue(t, p, "a", "b")

	mode, err := p.CycleLoop("g1", "vc")
	if err != nil || mode != domain.LoopTrack {
		t.Fatalf("CycleLoop = %v, %v", mode, err)
	}
	p.OnTrackEnd(context.Background(), "g1", true)
	if eng.lastPlayed() != "a" {
		t.Errorf("loop track: lastPlayed = %s, want a", eng.lastPlayed())
	}
}

func TestClearKeepsCurrent(t *testing.T) {
	p, _, _ := newTestPlayer()
	enqueue(t, p, "a", "b", "c")
	n, err := p.Clear("g1", "vc")
	if err != nil || n != 2 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	snap, _ := p.Snapshot("g1")
	if snap.Current == nil || snap.Current.Track.Encoded != "a" || len(snap.Upcoming) != 0 {
		t.Errorf("after clear: %+v", snap)
	}
}

func TestPlayFailureDropsTrackAndNextEnqueueStarts(t *testing.T) {
	p, eng, _ := newTestPlayer()
	ctx := context.Background()
	eng.playErr = errors.New("track load failed")

	_, err := p.Enqueue(ctx, EnqueueRequest{GuildID: "g1", VoiceChannelID: "vc", Track: item("a")})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ServiceUnavailable", err)
	}
	snap, ok := p.Snapshot("g1")
	if !ok || snap.Current != nil || len(snap.Upcoming) != 0 {
		t.Fatalf("after failed play: ok=%v %+v", ok, snap)
	}

	eng.playErr = nil
	res, err := p.Enqueue(ctx, EnqueueRequest{GuildID: "g1", VoiceChannelID: "vc", Track: item("b")})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Started || eng.lastPlayed() != "b" {
		t.Errorf("second enqueue: %+v played=%q", res, eng.lastPlayed())
	}
}

func TestTrackEndSkipsTracksTheNodeRejects(t *testing.T) {
	p, eng, _ := newTestPlayer()
	enqueue(t, p, "a", "b", "c")
	eng.failTracks = map[string]bool{"b": true}

	p.OnTrackEnd(context.Background(), "g1", true)
	if eng.lastPlayed() != "c" {
		t.Errorf("lastPlayed = %q, want c", eng.lastPlayed())
	}
	snap, _ := p.Snapshot("g1")
	if snap.Current == nil || snap.Current.Track.Encoded != "c" || len(snap.Upcoming) != 0 {
		t.Errorf("after skipping rejected track: %+v", snap)
	}
}

func TestPlayFailureWithoutNodeKeepsQueue(t *testing.T) {
	p, eng, _ := newTestPlayer()
	enqueue(t, p, "a", "b", "c")
	eng.failTracks = map[string]bool{"b": true}
	eng.unavailable = true

	p.OnTrackEnd(context.Background(), "g1", true)
	snap, _ := p.Snapshot("g1")
	if snap.Current != nil || len(snap.Upcoming) != 1 || snap.Upcoming[0].Track.Encoded != "c" {
		t.Fatalf("queue not kept while node is down: %+v", snap)
	}

	eng.unavailable = false
	eng.failTracks = nil
	res, err := p.Enqueue(context.Background(), EnqueueRequest{GuildID: "g1", VoiceChannelID: "vc", Track: item("d")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Started || res.Position != 0 || eng.lastPlayed() != "c" {
		t.Errorf("enqueue after outage: %+v played=%q", res, eng.lastPlayed())
	}
}
