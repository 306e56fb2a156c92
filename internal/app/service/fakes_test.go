package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

type fakeEngine struct {
	mu sync.Mutex

	unavailable  bool
	results      []domain.Track
	searchErr    error
	connectErr   error
	connectDelay time.Duration
	playErr      error
	// failTracks: el nodo rechaza estos encoded
	failTracks map[string]bool

	searches int
	connects int
	destroys int
	stops    int
	played   []string
	paused   bool
}

func (f *fakeEngine) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unavailable
}

func (f *fakeEngine) Search(ctx context.Context, query string) ([]domain.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]domain.Track(nil), f.results...), nil
}

func (f *fakeEngine) Connect(ctx context.Context, guildID, channelID string) error {
	f.mu.Lock()
	f.connects++
	delay, err := f.connectDelay, f.connectErr
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return err
}

func (f *fakeEngine) Play(ctx context.Context, guildID string, track domain.Track, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	if f.failTracks[track.Encoded] {
		return fmt.Errorf("load failed: %s", track.Encoded)
	}
	f.played = append(f.played, track.Encoded)
	return nil
}

func (f *fakeEngine) Pause(ctx context.Context, guildID string, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = paused
	return nil
}

func (f *fakeEngine) Stop(ctx context.Context, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeEngine) Destroy(ctx context.Context, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroys++
	return nil
}

func (f *fakeEngine) lastPlayed() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.played) == 0 {
		return ""
	}
	return f.played[len(f.played)-1]
}

type fakeListener struct {
	mu        sync.Mutex
	updated   int
	ended     int
	destroyed []string
}

func (l *fakeListener) PlayerUpdated(string) {
	l.mu.Lock()
	l.updated++
	l.mu.Unlock()
}

func (l *fakeListener) PlaybackEnded(string) {
	l.mu.Lock()
	l.ended++
	l.mu.Unlock()
}

func (l *fakeListener) PlayerDestroyed(guildID string) {
	l.mu.Lock()
	l.destroyed = append(l.destroyed, guildID)
	l.mu.Unlock()
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]domain.Track
}

func (c *fakeCache) Get(ctx context.Context, query string) ([]domain.Track, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.data[query]
	return t, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, query string, tracks []domain.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]domain.Track{}
	}
	c.data[query] = tracks
	return nil
}

func tracks(n int) []domain.Track {
	out := make([]domain.Track, n)
	for i := range out {
		out[i] = domain.Track{
			Encoded:  fmt.Sprintf("enc-%d", i),
			Title:    fmt.Sprintf("Track %d", i),
			Author:   "Artist",
			Duration: 3 * time.Minute,
		}
	}
	return out
}

func item(encoded string) domain.Track {
	return domain.Track{Encoded: encoded, Title: encoded}
}
