package lavalink

import (
	"time"

	lava "github.com/disgoorg/disgolink/v3/lavalink"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

func toDomain(t lava.Track) domain.Track {
	out := domain.Track{
		Encoded:    t.Encoded,
		Identifier: t.Info.Identifier,
		Title:      t.Info.Title,
		Author:     t.Info.Author,
		Duration:   time.Duration(t.Info.Length) * time.Millisecond,
		SourceName: t.Info.SourceName,
		IsStream:   t.Info.IsStream,
	}
	if t.Info.URI != nil {
		out.URI = *t.Info.URI
	}
	if t.Info.ArtworkURL != nil {
		out.ArtworkURL = *t.Info.ArtworkURL
	}
	if out.Title == "" {
		out.Title = out.Identifier
	}
	return out
}

func toDomainList(ts []lava.Track) []domain.Track {
	out := make([]domain.Track, 0, len(ts))
	for _, t := range ts {
		out = append(out, toDomain(t))
	}
	return out
}
