package domain

import (
	"fmt"
	"time"
)

// Track es lo mínimo que necesitamos de un track de Lavalink para mostrarlo y volver a reproducirlo.
type Track struct {
	Encoded    string        `json:"encoded"`
	Identifier string        `json:"identifier"`
	Title      string        `json:"title"`
	Author     string        `json:"author"`
	Duration   time.Duration `json:"duration"`
	URI        string        `json:"uri,omitempty"`
	ArtworkURL string        `json:"artwork_url,omitempty"`
	SourceName string        `json:"source_name,omitempty"`
	IsStream   bool          `json:"is_stream,omitempty"`
}

// QueueItem es un track dentro de la cola de un guild.
type QueueItem struct {
	Track       Track
	RequesterID string
	// FromHistory marca un track resucitado con "back": al terminar no vuelve al historial.
	FromHistory bool
}

// FormatDuration: 3:07, 1:02:03 o LIVE para streams.
func FormatDuration(d time.Duration, stream bool) string {
	if stream {
		return "LIVE"
	}
	if d < 0 {
		d = 0
	}
	s := int(d.Seconds())
	h, m, sec := s/3600, (s%3600)/60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

// Truncate corta por runas (los límites de Discord cuentan caracteres, no bytes).
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
