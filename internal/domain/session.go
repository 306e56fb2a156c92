package domain

import (
	"sort"
	"time"
)

// SessionState: Browsing es el único estado vivo; los otros tres son terminales.
type SessionState int

const (
	SessionBrowsing SessionState = iota
	SessionCommitted
	SessionCancelled
	SessionExpired
)

func (s SessionState) String() string {
	switch s {
	case SessionBrowsing:
		return "browsing"
	case SessionCommitted:
		return "committed"
	case SessionCancelled:
		return "cancelled"
	case SessionExpired:
		return "expired"
	}
	return "unknown"
}

func (s SessionState) Terminal() bool { return s != SessionBrowsing }

// Claves de Extra.
const (
	ExtraTextChannel  = "text_channel"
	ExtraVoiceChannel = "voice_channel"
	ExtraLocale       = "locale"
)

// SearchSession es el estado efímero de una búsqueda de un usuario en un guild.
type SearchSession struct {
	ID          string
	OwnerUserID string
	GuildID     string
	Query       string
	Tracks      []Track
	Selected    map[int]struct{}
	Queued      map[int]struct{}
	CurrentPage int
	PageSize    int
	CreatedAt   time.Time
	Extra       map[string]string
	State       SessionState
}

func (s *SearchSession) TotalPages() int { return TotalPages(len(s.Tracks), s.PageSize) }

func (s *SearchSession) IsSelected(i int) bool {
	_, ok := s.Selected[i]
	return ok
}

func (s *SearchSession) IsQueued(i int) bool {
	_, ok := s.Queued[i]
	return ok
}

// SelectedIndices ordenados.
func (s *SearchSession) SelectedIndices() []int { return sortedKeys(s.Selected) }

// QueuedIndices ordenados.
func (s *SearchSession) QueuedIndices() []int { return sortedKeys(s.Queued) }

// Page devuelve la vista de la página actual.
func (s *SearchSession) Page() PageView[Track] {
	return Paginate(s.Tracks, s.CurrentPage, s.PageSize)
}

// Clone hace copia profunda de los sets y de Extra; Tracks es inmutable y se comparte.
func (s *SearchSession) Clone() SearchSession {
	out := *s
	out.Selected = cloneSet(s.Selected)
	out.Queued = cloneSet(s.Queued)
	out.Extra = make(map[string]string, len(s.Extra))
	for k, v := range s.Extra {
		out.Extra[k] = v
	}
	return out
}

func cloneSet(in map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
