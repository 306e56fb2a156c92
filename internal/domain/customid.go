package domain

import (
	"strings"
)

// MaxCustomIDLength es el límite de Discord para custom_id.
const MaxCustomIDLength = 100

// Componentes y acciones conocidos.
const (
	ComponentSearch = "search"
	ComponentPlayer = "player"
	ComponentQueue  = "queue"

	ActionPrev    = "prev"
	ActionNext    = "next"
	ActionSelect  = "select"
	ActionToggle  = "toggle"
	ActionDone    = "done"
	ActionCancel  = "cancel"
	ActionBack    = "back"
	ActionSkip    = "skip"
	ActionStop    = "stop"
	ActionPause   = "pause"
	ActionShuffle = "shuffle"
	ActionClear   = "clear"
	ActionLoop    = "loop"
	ActionJump    = "jump"
	ActionQueue   = "queue"
)

// CustomID: component:action:contextId[:arg...]. ContextID es el session id en búsquedas y el
// guild id en los botones del player.
type CustomID struct {
	Component string
	Action    string
	ContextID string
	Args      []string
	// Legacy indica que vino en el formato viejo con guiones bajos.
	Legacy bool
}

func (c CustomID) String() string {
	parts := make([]string, 0, 3+len(c.Args))
	parts = append(parts, c.Component, c.Action)
	if c.ContextID != "" || len(c.Args) > 0 {
		parts = append(parts, c.ContextID)
	}
	parts = append(parts, c.Args...)
	return strings.Join(parts, ":")
}

// Arg devuelve el argumento i o "" si no existe.
func (c CustomID) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// NewCustomID arma el id canónico con ':'.
func NewCustomID(component, action, contextID string, args ...string) string {
	return CustomID{Component: component, Action: action, ContextID: contextID, Args: args}.String()
}

// ParseCustomID valida charset y largo ANTES de partir el string.
func ParseCustomID(raw string) (CustomID, error) {
	if raw == "" || len(raw) > MaxCustomIDLength {
		return CustomID{}, NewError(KindMalformedCustomID, "bad length", map[string]any{"len": len(raw)})
	}
	for i := 0; i < len(raw); i++ {
		if !customIDByte(raw[i]) {
			return CustomID{}, NewError(KindMalformedCustomID, "bad character", map[string]any{"pos": i})
		}
	}

	sep, legacy := ":", false
	if !strings.Contains(raw, ":") {
		sep, legacy = "_", true
	}
	parts := strings.Split(raw, sep)
	if len(parts) < 2 {
		return CustomID{}, NewError(KindMalformedCustomID, "missing action", nil)
	}

	id := CustomID{Component: parts[0], Action: parts[1], Legacy: legacy}
	if !isWord(id.Component) || !isWord(id.Action) {
		return CustomID{}, NewError(KindMalformedCustomID, "bad component or action", nil)
	}
	if len(parts) > 2 {
		id.ContextID = parts[2]
		if !isContextID(id.ContextID) {
			return CustomID{}, NewError(KindMalformedCustomID, "bad context id", nil)
		}
		for _, a := range parts[3:] {
			if a == "" {
				return CustomID{}, NewError(KindMalformedCustomID, "empty argument", nil)
			}
		}
		id.Args = parts[3:]
	}
	return id, nil
}

func customIDByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == ':' || c == '-'
}

func isWord(s string) bool {
	if s == "" || len(s) > 16 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

func isContextID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}
