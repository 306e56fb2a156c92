package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindSessionNotFound       ErrorKind = "session_not_found"
	KindSessionExpired        ErrorKind = "session_expired"
	KindInvalidUser           ErrorKind = "invalid_user"
	KindInvalidTrackIndex     ErrorKind = "invalid_track_index"
	KindSessionCreationFailed ErrorKind = "session_creation_failed"
	KindPlayerNotFound        ErrorKind = "player_not_found"
	KindVoiceChannelMismatch  ErrorKind = "voice_channel_mismatch"
	KindPlayerCreationFailed  ErrorKind = "player_creation_failed"
	KindInvalidInput          ErrorKind = "invalid_input"
	KindMalformedCustomID     ErrorKind = "malformed_custom_id"
	KindSanitizationFailed    ErrorKind = "sanitization_failed"

	// extras del bot
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindNotInVoice         ErrorKind = "not_in_voice"
	KindForbidden          ErrorKind = "forbidden"
	KindEmptyQueue         ErrorKind = "empty_queue"
	KindNoPrevious         ErrorKind = "no_previous"
	KindNoResults          ErrorKind = "no_results"
)

// Error es el error estructurado que viaja hasta el router. Details alimenta los logs y los
// argumentos de la traducción; nunca se muestra crudo al usuario.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is compara por Kind, así errors.Is(err, ErrSessionNotFound) funciona con cualquier instancia.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// sentinels para errors.Is
var (
	ErrSessionNotFound       = &Error{Kind: KindSessionNotFound}
	ErrSessionExpired        = &Error{Kind: KindSessionExpired}
	ErrInvalidUser           = &Error{Kind: KindInvalidUser}
	ErrInvalidTrackIndex     = &Error{Kind: KindInvalidTrackIndex}
	ErrSessionCreationFailed = &Error{Kind: KindSessionCreationFailed}
	ErrPlayerNotFound        = &Error{Kind: KindPlayerNotFound}
	ErrVoiceChannelMismatch  = &Error{Kind: KindVoiceChannelMismatch}
	ErrPlayerCreationFailed  = &Error{Kind: KindPlayerCreationFailed}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput}
	ErrMalformedCustomID     = &Error{Kind: KindMalformedCustomID}
	ErrSanitizationFailed    = &Error{Kind: KindSanitizationFailed}
	ErrServiceUnavailable    = &Error{Kind: KindServiceUnavailable}
	ErrNotInVoice            = &Error{Kind: KindNotInVoice}
	ErrForbidden             = &Error{Kind: KindForbidden}
	ErrEmptyQueue            = &Error{Kind: KindEmptyQueue}
	ErrNoPrevious            = &Error{Kind: KindNoPrevious}
	ErrNoResults             = &Error{Kind: KindNoResults}
)

func NewError(kind ErrorKind, msg string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

func WrapError(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf devuelve el Kind del primer *Error de la cadena, o "" si no hay.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// DetailsOf devuelve Details del primer *Error de la cadena (nil si no hay).
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
