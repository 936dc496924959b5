package interactions

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMalformedRequest = errors.New("malformed or missing JSON body")
	ErrUnknownCommand   = errors.New("invalid command name")
	ErrUnknownCustomID  = errors.New("no handler for custom id")
	ErrUnsupportedType  = errors.New("interaction type is not supported")
	ErrModalNotAllowed  = errors.New("cannot return a modal to that interaction type")
	ErrUpdateNotAllowed = errors.New("cannot update a message from that interaction type")
	ErrEmptyResponse    = errors.New("handler returned no response")
	ErrHandlerPanic     = errors.New("handler panicked")
)

// Kind classifies dispatch failures.
type Kind int

const (
	KindAuth Kind = iota + 1
	KindMalformed
	KindUnknownTarget
	KindProtocol
	KindUnsupported
	KindHandler
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "unauthorized"
	case KindMalformed:
		return "malformed_request"
	case KindUnknownTarget:
		return "unknown_target"
	case KindProtocol:
		return "protocol_violation"
	case KindUnsupported:
		return "unsupported_type"
	case KindHandler:
		return "handler_error"
	default:
		return "unknown"
	}
}

// Status is the HTTP status a failure of this kind is answered with.
func (k Kind) Status() int {
	switch k {
	case KindAuth:
		return http.StatusUnauthorized
	case KindMalformed:
		return http.StatusBadRequest
	case KindUnknownTarget:
		return http.StatusNotFound
	case KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error carries the failure kind, the operation, and the target for
// observability.
type Error struct {
	Kind   Kind
	Op     string // e.g. "command", "component", "autocomplete"
	Target string // command name or custom id, if any
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		fmt.Fprintf(&b, " [%s]", e.Op)
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " %q", e.Target)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CollisionError is returned by a strict merge when names overlap.
type CollisionError struct {
	Commands []string
	Handlers []string
}

func (e *CollisionError) Error() string {
	var parts []string
	if len(e.Commands) > 0 {
		parts = append(parts, "commands "+strings.Join(e.Commands, ", "))
	}
	if len(e.Handlers) > 0 {
		parts = append(parts, "custom ids "+strings.Join(e.Handlers, ", "))
	}
	return "blueprint collides with registered " + strings.Join(parts, "; ")
}
