package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Routing taxonomy. All of these are recovered at the transport
	// boundary and turned into a short user-visible answer.
	ErrInvalidCorrelation = fmt.Errorf("invalid correlation token")
	ErrStaleMessage       = fmt.Errorf("message not in cache")
	ErrUnknownRecipient   = fmt.Errorf("recipient not found")
	ErrDurationExceeded   = fmt.Errorf("voice message too long")
	ErrInvalidPayload     = fmt.Errorf("invalid inbound payload")

	// ErrSessionBusy signals a full outbound buffer on a live session.
	// Delivery is best-effort: callers log it and move on.
	ErrSessionBusy = fmt.Errorf("session outbound buffer full")
)

// UserMessage converts a routing error into the short text sent back to the
// person talking to the bot. Unknown errors collapse into a generic answer so
// that internals never leak onto the chat surface.
func UserMessage(err error) string {
	switch {
	case stderrors.Is(err, ErrInvalidCorrelation):
		return "Sorry, I could not understand that selection."
	case stderrors.Is(err, ErrStaleMessage):
		return "This message is not available anymore. Please send it again."
	case stderrors.Is(err, ErrUnknownRecipient):
		return "Error: recipient not found."
	case stderrors.Is(err, ErrDurationExceeded):
		return "This voice message is too long."
	default:
		return "Something went wrong. Please try again."
	}
}
