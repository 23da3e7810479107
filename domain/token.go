package domain

import (
	"fmt"
	"strconv"
	"strings"

	"hotline/errors"
)

// tokenPrefix tags correlation tokens embedded in keyboard buttons.
const tokenPrefix = "send"

// CorrelationToken binds a later keyboard selection back to a pending voice
// message. An empty TargetID means "broadcast to every recipient".
//
// Tokens travel through the bot transport as callback data and can come back
// stale, replayed, or mangled after a restart, so parsing never panics:
// anything that does not match the wire form yields ErrInvalidCorrelation.
type CorrelationToken struct {
	PendingID int
	TargetID  string
}

func (t CorrelationToken) Broadcast() bool {
	return t.TargetID == ""
}

// Encode renders the wire form "send:<pendingID>:<targetID?>".
func (t CorrelationToken) Encode() string {
	return fmt.Sprintf("%s:%d:%s", tokenPrefix, t.PendingID, t.TargetID)
}

// ParseToken is the tolerant inverse of Encode.
func ParseToken(raw string) (CorrelationToken, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || parts[0] != tokenPrefix {
		return CorrelationToken{}, fmt.Errorf("%w: %q", errors.ErrInvalidCorrelation, raw)
	}
	pendingID, err := strconv.Atoi(parts[1])
	if err != nil {
		return CorrelationToken{}, fmt.Errorf("%w: %q", errors.ErrInvalidCorrelation, raw)
	}
	return CorrelationToken{PendingID: pendingID, TargetID: parts[2]}, nil
}
