package port

import "github.com/olyamironova/matching-engine/internal/domain"

// Receiver is the engine's view of a trader's communication handle.
//
// SessionID is an opaque capability compared by value: a request is only
// authorized for a trader id if it arrives on the handle registered for
// that id. Deliver must not block the caller; the transport owns queueing
// and may drop the connection if the peer cannot keep up. Done is closed
// exactly once when the handle becomes permanently unreachable.
type Receiver interface {
	SessionID() string
	Deliver(ev domain.Event)
	Done() <-chan struct{}
}
