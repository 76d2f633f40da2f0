package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection indicates the transport to the peer could not be opened.
	// Fatal for that send only; the next send retries the connection.
	ErrConnection = errors.New("failed to open peer channel")

	// ErrTimeout indicates no response arrived within the deadline.
	ErrTimeout = errors.New("peer request timed out")

	// ErrDisconnected indicates the peer connection was lost while the
	// request was in flight.
	ErrDisconnected = errors.New("peer disconnected")

	// ErrCancelled indicates the request was cancelled locally.
	ErrCancelled = errors.New("request cancelled")
)

// PeerError carries a failure message the peer reported explicitly.
type PeerError struct {
	Message string
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("peer error: %s", e.Message)
}

// IsPeerError reports whether err is a peer-reported failure.
func IsPeerError(err error) bool {
	var pe *PeerError
	return errors.As(err, &pe)
}
