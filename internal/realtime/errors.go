package realtime

import "errors"

var (
	// ErrNotConnected is returned by Send when the channel is not open.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrConnectInProgress is returned by Connect when an attempt is
	// already in flight; a second attempt is never queued.
	ErrConnectInProgress = errors.New("realtime: connection attempt already in progress")

	// ErrClosed is returned when the manager was closed while an
	// operation was in flight.
	ErrClosed = errors.New("realtime: connection closed")

	// ErrInvalidEnvelope marks a malformed inbound payload.
	ErrInvalidEnvelope = errors.New("realtime: invalid envelope")

	// ErrUnknownEventType marks an envelope tag outside the wire contract.
	ErrUnknownEventType = errors.New("realtime: unknown event type")
)
