package badezimmer

import "github.com/pkg/errors"

// Sentinel errors distinguishable via errors.Is, per the taxonomy in
// SPEC_FULL.md §7.
var (
	// ErrShortFrame is returned when a received buffer is too small to even
	// contain the 4-byte length prefix.
	ErrShortFrame = errors.New("badezimmer: frame shorter than length prefix")

	// ErrTruncatedPayload is returned when the announced frame length
	// exceeds the number of bytes actually available.
	ErrTruncatedPayload = errors.New("badezimmer: frame shorter than announced length")

	// ErrNonUniqueName is returned by (*Engine).RegisterService when
	// tiebreaking detects a conflict and the descriptor forbids renaming.
	ErrNonUniqueName = errors.New("badezimmer: instance name already in use")

	// ErrNoRoute is returned by the transport client when every candidate
	// address refused the connection or timed out.
	ErrNoRoute = errors.New("badezimmer: no address accepted the connection")

	// ErrInvalidCommand marks a request variant the handler does not
	// recognize. It is carried inside an error reply, not returned to Go
	// callers of the transport.
	ErrInvalidCommand = errors.New("badezimmer: unrecognized command")
)
