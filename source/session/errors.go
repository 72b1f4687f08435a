package session

import (
	"errors"
	"fmt"
)

// Error taxonomy per spec.md §7. Fatal errors (all but wire.ErrMalformedFrame)
// abort the event loop; wire.ErrMalformedFrame is recovered locally by
// dropping the offending datagram and continuing.
var (
	ErrInvalidConfig   = errors.New("session: invalid config")
	ErrIOError         = errors.New("session: io error")
	ErrHandshakeFailed = errors.New("session: handshake failed")
	ErrSizeMismatch    = errors.New("session: size mismatch")
)

// RetriesExhaustedError reports that segment Seq hit its retry cap without
// being acknowledged (spec.md §7, "RetriesExhausted(seq)").
type RetriesExhaustedError struct {
	Seq uint32
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("session: retries exhausted for segment %d", e.Seq)
}

// HandshakeFailedError wraps ErrHandshakeFailed with which phase failed.
type HandshakeFailedError struct {
	Phase string // "START" or "END"
}

func (e *HandshakeFailedError) Error() string {
	return fmt.Sprintf("session: %s handshake failed: %v", e.Phase, ErrHandshakeFailed)
}

func (e *HandshakeFailedError) Unwrap() error { return ErrHandshakeFailed }

// SizeMismatchError reports that the receiver observed fewer bytes than
// expected_total after END (spec.md §7).
type SizeMismatchError struct {
	Expected uint64
	Received uint64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("session: size mismatch: received %d of %d expected bytes", e.Received, e.Expected)
}

func (e *SizeMismatchError) Unwrap() error { return ErrSizeMismatch }
