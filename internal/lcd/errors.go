package lcd

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigInconsistent is matched by every geometry validation failure.
	ErrConfigInconsistent = errors.New("lcd: configuration inconsistent")

	// ErrTransfer is matched by every frame send failure on the wire.
	ErrTransfer = errors.New("lcd: transfer failed")

	// ErrTransferTimeout is matched when a bulk write ran out of time.
	ErrTransferTimeout = errors.New("lcd: transfer timeout")

	// ErrShortWrite is matched when the device accepted fewer bytes than sent.
	ErrShortWrite = errors.New("lcd: short write")

	// ErrFrameSize indicates a pixel buffer whose length is not W*H*3.
	ErrFrameSize = errors.New("lcd: pixel buffer has wrong size")

	// ErrTrailerSize indicates a trailer whose length is not TrailerSize.
	ErrTrailerSize = errors.New("lcd: trailer has wrong size")
)

// ConfigError reports a geometry constant that breaks the round/packet arithmetic.
type ConfigError struct {
	Profile string
	Field   string
	Msg     string
}

func (e *ConfigError) Error() string {
	if e.Profile == "" {
		return fmt.Sprintf("lcd: invalid %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("lcd: profile %q: invalid %s: %s", e.Profile, e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrConfigInconsistent }

// TransferError identifies the packet at which a frame send stopped.
// Rounds before Round were fully written and are not resent.
type TransferError struct {
	Round   int         // 0-based round index
	Packet  int         // index within the round; the tail packet is BodyPackets
	Kind    SegmentKind // body or tail
	Written int         // bytes the device accepted for this packet
	Err     error       // transport error, ErrShortWrite or ErrTrailerSize
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("lcd: %s packet %d of round %d: %v", e.Kind, e.Packet, e.Round, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Is makes every TransferError match ErrTransfer, and timeouts match
// ErrTransferTimeout.
func (e *TransferError) Is(target error) bool {
	switch target {
	case ErrTransfer:
		return true
	case ErrTransferTimeout:
		return e.Timeout()
	}
	return false
}

// Timeout reports whether the underlying write timed out.
func (e *TransferError) Timeout() bool {
	return isTimeout(e.Err)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}
