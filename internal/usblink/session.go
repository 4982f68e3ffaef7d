package usblink

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateUninitialized State = iota
	StateOpened
	StateClaimed
	StateReleased // terminal
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpened:
		return "opened"
	case StateClaimed:
		return "claimed"
	case StateReleased:
		return "released"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session owns one open device with one claimed interface.
// It is used from a single goroutine and is not reusable after Close.
type Session struct {
	id     string
	vid    uint16
	pid    uint16
	iface  int
	handle Handle
	state  State
	log    *slog.Logger
}

// Open finds the first device matching vid:pid, detaches any kernel driver
// from iface (best-effort) and claims iface. On success the caller must
// Close the session; on failure nothing is left open.
//
// When several identical devices are attached, whichever the host
// enumerates first is used.
func Open(host Host, vid, pid uint16, iface int) (*Session, error) {
	id := fmt.Sprintf("%04X:%04X", vid, pid)
	slog.Debug("looking for device", "id", id)

	h, found, err := host.Open(vid, pid)
	if !found {
		if h != nil {
			h.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDeviceNotFound, id, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, id, err)
	}

	s := &Session{
		id:     uuid.NewString(),
		vid:    vid,
		pid:    pid,
		iface:  iface,
		handle: h,
		state:  StateOpened,
	}
	s.log = slog.With("session", s.id)
	s.log.Info("device opened", "id", id)

	s.detachKernelDriver()

	if err := h.ClaimInterface(iface); err != nil {
		if cerr := h.Close(); cerr != nil {
			s.log.Warn("close after failed claim", "err", cerr)
		}
		s.state = StateReleased
		return nil, fmt.Errorf("%w: interface %d: %w", ErrInterfaceClaimFailed, iface, err)
	}
	s.state = StateClaimed
	s.log.Info("interface claimed", "interface", iface)
	return s, nil
}

// detachKernelDriver unbinds a kernel driver from the interface. Failures
// are logged only: some platforms never bind one.
func (s *Session) detachKernelDriver() {
	active, err := s.handle.KernelDriverActive(s.iface)
	if err != nil {
		s.log.Debug("kernel driver state unknown", "interface", s.iface, "err", err)
	} else if !active {
		return
	}
	if err := s.handle.DetachKernelDriver(s.iface); err != nil {
		s.log.Warn("detach kernel driver failed", "interface", s.iface, "err", err)
		return
	}
	s.log.Debug("kernel driver detached", "interface", s.iface)
}

// BulkWrite writes p to endpoint. It fails with ErrNotClaimed unless the
// session holds its interface.
func (s *Session) BulkWrite(endpoint uint8, p []byte, timeout time.Duration) (int, error) {
	if s.state != StateClaimed {
		return 0, fmt.Errorf("%w (state %s)", ErrNotClaimed, s.state)
	}
	return s.handle.BulkWrite(endpoint, p, timeout)
}

// Close releases the interface and closes the device. Both steps always run;
// their errors are combined. Calling Close again is a no-op.
func (s *Session) Close() error {
	if s.state == StateReleased || s.state == StateUninitialized {
		return nil
	}
	var result *multierror.Error
	if s.state == StateClaimed {
		if err := s.handle.ReleaseInterface(s.iface); err != nil {
			result = multierror.Append(result, fmt.Errorf("release interface %d: %w", s.iface, err))
		}
	}
	if err := s.handle.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close device: %w", err))
	}
	s.state = StateReleased
	s.log.Info("session closed")
	return result.ErrorOrNil()
}

// ID returns the random identifier used to tag this session's log lines.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Interface returns the claimed interface number.
func (s *Session) Interface() int { return s.iface }

// DeviceID returns the vendor and product IDs the session was opened with.
func (s *Session) DeviceID() (vid, pid uint16) { return s.vid, s.pid }
