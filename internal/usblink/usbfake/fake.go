// Package usbfake provides in-memory usblink.Host and usblink.Handle
// implementations for tests.
package usbfake

import (
	"sync"
	"time"

	"github.com/mzyy94/ebotlcd/internal/usblink"
)

// Host is a fake usblink.Host exposing at most one device.
type Host struct {
	mu sync.Mutex

	// Device is returned for a matching Open; nil means nothing attached.
	Device  *Handle
	Vendor  uint16
	Product uint16
	OpenErr error // returned with found=true

	opens  int
	closed bool
}

// NewHost returns a Host with dev attached as vid:pid.
func NewHost(vid, pid uint16, dev *Handle) *Host {
	return &Host{Device: dev, Vendor: vid, Product: pid}
}

func (h *Host) Open(vid, pid uint16) (usblink.Handle, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Device == nil || vid != h.Vendor || pid != h.Product {
		return nil, false, nil
	}
	if h.OpenErr != nil {
		return nil, true, h.OpenErr
	}
	h.opens++
	return h.Device, true, nil
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Opens counts successful opens.
func (h *Host) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens
}

// Closed reports whether Close was called.
func (h *Host) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Handle is a fake usblink.Handle recording every call.
type Handle struct {
	mu sync.Mutex

	DriverActive bool
	DriverErr    error
	DetachErr    error
	ClaimErr     error
	ReleaseErr   error
	CloseErr     error

	// Write, when set, decides the outcome of each bulk write. call is the
	// 0-based write number over the handle's lifetime.
	Write func(call int, p []byte) (int, error)

	// Record keeps a copy of every accepted packet.
	Record bool

	calls    Calls
	packets  [][]byte
	endpoint []uint8
}

// Calls counts the operations performed on a Handle.
type Calls struct {
	Detach  int
	Claim   int
	Release int
	Close   int
	Writes  int
	Bytes   int
}

func (h *Handle) KernelDriverActive(iface int) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.DriverActive, h.DriverErr
}

func (h *Handle) DetachKernelDriver(iface int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls.Detach++
	return h.DetachErr
}

func (h *Handle) ClaimInterface(iface int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls.Claim++
	return h.ClaimErr
}

func (h *Handle) ReleaseInterface(iface int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls.Release++
	return h.ReleaseErr
}

func (h *Handle) BulkWrite(endpoint uint8, p []byte, timeout time.Duration) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	call := h.calls.Writes
	h.calls.Writes++
	if h.Write != nil {
		if n, err := h.Write(call, p); err != nil || n != len(p) {
			return n, err
		}
	}
	h.calls.Bytes += len(p)
	if h.Record {
		h.packets = append(h.packets, append([]byte(nil), p...))
		h.endpoint = append(h.endpoint, endpoint)
	}
	return len(p), nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls.Close++
	return h.CloseErr
}

// Calls returns a snapshot of the call counters.
func (h *Handle) Calls() Calls {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// Packets returns the recorded packets and their endpoints.
func (h *Handle) Packets() ([][]byte, []uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.packets, h.endpoint
}
