//go:build cgo

package usblink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gousb"
)

var errNoDriverQuery = errors.New("kernel driver query not supported by libusb binding")

// libusbHost is a Host backed by libusb through gousb.
type libusbHost struct {
	ctx *gousb.Context
}

// NewHost returns a libusb-backed Host. Close it when done.
func NewHost() (Host, error) {
	return &libusbHost{ctx: gousb.NewContext()}, nil
}

func (h *libusbHost) Open(vid, pid uint16) (Handle, bool, error) {
	matched := 0
	devs, err := h.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != gousb.ID(vid) || desc.Product != gousb.ID(pid) {
			return false
		}
		matched++
		slog.Debug("matching device", "bus", desc.Bus, "address", desc.Address, "n", matched)
		return matched == 1
	})
	if matched == 0 {
		for _, d := range devs {
			d.Close()
		}
		return nil, false, err
	}
	if len(devs) == 0 {
		if err == nil {
			err = errors.New("no handle returned")
		}
		return nil, true, err
	}
	for _, extra := range devs[1:] {
		extra.Close()
	}
	if matched > 1 {
		slog.Warn("several matching devices attached, using the first", "count", matched)
	}
	return &libusbHandle{dev: devs[0], out: make(map[int]*gousb.OutEndpoint)}, true, nil
}

func (h *libusbHost) Close() error {
	return h.ctx.Close()
}

type libusbHandle struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  map[int]*gousb.OutEndpoint
}

func (h *libusbHandle) KernelDriverActive(iface int) (bool, error) {
	return false, errNoDriverQuery
}

// DetachKernelDriver enables libusb auto-detach, which unbinds an active
// kernel driver when the interface is claimed and rebinds it on release.
func (h *libusbHandle) DetachKernelDriver(iface int) error {
	return h.dev.SetAutoDetach(true)
}

func (h *libusbHandle) ClaimInterface(iface int) error {
	num, err := h.dev.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("active config: %w", err)
	}
	cfg, err := h.dev.Config(num)
	if err != nil {
		return fmt.Errorf("config %d: %w", num, err)
	}
	intf, err := cfg.Interface(iface, 0)
	if err != nil {
		cfg.Close()
		return err
	}
	h.cfg, h.intf = cfg, intf
	return nil
}

func (h *libusbHandle) ReleaseInterface(iface int) error {
	if h.intf == nil {
		return nil
	}
	h.intf.Close()
	err := h.cfg.Close()
	h.intf, h.cfg = nil, nil
	clear(h.out)
	return err
}

func (h *libusbHandle) BulkWrite(endpoint uint8, p []byte, timeout time.Duration) (int, error) {
	if h.intf == nil {
		return 0, ErrNotClaimed
	}
	num := int(endpoint & 0x0F)
	ep, ok := h.out[num]
	if !ok {
		var err error
		if ep, err = h.intf.OutEndpoint(num); err != nil {
			return 0, fmt.Errorf("endpoint 0x%02X: %w", endpoint, err)
		}
		h.out[num] = ep
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n, err := ep.WriteContext(ctx, p)
	if err != nil && isLibusbTimeout(err, ctx.Err()) {
		return n, &timeoutError{err: err}
	}
	return n, err
}

func (h *libusbHandle) Close() error {
	return h.dev.Close()
}

// isLibusbTimeout reports whether a failed write ran out of time. gousb
// enforces the deadline by cancelling the transfer, so the write itself
// fails with TransferCancelled and only ctxErr tells the two apart.
func isLibusbTimeout(err, ctxErr error) bool {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gousb.ErrorTimeout) ||
		errors.Is(err, gousb.TransferTimedOut)
}
