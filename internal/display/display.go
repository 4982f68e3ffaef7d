package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/hashicorp/go-multierror"

	"github.com/mzyy94/ebotlcd/internal/joint"
	"github.com/mzyy94/ebotlcd/internal/lcd"
	"github.com/mzyy94/ebotlcd/internal/usblink"
)

// ErrNotConnected is returned by Show when no session is open.
var ErrNotConnected = errors.New("display not connected")

// IsReconnect reports whether err means the device must be reopened, as
// opposed to a transfer failure where resending the frame is enough.
func IsReconnect(err error) bool {
	return errors.Is(err, usblink.ErrDeviceNotFound) ||
		errors.Is(err, usblink.ErrOpenFailed) ||
		errors.Is(err, usblink.ErrInterfaceClaimFailed) ||
		errors.Is(err, usblink.ErrNotClaimed) ||
		errors.Is(err, ErrNotConnected)
}

// Display is a high-level handle on the panel: session lifecycle plus frame
// sending with the current joint trailer. Its methods are safe for
// concurrent use; frames are sent one at a time.
type Display struct {
	host    usblink.Host
	profile lcd.Profile
	plan    *lcd.Plan
	joints  *joint.State

	mu      sync.Mutex
	session *usblink.Session
	driver  *lcd.Driver
	status  Status
}

// New validates profile and returns a disconnected Display. A geometry
// error is returned before any device is touched.
func New(host usblink.Host, profile lcd.Profile, joints *joint.State) (*Display, error) {
	plan, err := lcd.NewPlan(profile)
	if err != nil {
		return nil, err
	}
	if joints == nil {
		joints = joint.NewState(joint.Config{})
	}
	return &Display{host: host, profile: profile, plan: plan, joints: joints}, nil
}

// Connect opens and claims the device described by the profile.
func (d *Display) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		return nil
	}

	p := d.profile
	slog.Info("connecting to panel", "profile", p.Name,
		"vid", fmt.Sprintf("%04X", p.VendorID), "pid", fmt.Sprintf("%04X", p.ProductID),
		"interface", p.Interface, "endpoint", fmt.Sprintf("0x%02X", p.Endpoint))
	s, err := usblink.Open(d.host, p.VendorID, p.ProductID, p.Interface)
	if err != nil {
		d.status.setError(err)
		return err
	}
	d.session = s
	d.driver = lcd.NewDriver(d.plan, s)
	vid, pid := s.DeviceID()
	d.status.setConnected(s.ID(), fmt.Sprintf("%04x:%04x", vid, pid))
	return nil
}

// ConnectRetry calls Connect with exponential backoff until it succeeds,
// ctx is done, or maxElapsed passes (0 means no limit).
func (d *Display) ConnectRetry(ctx context.Context, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(func() error {
		return d.Connect(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		slog.Warn("panel not ready, retrying", "err", err, "in", next.Round(time.Millisecond))
	})
}

// Show sends one frame with the current joint configuration. pixels must
// hold exactly one frame and is not modified. On a transfer error the
// session stays open; the caller resends the whole frame.
func (d *Display) Show(pixels []byte) (lcd.Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.driver == nil {
		return lcd.Stats{}, ErrNotConnected
	}
	st, err := d.driver.SendFrame(pixels, d.joints)
	d.status.recordFrame(st, err)
	if err != nil {
		return st, fmt.Errorf("send frame: %w", err)
	}
	slog.Debug("frame sent", "packets", st.Packets, "bytes", st.Bytes, "elapsed", st.Elapsed)
	return st, nil
}

// Disconnect releases the device. It is safe to call when not connected.
func (d *Display) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnectLocked()
}

func (d *Display) disconnectLocked() error {
	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session, d.driver = nil, nil
	d.status.setDisconnected()
	if err != nil {
		slog.Warn("session teardown", "err", err)
	}
	return err
}

// Close disconnects and frees the USB host.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result *multierror.Error
	if err := d.disconnectLocked(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := d.host.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close usb host: %w", err))
	}
	return result.ErrorOrNil()
}

// Connected reports whether a session is open.
func (d *Display) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session != nil
}

// Profile returns the panel profile.
func (d *Display) Profile() lcd.Profile { return d.profile }

// Joints returns the joint state feeding the trailer.
func (d *Display) Joints() *joint.State { return d.joints }

// Status returns a snapshot of connection and frame counters.
func (d *Display) Status() StatusSnapshot { return d.status.Snapshot() }
