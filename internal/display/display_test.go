package display

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mzyy94/ebotlcd/internal/joint"
	"github.com/mzyy94/ebotlcd/internal/lcd"
	"github.com/mzyy94/ebotlcd/internal/usblink"
	"github.com/mzyy94/ebotlcd/internal/usblink/usbfake"
)

func newTestDisplay(t *testing.T, dev *usbfake.Handle) (*Display, *usbfake.Host) {
	t.Helper()
	p := lcd.DefaultProfile()
	p.RoundDelay = 0
	host := usbfake.NewHost(p.VendorID, p.ProductID, dev)
	d, err := New(host, p, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, host
}

func TestShowFullFrame(t *testing.T) {
	dev := &usbfake.Handle{Record: true}
	d, _ := newTestDisplay(t, dev)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	d.Joints().Set(joint.Config{Enable: true})

	st, err := d.Show(make([]byte, d.Profile().FrameSize()))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if st.Packets != 340 || st.Rounds != 4 {
		t.Errorf("stats = %+v, want 340 packets in 4 rounds", st)
	}
	packets, _ := dev.Packets()
	tail := packets[84]
	if len(tail) != lcd.TailSize {
		t.Fatalf("tail length = %d, want %d", len(tail), lcd.TailSize)
	}
	if tail[192] != 1 {
		t.Errorf("trailer enable byte = %d, want 1", tail[192])
	}

	s := d.Status()
	if !s.Connected || s.Frames != 1 || s.Failures != 0 || s.SessionID == "" {
		t.Errorf("status = %+v", s)
	}
	if s.Device != "1001:8023" {
		t.Errorf("status device = %q, want 1001:8023", s.Device)
	}
}

func TestShowNotConnected(t *testing.T) {
	d, _ := newTestDisplay(t, &usbfake.Handle{})
	_, err := d.Show(make([]byte, d.Profile().FrameSize()))
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Show = %v, want ErrNotConnected", err)
	}
	if !IsReconnect(err) {
		t.Error("IsReconnect(ErrNotConnected) = false")
	}
}

func TestConnectNotFound(t *testing.T) {
	d, _ := newTestDisplay(t, nil)
	err := d.Connect(context.Background())
	if !errors.Is(err, usblink.ErrDeviceNotFound) {
		t.Fatalf("Connect = %v, want ErrDeviceNotFound", err)
	}
	if !IsReconnect(err) {
		t.Error("IsReconnect(not found) = false")
	}
	if d.Connected() {
		t.Error("Connected after failed Connect")
	}
	if d.Status().LastError == "" {
		t.Error("status has no error")
	}
}

func TestShowTransferFailureKeepsSession(t *testing.T) {
	dev := &usbfake.Handle{
		Write: func(call int, p []byte) (int, error) {
			if call == 10 {
				return 0, errors.New("pipe error")
			}
			return len(p), nil
		},
	}
	d, _ := newTestDisplay(t, dev)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	frame := make([]byte, d.Profile().FrameSize())

	_, err := d.Show(frame)
	if !errors.Is(err, lcd.ErrTransfer) {
		t.Fatalf("Show = %v, want ErrTransfer", err)
	}
	if IsReconnect(err) {
		t.Error("transfer failure classified as reconnect")
	}
	if !d.Connected() {
		t.Fatal("session closed after transfer failure")
	}
	if _, err := d.Show(frame); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if s := d.Status(); s.Frames != 1 || s.Failures != 1 {
		t.Errorf("status = %+v, want 1 frame 1 failure", s)
	}
}

func TestNewRejectsBadProfile(t *testing.T) {
	p := lcd.DefaultProfile()
	p.RowsPerRound = 7
	host := usbfake.NewHost(p.VendorID, p.ProductID, &usbfake.Handle{})
	if _, err := New(host, p, nil); !errors.Is(err, lcd.ErrConfigInconsistent) {
		t.Fatalf("New = %v, want ErrConfigInconsistent", err)
	}
	if host.Opens() != 0 {
		t.Error("device opened despite bad profile")
	}
}

func TestDisconnectAndClose(t *testing.T) {
	dev := &usbfake.Handle{}
	d, host := newTestDisplay(t, dev)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if host.Opens() != 1 {
		t.Errorf("opens = %d, want 1", host.Opens())
	}
	if err := d.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if s := d.Status(); s.Connected || s.Device != "" {
		t.Errorf("status after Disconnect = %+v", s)
	}
	if err := d.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if c := dev.Calls(); c.Release != 1 || c.Close != 1 {
		t.Errorf("calls = %+v, want one release and close", c)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !host.Closed() {
		t.Error("host not closed")
	}
}

func TestConnectRetryCancelled(t *testing.T) {
	d, _ := newTestDisplay(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.ConnectRetry(ctx, 0); err == nil {
		t.Fatal("ConnectRetry succeeded with no device")
	}
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(4)
	if err := c.Set([]byte{1, 2, 3}); err == nil {
		t.Error("Set accepted short frame")
	}
	src := []byte{1, 2, 3, 4}
	if err := c.Set(src); err != nil {
		t.Fatal(err)
	}
	src[0] = 9
	got, gen := c.Snapshot()
	if got[0] != 1 || gen != 1 {
		t.Errorf("Snapshot = %v gen %d, want copy at gen 1", got, gen)
	}
	got[1] = 9
	if again, _ := c.Snapshot(); again[1] != 2 {
		t.Error("Snapshot shares memory with canvas")
	}
}

func TestStreamer(t *testing.T) {
	dev := &usbfake.Handle{}
	d, _ := newTestDisplay(t, dev)
	c := NewCanvas(d.Profile().FrameSize())

	s := StartStreamer(context.Background(), d, c, 5*time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for d.Status().Frames < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if n := d.Status().Frames; n < 2 {
		t.Fatalf("frames = %d, want at least 2", n)
	}
	if w := dev.Calls().Writes; w%340 != 0 {
		t.Errorf("writes = %d, want whole frames", w)
	}
}

func TestStreamerReconnectsAfterFailures(t *testing.T) {
	dev := &usbfake.Handle{
		Write: func(call int, p []byte) (int, error) {
			if call < 3 {
				return 0, errors.New("stall")
			}
			return len(p), nil
		},
	}
	d, host := newTestDisplay(t, dev)
	c := NewCanvas(d.Profile().FrameSize())

	s := StartStreamer(context.Background(), d, c, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for d.Status().Frames < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if host.Opens() < 2 {
		t.Errorf("opens = %d, want a reconnect after %d failures", host.Opens(), maxTransferFailures)
	}
	if d.Status().Frames < 1 {
		t.Error("no frame after reconnect")
	}
}
