package usblink

import "errors"

// Session setup errors. None of them leave a handle open.
var (
	// ErrDeviceNotFound indicates no attached device matched vid:pid.
	ErrDeviceNotFound = errors.New("usb: device not found")

	// ErrOpenFailed indicates a matching device could not be opened.
	ErrOpenFailed = errors.New("usb: open failed")

	// ErrInterfaceClaimFailed indicates the interface could not be claimed.
	ErrInterfaceClaimFailed = errors.New("usb: claim interface failed")
)

// ErrNotClaimed is returned by transfers on a session that does not hold
// its interface, including a released one.
var ErrNotClaimed = errors.New("usb: interface not claimed")

// timeoutError marks a bulk write that ran out of time. It satisfies the
// Timeout() convention used by net.Error.
type timeoutError struct {
	err error
}

func (e *timeoutError) Error() string { return "usb: bulk write timeout: " + e.err.Error() }
func (e *timeoutError) Unwrap() error { return e.err }
func (e *timeoutError) Timeout() bool { return true }
