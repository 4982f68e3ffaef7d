//go:build !cgo

package usblink

import "errors"

var errNoCGO = errors.New("usblink: USB transport requires CGO (libusb-1.0)")

// NewHost reports that this build has no USB transport.
func NewHost() (Host, error) {
	return nil, errNoCGO
}
