package usblink

import "time"

// Host enumerates and opens USB devices.
type Host interface {
	// Open opens the first attached device matching vid:pid. found is false
	// when enumeration completed without a match; in that case no handle
	// exists. A matching device that cannot be opened yields found=true and
	// a non-nil err.
	Open(vid, pid uint16) (h Handle, found bool, err error)

	// Close frees the host context and any enumeration state.
	Close() error
}

// Handle is an open device.
type Handle interface {
	// KernelDriverActive reports whether a kernel driver is bound to iface.
	KernelDriverActive(iface int) (bool, error)
	DetachKernelDriver(iface int) error
	ClaimInterface(iface int) error
	ReleaseInterface(iface int) error

	// BulkWrite blocks until p is written to the OUT endpoint or timeout
	// expires, and returns the number of bytes the device accepted.
	BulkWrite(endpoint uint8, p []byte, timeout time.Duration) (int, error)

	Close() error
}
