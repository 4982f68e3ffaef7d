// Package lcd turns RGB frames into the bulk-packet sequence the ElectronBot
// panel expects.
package lcd

import "time"

// USB identity of the ElectronBot panel.
const (
	DefaultVendorID  uint16 = 0x1001
	DefaultProductID uint16 = 0x8023
)

// Bulk-OUT endpoint addresses seen across firmware revisions.
const (
	EndpointOut1 uint8 = 0x01 // production firmware, interface 0
	EndpointOut2 uint8 = 0x02 // alternate firmware, interface 1
)

// Panel geometry (RGB888, row-major).
const (
	PanelWidth    = 240
	PanelHeight   = 240
	BytesPerPixel = 3
	RowsPerRound  = 60 // 4 rounds per frame
)

// Packet geometry mandated by the device firmware.
const (
	PacketSize  = 512 // body packet
	TailSize    = 224 // 192 remainder pixel bytes + 32 trailer bytes
	TrailerSize = 32  // joint configuration block
)

// TailFill pads the tail packet where neither pixels nor trailer land.
const TailFill byte = 0xFF

// Transfer timing.
const (
	DefaultTimeout    = 1000 * time.Millisecond // per bulk write
	DefaultRoundDelay = 1 * time.Millisecond    // between consecutive rounds
)

// endpointDirIn is the direction bit of an endpoint address.
const endpointDirIn uint8 = 0x80
