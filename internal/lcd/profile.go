package lcd

import (
	"fmt"
	"sort"
	"time"
)

// Profile is the immutable description of one panel: USB identity, endpoint,
// image geometry and packet geometry. It is passed by value.
type Profile struct {
	Name string

	VendorID  uint16
	ProductID uint16
	Interface int
	Endpoint  uint8 // bulk-OUT address

	Width         int
	Height        int
	BytesPerPixel int
	RowsPerRound  int

	PacketSize  int // body packet
	TailSize    int // tail packet
	TrailerSize int // configuration trailer inside the tail

	Timeout    time.Duration // per bulk write
	RoundDelay time.Duration // pause between consecutive rounds
}

// DefaultProfile returns the production ElectronBot profile.
func DefaultProfile() Profile {
	return Profile{
		Name:          "electronbot",
		VendorID:      DefaultVendorID,
		ProductID:     DefaultProductID,
		Interface:     0,
		Endpoint:      EndpointOut1,
		Width:         PanelWidth,
		Height:        PanelHeight,
		BytesPerPixel: BytesPerPixel,
		RowsPerRound:  RowsPerRound,
		PacketSize:    PacketSize,
		TailSize:      TailSize,
		TrailerSize:   TrailerSize,
		Timeout:       DefaultTimeout,
		RoundDelay:    DefaultRoundDelay,
	}
}

var profiles = map[string]func() Profile{
	"electronbot": DefaultProfile,
	"electronbot-ep2": func() Profile {
		p := DefaultProfile()
		p.Name = "electronbot-ep2"
		p.Interface = 1
		p.Endpoint = EndpointOut2
		return p
	},
}

// LookupProfile returns a built-in profile by name.
func LookupProfile(name string) (Profile, error) {
	f, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (known: %v)", name, ProfileNames())
	}
	return f(), nil
}

// ProfileNames lists the built-in profiles in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FrameSize is the pixel buffer length, W*H*bpp.
func (p Profile) FrameSize() int { return p.Width * p.Height * p.BytesPerPixel }

// RoundBytes is the number of pixel bytes in one round.
func (p Profile) RoundBytes() int { return p.RowsPerRound * p.Width * p.BytesPerPixel }

// Rounds is the number of rounds per frame.
func (p Profile) Rounds() int { return p.Height / p.RowsPerRound }

// BodyPackets is the number of full body packets per round.
func (p Profile) BodyPackets() int { return p.RoundBytes() / p.PacketSize }

// Remainder is the count of round pixel bytes carried by the tail packet.
func (p Profile) Remainder() int { return p.RoundBytes() % p.PacketSize }

// PacketsPerFrame counts body and tail packets of a whole frame.
func (p Profile) PacketsPerFrame() int { return p.Rounds() * (p.BodyPackets() + 1) }

// Validate checks the round/remainder/trailer arithmetic. It returns a
// *ConfigError, which matches ErrConfigInconsistent.
func (p Profile) Validate() error {
	positive := []struct {
		field string
		v     int
	}{
		{"width", p.Width},
		{"height", p.Height},
		{"bytes per pixel", p.BytesPerPixel},
		{"rows per round", p.RowsPerRound},
		{"packet size", p.PacketSize},
		{"tail size", p.TailSize},
		{"trailer size", p.TrailerSize},
	}
	for _, c := range positive {
		if c.v <= 0 {
			return p.invalid(c.field, fmt.Sprintf("must be positive, got %d", c.v))
		}
	}
	if p.Height%p.RowsPerRound != 0 {
		return p.invalid("rows per round",
			fmt.Sprintf("height %d is not divisible by %d", p.Height, p.RowsPerRound))
	}
	if need := p.Remainder() + p.TrailerSize; need > p.TailSize {
		return p.invalid("tail size",
			fmt.Sprintf("remainder %d + trailer %d = %d exceeds tail %d",
				p.Remainder(), p.TrailerSize, need, p.TailSize))
	}
	if p.Endpoint == 0 || p.Endpoint&endpointDirIn != 0 {
		return p.invalid("endpoint", fmt.Sprintf("0x%02X is not a bulk-OUT address", p.Endpoint))
	}
	if p.Interface < 0 {
		return p.invalid("interface", fmt.Sprintf("must not be negative, got %d", p.Interface))
	}
	if p.Timeout <= 0 {
		return p.invalid("timeout", fmt.Sprintf("must be positive, got %s", p.Timeout))
	}
	if p.RoundDelay < 0 {
		return p.invalid("round delay", fmt.Sprintf("must not be negative, got %s", p.RoundDelay))
	}
	return nil
}

func (p Profile) invalid(field, msg string) error {
	return &ConfigError{Profile: p.Name, Field: field, Msg: msg}
}
