// Package joint encodes the servo configuration that rides in the tail
// packet of every display round.
package joint

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// ServoCount is the number of servos addressed by the trailer.
const ServoCount = 6

// Size is the encoded length: enable flag, six float32 angles, 7 pad bytes.
const Size = 32

// Servo describes one joint and its mechanical range in degrees.
type Servo struct {
	Name string
	Min  float32
	Max  float32
}

// Servos lists the joints in trailer order.
var Servos = [ServoCount]Servo{
	{"head", -15, 15},
	{"left shoulder", -30, 30},
	{"left arm", -180, 180},
	{"right shoulder", -30, 30},
	{"right arm", -180, 180},
	{"body", -90, 90},
}

// Config is the servo state sent to the device.
// The zero value releases all servos.
type Config struct {
	Enable bool                `json:"enable"`
	Angles [ServoCount]float32 `json:"angles"`
}

// Bytes encodes c: byte 0 is 1 when servos are powered, bytes 1..24 hold
// the angles as little-endian float32, the rest is zero.
func (c Config) Bytes() [Size]byte {
	var b [Size]byte
	if c.Enable {
		b[0] = 1
	}
	for i, a := range c.Angles {
		binary.LittleEndian.PutUint32(b[1+i*4:], math.Float32bits(a))
	}
	return b
}

// Clamped returns c with every angle limited to its servo's range.
// NaN angles become 0.
func (c Config) Clamped() Config {
	for i, a := range c.Angles {
		c.Angles[i] = Clamp(i, a)
	}
	return c
}

// Clamp limits angle to the range of servo i.
func Clamp(i int, angle float32) float32 {
	s := Servos[i]
	switch {
	case math.IsNaN(float64(angle)):
		return 0
	case angle < s.Min:
		return s.Min
	case angle > s.Max:
		return s.Max
	}
	return angle
}

// State holds the current Config for concurrent readers and writers.
// It implements lcd.TrailerSource.
type State struct {
	mu  sync.RWMutex
	cfg Config
}

// NewState returns a State holding cfg, clamped.
func NewState(cfg Config) *State {
	return &State{cfg: cfg.Clamped()}
}

// Get returns the current config.
func (s *State) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the config, clamping angles, and returns what was stored.
func (s *State) Set(cfg Config) Config {
	cfg = cfg.Clamped()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return cfg
}

// SetAngle updates one servo, clamping the angle.
func (s *State) SetAngle(i int, angle float32) error {
	if i < 0 || i >= ServoCount {
		return fmt.Errorf("servo index %d out of range [0,%d)", i, ServoCount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Angles[i] = Clamp(i, angle)
	return nil
}

// SetEnable powers the servos on or off.
func (s *State) SetEnable(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Enable = on
}

// Trailer returns the encoded current config.
func (s *State) Trailer() []byte {
	b := s.Get().Bytes()
	return b[:]
}
