package joint

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/mzyy94/ebotlcd/internal/lcd"
)

var _ lcd.TrailerSource = (*State)(nil)

func TestConfigBytesLayout(t *testing.T) {
	c := Config{Enable: true, Angles: [ServoCount]float32{1.5, -30, 90, 0, -180, 45}}
	b := c.Bytes()

	if len(b) != lcd.TrailerSize {
		t.Fatalf("len = %d, want %d", len(b), lcd.TrailerSize)
	}
	if b[0] != 1 {
		t.Errorf("enable byte = %d, want 1", b[0])
	}
	for i, want := range c.Angles {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[1+i*4:]))
		if got != want {
			t.Errorf("angle %d = %v, want %v", i, got, want)
		}
	}
	for i := 25; i < Size; i++ {
		if b[i] != 0 {
			t.Errorf("pad byte %d = 0x%02X, want 0", i, b[i])
		}
	}

	// 1.5 = 0x3FC00000, little-endian on the wire
	if b[1] != 0x00 || b[2] != 0x00 || b[3] != 0xC0 || b[4] != 0x3F {
		t.Errorf("angle 0 bytes = % X, want 00 00 C0 3F", b[1:5])
	}
}

func TestZeroConfigIsAllZero(t *testing.T) {
	var c Config
	if b := c.Bytes(); b != [Size]byte{} {
		t.Errorf("zero config encodes to % X", b)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		servo int
		in    float32
		want  float32
	}{
		{"head_high", 0, 40, 15},
		{"head_low", 0, -40, -15},
		{"left_arm_inside", 2, 120, 120},
		{"body_low", 5, -100, -90},
		{"nan", 1, float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.servo, tt.in); got != tt.want {
				t.Errorf("Clamp(%d, %v) = %v, want %v", tt.servo, tt.in, got, tt.want)
			}
		})
	}
}

func TestStateSetAndTrailer(t *testing.T) {
	s := NewState(Config{})
	if got := s.Trailer(); len(got) != Size || got[0] != 0 {
		t.Fatalf("initial trailer = % X", got)
	}

	stored := s.Set(Config{Enable: true, Angles: [ServoCount]float32{100}})
	if stored.Angles[0] != 15 {
		t.Errorf("stored head angle = %v, want 15", stored.Angles[0])
	}
	if err := s.SetAngle(5, 30); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAngle(6, 0); err == nil {
		t.Error("SetAngle(6) succeeded, want error")
	}

	tr := s.Trailer()
	if tr[0] != 1 {
		t.Errorf("enable byte = %d, want 1", tr[0])
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(tr[21:])); got != 30 {
		t.Errorf("body angle = %v, want 30", got)
	}

	s.SetEnable(false)
	if s.Trailer()[0] != 0 {
		t.Error("enable byte still set after SetEnable(false)")
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState(Config{})
	var wg sync.WaitGroup
	for i := 0; i < ServoCount; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			for a := 0; a < 50; a++ {
				s.SetAngle(i, float32(a))
			}
		}()
		go func() {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				if len(s.Trailer()) != Size {
					t.Error("short trailer")
				}
			}
		}()
	}
	wg.Wait()
}
