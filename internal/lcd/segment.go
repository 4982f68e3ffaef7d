package lcd

import "log/slog"

// SegmentKind distinguishes raw pixel packets from the closing tail packet.
type SegmentKind int

const (
	KindBody SegmentKind = iota
	KindTail
)

func (k SegmentKind) String() string {
	switch k {
	case KindBody:
		return "body"
	case KindTail:
		return "tail"
	}
	return "unknown"
}

// Segment points into the pixel buffer; it never holds a copy.
// For a tail segment, Offset/Length cover the round's remainder pixels only
// (Length may be 0); the trailer is added by Plan.Tail.
type Segment struct {
	Round  int
	Index  int // position within the round
	Kind   SegmentKind
	Offset int
	Length int
}

// Plan is the validated, precomputed partition of a frame for one profile.
type Plan struct {
	profile  Profile
	segments []Segment
}

// NewPlan validates p and computes the ordered segment list.
func NewPlan(p Profile) (*Plan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if gap := p.TailSize - p.Remainder() - p.TrailerSize; gap > 0 {
		slog.Debug("tail packet will be padded", "profile", p.Name, "pad", gap)
	}
	return &Plan{profile: p, segments: partition(p)}, nil
}

func partition(p Profile) []Segment {
	roundBytes := p.RoundBytes()
	body := p.BodyPackets()
	rem := p.Remainder()

	segs := make([]Segment, 0, p.PacketsPerFrame())
	for r := 0; r < p.Rounds(); r++ {
		start := r * roundBytes
		for i := 0; i < body; i++ {
			segs = append(segs, Segment{
				Round:  r,
				Index:  i,
				Kind:   KindBody,
				Offset: start + i*p.PacketSize,
				Length: p.PacketSize,
			})
		}
		segs = append(segs, Segment{
			Round:  r,
			Index:  body,
			Kind:   KindTail,
			Offset: start + roundBytes - rem,
			Length: rem,
		})
	}
	return segs
}

// Profile returns the profile the plan was built from.
func (pl *Plan) Profile() Profile { return pl.profile }

// Segments returns the frame's segments in wire order.
// The slice is shared; callers must not modify it.
func (pl *Plan) Segments() []Segment { return pl.segments }
