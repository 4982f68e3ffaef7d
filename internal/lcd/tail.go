package lcd

import "fmt"

// Tail materializes the tail packet of seg's round: TailFill everywhere,
// then the remainder pixels, then the trailer. A nil trailer is sent as zeros.
func (pl *Plan) Tail(pixels []byte, seg Segment, trailer []byte) ([]byte, error) {
	p := pl.profile
	if seg.Kind != KindTail {
		return nil, fmt.Errorf("lcd: segment %d of round %d is not a tail", seg.Index, seg.Round)
	}
	if len(pixels) != p.FrameSize() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(pixels), p.FrameSize())
	}
	if trailer != nil && len(trailer) != p.TrailerSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrTrailerSize, len(trailer), p.TrailerSize)
	}

	tail := make([]byte, p.TailSize)
	for i := range tail {
		tail[i] = TailFill
	}
	n := copy(tail, pixels[seg.Offset:seg.Offset+seg.Length])

	dst := tail[n : n+p.TrailerSize]
	if trailer == nil {
		clear(dst)
	} else {
		copy(dst, trailer)
	}
	return tail, nil
}
