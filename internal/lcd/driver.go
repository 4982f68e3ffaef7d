package lcd

import (
	"fmt"
	"log/slog"
	"time"
)

// BulkWriter is the write half of a claimed USB session.
type BulkWriter interface {
	BulkWrite(endpoint uint8, p []byte, timeout time.Duration) (int, error)
}

// TrailerSource supplies the configuration trailer. It is read once per
// round, so a producer updating it mid-frame affects the later rounds.
type TrailerSource interface {
	Trailer() []byte
}

// TrailerFunc adapts a function to TrailerSource.
type TrailerFunc func() []byte

func (f TrailerFunc) Trailer() []byte { return f() }

// Stats describes what a SendFrame call put on the wire.
type Stats struct {
	Rounds  int // completed rounds
	Packets int
	Bytes   int
	Elapsed time.Duration
}

// Driver streams frames through a BulkWriter following a Plan.
// A Driver is not safe for concurrent use.
type Driver struct {
	plan  *Plan
	w     BulkWriter
	sleep func(time.Duration)
}

// NewDriver returns a Driver writing plan's segments to w.
func NewDriver(plan *Plan, w BulkWriter) *Driver {
	return &Driver{plan: plan, w: w, sleep: time.Sleep}
}

// SendFrame writes one frame: every round's body packets followed by its tail
// packet, pausing RoundDelay between rounds. The first failed or short write
// aborts the frame with a *TransferError; nothing is retried.
// The trailer is read once per round. A wrong-sized first trailer is
// rejected before anything is written; a later one aborts the frame with a
// *TransferError carrying the round.
// pixels is only read, and must not be modified until SendFrame returns.
func (d *Driver) SendFrame(pixels []byte, src TrailerSource) (st Stats, err error) {
	p := d.plan.profile
	if len(pixels) != p.FrameSize() {
		return st, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(pixels), p.FrameSize())
	}

	trailer, err := d.trailer(src)
	if err != nil {
		return st, err
	}

	start := time.Now()
	defer func() { st.Elapsed = time.Since(start) }()

	last := p.Rounds() - 1
	for _, seg := range d.plan.segments {
		buf := pixels[seg.Offset : seg.Offset+seg.Length]
		if seg.Kind == KindTail {
			if seg.Round > 0 {
				if trailer, err = d.trailer(src); err != nil {
					return st, &TransferError{Round: seg.Round, Packet: seg.Index, Kind: seg.Kind, Err: err}
				}
			}
			tail, terr := d.plan.Tail(pixels, seg, trailer)
			if terr != nil {
				return st, &TransferError{Round: seg.Round, Packet: seg.Index, Kind: seg.Kind, Err: terr}
			}
			buf = tail
		}

		var n int
		n, err = d.w.BulkWrite(p.Endpoint, buf, p.Timeout)
		if err == nil && n != len(buf) {
			err = fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(buf))
		}
		if err != nil {
			slog.Debug("frame aborted", "round", seg.Round, "packet", seg.Index, "kind", seg.Kind, "err", err)
			return st, &TransferError{Round: seg.Round, Packet: seg.Index, Kind: seg.Kind, Written: n, Err: err}
		}
		st.Packets++
		st.Bytes += n

		if seg.Kind == KindTail {
			st.Rounds++
			slog.Debug("round sent", "round", seg.Round, "packets", seg.Index+1)
			if seg.Round < last && p.RoundDelay > 0 {
				d.sleep(p.RoundDelay)
			}
		}
	}
	return st, nil
}

func (d *Driver) trailer(src TrailerSource) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	t := src.Trailer()
	if want := d.plan.profile.TrailerSize; t != nil && len(t) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrTrailerSize, len(t), want)
	}
	return t, nil
}
