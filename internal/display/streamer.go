package display

import (
	"context"
	"log/slog"
	"time"
)

// maxTransferFailures is how many frames in a row may fail on the wire
// before the session is torn down and reopened.
const maxTransferFailures = 3

// Streamer sends the canvas to the display at a fixed rate, reconnecting
// when the device goes away.
type Streamer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartStreamer begins refreshing d from c every interval. Stop the returned
// Streamer (or cancel ctx) to end it.
func StartStreamer(ctx context.Context, d *Display, c *Canvas, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		slog.Info("streaming started", "interval", interval)
		failures := 0
		for {
			if !d.Connected() {
				if err := d.ConnectRetry(ctx, 0); err != nil {
					if ctx.Err() != nil {
						slog.Info("streaming stopped")
						return
					}
					slog.Error("connect failed", "err", err)
				}
			}

			pix, _ := c.Snapshot()
			if _, err := d.Show(pix); err != nil {
				failures++
				slog.Warn("frame failed", "err", err, "consecutive", failures)
				if IsReconnect(err) || failures >= maxTransferFailures {
					d.Disconnect()
					failures = 0
				}
			} else {
				failures = 0
			}

			select {
			case <-ctx.Done():
				slog.Info("streaming stopped")
				return
			case <-ticker.C:
			}
		}
	}()

	return &Streamer{cancel: cancel, done: done}
}

// Stop stops the streamer and waits for the in-flight frame to finish.
func (s *Streamer) Stop() {
	s.cancel()
	<-s.done
}
