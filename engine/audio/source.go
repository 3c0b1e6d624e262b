package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/spaghettifunk/spectra/engine/core"
)

// Source produces frames into a mailbox until ctx is done. Capture and
// spectral analysis live behind it.
type Source interface {
	Run(ctx context.Context, out *Mailbox) error
}

// Start runs src on its own goroutine. The returned channel yields the
// source's error, if any, and is closed when it stops.
func Start(ctx context.Context, src Source, out *Mailbox) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		if err := src.Run(ctx, out); err != nil && !errors.Is(err, context.Canceled) {
			core.LogError("audio source stopped: %s", err)
			errc <- err
		}
	}()
	return errc
}

// Synth is a Source without an input device: a peak sweeping across the
// bins with a beat every BeatEvery frames.
type Synth struct {
	Bins      int
	Interval  time.Duration
	BeatEvery int
}

func (s *Synth) Run(ctx context.Context, out *Mailbox) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		out.Post(s.Frame(n))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Frame computes the nth frame.
func (s *Synth) Frame(n int) Frame {
	mags := make([]float32, s.Bins)
	if s.Bins > 0 {
		peak := float64(n % s.Bins)
		width := math.Max(float64(s.Bins)/16, 1)
		for i := range mags {
			d := (float64(i) - peak) / width
			mags[i] = float32(math.Exp(-d * d))
		}
	}
	return Frame{
		Magnitudes: mags,
		Beat:       s.BeatEvery > 0 && n%s.BeatEvery == 0,
	}
}
