package audio

import (
	"sync"

	"github.com/spaghettifunk/spectra/engine/containers"
)

// Frame is one analysis result handed from a producer to the frame loop.
type Frame struct {
	// Magnitudes are written verbatim into the DFT buffer.
	Magnitudes []float32
	Beat       bool
}

// Mailbox is a bounded queue between one producer goroutine and the frame
// loop. Posting never blocks: when the queue is full the oldest frame is
// dropped.
type Mailbox struct {
	mu      sync.Mutex
	queue   *containers.RingQueue[Frame]
	dropped uint64
}

func NewMailbox(capacity int) *Mailbox {
	if capacity < 1 {
		capacity = 1
	}
	return &Mailbox{queue: containers.NewRingQueue[Frame](capacity)}
}

func (m *Mailbox) Post(f Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queue.IsFull() {
		_, _ = m.queue.Dequeue()
		m.dropped++
	}
	_ = m.queue.Enqueue(f)
}

// Drain removes and returns every queued frame, oldest first.
func (m *Mailbox) Drain() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, 0, m.queue.Len())
	for !m.queue.IsEmpty() {
		f, _ := m.queue.Dequeue()
		out = append(out, f)
	}
	return out
}

// Latest empties the mailbox and returns the newest frame. Beat is set when
// any drained frame was a beat so none are lost between two ticks.
func (m *Mailbox) Latest() (Frame, bool) {
	frames := m.Drain()
	if len(frames) == 0 {
		return Frame{}, false
	}
	latest := frames[len(frames)-1]
	for _, f := range frames[:len(frames)-1] {
		latest.Beat = latest.Beat || f.Beat
	}
	return latest, true
}

// Dropped counts frames discarded because the consumer fell behind.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
