package frame

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

// Stats is a snapshot of Mailbox counters.
type Stats struct {
	Published uint64
	// Overwritten counts frames replaced before any reader saw them.
	Overwritten uint64
	Reads       uint64
	Running     bool
}

// Mailbox is a Source backed by a single-slot "latest frame wins" mailbox.
// A publisher (camera reader, stream decoder, test) calls Publish; detectors
// call Latest. Old frames are dropped, never queued.
type Mailbox struct {
	mu      sync.Mutex
	latest  *Frame
	read    bool // whether latest has been returned by Latest
	running bool
	seq     uint64
	stats   Stats
}

// NewMailbox creates an empty, stopped Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Start marks the mailbox as running. Frames are only handed out while
// running. Starting a running mailbox is an error.
func (m *Mailbox) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("mailbox already started")
	}
	m.running = true
	return nil
}

// Stop marks the mailbox as stopped and drops the held frame. It is safe to
// call Stop more than once.
func (m *Mailbox) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.latest = nil
	return nil
}

// Publish stores img as the newest frame and returns its sequence number.
// Publishing while stopped is allowed and simply replaces the slot.
func (m *Mailbox) Publish(img image.Image, ts time.Time) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.latest != nil && !m.read {
		m.stats.Overwritten++
	}
	m.seq++
	m.latest = &Frame{Image: img, Timestamp: ts, Seq: m.seq}
	m.read = false
	m.stats.Published++
	return m.seq
}

// Latest implements Source.
func (m *Mailbox) Latest(opts Options) *Frame {
	m.mu.Lock()
	if !m.running || m.latest == nil {
		m.mu.Unlock()
		return nil
	}
	f := *m.latest
	m.read = true
	m.stats.Reads++
	m.mu.Unlock()

	// Transformations run outside the lock; Apply never mutates f.Image.
	f.Image = Apply(f.Image, opts)
	return &f
}

// Stats returns a snapshot of the mailbox counters.
func (m *Mailbox) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Running = m.running
	return s
}
