package frame

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// Synthetic is a Source that publishes generated frames at a fixed rate.
// It stands in for a camera when arbitration is driven by scripted
// classifiers.
type Synthetic struct {
	*Mailbox

	width, height int
	interval      time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSynthetic creates a Synthetic source producing width×height frames at
// fps frames per second.
func NewSynthetic(width, height int, fps float64) (*Synthetic, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %v", fps)
	}
	return &Synthetic{
		Mailbox:  NewMailbox(),
		width:    width,
		height:   height,
		interval: time.Duration(float64(time.Second) / fps),
	}, nil
}

// Start starts the mailbox and the publishing goroutine. The first frame is
// published before Start returns.
func (s *Synthetic) Start(ctx context.Context) error {
	if err := s.Mailbox.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The publisher outlives the Start call, so it gets its own context.
	pubCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.publish()
	go s.loop(pubCtx, s.done)
	return nil
}

// Stop stops the publishing goroutine, waits for it and stops the mailbox.
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.Mailbox.Stop()
}

func (s *Synthetic) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publish()
		}
	}
}

func (s *Synthetic) publish() {
	seq := s.Stats().Published
	shade := uint8(seq % 256)
	img := imaging.New(s.width, s.height, color.NRGBA{R: shade, G: shade, B: shade, A: 255})
	s.Publish(img, time.Now())
}
