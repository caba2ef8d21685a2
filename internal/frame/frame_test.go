package frame

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"
)

func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	return img
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantWidth  int
		wantHeight int
	}{
		{"no options", Options{}, 64, 48},
		{"square crop landscape", Options{SquareCrop: true}, 48, 48},
		{"enhance keeps size", Options{Enhance: true}, 64, 48},
		{"crop and enhance", Options{SquareCrop: true, Enhance: true}, 48, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Apply(testImage(64, 48), tt.opts)
			b := out.Bounds()
			if b.Dx() != tt.wantWidth || b.Dy() != tt.wantHeight {
				t.Errorf("Apply() size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantWidth, tt.wantHeight)
			}
		})
	}

	if Apply(nil, Options{SquareCrop: true}) != nil {
		t.Error("Apply(nil) should return nil")
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	src := testImage(8, 8).(*image.NRGBA)
	before := src.NRGBAAt(3, 3)

	Apply(src, Options{SquareCrop: true, Enhance: true})

	if after := src.NRGBAAt(3, 3); after != before {
		t.Errorf("input pixel changed from %v to %v", before, after)
	}
}

func TestMailbox_Lifecycle(t *testing.T) {
	m := NewMailbox()
	m.Publish(testImage(4, 4), time.Now())

	if f := m.Latest(Options{}); f != nil {
		t.Error("stopped mailbox should not hand out frames")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}

	f := m.Latest(Options{})
	if f == nil {
		t.Fatal("running mailbox should hand out the held frame")
	}
	if f.Seq != 1 {
		t.Errorf("Seq = %d, want 1", f.Seq)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if m.Stats().Running {
		t.Error("Stats().Running = true after Stop")
	}
}

func TestMailbox_StartCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMailbox()
	if err := m.Start(ctx); err == nil {
		t.Error("Start() with canceled context should fail")
	}
	if m.Stats().Running {
		t.Error("mailbox should not be running")
	}
}

func TestMailbox_LatestWins(t *testing.T) {
	m := NewMailbox()
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	m.Publish(testImage(4, 4), time.Now())
	m.Publish(testImage(4, 4), time.Now())
	third := m.Publish(testImage(6, 4), time.Now())

	f := m.Latest(Options{SquareCrop: true})
	if f.Seq != third {
		t.Errorf("Latest().Seq = %d, want %d", f.Seq, third)
	}
	if b := f.Image.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("options not applied, got %dx%d", b.Dx(), b.Dy())
	}

	// Reads do not consume.
	if again := m.Latest(Options{}); again == nil || again.Seq != third {
		t.Errorf("second Latest() = %+v, want seq %d", again, third)
	}

	stats := m.Stats()
	if stats.Published != 3 || stats.Overwritten != 2 || stats.Reads != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestMailbox_ConcurrentReaders(t *testing.T) {
	m := NewMailbox()
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Publish(testImage(4, 4), time.Now())
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for i := 0; i < 200; i++ {
				if f := m.Latest(Options{Enhance: true}); f != nil {
					if f.Seq < last {
						t.Errorf("sequence went backwards: %d after %d", f.Seq, last)
						return
					}
					last = f.Seq
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewSynthetic_Validation(t *testing.T) {
	if _, err := NewSynthetic(0, 10, 10); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := NewSynthetic(10, 10, 0); err == nil {
		t.Error("expected error for zero fps")
	}
}

func TestSynthetic_PublishesWhileRunning(t *testing.T) {
	s, err := NewSynthetic(32, 24, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	first := s.Latest(Options{})
	if first == nil {
		t.Fatal("expected a frame right after Start")
	}

	deadline := time.Now().Add(time.Second)
	for {
		f := s.Latest(Options{})
		if f != nil && f.Seq > first.Seq {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no new frame published within 1s")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	published := s.Stats().Published
	time.Sleep(50 * time.Millisecond)
	if got := s.Stats().Published; got != published {
		t.Errorf("frames published after Stop: %d -> %d", published, got)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
