// Package frame provides the shared frame source the detectors sample from.
//
// A [Source] exposes only the newest frame. Readers never consume frames and
// never assume continuity: two consecutive Latest calls may return the same
// frame or skip any number of frames in between.
package frame

import (
	"context"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// Frame is one decoded image from the feed.
//
// A Frame returned by Latest is owned by the caller; the source never
// modifies it after handing it out.
type Frame struct {
	Image image.Image

	// Timestamp is the capture time reported by the publisher.
	Timestamp time.Time

	// Seq increases by one for every published frame. Detectors use it to
	// avoid classifying the same frame twice.
	Seq uint64
}

// Options controls the per-read transformations applied to a frame.
type Options struct {
	// SquareCrop crops the largest centered square.
	SquareCrop bool
	// Enhance raises contrast before classification.
	Enhance bool
}

// Source is the frame acquisition collaborator. Latest must be safe for
// concurrent use; Start and Stop are called once per arbitration run.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	// Latest returns the newest frame transformed by opts, or nil when no
	// frame is available.
	Latest(opts Options) *Frame
}

// enhanceContrast is the percentage passed to imaging.AdjustContrast.
const enhanceContrast = 20

// Apply returns img transformed by opts. The input image is never modified.
func Apply(img image.Image, opts Options) image.Image {
	if img == nil {
		return nil
	}
	out := img
	if opts.SquareCrop {
		b := out.Bounds()
		side := min(b.Dx(), b.Dy())
		out = imaging.CropCenter(out, side, side)
	}
	if opts.Enhance {
		out = imaging.AdjustContrast(out, enhanceContrast)
	}
	return out
}
