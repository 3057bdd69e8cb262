package ocr

import (
	"context"
	"image"
	"time"
)

// Point is one corner of a recognized fragment's bounding polygon,
// in region-local pixel coordinates.
type Point struct {
	X int
	Y int
}

// Reading is a single recognized text fragment from one captured frame.
type Reading struct {
	Text       string
	Confidence float64 // 0..1
	Bbox       [4]Point
	Timestamp  time.Time
}

// Top returns the smallest Y of the bounding polygon. The dedup filter
// buckets readings into notification rows by this value.
func (r Reading) Top() int {
	top := r.Bbox[0].Y
	for _, p := range r.Bbox[1:] {
		if p.Y < top {
			top = p.Y
		}
	}
	return top
}

// BboxFromRect builds the 4-point polygon for an axis-aligned rectangle.
func BboxFromRect(rect image.Rectangle) [4]Point {
	return [4]Point{
		{rect.Min.X, rect.Min.Y},
		{rect.Max.X, rect.Min.Y},
		{rect.Max.X, rect.Max.Y},
		{rect.Min.X, rect.Max.Y},
	}
}

// Engine turns a captured frame into recognized text fragments.
// Implementations may block; callers bound them with RecognizeWithContext.
type Engine interface {
	Recognize(img *image.RGBA) ([]Reading, error)
}

// RecognizeWithContext runs the engine in a sub-goroutine and respects the
// context deadline. On timeout the engine keeps running in the background;
// its late result is discarded so the next tick is never blocked.
func RecognizeWithContext(ctx context.Context, engine Engine, img *image.RGBA) ([]Reading, error) {
	if _, ok := ctx.Deadline(); !ok {
		return engine.Recognize(img)
	}
	resCh := make(chan struct {
		readings []Reading
		err      error
	}, 1)
	go func() {
		readings, err := engine.Recognize(img)
		resCh <- struct {
			readings []Reading
			err      error
		}{readings, err}
	}()
	select {
	case r := <-resCh:
		return r.readings, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
