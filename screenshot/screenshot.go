package screenshot

import (
	"errors"
	"fmt"
	"hash/crc32"
	"image"

	"github.com/kbinani/screenshot"
)

// Minimum usable region size. The loot notification stack needs enough
// pixels for five rows of legible text; anything smaller is a misdrag.
const (
	MinWidth  = 300
	MinHeight = 100
)

var ErrInvalidRegion = errors.New("invalid capture region")

// Region is a rectangular screen area in virtual-screen pixel coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Normalized returns a copy with negative width/height (inverted drag
// selection) flipped into a positive rectangle, or ErrInvalidRegion when
// the result is below the minimum size.
func (r Region) Normalized() (Region, error) {
	n := r
	if n.Width < 0 {
		n.X += n.Width
		n.Width = -n.Width
	}
	if n.Height < 0 {
		n.Y += n.Height
		n.Height = -n.Height
	}
	if n.Width < MinWidth || n.Height < MinHeight {
		return Region{}, fmt.Errorf("%w: %dx%d (minimum %dx%d)", ErrInvalidRegion, n.Width, n.Height, MinWidth, MinHeight)
	}
	return n, nil
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

// Capturer grabs the pixels of a screen region. Implementations may fail
// when the region is off-screen or the display is unavailable.
type Capturer interface {
	CaptureRegion(region Region) (*image.RGBA, error)
}

// DesktopCapture is the default Capturer backed by the OS screen grabber.
type DesktopCapture struct{}

func (DesktopCapture) CaptureRegion(region Region) (*image.RGBA, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d height=%d", ErrInvalidRegion, region.Width, region.Height)
	}
	bounds := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}

// NumDisplays reports how many active displays are attached.
func NumDisplays() int {
	return screenshot.NumActiveDisplays()
}

// PrimaryDisplayBounds returns the bounds of display 0.
func PrimaryDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, errors.New("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// Checksum computes a cheap content hash over the raw pixel bytes of a
// frame. Equal checksums on consecutive frames mean the region did not
// change and OCR can be skipped for that tick.
func Checksum(img *image.RGBA) uint32 {
	if img == nil {
		return 0
	}
	return crc32.ChecksumIEEE(img.Pix)
}
