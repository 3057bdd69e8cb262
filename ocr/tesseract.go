package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// upscaleFactor enlarges the captured region before recognition. The game
// renders notification text at roughly 14 px; Tesseract wants ~28 px glyphs.
const upscaleFactor = 2

// TesseractEngine is the default Engine, running a local Tesseract instance
// over a lightly preprocessed frame and reporting one Reading per text line.
type TesseractEngine struct {
	// Lang is the Tesseract language pack, e.g. "eng". Empty uses the default.
	Lang string
}

func (e *TesseractEngine) Recognize(img *image.RGBA) ([]Reading, error) {
	if img == nil {
		return nil, fmt.Errorf("nil frame")
	}
	prepared := prepare(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if e.Lang != "" {
		if err := client.SetLanguage(e.Lang); err != nil {
			return nil, fmt.Errorf("set language %q: %w", e.Lang, err)
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract recognize: %w", err)
	}

	now := time.Now()
	readings := make([]Reading, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		// Map the box back into original region coordinates.
		rect := image.Rect(
			b.Box.Min.X/upscaleFactor, b.Box.Min.Y/upscaleFactor,
			b.Box.Max.X/upscaleFactor, b.Box.Max.Y/upscaleFactor,
		)
		readings = append(readings, Reading{
			Text:       text,
			Confidence: clampUnit(b.Confidence / 100),
			Bbox:       BboxFromRect(rect),
			Timestamp:  now,
		})
	}
	return readings, nil
}

// prepare applies the preprocessing that empirically helps with the game's
// outlined notification font: grayscale, upscale, contrast stretch.
func prepare(img *image.RGBA) image.Image {
	gray := imaging.Grayscale(img)
	scaled := imaging.Resize(gray, img.Bounds().Dx()*upscaleFactor, 0, imaging.Lanczos)
	return imaging.AdjustContrast(scaled, 20)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
