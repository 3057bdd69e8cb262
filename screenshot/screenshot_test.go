package screenshot

import (
	"errors"
	"image"
	"testing"
)

func TestNormalizedInvertedSelection(t *testing.T) {
	r := Region{X: 500, Y: 400, Width: -400, Height: -200}
	n, err := r.Normalized()
	if err != nil {
		t.Fatalf("Normalized: %v", err)
	}
	want := Region{X: 100, Y: 200, Width: 400, Height: 200}
	if n != want {
		t.Errorf("got %+v, want %+v", n, want)
	}
}

func TestNormalizedKeepsValidRegion(t *testing.T) {
	r := Region{X: 10, Y: 20, Width: 320, Height: 150}
	n, err := r.Normalized()
	if err != nil {
		t.Fatalf("Normalized: %v", err)
	}
	if n != r {
		t.Errorf("got %+v, want %+v", n, r)
	}
}

func TestNormalizedRejectsTooSmall(t *testing.T) {
	cases := []Region{
		{Width: 299, Height: 100},
		{Width: 300, Height: 99},
		{Width: 0, Height: 0},
		{Width: -100, Height: -50},
	}
	for _, r := range cases {
		if _, err := r.Normalized(); !errors.Is(err, ErrInvalidRegion) {
			t.Errorf("region %+v: got err %v, want ErrInvalidRegion", r, err)
		}
	}
}

func TestChecksumDetectsChange(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 8, 8))
	b := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if Checksum(a) != Checksum(b) {
		t.Fatal("identical frames should hash equal")
	}
	b.Pix[0] = 0xFF
	if Checksum(a) == Checksum(b) {
		t.Fatal("changed frame should hash differently")
	}
	if Checksum(nil) != 0 {
		t.Fatal("nil frame should hash to zero")
	}
}
