package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync/atomic"
)

// FrameSource yields the encoded still for a capture once the shutter fired.
type FrameSource interface {
	Next() (Image, error)
}

// SyntheticSource renders a gradient JPEG of the configured size. It stands
// in for the card reader or tether link when no real frame feed exists.
type SyntheticSource struct {
	Width    int
	Height   int
	Rotation int
	Quality  int

	count atomic.Int64
}

// Next encodes a new frame. Each frame is shifted so consecutive stills differ.
func (s *SyntheticSource) Next() (Image, error) {
	w, h := s.Width, s.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("synthetic source: invalid size %dx%d", w, h)
	}
	n := uint8(s.count.Add(1))

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*255/w) + n})
		}
	}

	q := s.Quality
	if q <= 0 {
		q = 85
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("synthetic source: encode: %w", err)
	}
	return &Frame{
		Data:     buf.Bytes(),
		W:        w,
		H:        h,
		Encoding: FormatJPEG,
		Rotation: s.Rotation,
	}, nil
}

// FrameSourceFunc adapts a function to FrameSource.
type FrameSourceFunc func() (Image, error)

func (f FrameSourceFunc) Next() (Image, error) { return f() }
