package exif

import (
	"bytes"
	"errors"
	"fmt"

	goexif "github.com/dsoprea/go-exif/v3"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

var (
	ErrNotJPEG     = errors.New("exif: not a jpeg stream")
	ErrInvalidExif = errors.New("exif: invalid exif data")
)

const (
	tagOrientation     = 0x0112
	tagNameOrientation = "Orientation"
)

// parseSegments splits jpg into its marker segments.
func parseSegments(jpg []byte) (*jpegstructure.SegmentList, error) {
	jmp := jpegstructure.NewJpegMediaParser()
	if !jmp.LooksLikeFormat(jpg) {
		return nil, ErrNotJPEG
	}
	mc, err := jmp.ParseBytes(jpg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJPEG, err)
	}
	sl, ok := mc.(*jpegstructure.SegmentList)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected media context %T", ErrNotJPEG, mc)
	}
	return sl, nil
}

func exifSegments(sl *jpegstructure.SegmentList) int {
	n := 0
	for _, s := range sl.Segments() {
		if s.IsExif() {
			n++
		}
	}
	return n
}

// rootIfd returns IFD0, or nil when the stream carries no EXIF segment.
func rootIfd(sl *jpegstructure.SegmentList) (*goexif.Ifd, error) {
	if exifSegments(sl) == 0 {
		return nil, nil
	}
	ifd, _, err := sl.Exif()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExif, err)
	}
	return ifd, nil
}

// ReadOrientation returns the orientation stored in jpg. A stream without
// EXIF data or without the tag reads as Normal.
func ReadOrientation(jpg []byte) (Orientation, error) {
	sl, err := parseSegments(jpg)
	if err != nil {
		return Undefined, err
	}
	ifd, err := rootIfd(sl)
	if err != nil || ifd == nil {
		return Normal, err
	}
	for _, ite := range ifd.Entries() {
		if ite.TagId() != tagOrientation {
			continue
		}
		v, err := ite.Value()
		if err != nil {
			return Undefined, fmt.Errorf("%w: orientation value: %v", ErrInvalidExif, err)
		}
		shorts, ok := v.([]uint16)
		if !ok || len(shorts) == 0 {
			return Undefined, fmt.Errorf("%w: orientation has type %T", ErrInvalidExif, v)
		}
		return Orientation(shorts[0]), nil
	}
	return Normal, nil
}

// SetOrientation returns a copy of jpg whose EXIF orientation is o. Other
// IFD0 tags are carried over; a missing EXIF segment is created.
func SetOrientation(jpg []byte, o Orientation) ([]byte, error) {
	sl, err := parseSegments(jpg)
	if err != nil {
		return nil, err
	}
	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExif, err)
	}
	if err := rootIb.SetStandardWithName(tagNameOrientation, []uint16{uint16(o)}); err != nil {
		return nil, fmt.Errorf("set orientation tag: %w", err)
	}
	if err := sl.SetExif(rootIb); err != nil {
		return nil, fmt.Errorf("encode exif: %w", err)
	}

	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return nil, fmt.Errorf("write jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
