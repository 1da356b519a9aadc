// Package exif reads and rewrites the orientation tag of JPEG stills and
// applies device-specific orientation corrections after a capture.
package exif

import "fmt"

// Orientation is the value of the EXIF Orientation tag (0x0112).
type Orientation uint16

const (
	Undefined      Orientation = 0
	Normal         Orientation = 1
	FlipHorizontal Orientation = 2
	Rotate180      Orientation = 3
	FlipVertical   Orientation = 4
	Transpose      Orientation = 5
	Rotate90       Orientation = 6
	Transverse     Orientation = 7
	Rotate270      Orientation = 8
)

// Orientations in clockwise order, plain and mirrored.
var (
	rotationOrder        = [4]Orientation{Normal, Rotate90, Rotate180, Rotate270}
	flippedRotationOrder = [4]Orientation{FlipHorizontal, Transverse, FlipVertical, Transpose}
)

func (o Orientation) String() string {
	switch o {
	case Normal:
		return "normal"
	case FlipHorizontal:
		return "flip-horizontal"
	case Rotate180:
		return "rotate-180"
	case FlipVertical:
		return "flip-vertical"
	case Transpose:
		return "transpose"
	case Rotate90:
		return "rotate-90"
	case Transverse:
		return "transverse"
	case Rotate270:
		return "rotate-270"
	default:
		return fmt.Sprintf("undefined(%d)", uint16(o))
	}
}

// Valid reports whether o is one of the eight defined orientations.
func (o Orientation) Valid() bool {
	return o >= Normal && o <= Rotate270
}

func indexOf(order [4]Orientation, o Orientation) int {
	for i, v := range order {
		if v == o {
			return i
		}
	}
	return -1
}

// Rotate composes a clockwise rotation onto o. degrees must be a multiple
// of 90. An undefined orientation stays undefined.
func (o Orientation) Rotate(degrees int) (Orientation, error) {
	if degrees%90 != 0 {
		return o, fmt.Errorf("exif: rotation %d is not a multiple of 90", degrees)
	}
	steps := ((degrees/90)%4 + 4) % 4
	if i := indexOf(rotationOrder, o); i >= 0 {
		return rotationOrder[(i+steps)%4], nil
	}
	if i := indexOf(flippedRotationOrder, o); i >= 0 {
		return flippedRotationOrder[(i+steps)%4], nil
	}
	return Undefined, nil
}

// FlipHorizontally composes a left-right mirror onto o. An undefined
// orientation stays undefined.
func (o Orientation) FlipHorizontally() Orientation {
	switch o {
	case FlipHorizontal:
		return Normal
	case Rotate180:
		return FlipVertical
	case FlipVertical:
		return Rotate180
	case Transpose:
		return Rotate270
	case Rotate270:
		return Transpose
	case Transverse:
		return Rotate90
	case Rotate90:
		return Transverse
	case Normal:
		return FlipHorizontal
	default:
		return Undefined
	}
}

// FlipVertically composes a top-bottom mirror onto o. An undefined
// orientation stays undefined.
func (o Orientation) FlipVertically() Orientation {
	switch o {
	case FlipHorizontal:
		return Rotate180
	case Rotate180:
		return FlipHorizontal
	case FlipVertical:
		return Normal
	case Transpose:
		return Rotate90
	case Rotate270:
		return Transverse
	case Transverse:
		return Rotate270
	case Rotate90:
		return Transpose
	case Normal:
		return FlipVertical
	default:
		return Undefined
	}
}
