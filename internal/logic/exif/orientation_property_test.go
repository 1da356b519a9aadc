package exif

import (
	"testing"

	"pgregory.net/rapid"
)

func drawOrientation(t *rapid.T) Orientation {
	return Orientation(rapid.IntRange(int(Normal), int(Rotate270)).Draw(t, "orientation"))
}

func drawDegrees(t *rapid.T, label string) int {
	return rapid.IntRange(-8, 8).Draw(t, label) * 90
}

// Flipping twice along the same axis restores the original orientation.
func TestProperty_FlipsAreInvolutions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		o := drawOrientation(rt)
		if got := o.FlipHorizontally().FlipHorizontally(); got != o {
			rt.Errorf("double horizontal flip of %s = %s", o, got)
		}
		if got := o.FlipVertically().FlipVertically(); got != o {
			rt.Errorf("double vertical flip of %s = %s", o, got)
		}
	})
}

// Rotations compose additively and stay within the defined orientations.
func TestProperty_RotationsCompose(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		o := drawOrientation(rt)
		a := drawDegrees(rt, "a")
		b := drawDegrees(rt, "b")

		ab, err := o.Rotate(a)
		if err != nil {
			rt.Fatal(err)
		}
		ab, _ = ab.Rotate(b)
		sum, _ := o.Rotate(a + b)
		if ab != sum {
			rt.Errorf("%s rotated %d then %d = %s, rotated %d = %s", o, a, b, ab, a+b, sum)
		}
		if !ab.Valid() {
			rt.Errorf("rotation produced invalid orientation %d", ab)
		}
	})
}

// Flipping both axes is the same as a half turn.
func TestProperty_BothFlipsEqualHalfTurn(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		o := drawOrientation(rt)
		half, _ := o.Rotate(180)
		if got := o.FlipHorizontally().FlipVertically(); got != half {
			rt.Errorf("flip h+v of %s = %s, want %s", o, got, half)
		}
	})
}

// Any orientation written to a JPEG reads back unchanged.
func TestProperty_SetThenReadOrientation(t *testing.T) {
	base := encodeJPEG(t)
	rapid.Check(t, func(rt *rapid.T) {
		o := drawOrientation(rt)
		out, err := SetOrientation(base, o)
		if err != nil {
			rt.Fatal(err)
		}
		got, err := ReadOrientation(out)
		if err != nil {
			rt.Fatal(err)
		}
		if got != o {
			rt.Errorf("read %s after writing %s", got, o)
		}
	})
}
