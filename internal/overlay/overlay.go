// Package overlay draws exercise feedback onto video frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/necktilt/internal/exercise"
)

// Colours used on the frame.
var (
	ReferenceColor = color.RGBA{R: 0x00, G: 0x33, B: 0x00, A: 0xff}
	IdleColor      = color.RGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xff}
	HoldingColor   = color.RGBA{R: 0xff, G: 0x99, B: 0x00, A: 0xff}
	HeldColor      = color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}
	RingTrackColor = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}
	TextColor      = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const (
	lineThickness = 2
	ringThickness = 4
	fontScale     = 0.6
)

// ToneColor maps a tone to the angle line colour.
func ToneColor(t exercise.Tone) color.RGBA {
	switch t {
	case exercise.ToneHeld:
		return HeldColor
	case exercise.ToneHolding:
		return HoldingColor
	default:
		return IdleColor
	}
}

// Draw renders fb onto img in place. Frames without an overlay only get the
// rep counter.
func Draw(img *gocv.Mat, fb exercise.Feedback) {
	if img == nil || img.Empty() {
		return
	}

	if fb.Overlay != nil {
		drawGeometry(img, fb.Overlay.Scale(img.Cols(), img.Rows()))
	}

	if fb.Status != exercise.StatusStopped {
		hud := fmt.Sprintf("Reps: %d/%d", fb.Reps, fb.Target)
		gocv.PutText(img, hud, image.Pt(10, 24), gocv.FontHersheySimplex, fontScale, TextColor, 2)
	}
}

func drawGeometry(img *gocv.Mat, px exercise.PixelOverlay) {
	gocv.Line(img, px.Reference[0], px.Reference[1], ReferenceColor, lineThickness)
	gocv.Line(img, px.AngleLine[0], px.AngleLine[1], ToneColor(px.Tone), lineThickness)

	// Hershey fonts have no degree glyph.
	label := strings.ReplaceAll(px.Label, "°", " deg")
	gocv.PutText(img, label, px.LabelAt, gocv.FontHersheySimplex, fontScale, TextColor, 2)

	if !px.Ring {
		return
	}
	gocv.Circle(img, px.RingCenter, px.RingRadius, RingTrackColor, ringThickness)
	if px.RingArc <= 0 {
		return
	}
	axes := image.Pt(px.RingRadius, px.RingRadius)
	gocv.Ellipse(img, px.RingCenter, axes, 0, -90, -90+360*px.RingArc, ToneColor(px.Tone), ringThickness)
}
