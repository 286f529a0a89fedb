// Package render draws tick sequences as piano-roll images
package render

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/tickseq/tickseq/pkg/converter"
	"github.com/tickseq/tickseq/pkg/mapping"
	"github.com/tickseq/tickseq/pkg/normalize"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// Options controls the size and decoration of the image
type Options struct {
	Width  int
	Height int
	Labels bool // octave labels on the left edge
}

// DefaultOptions is a 1280x720 roll with labels
var DefaultOptions = Options{Width: 1280, Height: 720, Labels: true}

// MaxSide bounds either image dimension
const MaxSide = 8192

var errEmpty = errors.New("nothing to render")

type color struct{ r, g, b float64 }

var palette = []color{
	{0.35, 0.65, 0.95},
	{0.95, 0.55, 0.25},
	{0.45, 0.85, 0.45},
	{0.85, 0.40, 0.75},
	{0.95, 0.85, 0.30},
}

const (
	margin   = 36.0
	laneFrac = 0.2 // share of the height given to the controller lane
)

type layout struct {
	x0, x1     float64
	rollTop    float64
	rollBottom float64
	laneTop    float64
	laneBottom float64
	end        float64
}

func (l layout) x(t float64) float64 {
	return l.x0 + (t/l.end)*(l.x1-l.x0)
}

// y returns the top of the row for a MIDI pitch
func (l layout) y(pitch uint8) float64 {
	row := (l.rollBottom - l.rollTop) / 128
	return l.rollBottom - float64(int(pitch)+1)*row
}

func (l layout) laneY(v float64) float64 {
	return l.laneBottom - v*(l.laneBottom-l.laneTop)
}

// Render draws seq: paired notes on a 128-row roll, and controller and bend
// values in a lane underneath.
func Render(seq *sequence.Sequence, opts Options) (image.Image, error) {
	dc, err := draw(seq, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders seq and encodes it as PNG
func WritePNG(w io.Writer, seq *sequence.Sequence, opts Options) error {
	dc, err := draw(seq, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// SavePNG renders seq into a PNG file
func SavePNG(path string, seq *sequence.Sequence, opts Options) error {
	dc, err := draw(seq, opts)
	if err != nil {
		return err
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func draw(seq *sequence.Sequence, opts Options) (*gg.Context, error) {
	if seq == nil || seq.Len() == 0 {
		return nil, errEmpty
	}
	if opts.Width <= 2*margin || opts.Height <= 2*margin {
		return nil, fmt.Errorf("image too small: %dx%d", opts.Width, opts.Height)
	}
	if opts.Width > MaxSide || opts.Height > MaxSide {
		return nil, fmt.Errorf("image too large: %dx%d (max side %d)", opts.Width, opts.Height, MaxSide)
	}

	w, h := float64(opts.Width), float64(opts.Height)
	laneH := (h - 2*margin) * laneFrac
	l := layout{
		x0:         margin,
		x1:         w - margin/2,
		rollTop:    margin / 2,
		rollBottom: h - margin - laneH,
		laneTop:    h - margin - laneH + 6,
		laneBottom: h - margin,
		end:        seq.End(),
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(0.12, 0.12, 0.12)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	drawGrid(dc, l)
	if opts.Labels {
		if err := drawLabels(dc, l); err != nil {
			return nil, err
		}
	}
	drawNotes(dc, l, seq)
	drawLane(dc, l, seq)
	return dc, nil
}

func drawGrid(dc *gg.Context, l layout) {
	dc.SetLineWidth(0.5)
	for octave := 0; octave <= 10; octave++ {
		y := l.y(uint8(octave*12)) + (l.rollBottom-l.rollTop)/128
		dc.SetRGBA(1, 1, 1, 0.15)
		dc.DrawLine(l.x0, y, l.x1, y)
		dc.Stroke()
	}

	// one line per second
	for s := 0.0; s <= l.end; s++ {
		x := l.x(s)
		dc.SetRGBA(1, 1, 1, 0.08)
		dc.DrawLine(x, l.rollTop, x, l.laneBottom)
		dc.Stroke()
	}

	dc.SetRGBA(1, 1, 1, 0.3)
	dc.DrawRectangle(l.x0, l.laneTop, l.x1-l.x0, l.laneBottom-l.laneTop)
	dc.Stroke()
}

func drawLabels(dc *gg.Context, l layout) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to load font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 10}))

	dc.SetRGBA(1, 1, 1, 0.6)
	for octave := 0; octave <= 10; octave++ {
		y := l.y(uint8(octave*12)) + (l.rollBottom-l.rollTop)/128
		dc.DrawStringAnchored(fmt.Sprintf("C%d", octave-1), l.x0-4, y, 1, 0)
	}
	dc.DrawStringAnchored("cc", l.x0-4, l.laneBottom, 1, 0)
	dc.DrawStringAnchored(fmt.Sprintf("%.2fs", l.end), l.x1, l.laneBottom+4, 1, 1)
	return nil
}

func drawNotes(dc *gg.Context, l layout, seq *sequence.Sequence) {
	row := (l.rollBottom - l.rollTop) / 128
	m := converter.NewNoteMatcher()
	for i := range seq.Ticks {
		tk := &seq.Ticks[i]
		for _, ev := range tk.Notes {
			if ev.Kind == sequence.NoteStart {
				m.Start(ev, tk.Time)
				continue
			}
			n, ok := m.End(ev, tk.Time)
			if !ok {
				continue
			}
			noteRect(dc, l, row, n.Pitch, n.Velocity, n.Start, n.End)
		}
	}
	// unfinished notes run to the end of the roll
	for _, n := range m.Finish() {
		noteRect(dc, l, row, normalize.DenormalizeNote(n.Pitch), normalize.DenormalizeNote(n.Velocity), n.Start, l.end)
	}
}

func noteRect(dc *gg.Context, l layout, row float64, pitch, velocity uint8, start, end float64) {
	c := palette[int(pitch)%12%len(palette)]
	shade := 0.4 + 0.6*float64(velocity)/127
	x := l.x(start)
	width := math.Max(l.x(end)-x, 1)

	dc.DrawRectangle(x, l.y(pitch), width, math.Max(row, 1))
	dc.SetRGB(c.r*shade, c.g*shade, c.b*shade)
	dc.FillPreserve()
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.SetLineWidth(0.5)
	dc.Stroke()
}

func drawLane(dc *gg.Context, l layout, seq *sequence.Sequence) {
	for i := range seq.Ticks {
		tk := &seq.Ticks[i]
		x := l.x(tk.Time)
		for _, cc := range tk.ControlChanges {
			c := palette[(cc.Number%len(palette)+len(palette))%len(palette)]
			dc.SetRGB(c.r, c.g, c.b)
			if cc.Value.Type == mapping.Category {
				dc.DrawLine(x, l.laneTop, x, l.laneBottom)
				dc.SetLineWidth(1)
				dc.Stroke()
				continue
			}
			dc.DrawCircle(x, l.laneY(unit(cc.Value.Number())), 2)
			dc.Fill()
		}
		for _, b := range tk.PitchBends {
			dc.SetRGB(0.9, 0.9, 0.9)
			dc.DrawCircle(x, l.laneY((b.Value+1)/2), 1.5)
			dc.Fill()
		}
	}
}

func unit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
