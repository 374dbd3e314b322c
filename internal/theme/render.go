package theme

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"math/rand"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	minFontSize = 10
	fontStep    = 2
	spiralStep  = 0.1
	spiralTurns = 4000
	padding     = 2

	// MinCanvasSize is the smallest width or height a canvas may have
	MinCanvasSize = minFontSize * 2
)

// ErrNoTermFits is returned by Render when not even the smallest font of any
// term fits on the canvas
var ErrNoTermFits = errors.New("no term fits on the canvas")

// Render lays out terms on a white canvas, larger fonts for more frequent
// terms, and encodes it as PNG. Identical terms and seed give identical bytes.
func (e *Extractor) Render(terms []Term) ([]byte, error) {
	width, height := e.cfg.Width, e.cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	faces := make(map[int]font.Face)
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()
	face := func(size int) (font.Face, error) {
		if f, ok := faces[size]; ok {
			return f, nil
		}
		f, err := opentype.NewFace(e.font, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create font face: %w", err)
		}
		faces[size] = f
		return f, nil
	}

	rng := rand.New(rand.NewSource(e.cfg.Seed))
	maxSize := height / 4
	if maxSize < minFontSize {
		maxSize = minFontSize
	}
	maxCount := 1
	if len(terms) > 0 {
		maxCount = terms[0].Count
	}

	var placed []image.Rectangle
	drawn := 0
	for _, term := range terms {
		size := minFontSize + (maxSize-minFontSize)*term.Count/maxCount
		colour := e.palette[rng.Intn(len(e.palette))]
		startX := rng.Intn(width/2) + width/4
		startY := rng.Intn(height/2) + height/4

		for ; size >= minFontSize; size -= fontStep {
			f, err := face(size)
			if err != nil {
				return nil, err
			}
			box, ok := place(f, term.Text, startX, startY, width, height, placed)
			if !ok {
				continue
			}

			d := &font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(colour),
				Face: f,
				Dot:  fixed.P(box.Min.X, box.Min.Y+f.Metrics().Ascent.Ceil()),
			}
			d.DrawString(term.Text)
			placed = append(placed, box.Inset(-padding))
			drawn++
			break
		}
	}

	if drawn == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoTermFits, width, height)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode word cloud: %w", err)
	}
	return buf.Bytes(), nil
}

// place walks an Archimedean spiral out of (cx, cy) until the text box fits
// inside the canvas without touching anything already placed
func place(f font.Face, text string, cx, cy, width, height int, placed []image.Rectangle) (image.Rectangle, bool) {
	metrics := f.Metrics()
	w := font.MeasureString(f, text).Ceil()
	h := (metrics.Ascent + metrics.Descent).Ceil()
	if w >= width || h >= height {
		return image.Rectangle{}, false
	}
	canvas := image.Rect(0, 0, width, height)

	for i := 0; i < spiralTurns; i++ {
		t := float64(i) * spiralStep
		x := cx + int(math.Round(t*math.Cos(t)*4)) - w/2
		y := cy + int(math.Round(t*math.Sin(t)*2)) - h/2
		box := image.Rect(x, y, x+w, y+h)
		if !box.In(canvas) {
			continue
		}
		if !overlaps(box, placed) {
			return box, true
		}
	}
	return image.Rectangle{}, false
}

func overlaps(box image.Rectangle, placed []image.Rectangle) bool {
	for _, p := range placed {
		if box.Overlaps(p) {
			return true
		}
	}
	return false
}
