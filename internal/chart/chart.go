// Package chart renders the sentiment distribution as a pie or bar chart.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sort"

	"crisis-monitor/internal/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Kind selects the chart type
type Kind string

const (
	Pie Kind = "pie"
	Bar Kind = "bar"
)

// FallbackColor is used for labels outside the color table
const FallbackColor = "333333"

var colors = map[models.Label]string{
	models.Positive: "2ecc71",
	models.Negative: "e74c3c",
	models.Neutral:  "95a5a6",
}

// Color returns the fill color of a label
func Color(label models.Label) drawing.Color {
	if hex, ok := colors[label]; ok {
		return drawing.ColorFromHex(hex)
	}
	return drawing.ColorFromHex(FallbackColor)
}

// Slice is one non-empty label of the distribution
type Slice struct {
	Label      models.Label
	Count      int
	Percentage float64
}

// Caption is the text drawn on the slice or bar
func (s Slice) Caption() string {
	return fmt.Sprintf("%s %.1f%%", s.Label, s.Percentage)
}

// Renderer draws label counts
type Renderer struct {
	kind   Kind
	width  int
	height int
}

// New creates a renderer for the given kind
func New(kind Kind, width, height int) (*Renderer, error) {
	switch kind {
	case "":
		kind = Pie
	case Pie, Bar:
	default:
		return nil, fmt.Errorf("unknown chart kind %q", kind)
	}
	if width <= 0 {
		width = 500
	}
	if height <= 0 {
		height = 400
	}
	return &Renderer{kind: kind, width: width, height: height}, nil
}

// Render returns the chart as PNG. An all-zero distribution gives a blank canvas.
func (r *Renderer) Render(counts map[models.Label]int) ([]byte, error) {
	slices := Slices(counts)
	if len(slices) == 0 {
		return r.blank()
	}

	values := make([]chart.Value, len(slices))
	for i, s := range slices {
		values[i] = chart.Value{
			Label: s.Caption(),
			Value: float64(s.Count),
			Style: chart.Style{
				FillColor:   Color(s.Label),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		}
	}

	var buf bytes.Buffer
	var err error
	switch r.kind {
	case Bar:
		err = r.bar(values, slices[0].Count).Render(chart.PNG, &buf)
	default:
		pie := chart.PieChart{
			Width:  r.width,
			Height: r.height,
			Values: values,
		}
		err = pie.Render(chart.PNG, &buf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", r.kind, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) bar(values []chart.Value, maxCount int) chart.BarChart {
	step := r.width / (2 * (len(values) + 1))
	return chart.BarChart{
		Width:      r.width,
		Height:     r.height,
		BarWidth:   step,
		BarSpacing: step,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		},
		Bars: values,
	}
}

func (r *Renderer) blank() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode blank chart: %w", err)
	}
	return buf.Bytes(), nil
}

// Slices drops empty labels and orders the rest by count, ties broken by the
// display order of models.Labels and then by name
func Slices(counts map[models.Label]int) []Slice {
	total := 0
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}
	if total == 0 {
		return nil
	}

	slices := make([]Slice, 0, len(counts))
	for label, c := range counts {
		if c <= 0 {
			continue
		}
		slices = append(slices, Slice{
			Label:      label,
			Count:      c,
			Percentage: 100 * float64(c) / float64(total),
		})
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Count != slices[j].Count {
			return slices[i].Count > slices[j].Count
		}
		oi, oj := order(slices[i].Label), order(slices[j].Label)
		if oi != oj {
			return oi < oj
		}
		return slices[i].Label < slices[j].Label
	})
	return slices
}

func order(label models.Label) int {
	for i, l := range models.Labels {
		if l == label {
			return i
		}
	}
	return len(models.Labels)
}
