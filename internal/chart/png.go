package chart

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PNG output size.
const (
	PNGWidth  = 10 * vg.Inch
	PNGHeight = 6 * vg.Inch
)

var barColor = color.RGBA{R: 0x53, G: 0x70, B: 0xc6, A: 0xff}

func newBarPlot(pts []Point, o Options) (*plot.Plot, error) {
	if len(pts) == 0 {
		return nil, ErrNoData
	}

	values := make(plotter.Values, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}

	p := plot.New()
	p.Title.Text = plainText(o.Title)
	if sub := subtitle(pts, o, plainText); sub != "" {
		if p.Title.Text != "" {
			p.Title.Text += "\n"
		}
		p.Title.Text += sub
	}
	p.Y.Label.Text = o.yLabel()
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalX(names(pts, plainText)...)
	return p, nil
}

// WritePNG draws pts as a PNG bar chart to w. It returns ErrNoData for an
// empty point set.
func WritePNG(w io.Writer, pts []Point, o Options) error {
	p, err := newBarPlot(pts, o)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PNGWidth, PNGHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}
