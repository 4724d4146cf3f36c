package chart

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes a standalone HTML page holding a bar chart of pts. An
// empty point set renders a page with NoDataMessage instead of a chart.
func RenderHTML(w io.Writer, pts []Point, o Options) error {
	title := pageText(o.Title)
	if len(pts) == 0 {
		return writePlaceholder(w, title)
	}

	width, height := o.Width, o.Height
	if width == "" {
		width = "100%"
	}
	if height == "" {
		height = "480px"
	}

	y := make([]opts.BarData, len(pts))
	for i, p := range pts {
		y[i] = opts.BarData{Name: pageText(p.Name), Value: p.Value}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: width, Height: height, AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle(pts, o, pageText)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: o.yLabel()}),
	)
	bar.SetXAxis(names(pts, pageText)).
		AddSeries(SeriesName, y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writePlaceholder(w io.Writer, title string) error {
	if title == "" {
		title = "Survey results"
	}
	doc := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="font-family:sans-serif">
<h2>%s</h2>
<p>%s</p>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(title), NoDataMessage)
	_, err := io.WriteString(w, doc)
	return err
}
