// Package chart renders survey data points as bar charts: interactive HTML
// through go-echarts and static PNG through gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/survey.report/internal/surveyapi"
)

// Point is one bar: a category name and its value.
type Point = surveyapi.DataPoint

// NoDataMessage is shown in place of an empty chart.
const NoDataMessage = "No data available"

// SeriesName labels the single bar series.
const SeriesName = "value"

// ErrNoData is returned by renderers that cannot draw a placeholder.
var ErrNoData = errors.New("chart: " + strings.ToLower(NoDataMessage))

// Options control chart labelling and size.
type Options struct {
	Title    string
	Subtitle string
	// YLabel names the value axis; empty means "Value".
	YLabel string
	// Width and Height are CSS sizes for HTML output, e.g. "100%" or "720px".
	Width  string
	Height string
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
	// SkipStats leaves the summary out of the subtitle.
	SkipStats bool
}

func (o Options) yLabel() string {
	if o.YLabel == "" {
		return "Value"
	}
	return o.YLabel
}

var textPolicy = bluemonday.StrictPolicy()

// plainText strips any markup from s and decodes entities, for text that is
// drawn rather than embedded in a page.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

var angleReplacer = strings.NewReplacer("<", "\u2039", ">", "\u203a")

// pageText is plainText for strings that go-echarts embeds unescaped in the
// page's script block. Decoded entities may form new tags, so angle brackets
// are swapped for look-alike quotation marks.
func pageText(s string) string {
	return angleReplacer.Replace(plainText(s))
}

// Stats summarises the values of a point set.
type Stats struct {
	Count   int
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
	MaxName string
}

// Summarize computes Stats for pts. The zero Stats is returned for no points.
func Summarize(pts []Point) Stats {
	if len(pts) == 0 {
		return Stats{}
	}
	values := make([]float64, len(pts))
	s := Stats{Count: len(pts), Min: math.Inf(1), Max: math.Inf(-1)}
	for i, p := range pts {
		values[i] = p.Value
		if p.Value < s.Min {
			s.Min = p.Value
		}
		if p.Value > s.Max {
			s.Max = p.Value
			s.MaxName = p.Name
		}
	}
	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// String formats the summary for a chart subtitle.
func (s Stats) String() string {
	if s.Count == 0 {
		return NoDataMessage
	}
	return fmt.Sprintf("n=%d mean=%.1f sd=%.1f max=%.1f (%s)", s.Count, s.Mean, s.StdDev, s.Max, s.MaxName)
}

func subtitle(pts []Point, o Options, clean func(string) string) string {
	sub := clean(o.Subtitle)
	if o.SkipStats || len(pts) == 0 {
		return sub
	}
	stats := Summarize(pts)
	stats.MaxName = clean(stats.MaxName)
	if sub == "" {
		return stats.String()
	}
	return sub + " | " + stats.String()
}

func names(pts []Point, clean func(string) string) []string {
	out := make([]string, len(pts))
	for i, p := range pts {
		out[i] = clean(p.Name)
	}
	return out
}
