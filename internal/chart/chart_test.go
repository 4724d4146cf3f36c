package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePoints = []Point{
	{Name: "Q1", Value: 10},
	{Name: "Q2", Value: 20},
	{Name: "Q3", Value: 30},
}

func TestSummarize(t *testing.T) {
	s := Summarize(samplePoints)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 20, s.Mean, 1e-9)
	assert.InDelta(t, 10, s.StdDev, 1e-9)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 30.0, s.Max)
	assert.Equal(t, "Q3", s.MaxName)
	assert.Equal(t, "n=3 mean=20.0 sd=10.0 max=30.0 (Q3)", s.String())

	one := Summarize([]Point{{Name: "only", Value: 5}})
	assert.Zero(t, one.StdDev)
	assert.Equal(t, Stats{}, Summarize(nil))
	assert.Equal(t, NoDataMessage, Stats{}.String())
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Results", plainText("<script>alert(1)</script>Results"))
	assert.Equal(t, "Tom & Jerry", plainText("<b>Tom &amp; Jerry</b>"))
	assert.Equal(t, "a < b", plainText("a < b"))
}

func TestPageText(t *testing.T) {
	assert.Equal(t, "a \u2039 b", pageText("a < b"))
	assert.Equal(t, "Tom & Jerry", pageText("Tom &amp; Jerry"))
	assert.NotContains(t, pageText("&lt;/script&gt;&lt;script&gt;alert(1)&lt;/script&gt;"), "<")
}

func TestRenderHTML_EncodedMarkupStaysInert(t *testing.T) {
	encoded := "&lt;/script&gt;&lt;script&gt;alert(1)&lt;/script&gt;"
	pts := []Point{{Name: encoded, Value: 1}, {Name: "Q2", Value: 2}}

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, pts, Options{Title: encoded, Subtitle: encoded}))

	out := buf.String()
	assert.NotContains(t, out, "</script><script>alert")
	assert.NotContains(t, out, "<script>alert(1)")
	assert.Contains(t, out, "alert(1)")
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	err := RenderHTML(&buf, samplePoints, Options{Title: "Survey <i>42</i>", Subtitle: "scan"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Survey 42")
	assert.Contains(t, out, "Q2")
	assert.Contains(t, out, "scan | n=3")
	assert.NotContains(t, out, NoDataMessage)
	assert.NotContains(t, out, "<i>42</i>")
}

func TestRenderHTML_SanitizesNames(t *testing.T) {
	var buf bytes.Buffer
	pts := []Point{{Name: `<img src=x onerror="alert(1)">Do you agree?`, Value: 50}}
	require.NoError(t, RenderHTML(&buf, pts, Options{Title: "<script>alert(2)</script>"}))

	out := buf.String()
	assert.Contains(t, out, "Do you agree?")
	assert.NotContains(t, out, "onerror")
	assert.NotContains(t, out, "alert(2)")
}

func TestRenderHTML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, nil, Options{Title: "Survey 7"}))
	assert.Contains(t, buf.String(), NoDataMessage)
	assert.Contains(t, buf.String(), "<title>Survey 7</title>")
	assert.NotContains(t, buf.String(), "echarts")
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, samplePoints, Options{Title: "Survey 42"}))

	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, cfg.Height)
}

func TestWritePNG_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WritePNG(&buf, nil, Options{}), ErrNoData)
	assert.Zero(t, buf.Len())
}
