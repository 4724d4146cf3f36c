package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/survey.report/internal/chart"
	"github.com/banshee-data/survey.report/internal/config"
	"github.com/banshee-data/survey.report/internal/fsutil"
	"github.com/banshee-data/survey.report/internal/report"
	"github.com/banshee-data/survey.report/internal/security"
	"github.com/banshee-data/survey.report/internal/surveyapi"
)

// outputFlags select what is generated from a survey's results and where.
type outputFlags struct {
	outDir  string
	formats string
	title   string
	sorted  bool
}

func (o *outputFlags) register(fs *flag.FlagSet, defaultFormats string) {
	fs.StringVar(&o.outDir, "out", "", "Directory for generated files (default: output_dir from config)")
	fs.StringVar(&o.formats, "format", defaultFormats, "Comma separated output formats: html, png, md, report, json")
	fs.StringVar(&o.title, "title", "", "Chart title (default: Survey <id>)")
	fs.BoolVar(&o.sorted, "sort", false, "Order chart bars by descending value")
}

func (o *outputFlags) dir(cfg *config.ClientConfig) string {
	if o.outDir != "" {
		return o.outDir
	}
	return cfg.GetOutputDir()
}

type outputFormat struct {
	name      string
	kind      string
	ext       string
	printable bool
	render    func(*surveyapi.Results, outputFlags) ([]byte, error)
}

var outputFormats = map[string]outputFormat{
	"html":   {name: "html", kind: "chart", ext: "html", render: renderChartHTML},
	"png":    {name: "png", kind: "chart", ext: "png", render: renderChartPNG},
	"md":     {name: "md", kind: "summary", ext: "md", printable: true, render: renderSummary},
	"report": {name: "report", kind: "summary", ext: "html", render: renderSummaryHTML},
	"json":   {name: "json", kind: "results", ext: "json", printable: true, render: renderJSON},
}

func parseFormats(list string) ([]outputFormat, error) {
	var out []outputFormat
	seen := map[string]bool{}
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		f, ok := outputFormats[name]
		if !ok {
			return nil, fmt.Errorf("unknown format %q (want html, png, md, report or json)", name)
		}
		seen[name] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no output format given")
	}
	return out, nil
}

func chartOptions(res *surveyapi.Results, o outputFlags) chart.Options {
	title := o.title
	if title == "" {
		title = "Survey " + res.SurveyID.String()
	}
	return chart.Options{Title: title, YLabel: "Selected (%)"}
}

func chartPoints(res *surveyapi.Results, o outputFlags) ([]chart.Point, error) {
	pts, err := res.DataPoints()
	if err != nil {
		return nil, err
	}
	if o.sorted {
		pts = surveyapi.SortedByValue(pts)
	}
	return pts, nil
}

func renderChartHTML(res *surveyapi.Results, o outputFlags) ([]byte, error) {
	pts, err := chartPoints(res, o)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := chart.RenderHTML(&buf, pts, chartOptions(res, o)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderChartPNG(res *surveyapi.Results, o outputFlags) ([]byte, error) {
	pts, err := chartPoints(res, o)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := chart.WritePNG(&buf, pts, chartOptions(res, o)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderSummary(res *surveyapi.Results, _ outputFlags) ([]byte, error) {
	md, err := report.Summary(res)
	return []byte(md), err
}

func renderSummaryHTML(res *surveyapi.Results, _ outputFlags) ([]byte, error) {
	body, err := report.SummaryHTML(res)
	if err != nil {
		return nil, err
	}
	title := "Survey " + res.SurveyID.String()
	doc := fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n%s</body>\n</html>\n", html.EscapeString(title), body)
	return []byte(doc), nil
}

func renderJSON(res *surveyapi.Results, _ outputFlags) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeOutputs renders each format into dir. A chart with no data is
// reported and skipped rather than failing the whole command.
func (a *app) writeOutputs(res *surveyapi.Results, formats []outputFormat, dir string, o outputFlags) error {
	for _, f := range formats {
		data, err := f.render(res, o)
		if errors.Is(err, chart.ErrNoData) {
			fmt.Fprintf(a.stderr, "Skipping %s: %s\n", f.name, chart.NoDataMessage)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", f.name, err)
		}

		path, err := security.OutputPath(dir, security.ArtifactName(res.SurveyID.String(), f.kind, f.ext))
		if err != nil {
			return err
		}
		if err := fsutil.WriteFileInDir(a.fs, path, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(a.stdout, "wrote %s (%s)\n", path, humanize.Bytes(uint64(len(data))))
	}
	return nil
}
