package report

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/banshee-data/survey.report/internal/surveyapi"
)

// NoDataMessage is written when a result carries nothing to summarise.
const NoDataMessage = "No data available"

// Summary renders res as Markdown. A structured survey gets a per-question
// table and the overall statistics; any other payload that yields data
// points gets a name/value table.
func Summary(res *surveyapi.Results) (string, error) {
	var b strings.Builder
	title := "Survey results"
	if res != nil && !res.SurveyID.IsZero() {
		title = "Survey " + res.SurveyID.String()
	}
	fmt.Fprintf(&b, "# %s\n\n", escapeCell(title))
	if res == nil {
		b.WriteString("_" + NoDataMessage + "_\n")
		return b.String(), nil
	}
	if res.CreatedAt != "" {
		fmt.Fprintf(&b, "Processed: %s\n\n", escapeCell(res.CreatedAt))
	}

	sd, err := res.DecodeSurvey()
	switch {
	case err == nil:
		writeSurvey(&b, sd)
		return b.String(), nil
	case !errors.Is(err, surveyapi.ErrNoSurveyData):
		return "", err
	}

	pts, err := res.DataPoints()
	if err != nil {
		return "", err
	}
	writePoints(&b, pts)
	return b.String(), nil
}

func writeSurvey(b *strings.Builder, sd *surveyapi.SurveyData) {
	if len(sd.Questions) == 0 {
		b.WriteString("_" + NoDataMessage + "_\n")
		return
	}
	b.WriteString("| # | Question | Selected | Options | Percentage |\n")
	b.WriteString("|--:|----------|---------:|--------:|-----------:|\n")
	pts := sd.DataPoints()
	for i, q := range sd.Questions {
		total := len(q.Responses)
		if q.Statistics != nil {
			total = q.Statistics.TotalOptions
		}
		fmt.Fprintf(b, "| %d | %s | %d | %d | %.1f%% |\n", i+1, escapeCell(pts[i].Name), q.SelectedCount(), total, pts[i].Value)
	}

	if st := sd.Statistics; st != nil {
		fmt.Fprintf(b, "\n**Overall:** %s questions, %s options, %s selected (%.1f%% selection rate)\n",
			humanize.Comma(int64(st.TotalQuestions)),
			humanize.Comma(int64(st.TotalOptions)),
			humanize.Comma(int64(st.TotalSelected)),
			st.SelectionRate)
	}
}

func writePoints(b *strings.Builder, pts []surveyapi.DataPoint) {
	if len(pts) == 0 {
		b.WriteString("_" + NoDataMessage + "_\n")
		return
	}
	b.WriteString("| Name | Value |\n")
	b.WriteString("|------|------:|\n")
	for _, p := range pts {
		fmt.Fprintf(b, "| %s | %s |\n", escapeCell(p.Name), humanize.Ftoa(p.Value))
	}
}

var (
	cellReplacer = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ")
	textPolicy   = bluemonday.StrictPolicy()
	htmlPolicy   = bluemonday.UGCPolicy()
	markdown     = goldmark.New(goldmark.WithExtensions(extension.Table))
)

// escapeCell strips markup from backend text and keeps it on one table row.
// Entities are decoded again so the raw Markdown reads as the backend wrote it.
func escapeCell(s string) string {
	return cellReplacer.Replace(strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s))))
}

// SummaryHTML renders Summary as an HTML fragment.
func SummaryHTML(res *surveyapi.Results) (string, error) {
	md, err := Summary(res)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return htmlPolicy.Sanitize(buf.String()), nil
}
