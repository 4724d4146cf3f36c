// Package report turns processing state and survey results into text for
// people: a status line, a progress bar and a results summary.
package report

import (
	"fmt"
	"strings"

	"github.com/banshee-data/survey.report/internal/processing"
)

// StatusMessage returns the user-facing message for a processing state.
func StatusMessage(s processing.State) string {
	switch s {
	case processing.StateUploading:
		return "Uploading image..."
	case processing.StateProcessing:
		return "Processing survey..."
	case processing.StateCompleted:
		return "Processing complete!"
	case processing.StateError:
		return "Error processing survey"
	default:
		return "Waiting to start..."
	}
}

// ProgressBar draws p (clamped to 0..100) as a bar of width cells followed
// by the percentage, e.g. "[#####-----]  50%".
func ProgressBar(p, width int) string {
	p = max(0, min(100, p))
	if width < 1 {
		return fmt.Sprintf("%3d%%", p)
	}
	filled := p * width / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), p)
}

// StatusLine combines the message, bar and any error of a snapshot.
func StatusLine(s processing.Snapshot, width int) string {
	line := fmt.Sprintf("%-24s %s", StatusMessage(s.State), ProgressBar(s.Progress, width))
	if s.SurveyID != "" {
		line += " survey " + s.SurveyID.String()
	}
	if s.State == processing.StateError && s.Err != "" {
		line += ": " + s.Err
	}
	return line
}
