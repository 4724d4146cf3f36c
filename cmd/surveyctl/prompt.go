package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/banshee-data/survey.report/internal/imagefile"
)

var errInterrupted = errors.New("interrupted")

// promptImagePath asks for the image to upload, completing file names and
// rejecting paths that are not images.
func promptImagePath() (string, error) {
	var path string
	prompt := &survey.Input{
		Message: "Survey image to upload:",
		Help:    "Path to a scanned survey page (png, jpeg, gif, bmp, tiff or webp)",
		Suggest: suggestFiles,
	}
	err := survey.AskOne(prompt, &path, survey.WithValidator(survey.Required), survey.WithValidator(validateImagePath))
	if errors.Is(err, terminal.InterruptErr) {
		return "", errInterrupted
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

func suggestFiles(toComplete string) []string {
	matches, _ := filepath.Glob(toComplete + "*")
	return matches
}

func validateImagePath(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return fmt.Errorf("expected a file path")
	}
	_, err := imagefile.Inspect(strings.TrimSpace(s))
	return err
}
