// Package security keeps generated artifacts inside the configured output
// directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxFilenameLen = 128

// SanitizeFilename maps an arbitrary string (a backend survey id, a user
// label) to a safe file name of ASCII letters, digits, dots, underscores and
// dashes. Runs of other characters collapse to one underscore.
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ArtifactName returns the file name for one output of a survey, e.g.
// "survey_42_chart.html".
func ArtifactName(surveyID, kind, ext string) string {
	name := "survey_" + SanitizeFilename(surveyID)
	if kind != "" {
		name += "_" + SanitizeFilename(kind)
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// OutputPath joins dir and the sanitized name and checks the result stays
// inside dir.
func OutputPath(dir, name string) (string, error) {
	if dir == "" {
		dir = "."
	}
	p := filepath.Join(dir, SanitizeFilename(name))
	if err := ValidatePathWithinDirectory(p, dir); err != nil {
		return "", err
	}
	return p, nil
}

// ValidatePathWithinDirectory returns an error when filePath, after cleaning
// and resolving symlinks, lies outside safeDir. For a path that does not
// exist yet the nearest existing parent is resolved instead, so a symlinked
// parent cannot redirect a new file elsewhere.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to resolve output directory symlinks: %w", err)
		}
		canonicalSafeDir = resolveExisting(absSafeDir)
	}

	relPath, err := filepath.Rel(canonicalSafeDir, resolveExisting(absPath))
	if err != nil {
		return fmt.Errorf("path is outside output directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, safeDir)
	}
	return nil
}

// resolveExisting resolves symlinks in the longest existing prefix of p.
func resolveExisting(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, p)
			return filepath.Join(resolved, rel)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return p
		}
	}
}
