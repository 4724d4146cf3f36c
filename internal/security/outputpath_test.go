package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"42", "42"},
		{"survey 42/../../etc", "survey_42_.._.._etc"},
		{"a  b", "a_b"},
		{"../", "unknown"},
		{"", "unknown"},
		{"résumé.png", "r_sum_.png"},
		{"chart-v1.html", "chart-v1.html"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := SanitizeFilename(strings.Repeat("x", 500))
	if len(long) != maxFilenameLen {
		t.Errorf("long name length = %d, want %d", len(long), maxFilenameLen)
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName("42", "chart", "html"); got != "survey_42_chart.html" {
		t.Errorf("ArtifactName = %q", got)
	}
	if got := ArtifactName("a/b", "", ".json"); got != "survey_a_b.json" {
		t.Errorf("ArtifactName = %q", got)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	p, err := OutputPath(dir, "../../survey_42.html")
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	if filepath.Dir(p) != dir {
		t.Errorf("OutputPath = %q, want a file directly in %q", p, dir)
	}

	// missing output directories are allowed; they are created on write
	if _, err := OutputPath(filepath.Join(dir, "new", "nested"), "x.png"); err != nil {
		t.Errorf("OutputPath for new dir: %v", err)
	}
}

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "out")
	unsafeDir := filepath.Join(tmpDir, "elsewhere")
	for _, d := range []string{safeDir, unsafeDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	link := filepath.Join(safeDir, "link")
	if err := os.Symlink(unsafeDir, link); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"file in dir", filepath.Join(safeDir, "chart.html"), false},
		{"nested new file", filepath.Join(safeDir, "a", "b.png"), false},
		{"dot dot", filepath.Join(safeDir, "..", "chart.html"), true},
		{"absolute elsewhere", "/etc/passwd", true},
		{"through symlink", filepath.Join(link, "chart.html"), true},
		{"symlink itself", link, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
		})
	}
}
