package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/survey.report/internal/fsutil"
	"github.com/banshee-data/survey.report/internal/imagefile"
	"github.com/banshee-data/survey.report/internal/monitoring"
	"github.com/banshee-data/survey.report/internal/testutil"
	"github.com/banshee-data/survey.report/internal/timeutil"
)

type testApp struct {
	*app
	out   *bytes.Buffer
	errs  *bytes.Buffer
	files *fsutil.MemoryFileSystem
	env   map[string]string
	clock *timeutil.MockClock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Cleanup(func() {
		monitoring.SetLogger(nil)
		monitoring.SetVerbose(false)
	})
	ta := &testApp{
		out:   &bytes.Buffer{},
		errs:  &bytes.Buffer{},
		files: fsutil.NewMemoryFileSystem(),
		env:   map[string]string{},
		clock: timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	ta.app = &app{
		stdout: ta.out,
		stderr: ta.errs,
		fs:     ta.files,
		lookupEnv: func(k string) (string, bool) {
			v, ok := ta.env[k]
			return v, ok
		},
		clock: ta.clock,
	}
	return ta
}

func (ta *testApp) run(args ...string) error {
	return ta.app.run(context.Background(), args)
}

func (ta *testApp) file(t *testing.T, path string) string {
	t.Helper()
	data, err := ta.files.ReadFile(path)
	require.NoError(t, err, "files: %v", ta.files.Files())
	return string(data)
}

func TestRun_Usage(t *testing.T) {
	ta := newTestApp(t)
	assert.ErrorIs(t, ta.run(), errUsage)
	assert.Contains(t, ta.errs.String(), "Usage: surveyctl <command>")

	ta = newTestApp(t)
	assert.ErrorIs(t, ta.run("frobnicate"), errUsage)
	assert.Contains(t, ta.errs.String(), "Unknown command: frobnicate")

	ta = newTestApp(t)
	require.NoError(t, ta.run("help"))
	assert.Contains(t, ta.out.String(), "process")

	ta = newTestApp(t)
	require.NoError(t, ta.run("version"))
	assert.Contains(t, ta.out.String(), "surveyctl version")
}

func TestProcess_Success(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Statuses = []string{
		`{"status": "pending", "progress": 30}`,
		`{"status": "completed", "progress": 100}`,
	}
	img := testutil.WritePNG(t, t.TempDir(), "scan.png", 64, 48)
	outDir := t.TempDir()

	ta := newTestApp(t)
	err := ta.run("process", "--api-url", b.URL(), "--out", outDir, "--format", "html,md,json", img)
	require.NoError(t, err, ta.errs.String())

	assert.Equal(t, 1, b.Uploads())
	assert.Equal(t, 2, b.StatusCalls())
	assert.Equal(t, 1, b.ResultsCalls())
	assert.Equal(t, []time.Duration{time.Second}, ta.clock.Sleeps())

	name, _ := b.LastUpload()
	assert.Equal(t, "scan.png", name)

	progress := ta.errs.String()
	assert.Contains(t, progress, "Image: ")
	assert.Contains(t, progress, "Uploading image...")
	assert.Contains(t, progress, " 30%")
	assert.Contains(t, progress, "Processing complete!")
	assert.Contains(t, progress, "100%")

	assert.Contains(t, ta.out.String(), "survey 42 completed")
	assert.Contains(t, ta.file(t, filepath.Join(outDir, "survey_42_chart.html")), "Survey 42")
	assert.Contains(t, ta.file(t, filepath.Join(outDir, "survey_42_summary.md")), "| Q2 | 75 |")
	assert.Contains(t, ta.file(t, filepath.Join(outDir, "survey_42_results.json")), `"survey_id": 42`)
	assert.Equal(t, 3, strings.Count(ta.out.String(), "wrote "))
}

func TestProcess_UploadFailure(t *testing.T) {
	b := testutil.NewBackend(t)
	b.UploadCode = http.StatusInternalServerError
	img := testutil.WritePNG(t, t.TempDir(), "scan.png", 8, 8)

	ta := newTestApp(t)
	err := ta.run("process", "--api-url", b.URL(), "--out", t.TempDir(), img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Internal Server Error")
	assert.Zero(t, b.StatusCalls())
	assert.Zero(t, b.ResultsCalls())
	assert.Contains(t, ta.errs.String(), "Error processing survey")
	assert.NotContains(t, ta.errs.String(), "Processing survey...")
	assert.Empty(t, ta.files.Files())
}

func TestProcess_FailedPhase(t *testing.T) {
	b := testutil.NewBackend(t)
	b.ID = "7"
	b.Statuses = []string{`{"status": "failed", "progress": 20, "error": "corrupt image"}`}
	img := testutil.WritePNG(t, t.TempDir(), "scan.png", 8, 8)

	ta := newTestApp(t)
	err := ta.run("process", "--api-url", b.URL(), img)
	require.Error(t, err)
	assert.Equal(t, "corrupt image", err.Error())
	assert.Equal(t, 1, b.StatusCalls())
	assert.Zero(t, b.ResultsCalls())
	assert.Contains(t, ta.errs.String(), ": corrupt image")
}

func TestProcess_MaxWait(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Statuses = []string{`{"status": "pending", "progress": 50}`}
	img := testutil.WritePNG(t, t.TempDir(), "scan.png", 8, 8)

	ta := newTestApp(t)
	err := ta.run("process", "--api-url", b.URL(), "--poll-interval", "2s", "--max-wait", "5s", img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Timed out waiting for survey 42")
	assert.Len(t, ta.clock.Sleeps(), 2)
}

func TestProcess_NotAnImage(t *testing.T) {
	b := testutil.NewBackend(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not an image at all"), 0o644))

	ta := newTestApp(t)
	err := ta.run("process", "--api-url", b.URL(), "--strict", path)
	assert.ErrorIs(t, err, imagefile.ErrNotImage)
	assert.Zero(t, b.Uploads())

	ta = newTestApp(t)
	err = ta.run("process", "--api-url", b.URL(), "--no-results", path)
	require.NoError(t, err)
	assert.Contains(t, ta.errs.String(), "Warning: ")
	assert.Equal(t, 1, b.Uploads())
	assert.Zero(t, b.ResultsCalls())
}

func TestProcess_MissingFile(t *testing.T) {
	b := testutil.NewBackend(t)
	ta := newTestApp(t)
	err := ta.run("process", "--api-url", b.URL(), filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, b.Uploads())
}

func TestProcess_Interactive(t *testing.T) {
	b := testutil.NewBackend(t)
	img := testutil.WritePNG(t, t.TempDir(), "picked.png", 8, 8)

	ta := newTestApp(t)
	ta.askPath = func() (string, error) { return img, nil }
	require.NoError(t, ta.run("process", "--api-url", b.URL(), "--interactive", "--no-results"))
	name, _ := b.LastUpload()
	assert.Equal(t, "picked.png", name)

	ta = newTestApp(t)
	ta.askPath = func() (string, error) { return "", errInterrupted }
	assert.ErrorIs(t, ta.run("process", "--api-url", b.URL(), "--interactive"), errInterrupted)

	ta = newTestApp(t)
	assert.ErrorIs(t, ta.run("process", "--api-url", b.URL()), errUsage)
}

func TestStatus(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Statuses = []string{`{"status": "pending", "progress": 30}`}

	ta := newTestApp(t)
	require.NoError(t, ta.run("status", "--api-url", b.URL(), "42"))
	assert.Contains(t, ta.out.String(), "survey 42: pending [#########---------------------]  30%")

	ta = newTestApp(t)
	err := ta.run("status", "--api-url", b.URL(), "99")
	require.Error(t, err)
	assert.Equal(t, "Failed to get status: Not Found (Survey not found)", err.Error())

	ta = newTestApp(t)
	assert.Error(t, ta.run("status", "--api-url", b.URL()))
}

func TestStatus_Failed(t *testing.T) {
	b := testutil.NewBackend(t)
	b.Statuses = []string{`{"status": "failed", "progress": 0, "error": null}`}

	ta := newTestApp(t)
	err := ta.run("status", "--api-url", b.URL(), "42")
	require.Error(t, err)
	assert.Equal(t, "Processing failed", err.Error())
}

func TestResults(t *testing.T) {
	b := testutil.NewBackend(t)

	ta := newTestApp(t)
	require.NoError(t, ta.run("results", "--api-url", b.URL(), "42"))
	assert.Contains(t, ta.out.String(), "# Survey 42")
	assert.Contains(t, ta.out.String(), "| Q1 | 40 |")
	assert.Empty(t, ta.files.Files())

	outDir := t.TempDir()
	ta = newTestApp(t)
	require.NoError(t, ta.run("results", "--api-url", b.URL(), "--out", outDir, "--format", "report", "42"))
	doc := ta.file(t, filepath.Join(outDir, "survey_42_summary.html"))
	assert.Contains(t, doc, "<title>Survey 42</title>")
	assert.Contains(t, doc, "<table>")
}

func TestResults_Failure(t *testing.T) {
	b := testutil.NewBackend(t)
	b.ResultsCode = http.StatusBadRequest

	ta := newTestApp(t)
	err := ta.run("results", "--api-url", b.URL(), "42")
	require.Error(t, err)
	assert.Equal(t, "Failed to get results: Bad Request (Survey processing not completed)", err.Error())
}

func TestChart(t *testing.T) {
	b := testutil.NewBackend(t)
	outDir := t.TempDir()

	ta := newTestApp(t)
	require.NoError(t, ta.run("chart", "--api-url", b.URL(), "--out", outDir, "--format", "html,png", "--sort", "--title", "Scan A", "42"))
	assert.Contains(t, ta.file(t, filepath.Join(outDir, "survey_42_chart.html")), "Scan A")
	assert.True(t, strings.HasPrefix(ta.file(t, filepath.Join(outDir, "survey_42_chart.png")), "\x89PNG"))

	ta = newTestApp(t)
	assert.Error(t, ta.run("chart", "--api-url", b.URL(), "--format", "md", "42"))
}

func TestChart_NoData(t *testing.T) {
	b := testutil.NewBackend(t)
	b.ResultsBody = `{"data": []}`
	outDir := t.TempDir()

	ta := newTestApp(t)
	require.NoError(t, ta.run("chart", "--api-url", b.URL(), "--out", outDir, "--format", "html,png", "42"))
	assert.Contains(t, ta.errs.String(), "Skipping png: No data available")
	assert.Contains(t, ta.file(t, filepath.Join(outDir, "survey_42_chart.html")), "No data available")
	assert.Equal(t, []string{filepath.Join(outDir, "survey_42_chart.html")}, ta.files.Files())
}

func TestHealth(t *testing.T) {
	b := testutil.NewBackend(t)

	ta := newTestApp(t)
	require.NoError(t, ta.run("health", "--api-url", b.URL()))
	assert.Contains(t, ta.out.String(), "/api: ok")

	b.HealthBody = `{"status": "degraded"}`
	ta = newTestApp(t)
	err := ta.run("health", "--api-url", b.URL())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Health check failed")
}

func TestConfigSources(t *testing.T) {
	b := testutil.NewBackend(t)

	t.Run("environment", func(t *testing.T) {
		ta := newTestApp(t)
		ta.env["NEXT_PUBLIC_API_URL"] = b.URL()
		require.NoError(t, ta.run("health"))
	})

	t.Run("primary variable wins", func(t *testing.T) {
		ta := newTestApp(t)
		ta.env["SURVEY_API_URL"] = b.URL()
		ta.env["NEXT_PUBLIC_API_URL"] = "http://127.0.0.1:1/api"
		require.NoError(t, ta.run("health"))
	})

	t.Run("config file and flag override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "surveyctl.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api_url: http://127.0.0.1:1/api\nvalidate_responses: true\n"), 0o644))

		ta := newTestApp(t)
		require.Error(t, ta.run("health", "--config", path))

		ta = newTestApp(t)
		require.NoError(t, ta.run("health", "--config", path, "--api-url", b.URL()))
	})

	t.Run("invalid", func(t *testing.T) {
		ta := newTestApp(t)
		err := ta.run("health", "--api-url", "ftp://example.com")
		assert.ErrorContains(t, err, "invalid configuration")
	})
}

func TestParseFormats(t *testing.T) {
	fs, err := parseFormats(" HTML, md,html ,json")
	require.NoError(t, err)
	var names []string
	for _, f := range fs {
		names = append(names, f.name)
	}
	assert.Equal(t, []string{"html", "md", "json"}, names)

	_, err = parseFormats("pdf")
	assert.ErrorContains(t, err, `unknown format "pdf"`)

	_, err = parseFormats(" , ")
	assert.Error(t, err)
}

func TestValidateImagePath(t *testing.T) {
	img := testutil.WritePNG(t, t.TempDir(), "scan.png", 4, 4)
	assert.NoError(t, validateImagePath(img))
	assert.Error(t, validateImagePath(filepath.Join(t.TempDir(), "nope.png")))
	assert.Error(t, validateImagePath(42))

	assert.True(t, errors.Is(validateImagePath(writeText(t)), imagefile.ErrNotImage))
	assert.Contains(t, suggestFiles(strings.TrimSuffix(img, "scan.png")), img)
}

func writeText(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	return path
}
