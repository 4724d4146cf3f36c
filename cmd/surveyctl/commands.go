package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/survey.report/internal/imagefile"
	"github.com/banshee-data/survey.report/internal/monitoring"
	"github.com/banshee-data/survey.report/internal/processing"
	"github.com/banshee-data/survey.report/internal/report"
	"github.com/banshee-data/survey.report/internal/surveyapi"
)

const progressWidth = 30

func (a *app) handleProcess(ctx context.Context, args []string) error {
	fs := a.newFlagSet("process")
	var common commonFlags
	common.register(fs)
	var out outputFlags
	out.register(fs, "html")
	interactive := fs.Bool("interactive", false, "Prompt for the image to upload")
	strict := fs.Bool("strict", false, "Refuse files that do not decode as an image")
	noResults := fs.Bool("no-results", false, "Stop after processing completes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := a.loadConfig(fs, &common)
	if err != nil {
		return err
	}
	formats, err := parseFormats(out.formats)
	if err != nil {
		return err
	}

	var path string
	switch {
	case fs.NArg() == 1:
		path = fs.Arg(0)
	case fs.NArg() == 0 && *interactive && a.askPath != nil:
		if path, err = a.askPath(); err != nil {
			return err
		}
	default:
		fmt.Fprintln(a.stderr, "Error: process requires exactly one image path (or --interactive)")
		fs.Usage()
		return errUsage
	}

	info, err := imagefile.Inspect(path)
	switch {
	case err == nil:
		fmt.Fprintf(a.stderr, "Image: %s\n", info)
	case *strict || !errors.Is(err, imagefile.ErrNotImage):
		return err
	default:
		fmt.Fprintf(a.stderr, "Warning: %v; uploading anyway\n", err)
	}

	client, err := a.newClient(cfg)
	if err != nil {
		return err
	}
	orch := processing.New(client,
		processing.WithClock(a.clock),
		processing.WithPollPolicy(processing.PollPolicyFromConfig(cfg)),
		processing.WithObserver(func(s processing.Snapshot) {
			fmt.Fprintln(a.stderr, report.StatusLine(s, progressWidth))
		}),
	)

	id, err := orch.ProcessFile(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "survey %s completed\n", id)
	if *noResults {
		return nil
	}

	res, err := a.loadResults(ctx, client, id)
	if err != nil {
		return err
	}
	return a.writeOutputs(res, formats, out.dir(cfg), out)
}

func (a *app) handleStatus(ctx context.Context, args []string) error {
	fs := a.newFlagSet("status")
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := surveyIDArg(fs)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(fs, &common)
	if err != nil {
		return err
	}
	client, err := a.newClient(cfg)
	if err != nil {
		return err
	}

	rep, err := client.Status(ctx, id)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("survey %s: %s %s", id, rep.RawPhase, report.ProgressBar(rep.Progress, progressWidth))
	if rep.Error != "" {
		line += ": " + rep.Error
	}
	fmt.Fprintln(a.stdout, line)
	if rep.Phase == surveyapi.PhaseFailed {
		return &processing.ProcessingError{SurveyID: id, Message: orDefault(rep.Error, processing.MsgProcessingFailed)}
	}
	return nil
}

func (a *app) handleResults(ctx context.Context, args []string) error {
	fs := a.newFlagSet("results")
	var common commonFlags
	common.register(fs)
	var out outputFlags
	out.register(fs, "md")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := surveyIDArg(fs)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(fs, &common)
	if err != nil {
		return err
	}
	formats, err := parseFormats(out.formats)
	if err != nil {
		return err
	}
	client, err := a.newClient(cfg)
	if err != nil {
		return err
	}

	res, err := a.loadResults(ctx, client, id)
	if err != nil {
		return err
	}
	if out.outDir == "" && len(formats) == 1 && formats[0].printable {
		data, err := formats[0].render(res, out)
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)
		return err
	}
	return a.writeOutputs(res, formats, out.dir(cfg), out)
}

func (a *app) handleChart(ctx context.Context, args []string) error {
	fs := a.newFlagSet("chart")
	var common commonFlags
	common.register(fs)
	var out outputFlags
	out.register(fs, "html")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := surveyIDArg(fs)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(fs, &common)
	if err != nil {
		return err
	}
	formats, err := parseFormats(out.formats)
	if err != nil {
		return err
	}
	for _, f := range formats {
		if f.name != "html" && f.name != "png" {
			return fmt.Errorf("chart supports html and png, not %q", f.name)
		}
	}
	client, err := a.newClient(cfg)
	if err != nil {
		return err
	}

	res, err := a.loadResults(ctx, client, id)
	if err != nil {
		return err
	}
	return a.writeOutputs(res, formats, out.dir(cfg), out)
}

func (a *app) handleHealth(ctx context.Context, args []string) error {
	fs := a.newFlagSet("health")
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := a.loadConfig(fs, &common)
	if err != nil {
		return err
	}
	client, err := a.newClient(cfg)
	if err != nil {
		return err
	}

	h, err := client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %s\n", client.BaseURL(), h.Status)
	if !h.OK() {
		return &surveyapi.APIError{Kind: surveyapi.ErrHealthCheckFailure, Err: fmt.Errorf("backend reported %q", h.Status)}
	}
	return nil
}

// loadResults fetches results through a ResultsLoader so failures carry the
// loader's user-facing message.
func (a *app) loadResults(ctx context.Context, client *surveyapi.Client, id surveyapi.SurveyID) (*surveyapi.Results, error) {
	loader := processing.NewResultsLoader(client)
	res, err := loader.Load(ctx, id)
	if err != nil {
		monitoring.Debugf("results for %s: %v", id, err)
		return nil, errors.New(loader.State().Err)
	}
	return res, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
