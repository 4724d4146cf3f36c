package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/banshee-data/survey.report/internal/fsutil"
	"github.com/banshee-data/survey.report/internal/timeutil"
)

const programName = "surveyctl"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		fs:        fsutil.OSFileSystem{},
		lookupEnv: os.LookupEnv,
		dotenv:    []string{".env"},
		clock:     timeutil.RealClock{},
		askPath:   promptImagePath,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		printUsage(a.stderr)
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "process":
		return a.handleProcess(ctx, rest)
	case "status":
		return a.handleStatus(ctx, rest)
	case "results":
		return a.handleResults(ctx, rest)
	case "chart":
		return a.handleChart(ctx, rest)
	case "health":
		return a.handleHealth(ctx, rest)
	case "version":
		fmt.Fprintln(a.stdout, versionString())
		return nil
	case "help", "-h", "--help":
		printUsage(a.stdout)
		return nil
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n\n", command)
		printUsage(a.stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `surveyctl - Upload survey scans and collect their results

Usage: surveyctl <command> [options]

Commands:
  process    Upload an image, wait for processing and write the results
  status     Show the processing status of a survey
  results    Print or save the results of a completed survey
  chart      Render the results of a completed survey as a chart
  health     Check that the survey backend is reachable
  version    Show surveyctl version
  help       Show this help message

Common Flags:
  --config <file>        Configuration file (.json, .yaml or .yml)
  --api-url <url>        Backend base URL (default http://localhost:8000/api)
                         Also read from SURVEY_API_URL or NEXT_PUBLIC_API_URL
  --poll-interval <d>    Delay between status queries (default 1s)
  --max-wait <d>         Give up polling after this long (default: never)
  --validate             Check responses against the API contract
  --verbose              Log requests and state changes

Output Flags (process, results, chart):
  --out <dir>            Directory for generated files
  --format <list>        Comma separated: html, png, md, report, json

Examples:
  # Upload a scan and save an HTML chart and a Markdown summary
  surveyctl process --format html,md --out reports ./scans/survey.png

  # Pick the image interactively
  surveyctl process --interactive

  # Check on a survey uploaded earlier
  surveyctl status 42

  # Render a PNG chart for a completed survey
  surveyctl chart --format png --out reports 42
`)
}
