package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/banshee-data/survey.report/internal/config"
	"github.com/banshee-data/survey.report/internal/fsutil"
	"github.com/banshee-data/survey.report/internal/httputil"
	"github.com/banshee-data/survey.report/internal/monitoring"
	"github.com/banshee-data/survey.report/internal/surveyapi"
	"github.com/banshee-data/survey.report/internal/timeutil"
	"github.com/banshee-data/survey.report/internal/version"
)

// app carries the process environment so commands can run against fakes.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	fs        fsutil.FileSystem
	lookupEnv func(string) (string, bool)
	dotenv    []string
	clock     timeutil.Clock
	http      httputil.HTTPClient // nil: built from config
	askPath   func() (string, error)
}

func versionString() string {
	return version.String(programName)
}

// commonFlags are accepted by every command that talks to the backend.
type commonFlags struct {
	configPath   string
	apiURL       string
	pollInterval string
	maxWait      string
	validate     bool
	verbose      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Configuration file (.json, .yaml or .yml)")
	fs.StringVar(&c.apiURL, "api-url", "", "Backend base URL")
	fs.StringVar(&c.pollInterval, "poll-interval", "", "Delay between status queries, e.g. 500ms")
	fs.StringVar(&c.maxWait, "max-wait", "", "Stop polling after this long, e.g. 5m")
	fs.BoolVar(&c.validate, "validate", false, "Validate responses against the API contract")
	fs.BoolVar(&c.verbose, "verbose", false, "Enable verbose logging")
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// loadConfig layers defaults, the config file, .env files, the environment
// and finally explicit flags.
func (a *app) loadConfig(fs *flag.FlagSet, c *commonFlags) (*config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	if c.configPath != "" {
		fileCfg, err := config.LoadClientConfig(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}

	if err := config.LoadDotEnv(a.dotenv...); err != nil {
		return nil, err
	}
	if a.lookupEnv != nil {
		cfg.ApplyEnv(a.lookupEnv)
	}

	if c.apiURL != "" {
		cfg.APIURL = &c.apiURL
	}
	if c.pollInterval != "" {
		cfg.PollInterval = &c.pollInterval
	}
	if c.maxWait != "" {
		cfg.PollMaxWait = &c.maxWait
	}
	if flagWasSet(fs, "validate") {
		cfg.ValidateResponses = &c.validate
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a.setupLogging(c.verbose)
	return cfg, nil
}

func (a *app) setupLogging(verbose bool) {
	monitoring.SetVerbose(verbose)
	if verbose {
		monitoring.SetLogger(log.New(a.stderr, "", log.LstdFlags).Printf)
	} else {
		monitoring.SetLogger(nil)
	}
}

func (a *app) newClient(cfg *config.ClientConfig) (*surveyapi.Client, error) {
	var opts []surveyapi.Option
	if a.http != nil {
		opts = append(opts, surveyapi.WithHTTPClient(a.http))
	}
	client, err := surveyapi.NewClientFromConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("backend %s", client.BaseURL())
	return client, nil
}

// surveyIDArg returns the single positional survey id.
func surveyIDArg(fs *flag.FlagSet) (surveyapi.SurveyID, error) {
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", fmt.Errorf("%s requires exactly one survey id", fs.Name())
	}
	return surveyapi.SurveyID(strings.TrimSpace(fs.Arg(0))), nil
}
