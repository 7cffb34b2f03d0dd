package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/ingest"
	"github.com/wonny/alphapulse/internal/settings"
	"github.com/wonny/alphapulse/pkg/config"
	"github.com/wonny/alphapulse/pkg/httputil"
	"github.com/wonny/alphapulse/pkg/logger"
)

// app bundles what every command loads first
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	settings *settings.Config
}

// newApp loads env config and analysis settings. Logs go to stderr so
// stdout stays clean for report output.
func newApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(os.Stderr, level)

	st, err := loadSettings(cfg, opts.settingsPath)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, settings: st}, nil
}

// loadSettings reads the settings file, or builds defaults from env config
// when no file is given
func loadSettings(cfg *config.Config, path string) (*settings.Config, error) {
	if path == "" {
		path = cfg.Analytics.SettingsPath
	}

	if path != "" {
		st, _, err := settings.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load settings %s: %w", path, err)
		}
		return st, nil
	}

	st := settings.Default()
	st.Drawdowns.MaxPeriods = cfg.Analytics.MaxDrawdowns
	st.Projection.Simulations = cfg.Analytics.Simulations
	if err := settings.Validate(st); err != nil {
		return nil, err
	}
	return st, nil
}

// loadDataset reads a dataset from a file path or an http(s) URL.
// CSV input without --capital uses INITIAL_CAPITAL.
func (a *app) loadDataset(ctx context.Context, source string, capital float64) (*contracts.PerformanceDataset, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		fetcher := ingest.NewFetcher(httputil.New(a.cfg, a.log), a.cfg.Upload.MaxBytes)
		if capital == 0 && strings.HasSuffix(strings.ToLower(source), ".csv") {
			capital = a.cfg.Analytics.InitialCapital
		}
		return fetcher.Fetch(ctx, source, capital)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	format, err := ingest.DetectFormat("", "", source)
	if err != nil {
		return nil, err
	}
	if format == ingest.FormatCSV && capital == 0 {
		capital = a.cfg.Analytics.InitialCapital
	}

	data, err := ingest.ReadLimited(f, a.cfg.Upload.MaxBytes)
	if err != nil {
		return nil, err
	}
	return ingest.Decode(format, bytes.NewReader(data), capital)
}
