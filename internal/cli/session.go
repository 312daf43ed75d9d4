package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/cellar/internal/catalogue"
	"github.com/roach88/cellar/internal/config"
	"github.com/roach88/cellar/internal/metrics"
	"github.com/roach88/cellar/internal/store"
)

// session is everything one command invocation needs.
type session struct {
	cfg      config.Config
	log      *slog.Logger
	store    *store.Store
	cat      *catalogue.Catalogue
	out      *OutputFormatter
	registry *prometheus.Registry
}

// effectiveConfig loads the config file and applies flag overrides.
func effectiveConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if opts.MetricsTextfile != "" {
		cfg.Metrics.Textfile = opts.MetricsTextfile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "pretty":
		handler = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.TimeOnly})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler), nil
}

// openSession loads config, configures logging and opens the catalogue.
// The caller must Close the session.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := effectiveConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	log, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	log.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path,
		store.WithWAL(cfg.Database.WAL),
		store.WithBusyTimeout(cfg.Database.BusyTimeoutMS),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s := &session{
		cfg:   cfg,
		log:   log,
		store: st,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}

	var collector metrics.Collector = metrics.Noop{}
	if cfg.Metrics.Textfile != "" {
		s.registry = prometheus.NewRegistry()
		collector = metrics.NewPrometheus(s.registry)
	}

	s.cat, err = catalogue.New(cmd.Context(), st,
		catalogue.WithLogger(log),
		catalogue.WithMetrics(collector),
		catalogue.WithChunkSize(cfg.Ingest.ChunkSize),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open catalogue", err)
	}

	return s, nil
}

// Close flushes metrics and closes the store.
func (s *session) Close() error {
	var errs []error
	if s.registry != nil {
		if err := prometheus.WriteToTextfile(s.cfg.Metrics.Textfile, s.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

// fail reports err in the configured format and returns it as an ExitError.
func (s *session) fail(code int, message string, err error) error {
	_ = s.out.Error(ErrorCode(err), fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(code, message, err)
}

// withSession runs fn inside an open session.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(*session) error) (err error) {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "failed to close session", cerr)
		}
	}()
	return fn(s)
}
