package main

import (
	"errors"
	"io"

	"github.com/metapath/metapath/internal/config"
	"github.com/metapath/metapath/internal/index"
	"github.com/metapath/metapath/internal/logging"
	"github.com/metapath/metapath/internal/metadata"
	"github.com/metapath/metapath/internal/scan"
	"github.com/rs/zerolog"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// loadConfig loads and validates the config named by --config. --log-level
// wins over the file.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return nil, errors.New("config path is required")
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger works without a config so that config-less commands still log.
func (o *rootOptions) newLogger(cfg *config.Config, w io.Writer) (zerolog.Logger, error) {
	level, format := o.logLevel, config.FormatConsole
	if cfg != nil {
		level, format = cfg.Logging.Level, cfg.Logging.Format
	}
	if level == "" {
		level = config.DefaultLogLevel
	}
	return logging.NewLogger(level, format, w)
}

func openEventLog(cfg *config.Config) (*logging.EventLogger, func() error, error) {
	if cfg.Logging.EventLog == "" {
		return nil, func() error { return nil }, nil
	}
	return logging.OpenEventLog(cfg.ResolvePath(cfg.Logging.EventLog))
}

func openStore(cfg *config.Config) (*index.DB, error) {
	return index.Open(cfg.ResolvePath(cfg.Index.Path))
}

func newScanner(cfg *config.Config, logger zerolog.Logger, events *logging.EventLogger) (*scan.Scanner, error) {
	ignore, err := scan.CompileIgnore(cfg.Scan.Ignore)
	if err != nil {
		return nil, err
	}
	return &scan.Scanner{
		Reader:   metadata.YAMLReader{},
		SelfName: cfg.MetaFiles.Self,
		ItemName: cfg.MetaFiles.Item,
		Ignore:   ignore,
		Workers:  cfg.Scan.Workers,
		Logger:   logger,
		Events:   events,
	}, nil
}

// selectLibraries returns every configured library, or just the named one.
func selectLibraries(cfg *config.Config, name string) ([]config.Library, error) {
	if name == "" {
		return cfg.Libraries, nil
	}
	lib, ok := cfg.Library(name)
	if !ok {
		return nil, errors.New("unknown library " + name)
	}
	return []config.Library{lib}, nil
}
