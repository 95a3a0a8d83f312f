package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"unicode/utf8"

	"hn-sampler/src/filter"
	"hn-sampler/src/metrics"
	"hn-sampler/src/pipeline"

	"gopkg.in/yaml.v3"
)

// Config struct for YAML config file
type Config struct {
	InputPath          string   `yaml:"input"`
	OutputPath         string   `yaml:"output"`
	CommentCountColumn int      `yaml:"comment_column"`
	Threshold          int64    `yaml:"threshold"`
	SampleSize         int      `yaml:"sample_size"`
	Delimiter          string   `yaml:"delimiter"`
	Encoding           string   `yaml:"encoding"`
	Seed               int64    `yaml:"seed"`
	IDColumn           int      `yaml:"id_column"`
	AtomicWrite        bool     `yaml:"atomic_write"`
	LogDir             string   `yaml:"log_dir"`
	MetricsFile        string   `yaml:"metrics_file"`
	MQ                 MQConfig `yaml:"mq"`
}

// MQConfig enables publishing the sample to a RabbitMQ queue.
type MQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Queue    string `yaml:"queue"`
}

// defaultConfig returns the settings used when no config file is given.
func defaultConfig() *Config {
	return &Config{
		InputPath:          "hacker_news_source.csv",
		OutputPath:         "hacker_news.csv",
		CommentCountColumn: 4,
		Threshold:          0,
		SampleSize:         20000,
		Delimiter:          ",",
		Encoding:           "utf-8",
		IDColumn:           0,
		AtomicWrite:        true,
		MQ: MQConfig{
			Host:     "localhost",
			Port:     5672,
			Username: "guest",
			Password: "guest",
			Queue:    "hn_sample",
		},
	}
}

// loadConfig loads the YAML config file over the defaults.
// Keys missing from the file keep their default values.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// delimiterRune returns the configured delimiter, or utf8.RuneError if it is
// not exactly one character.
func (c *Config) delimiterRune() rune {
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

func (c *Config) rabbitMQConfig() RabbitMQConfig {
	return RabbitMQConfig{
		Host:     c.MQ.Host,
		Port:     c.MQ.Port,
		Username: c.MQ.Username,
		Password: c.MQ.Password,
		Queue:    c.MQ.Queue,
	}
}

// validate checks the settings a run cannot start without.
func (c *Config) validate() error {
	if c.InputPath == "" {
		return errors.New("'input' must not be empty")
	}
	if c.OutputPath == "" {
		return errors.New("'output' must not be empty")
	}
	if filepath.Clean(c.InputPath) == filepath.Clean(c.OutputPath) {
		return fmt.Errorf("'output' must differ from 'input' (%s)", c.InputPath)
	}
	if c.CommentCountColumn < 0 {
		return fmt.Errorf("'comment_column' must not be negative, got %d", c.CommentCountColumn)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("'sample_size' must not be negative, got %d", c.SampleSize)
	}
	if !pipeline.ValidDelimiter(c.delimiterRune()) {
		return fmt.Errorf("'delimiter' must be a single character other than quote, CR or LF, got %q", c.Delimiter)
	}
	if c.MQ.Enabled {
		if err := c.rabbitMQConfig().Validate(); err != nil {
			return fmt.Errorf("mq: %w", err)
		}
	}
	return nil
}

// setupLogger returns a slog.Logger writing to sampler.log in logDir, or to
// stderr when logDir is empty. The returned file is nil in the stderr case.
func setupLogger(logDir string) (*slog.Logger, *os.File, error) {
	if logDir == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), nil, nil
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, err
	}
	logPath := filepath.Join(logDir, "sampler.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(logFile, nil))
	return logger, logFile, nil
}

// runSummary holds the row counts of a finished run.
type runSummary struct {
	Seed         int64
	RowsRead     int
	RowsKept     int
	RowsSampled  int
	DuplicateIDs int
}

// run loads, filters, samples and writes. When pub is non-nil the sampled
// rows are published after the output file has been written. m may be nil.
func run(ctx context.Context, cfg *Config, seed int64, pub rowPublisher, m *metrics.Metrics) (*runSummary, error) {
	delim := cfg.delimiterRune()
	summary := &runSummary{Seed: seed}

	ds, err := pipeline.Load(cfg.InputPath, pipeline.LoadOptions{
		Delimiter: delim,
		Encoding:  cfg.Encoding,
	})
	if err != nil {
		return nil, err
	}
	summary.RowsRead = len(ds.Rows)
	slog.Info("Loaded input", "path", cfg.InputPath, "rows", len(ds.Rows), "columns", len(ds.Header))

	kept, err := filter.NewCommentFilter(cfg.CommentCountColumn, cfg.Threshold).Apply(ds.Rows)
	if err != nil {
		return nil, err
	}
	summary.RowsKept = len(kept)
	slog.Info("Filtered rows", "kept", len(kept), "dropped", len(ds.Rows)-len(kept), "column", cfg.CommentCountColumn)

	if dups := pipeline.DuplicateIDs(kept, cfg.IDColumn); len(dups) > 0 {
		summary.DuplicateIDs = len(dups)
		slog.Warn("Duplicate post ids among kept rows", "count", len(dups), "first", dups[0], "column", cfg.IDColumn)
	}

	rng := rand.New(rand.NewSource(seed))
	sample, err := pipeline.Sample(rng, kept, cfg.SampleSize)
	if err != nil {
		return nil, err
	}
	slog.Info("Sampled rows", "sampled", len(sample), "seed", seed)

	err = pipeline.Write(cfg.OutputPath, ds.Header, sample, pipeline.WriteOptions{
		Delimiter: delim,
		CRLF:      ds.CRLF,
		Encoding:  cfg.Encoding,
		Atomic:    cfg.AtomicWrite,
	})
	if err != nil {
		return nil, err
	}
	summary.RowsSampled = len(sample)
	slog.Info("Sample written", "path", cfg.OutputPath, "rows", len(sample))

	if pub != nil {
		n, err := publishSample(ctx, pub, sample, delim)
		if err != nil {
			return summary, fmt.Errorf("output written but publishing stopped after %d rows: %w", n, err)
		}
		slog.Info("Sample published", "queue", cfg.MQ.Queue, "messages", n)
	}

	if m != nil {
		m.RowsRead.Add(float64(summary.RowsRead))
		m.RowsKept.Add(float64(summary.RowsKept))
		m.RowsSampled.Add(float64(summary.RowsSampled))
		m.DuplicateIDs.Set(float64(summary.DuplicateIDs))
	}
	return summary, nil
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (built-in defaults when empty)")
	flag.Parse()

	if err := execute(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "hn-sampler: %v\n", err)
		os.Exit(1)
	}
}

// execute performs one run from config loading to the optional sinks.
func execute(configPath string) error {
	cfg := defaultConfig()
	if configPath != "" {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logFile, err := setupLogger(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect before doing any work so an unreachable broker fails the run early.
	var pub rowPublisher
	if cfg.MQ.Enabled {
		mq, err := NewRabbitMQ(cfg.rabbitMQConfig())
		if err != nil {
			return err
		}
		defer mq.Close()
		pub = mq
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}

	start := time.Now()
	summary, err := run(ctx, cfg, seed, pub, m)
	if err != nil {
		slog.Error("Run failed", "error", err, "seed", seed)
		return err
	}
	end := time.Now()

	if cfg.LogDir != "" {
		statsPath := filepath.Join(cfg.LogDir, "stats.csv")
		if err := appendRunStats(statsPath, cfg.InputPath, summary, end); err != nil {
			slog.Warn("Failed to record run stats", "path", statsPath, "error", err)
		}
	}
	if m != nil {
		m.Finish(start, end)
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Warn("Failed to write metrics textfile", "path", cfg.MetricsFile, "error", err)
		}
	}

	slog.Info("Run complete",
		"read", summary.RowsRead,
		"kept", summary.RowsKept,
		"sampled", summary.RowsSampled,
		"seed", summary.Seed,
		"elapsed", end.Sub(start))
	return nil
}
