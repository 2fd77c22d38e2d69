package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/marquee/marquee/internal/cache"
	"github.com/marquee/marquee/internal/config"
	"github.com/marquee/marquee/internal/database"
	"github.com/marquee/marquee/internal/logger"
	"github.com/marquee/marquee/internal/metadata"
)

type commandContext struct {
	configFlag  *string
	outputFlag  *string
	offlineFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     *logger.Logger

	store *database.DB

	closers []func() error
}

func newCommandContext(configFlag, outputFlag *string, offlineFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		outputFlag:  outputFlag,
		offlineFlag: offlineFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.offlineFlag != nil && *c.offlineFlag {
			cfg.OMDB.Offline = true
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes to stderr so command output on stdout stays machine readable.
func (c *commandContext) logger() *logger.Logger {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			cfg = config.Default()
		}
		c.log = logger.New(logger.Config{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Path:       cfg.Logging.Path,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
			Output:     os.Stderr,
			Recent:     logger.NewLogBuffer(0),
		})
		c.closers = append(c.closers, c.log.Close)
	})
	return c.log
}

func (c *commandContext) outputFormat() (string, error) {
	format := "table"
	if c.outputFlag != nil && strings.TrimSpace(*c.outputFlag) != "" {
		format = strings.ToLower(strings.TrimSpace(*c.outputFlag))
	}
	switch format {
	case "table", "json", "yaml":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table, json or yaml)", format)
	}
}

// responseCache builds the provider response cache, backed by SQLite when
// cache.persist is set.
func (c *commandContext) responseCache(cfg *config.Config) (*cache.Cache, error) {
	log := c.logger()
	opts := []cache.Option{cache.WithLogger(log.Logger)}

	if cfg.Cache.Persist {
		if dir := filepath.Dir(cfg.Cache.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache directory: %w", err)
			}
		}
		db, err := database.Open(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("open response store: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		c.store = db
		opts = append(opts, cache.WithStore(database.NewResponseStore(db)))
	}

	return cache.New(cache.Config{TTL: cfg.Cache.TTL, MaxItems: cfg.Cache.MaxItems}, opts...), nil
}

func (c *commandContext) metadataService() (*metadata.Service, *cache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	respCache, err := c.responseCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := metadata.NewService(cfg, respCache, c.logger().Logger)
	return svc, respCache, nil
}

// close releases everything opened for the command, newest first.
func (c *commandContext) close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
