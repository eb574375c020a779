package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the server configuration. Every field has a working default;
// a YAML file overrides defaults and JSONDB_* environment variables
// override the file.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPAddr   string `yaml:"http_addr"`
	LogPath    string `yaml:"log_path"`

	CommitLog CommitLogConfig `yaml:"commit_log"`
}

type CommitLogConfig struct {
	MaxPending       int `yaml:"max_pending"`
	EnqueueTimeoutMS int `yaml:"enqueue_timeout_ms"`
}

func Default() Config {
	return Config{
		ListenAddr: "127.0.0.1:6142",
		HTTPAddr:   "127.0.0.1:6143",
		LogPath:    "jsondb.log",
		CommitLog: CommitLogConfig{
			MaxPending:       1024,
			EnqueueTimeoutMS: 5000,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file; a missing file at
// an explicit path is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("config file %s does not exist", path)
			}
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("JSONDB_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("JSONDB_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("JSONDB_LOG"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("JSONDB_MAX_PENDING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CommitLog.MaxPending = n
		}
	}
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr must not be empty")
	}
	if c.LogPath == "" {
		return errors.New("log_path must not be empty")
	}
	if c.CommitLog.MaxPending < 0 {
		return errors.New("commit_log.max_pending must not be negative")
	}
	return nil
}

// EnqueueTimeout returns the commit log enqueue timeout as a duration.
func (c *Config) EnqueueTimeout() time.Duration {
	return time.Duration(c.CommitLog.EnqueueTimeoutMS) * time.Millisecond
}
