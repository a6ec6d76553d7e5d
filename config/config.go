package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Duration wraps time.Duration for TOML text decoding ("30s", "5m").
type Duration time.Duration

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (d *Duration) UnmarshalText(raw []byte) error {
	dur, err := time.ParseDuration(string(raw))
	if err != nil {
		return err
	}
	*d = Duration(dur)

	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type (
	// Config keeps the offline bridge settings: TOML file with env overrides.
	Config struct {
		// Local proxy listen address
		ListenAddr string `toml:"listen_addr"`
		// Upstream API server base URL
		UpstreamURL string `toml:"upstream_url"`
		// Path prefix classifying API requests
		APIPrefix string `toml:"api_prefix"`

		// Durable store driver (sqlite3 / postgres) and DSN
		DBDriver string `toml:"db_driver"`
		DBDSN    string `toml:"db_dsn"`

		// Cached API responses older than this are a miss at read time
		CacheTTL Duration `toml:"cache_ttl"`
		// Pending-queue check cadence
		SyncPeriod Duration `toml:"sync_period"`
		// Cache warmup cadence and the read endpoints it refreshes
		WarmPeriod    Duration `toml:"warm_period"`
		WarmEndpoints []string `toml:"warm_endpoints"`

		// Connectivity probe target and cadence
		ProbeURL     string   `toml:"probe_url"`
		ProbePeriod  Duration `toml:"probe_period"`
		ProbeTimeout Duration `toml:"probe_timeout"`
		// Optional websocket connectivity watcher (empty disables it)
		WatchWSURL string `toml:"watch_ws_url"`

		// Upstream request timeout
		RequestTimeout Duration `toml:"request_timeout"`
	}
)

// Validate checks the config field constraints.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%s: empty", "listen_addr")
	}
	if c.UpstreamURL == "" {
		return fmt.Errorf("%s: empty", "upstream_url")
	}
	if c.APIPrefix == "" {
		return fmt.Errorf("%s: empty", "api_prefix")
	}
	if c.DBDriver == "" {
		return fmt.Errorf("%s: empty", "db_driver")
	}
	if c.DBDSN == "" {
		return fmt.Errorf("%s: empty", "db_dsn")
	}
	if c.CacheTTL.Std() < 0 {
		return fmt.Errorf("%s: must be GTE 0", "cache_ttl")
	}
	if c.SyncPeriod.Std() <= 0 {
		return fmt.Errorf("%s: must be GT 0", "sync_period")
	}
	if c.WarmPeriod.Std() <= 0 {
		return fmt.Errorf("%s: must be GT 0", "warm_period")
	}
	if c.ProbePeriod.Std() <= 0 {
		return fmt.Errorf("%s: must be GT 0", "probe_period")
	}
	if c.ProbeTimeout.Std() <= 0 {
		return fmt.Errorf("%s: must be GT 0", "probe_timeout")
	}
	if c.RequestTimeout.Std() <= 0 {
		return fmt.Errorf("%s: must be GT 0", "request_timeout")
	}

	return nil
}

// Default returns the Config defaults: 30s pending check, 5m cache refresh,
// 24h cache staleness.
func Default() Config {
	return Config{
		ListenAddr:  "127.0.0.1:8480",
		UpstreamURL: "http://127.0.0.1:5000",
		APIPrefix:   "/api/",
		DBDriver:    "sqlite3",
		DBDSN:       "data/offline-bridge.db",
		CacheTTL:    Duration(24 * time.Hour),
		SyncPeriod:  Duration(30 * time.Second),
		WarmPeriod:  Duration(5 * time.Minute),
		WarmEndpoints: []string{
			"/api/resources",
			"/api/activity",
			"/api/timeline",
			"/api/goals",
			"/api/stats",
		},
		ProbePeriod:    Duration(15 * time.Second),
		ProbeTimeout:   Duration(5 * time.Second),
		RequestTimeout: Duration(30 * time.Second),
	}
}

// Load builds the Config: defaults, optional TOML file, env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := ioutil.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config read (%s): %w", path, err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse (%s): %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, fmt.Errorf("config env override: %w", err)
	}

	if cfg.ProbeURL == "" {
		cfg.ProbeURL = cfg.UpstreamURL
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validate: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides every field from its OFFLINE_BRIDGE_* environment
// variable; duration values use the time.ParseDuration format.
func (c *Config) applyEnv() error {
	if v := os.Getenv("OFFLINE_BRIDGE_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("OFFLINE_BRIDGE_UPSTREAM_URL"); v != "" {
		c.UpstreamURL = v
	}
	if v := os.Getenv("OFFLINE_BRIDGE_API_PREFIX"); v != "" {
		c.APIPrefix = v
	}
	if v := os.Getenv("OFFLINE_BRIDGE_DB_DRIVER"); v != "" {
		c.DBDriver = v
	}
	if v := os.Getenv("OFFLINE_BRIDGE_DB_DSN"); v != "" {
		c.DBDSN = v
	}
	if v := os.Getenv("OFFLINE_BRIDGE_WARM_ENDPOINTS"); v != "" {
		endpoints := make([]string, 0)
		for _, endpoint := range strings.Split(v, ",") {
			if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
				endpoints = append(endpoints, endpoint)
			}
		}
		c.WarmEndpoints = endpoints
	}
	if v := os.Getenv("OFFLINE_BRIDGE_PROBE_URL"); v != "" {
		c.ProbeURL = v
	}
	if v := os.Getenv("OFFLINE_BRIDGE_WATCH_WS_URL"); v != "" {
		c.WatchWSURL = v
	}

	for envKey, target := range map[string]*Duration{
		"OFFLINE_BRIDGE_CACHE_TTL":       &c.CacheTTL,
		"OFFLINE_BRIDGE_SYNC_PERIOD":     &c.SyncPeriod,
		"OFFLINE_BRIDGE_WARM_PERIOD":     &c.WarmPeriod,
		"OFFLINE_BRIDGE_PROBE_PERIOD":    &c.ProbePeriod,
		"OFFLINE_BRIDGE_PROBE_TIMEOUT":   &c.ProbeTimeout,
		"OFFLINE_BRIDGE_REQUEST_TIMEOUT": &c.RequestTimeout,
	} {
		v := os.Getenv(envKey)
		if v == "" {
			continue
		}
		if err := target.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s (%s): %w", envKey, v, err)
		}
	}

	return nil
}
