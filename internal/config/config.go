package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/stellarlinkco/clawdash/internal/logger"
)

const (
	DefaultCommand         = "openclaw"
	DefaultTimeoutMs       = 10000
	DefaultHealthTimeoutMs = 15000
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 18791
	DefaultStatusTTLMs     = 5000
	DefaultHealthTTLMs     = 5000
	DefaultSessionsTTLMs   = 10000
	DefaultCronTTLMs       = 30000
	DefaultMemoryTTLMs     = 60000
	DefaultSessionLimit    = 50
	DefaultPageSize        = 20
	DefaultMaxPageSize     = 100
	DefaultRecentTasks     = 5
	DefaultPushIntervalMs  = 5000
	DefaultBrandName       = "clawdash"
	DefaultBrandTagline    = "agent gateway monitor"
)

type Config struct {
	OpenClaw  OpenClawConfig `json:"openclaw"`
	Workspace string         `json:"workspace"`
	Server    ServerConfig   `json:"server"`
	Cache     CacheConfig    `json:"cache"`
	Activity  ActivityConfig `json:"activity"`
	Branding  BrandingConfig `json:"branding"`
	Log       logger.Config  `json:"log"`
}

type OpenClawConfig struct {
	Command         string `json:"command"`
	TimeoutMs       int    `json:"timeoutMs"`
	HealthTimeoutMs int    `json:"healthTimeoutMs"`
}

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	PushIntervalMs int    `json:"pushIntervalMs"`
}

// CacheConfig holds per-snapshot TTLs. Status and health back the live
// polling view, so they stay in the single-digit seconds.
type CacheConfig struct {
	StatusTTLMs   int `json:"statusTtlMs"`
	HealthTTLMs   int `json:"healthTtlMs"`
	SessionsTTLMs int `json:"sessionsTtlMs"`
	CronTTLMs     int `json:"cronTtlMs"`
	MemoryTTLMs   int `json:"memoryTtlMs"`
}

type ActivityConfig struct {
	SessionLimit    int `json:"sessionLimit"`
	DefaultPageSize int `json:"defaultPageSize"`
	MaxPageSize     int `json:"maxPageSize"`
	RecentTasks     int `json:"recentTasks"`
}

type BrandingConfig struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		OpenClaw: OpenClawConfig{
			Command:         DefaultCommand,
			TimeoutMs:       DefaultTimeoutMs,
			HealthTimeoutMs: DefaultHealthTimeoutMs,
		},
		Workspace: filepath.Join(home, ".openclaw", "workspace"),
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			PushIntervalMs: DefaultPushIntervalMs,
		},
		Cache: CacheConfig{
			StatusTTLMs:   DefaultStatusTTLMs,
			HealthTTLMs:   DefaultHealthTTLMs,
			SessionsTTLMs: DefaultSessionsTTLMs,
			CronTTLMs:     DefaultCronTTLMs,
			MemoryTTLMs:   DefaultMemoryTTLMs,
		},
		Activity: ActivityConfig{
			SessionLimit:    DefaultSessionLimit,
			DefaultPageSize: DefaultPageSize,
			MaxPageSize:     DefaultMaxPageSize,
			RecentTasks:     DefaultRecentTasks,
		},
		Branding: BrandingConfig{
			Name:    DefaultBrandName,
			Tagline: DefaultBrandTagline,
		},
		Log: logger.Config{
			Level:  "info",
			Output: "stderr",
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".clawdash")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadConfig reads the config file if present and applies environment
// overrides. Overrides are read once; callers keep the result for the
// lifetime of the process.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if cmd := os.Getenv("CLAWDASH_COMMAND"); cmd != "" {
		cfg.OpenClaw.Command = cmd
	}
	if ws := os.Getenv("CLAWDASH_WORKSPACE"); ws != "" {
		cfg.Workspace = ws
	} else if ws := os.Getenv("OPENCLAW_WORKSPACE"); ws != "" {
		cfg.Workspace = ws
	}
	if name := os.Getenv("CLAWDASH_BRAND_NAME"); name != "" {
		cfg.Branding.Name = name
	}
	if tagline := os.Getenv("CLAWDASH_BRAND_TAGLINE"); tagline != "" {
		cfg.Branding.Tagline = tagline
	}
	if host := os.Getenv("CLAWDASH_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("CLAWDASH_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if level := os.Getenv("CLAWDASH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if debug := os.Getenv("CLAWDASH_DEBUG"); debug != "" {
		if parsed, err := strconv.ParseBool(debug); err == nil {
			cfg.Log.Debug = parsed
		}
	}
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if strings.TrimSpace(cfg.OpenClaw.Command) == "" {
		cfg.OpenClaw.Command = def.OpenClaw.Command
	}
	if cfg.OpenClaw.TimeoutMs <= 0 {
		cfg.OpenClaw.TimeoutMs = def.OpenClaw.TimeoutMs
	}
	if cfg.OpenClaw.HealthTimeoutMs <= 0 {
		cfg.OpenClaw.HealthTimeoutMs = def.OpenClaw.HealthTimeoutMs
	}
	if cfg.Workspace == "" {
		cfg.Workspace = def.Workspace
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.PushIntervalMs <= 0 {
		cfg.Server.PushIntervalMs = def.Server.PushIntervalMs
	}
	if cfg.Cache.StatusTTLMs <= 0 {
		cfg.Cache.StatusTTLMs = def.Cache.StatusTTLMs
	}
	if cfg.Cache.HealthTTLMs <= 0 {
		cfg.Cache.HealthTTLMs = def.Cache.HealthTTLMs
	}
	if cfg.Cache.SessionsTTLMs <= 0 {
		cfg.Cache.SessionsTTLMs = def.Cache.SessionsTTLMs
	}
	if cfg.Cache.CronTTLMs <= 0 {
		cfg.Cache.CronTTLMs = def.Cache.CronTTLMs
	}
	if cfg.Cache.MemoryTTLMs <= 0 {
		cfg.Cache.MemoryTTLMs = def.Cache.MemoryTTLMs
	}
	if cfg.Activity.SessionLimit <= 0 {
		cfg.Activity.SessionLimit = def.Activity.SessionLimit
	}
	if cfg.Activity.DefaultPageSize <= 0 {
		cfg.Activity.DefaultPageSize = def.Activity.DefaultPageSize
	}
	if cfg.Activity.MaxPageSize <= 0 {
		cfg.Activity.MaxPageSize = def.Activity.MaxPageSize
	}
	if cfg.Activity.RecentTasks <= 0 {
		cfg.Activity.RecentTasks = def.Activity.RecentTasks
	}
	if cfg.Branding.Name == "" {
		cfg.Branding.Name = def.Branding.Name
	}
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (c OpenClawConfig) Timeout() time.Duration       { return ms(c.TimeoutMs) }
func (c OpenClawConfig) HealthTimeout() time.Duration { return ms(c.HealthTimeoutMs) }
func (c ServerConfig) PushInterval() time.Duration    { return ms(c.PushIntervalMs) }

func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c CacheConfig) StatusTTL() time.Duration   { return ms(c.StatusTTLMs) }
func (c CacheConfig) HealthTTL() time.Duration   { return ms(c.HealthTTLMs) }
func (c CacheConfig) SessionsTTL() time.Duration { return ms(c.SessionsTTLMs) }
func (c CacheConfig) CronTTL() time.Duration     { return ms(c.CronTTLMs) }
func (c CacheConfig) MemoryTTL() time.Duration   { return ms(c.MemoryTTLMs) }
