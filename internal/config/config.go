package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

// Config stores all configuration for the scraper engine and its front ends.
type Config struct {
	Headless            bool    `mapstructure:"HEADLESS"`
	TimeoutMS           int     `mapstructure:"TIMEOUT_MS"`
	TrimNoiseSections   bool    `mapstructure:"TRIM_NOISE_SECTIONS"`
	MaxDescriptionChars int     `mapstructure:"MAX_DESCRIPTION_CHARS"`
	Concurrency         int     `mapstructure:"CONCURRENCY"`
	BrowserEngine       string  `mapstructure:"BROWSER_ENGINE"`
	ChromePath          string  `mapstructure:"CHROME_PATH"`
	ProxyServers        string  `mapstructure:"PROXY_SERVERS"`
	UserAgents          string  `mapstructure:"USER_AGENTS"`
	ProfilesFile        string  `mapstructure:"PROFILES_FILE"`
	HostRateLimit       float64 `mapstructure:"HOST_RATE_LIMIT"`
	HostRateBurst       int     `mapstructure:"HOST_RATE_BURST"`
	ServerPort          string  `mapstructure:"SERVER_PORT"`
	LogLevel            string  `mapstructure:"LOG_LEVEL"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"headful":     "HEADFUL",
	"timeout-ms":  "TIMEOUT_MS",
	"max-chars":   "MAX_DESCRIPTION_CHARS",
	"concurrency": "CONCURRENCY",
	"engine":      "BROWSER_ENGINE",
	"profiles":    "PROFILES_FILE",
	"log-level":   "LOG_LEVEL",
	"port":        "SERVER_PORT",
}

// Load reads configuration from an env file, environment variables and,
// when given, command-line flags (highest precedence). configFile may be
// empty, in which case ".env" in the working directory is tried.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
	}
	v.AutomaticEnv()

	// A missing .env is fine, configuration can come purely from the environment.
	if err := v.ReadInConfig(); err != nil && configFile != "" {
		return nil, fmt.Errorf("read config %s: %w", configFile, err)
	}

	v.SetDefault("HEADLESS", true)
	v.SetDefault("TIMEOUT_MS", 30000)
	v.SetDefault("TRIM_NOISE_SECTIONS", true)
	v.SetDefault("MAX_DESCRIPTION_CHARS", 15000)
	v.SetDefault("CONCURRENCY", 3)
	v.SetDefault("BROWSER_ENGINE", EngineChromedp)
	v.SetDefault("CHROME_PATH", "")
	v.SetDefault("PROXY_SERVERS", "")
	v.SetDefault("USER_AGENTS", "")
	v.SetDefault("PROFILES_FILE", "")
	v.SetDefault("HOST_RATE_LIMIT", 0)
	v.SetDefault("HOST_RATE_BURST", 1)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if flags != nil {
		if f := flags.Lookup("headful"); f != nil && f.Changed && v.GetBool("HEADFUL") {
			cfg.Headless = false
		}
		if f := flags.Lookup("full"); f != nil && f.Changed && f.Value.String() == "true" {
			cfg.TrimNoiseSections = false
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("TIMEOUT_MS must be positive, got %d", c.TimeoutMS)
	}
	if c.MaxDescriptionChars <= 0 {
		return fmt.Errorf("MAX_DESCRIPTION_CHARS must be positive, got %d", c.MaxDescriptionChars)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.HostRateLimit < 0 {
		return fmt.Errorf("HOST_RATE_LIMIT must not be negative")
	}
	switch c.BrowserEngine {
	case EngineChromedp, EnginePlaywright:
	default:
		return fmt.Errorf("unsupported BROWSER_ENGINE %q", c.BrowserEngine)
	}
	return nil
}

// UserAgentList splits USER_AGENTS, which is "|"-separated since user agent
// strings themselves contain commas.
func (c *Config) UserAgentList() []string {
	return splitList(c.UserAgents, "|")
}

// ProxyList splits the comma-separated PROXY_SERVERS.
func (c *Config) ProxyList() []string {
	return splitList(c.ProxyServers, ",")
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
