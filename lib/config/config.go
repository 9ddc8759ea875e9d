// Package config loads the YAML configuration shared by the CLI, the demo
// server and the runtime options.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration file.
type Config struct {
	Server struct {
		Addr    string `yaml:"addr"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Log struct {
		// dev | prod
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Token struct {
		Path      string        `yaml:"path"`
		Header    string        `yaml:"header"`
		Field     string        `yaml:"field"`
		Attr      string        `yaml:"attr"`
		Key       string        `yaml:"key"`
		TTL       time.Duration `yaml:"ttl"`
		Sensitive bool          `yaml:"sensitive"`
		Store     struct {
			// memory | redis
			Kind  string `yaml:"kind"`
			Redis struct {
				Addr   string `yaml:"addr"`
				DB     int    `yaml:"db"`
				Prefix string `yaml:"prefix"`
			} `yaml:"redis"`
		} `yaml:"store"`
	} `yaml:"token"`

	Page struct {
		MainID      string `yaml:"main_id"`
		FooterID    string `yaml:"footer_id"`
		SplitMarker string `yaml:"split_marker"`
		Timezone    string `yaml:"timezone"`
		TimeLayout  string `yaml:"time_layout"`
	} `yaml:"page"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path, applies defaults and then HXGLUE_* environment
// overrides. An empty path yields defaults plus overrides.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	c.applyDefaults()
	c.applyEnv()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Token.Path == "" {
		c.Token.Path = "/csrf/token"
	}
	if c.Token.Header == "" {
		c.Token.Header = "X-Csrf-Token"
	}
	if c.Token.Field == "" {
		c.Token.Field = "csrf_token"
	}
	if c.Token.Attr == "" {
		c.Token.Attr = "data-csrf-token"
	}
	if c.Token.TTL == 0 {
		c.Token.TTL = 2 * time.Hour
	}
	if c.Token.Store.Kind == "" {
		c.Token.Store.Kind = "memory"
	}
	if c.Token.Store.Redis.Prefix == "" {
		c.Token.Store.Redis.Prefix = "hxglue:csrf:"
	}
	if c.Page.MainID == "" {
		c.Page.MainID = "main-content"
	}
	if c.Page.FooterID == "" {
		c.Page.FooterID = "footer"
	}
	if c.Page.SplitMarker == "" {
		c.Page.SplitMarker = "<!-- split -->"
	}
	if c.Page.Timezone == "" {
		c.Page.Timezone = "Local"
	}
	if c.Page.TimeLayout == "" {
		c.Page.TimeLayout = "2006-01-02 15:04:05"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HXGLUE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("HXGLUE_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("HXGLUE_LOG_ENV"); v != "" {
		c.Log.Env = v
	}
	if v := os.Getenv("HXGLUE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HXGLUE_TOKEN_KEY"); v != "" {
		c.Token.Key = v
	}
	if v := os.Getenv("HXGLUE_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Token.TTL = d
		}
	}
	if v := os.Getenv("HXGLUE_TOKEN_SENSITIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Token.Sensitive = b
		}
	}
	if v := os.Getenv("HXGLUE_STORE"); v != "" {
		c.Token.Store.Kind = v
	}
	if v := os.Getenv("HXGLUE_REDIS_ADDR"); v != "" {
		c.Token.Store.Redis.Addr = v
	}
}
