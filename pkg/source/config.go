package source

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Supported source store kinds.
const (
	KindLocal = "local"
	KindSFTP  = "sftp"
)

// Config holds source store connection parameters.
// A local store mirrors source paths beneath Root; an SFTP store resolves
// only relative paths against Root.
type Config struct {
	Kind       string `toml:"kind"`
	Root       string `toml:"root"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	KeyFile    string `toml:"key_file"`
	KnownHosts string `toml:"known_hosts"`
	Timeout    string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Kind       string
	Root       string
	Host       string
	Port       string
	User       string
	Password   string
	KeyFile    string
	KnownHosts string
	Timeout    string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Kind != "" {
		c.Kind = overlay.Kind
	}
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.User != "" {
		c.User = overlay.User
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.KeyFile != "" {
		c.KeyFile = overlay.KeyFile
	}
	if overlay.KnownHosts != "" {
		c.KnownHosts = overlay.KnownHosts
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Kind == "" {
		c.Kind = KindLocal
	}
	if c.Port == 0 {
		c.Port = 22
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Kind != "" {
		if v := os.Getenv(env.Kind); v != "" {
			c.Kind = v
		}
	}
	if env.Root != "" {
		if v := os.Getenv(env.Root); v != "" {
			c.Root = v
		}
	}
	if env.Host != "" {
		if v := os.Getenv(env.Host); v != "" {
			c.Host = v
		}
	}
	if env.Port != "" {
		if v := os.Getenv(env.Port); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				c.Port = port
			}
		}
	}
	if env.User != "" {
		if v := os.Getenv(env.User); v != "" {
			c.User = v
		}
	}
	if env.Password != "" {
		if v := os.Getenv(env.Password); v != "" {
			c.Password = v
		}
	}
	if env.KeyFile != "" {
		if v := os.Getenv(env.KeyFile); v != "" {
			c.KeyFile = v
		}
	}
	if env.KnownHosts != "" {
		if v := os.Getenv(env.KnownHosts); v != "" {
			c.KnownHosts = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Kind {
	case KindLocal:
	case KindSFTP:
		if c.Host == "" {
			return fmt.Errorf("host required for sftp source")
		}
		if c.User == "" {
			return fmt.Errorf("user required for sftp source")
		}
		if c.Password == "" && c.KeyFile == "" {
			return fmt.Errorf("password or key_file required for sftp source")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Kind)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
