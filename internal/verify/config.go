package verify

import (
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
)

// Config holds the validation bounds and the metadata extraction tool.
type Config struct {
	MinLongitude float64 `toml:"min_longitude"`
	MaxLongitude float64 `toml:"max_longitude"`
	MinLatitude  float64 `toml:"min_latitude"`
	MaxLatitude  float64 `toml:"max_latitude"`
	Tool         string  `toml:"tool"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MinLongitude string
	MaxLongitude string
	MinLatitude  string
	MaxLatitude  string
	Tool         string
}

// Bound returns the expected deployment area.
func (c *Config) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.MinLongitude, c.MinLatitude},
		Max: orb.Point{c.MaxLongitude, c.MaxLatitude},
	}
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
	if overlay.MinLongitude != 0 {
		c.MinLongitude = overlay.MinLongitude
	}
	if overlay.MaxLongitude != 0 {
		c.MaxLongitude = overlay.MaxLongitude
	}
	if overlay.MinLatitude != 0 {
		c.MinLatitude = overlay.MinLatitude
	}
	if overlay.MaxLatitude != 0 {
		c.MaxLatitude = overlay.MaxLatitude
	}
	if overlay.Tool != "" {
		c.Tool = overlay.Tool
	}
}

func (c *Config) loadDefaults() {
	if c.MinLongitude == 0 && c.MaxLongitude == 0 {
		c.MinLongitude = -122
		c.MaxLongitude = -100
	}
	if c.MinLatitude == 0 && c.MaxLatitude == 0 {
		c.MinLatitude = 30
		c.MaxLatitude = 40
	}
	if c.Tool == "" {
		c.Tool = "exiftool"
	}
}

func (c *Config) loadEnv(env *Env) {
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{env.MinLongitude, &c.MinLongitude},
		{env.MaxLongitude, &c.MaxLongitude},
		{env.MinLatitude, &c.MinLatitude},
		{env.MaxLatitude, &c.MaxLatitude},
	} {
		if f.name == "" {
			continue
		}
		if v := os.Getenv(f.name); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				*f.dst = n
			}
		}
	}
	if env.Tool != "" {
		if v := os.Getenv(env.Tool); v != "" {
			c.Tool = v
		}
	}
}

func (c *Config) validate() error {
	if c.MinLongitude >= c.MaxLongitude {
		return fmt.Errorf("min_longitude must be less than max_longitude")
	}
	if c.MinLatitude >= c.MaxLatitude {
		return fmt.Errorf("min_latitude must be less than max_latitude")
	}
	return nil
}
