package storage

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultBucketPrefix is prepended to a collection id to form its bucket name.
const DefaultBucketPrefix = "sparcd-"

// Config holds destination object store connection parameters.
//
// Exactly one way of authenticating is used, checked in order: a connection
// string, a shared key (AccountName + AccountKey against AccountURL), or the
// ambient Azure identity against AccountURL.
type Config struct {
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	AccountName      string `toml:"account_name"`
	AccountKey       string `toml:"account_key"`
	BucketPrefix     string `toml:"bucket_prefix"`
	MaxListSize      int32  `toml:"max_list_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ConnectionString string
	AccountURL       string
	AccountName      string
	AccountKey       string
	BucketPrefix     string
	MaxListSize      string
}

// Bucket returns the bucket name for a collection id.
func (c *Config) Bucket(collectionID string) string {
	return c.BucketPrefix + collectionID
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
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
	if overlay.AccountName != "" {
		c.AccountName = overlay.AccountName
	}
	if overlay.AccountKey != "" {
		c.AccountKey = overlay.AccountKey
	}
	if overlay.BucketPrefix != "" {
		c.BucketPrefix = overlay.BucketPrefix
	}
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
}

func (c *Config) loadDefaults() {
	if c.BucketPrefix == "" {
		c.BucketPrefix = DefaultBucketPrefix
	}
	if c.MaxListSize == 0 {
		c.MaxListSize = 500
	}
	if c.MaxListSize > MaxListCap {
		c.MaxListSize = MaxListCap
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ConnectionString != "" {
		if v := os.Getenv(env.ConnectionString); v != "" {
			c.ConnectionString = v
		}
	}
	if env.AccountURL != "" {
		if v := os.Getenv(env.AccountURL); v != "" {
			c.AccountURL = v
		}
	}
	if env.AccountName != "" {
		if v := os.Getenv(env.AccountName); v != "" {
			c.AccountName = v
		}
	}
	if env.AccountKey != "" {
		if v := os.Getenv(env.AccountKey); v != "" {
			c.AccountKey = v
		}
	}
	if env.BucketPrefix != "" {
		if v := os.Getenv(env.BucketPrefix); v != "" {
			c.BucketPrefix = v
		}
	}
	if env.MaxListSize != "" {
		if v := os.Getenv(env.MaxListSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.MaxListSize = min(int32(n), MaxListCap)
			}
		}
	}
}

func (c *Config) validate() error {
	if c.ConnectionString == "" && c.AccountURL == "" {
		return fmt.Errorf("connection_string or account_url required")
	}
	if c.AccountKey != "" && c.AccountName == "" {
		return fmt.Errorf("account_name required with account_key")
	}
	return nil
}
