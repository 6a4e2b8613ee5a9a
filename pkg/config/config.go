// Package config loads valgraph configuration.
//
// Configuration can be loaded from:
//   - YAML configuration file
//   - Environment variables (override the file)
//   - Programmatic defaults
//
// Environment Variables:
//
//	VALGRAPH_RELATIONS          - Relation pairs, "parent:child,owner:pet"
//	VALGRAPH_SEED               - Seed file to load at startup
//	VALGRAPH_CACHE_ENABLED      - Enable the query result cache (default: true)
//	VALGRAPH_CACHE_MAX_SIZE     - Cached results kept (default: 1000)
//	VALGRAPH_CACHE_TTL          - Result TTL, "5m" or seconds (default: 5m)
//	VALGRAPH_POOL_ENABLED       - Recycle query key buffers (default: true)
//	VALGRAPH_POOL_MAX_CAP       - Largest buffer returned to a pool (default: 65536)
//	VALGRAPH_LOG_VERBOSE        - Log every commit and rollback (default: false)
//	VALGRAPH_QUERY_PARALLELISM  - Concurrent queries per CLI call (default: 4)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/valgraph/pkg/graph"
)

// Config is the top-level configuration.
//
// Example:
//
//	cfg, err := config.Load("./valgraph.yaml")
//	if err != nil {
//		log.Fatalf("Configuration error: %v", err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Configuration error: %v", err)
//	}
type Config struct {
	// Relations registered on every graph the process creates.
	Relations []Relation `yaml:"relations"`

	// Seed is an optional seed document loaded at startup.
	Seed string `yaml:"seed"`

	Cache CacheConfig `yaml:"cache"`
	Pool  PoolConfig  `yaml:"pool"`
	Log   LogConfig   `yaml:"log"`
	Query QueryConfig `yaml:"query"`
}

// Relation is one pair of opposite relation keys.
type Relation struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// CacheConfig controls the query result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	MaxSize int           `yaml:"max_size"`
	TTL     time.Duration `yaml:"ttl"`
}

// PoolConfig controls recycling of the buffers that render query keys.
type PoolConfig struct {
	Enabled bool `yaml:"enabled"`
	MaxCap  int  `yaml:"max_cap"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Verbose logs every snapshot commit and rollback.
	Verbose bool `yaml:"verbose"`
}

// QueryConfig controls the query command.
type QueryConfig struct {
	// Parallelism bounds how many queries run at once against one snapshot.
	Parallelism int `yaml:"parallelism"`
}

// DefaultConfig returns a configuration with no relations and the cache on.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Enabled: true,
			MaxSize: 1000,
			TTL:     5 * time.Minute,
		},
		Pool: PoolConfig{
			Enabled: true,
			MaxCap:  64 * 1024,
		},
		Query: QueryConfig{Parallelism: 4},
	}
}

// LoadConfig loads configuration from a YAML file. Fields the file leaves
// out keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the process configuration: defaults when path is empty,
// otherwise the file at path, then environment variables on top.
// Environment variables take precedence. A path that cannot be read or
// parsed is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if val := os.Getenv("VALGRAPH_RELATIONS"); val != "" {
		if rels, err := ParseRelations(val); err == nil {
			c.Relations = rels
		}
	}
	c.Seed = getEnv("VALGRAPH_SEED", c.Seed)
	c.Cache.Enabled = getEnvBool("VALGRAPH_CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.MaxSize = getEnvInt("VALGRAPH_CACHE_MAX_SIZE", c.Cache.MaxSize)
	c.Cache.TTL = getEnvDuration("VALGRAPH_CACHE_TTL", c.Cache.TTL)
	c.Pool.Enabled = getEnvBool("VALGRAPH_POOL_ENABLED", c.Pool.Enabled)
	c.Pool.MaxCap = getEnvInt("VALGRAPH_POOL_MAX_CAP", c.Pool.MaxCap)
	c.Log.Verbose = getEnvBool("VALGRAPH_LOG_VERBOSE", c.Log.Verbose)
	c.Query.Parallelism = getEnvInt("VALGRAPH_QUERY_PARALLELISM", c.Query.Parallelism)
}

// ParseRelations parses "from:to" pairs separated by commas.
func ParseRelations(s string) ([]Relation, error) {
	var out []Relation
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("relation %q: want from:to", part)
		}
		out = append(out, Relation{From: strings.TrimSpace(from), To: strings.TrimSpace(to)})
	}
	return out, nil
}

// RelationPairs converts the configured relations for graph.WithRelations.
func (c *Config) RelationPairs() []graph.RelationPair {
	out := make([]graph.RelationPair, len(c.Relations))
	for i, r := range c.Relations {
		out[i] = graph.RelationPair{From: r.From, To: r.To}
	}
	return out
}

// Validate checks the configuration for errors.
//
// Relation keys must be non-empty, the two keys of a pair must differ, and
// no key may appear in two pairs.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, r := range c.Relations {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("relation %s:%s: empty key", r.From, r.To)
		}
		if r.From == r.To {
			return fmt.Errorf("relation %s:%s: keys must differ", r.From, r.To)
		}
		for _, k := range []string{r.From, r.To} {
			if seen[k] {
				return fmt.Errorf("relation key %q used twice", k)
			}
			seen[k] = true
		}
	}

	if c.Cache.Enabled && c.Cache.MaxSize <= 0 {
		return fmt.Errorf("invalid cache max size: %d", c.Cache.MaxSize)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("invalid cache ttl: %s", c.Cache.TTL)
	}
	if c.Pool.Enabled && c.Pool.MaxCap <= 0 {
		return fmt.Errorf("invalid pool max cap: %d", c.Pool.MaxCap)
	}
	if c.Query.Parallelism <= 0 {
		return fmt.Errorf("invalid query parallelism: %d", c.Query.Parallelism)
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	rels := make([]string, len(c.Relations))
	for i, r := range c.Relations {
		rels[i] = r.From + ":" + r.To
	}
	return fmt.Sprintf(
		"Config{Relations: [%s], Seed: %q, Cache: %v/%d/%s, Pool: %v/%d, Parallelism: %d}",
		strings.Join(rels, " "), c.Seed,
		c.Cache.Enabled, c.Cache.MaxSize, c.Cache.TTL,
		c.Pool.Enabled, c.Pool.MaxCap,
		c.Query.Parallelism,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultVal
	}
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

// ExampleConfigYAML is a commented sample configuration file.
const ExampleConfigYAML = `# valgraph configuration

# Relation pairs registered on every graph
relations:
  - from: parent
    to: child
  - from: owner
    to: pet

# Seed document loaded at startup (optional)
seed: ./seed.yaml

cache:
  enabled: true
  max_size: 1000
  ttl: 5m

pool:
  enabled: true
  max_cap: 65536

log:
  verbose: false

query:
  parallelism: 4
`
