package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	defaultRefreshInterval = 3600
	defaultMaxItems        = 50
	defaultTimeout         = 30
	defaultVerifyLimit     = 5
)

var ErrConfigNotFound = errors.New("feed config not found")

var validFilterFields = map[string]bool{
	"title":       true,
	"description": true,
	"content":     true,
	"link":        true,
	"categories":  true,
}

// ConfigCache holds the watch-feed configurations found in a directory, one
// YAML file per feed.
type ConfigCache struct {
	feedsDir string
	cache    map[string]*Config
	mu       sync.RWMutex
}

func NewConfigCache(feedsDir string) *ConfigCache {
	return &ConfigCache{
		feedsDir: feedsDir,
		cache:    make(map[string]*Config),
	}
}

// Run loads every *.yml file of the feeds directory. A missing directory means
// no feeds are watched.
func (cc *ConfigCache) Run() error {
	if cc.feedsDir == "" {
		return nil
	}
	if _, err := os.Stat(cc.feedsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.feedsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		feedName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(feedName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded",
			"feed", feedName,
			"enabled", config.Settings.Enabled,
			"verify", config.Settings.Verify,
			"refresh_interval", config.Settings.RefreshInterval)
	}

	return nil
}

// LoadConfig (re)reads the configuration of feedName and caches it.
func (cc *ConfigCache) LoadConfig(feedName string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(cc.feedsDir, feedName+".yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	config, err := ParseConfig(feedName, data)
	if err != nil {
		return nil, err
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(feedName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[feedName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, feedName)
	}
	return config, nil
}

// GetConfigs returns all cached configurations ordered by name.
func (cc *ConfigCache) GetConfigs() []*Config {
	return cc.collect(func(*Config) bool { return true })
}

func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	return cc.collect(func(c *Config) bool { return c.Settings.Enabled })
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) collect(keep func(*Config) bool) []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.cache))
	for _, c := range cc.cache {
		if keep(c) {
			configs = append(configs, c)
		}
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}

// ParseConfig decodes a feed configuration, applies defaults and validates it.
func ParseConfig(feedName string, data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	config.Name = feedName

	s := &config.Settings
	if s.RefreshInterval == 0 {
		s.RefreshInterval = defaultRefreshInterval
	}
	if s.MaxItems == 0 {
		s.MaxItems = defaultMaxItems
	}
	if s.Timeout == 0 {
		s.Timeout = defaultTimeout
	}
	if s.VerifyLimit == 0 {
		s.VerifyLimit = defaultVerifyLimit
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", feedName, err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Name == "" {
		return errors.New("feed name is required")
	}
	if config.URL == "" {
		return errors.New("feed URL is required")
	}

	s := config.Settings
	if s.RefreshInterval < 0 || s.MaxItems < 0 || s.Timeout < 0 || s.VerifyLimit < 0 {
		return errors.New("settings must be non-negative")
	}

	for i, filter := range config.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
