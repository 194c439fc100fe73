package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Replacement is a filename rewrite rule applied while organizing episode files.
type Replacement struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	// Repeat applies the rule until the name stops changing.
	Repeat bool `yaml:"repeat_until_no_change"`
}

// Config contains the program configuration
type Config struct {
	Verbose   bool `yaml:"verbose"`
	AssumeYes bool `yaml:"assume_yes"`

	// Torrent packaging
	AnnounceURL      string `yaml:"announce_url"`
	SourceTag        string `yaml:"source_tag"`
	PrivateTorrent   bool   `yaml:"private_torrent"`
	OutputDir        string `yaml:"output_dir"`
	MinPieceSize     int64  `yaml:"min_piece_size"`
	MaxPieceSize     int64  `yaml:"max_piece_size"`
	TargetPieceCount int    `yaml:"target_piece_count"`

	// Duplicate registry
	DupeCheckURL            string  `yaml:"dupecheck_url"`
	APIKey                  string  `yaml:"api_key"`
	DupeConfidenceThreshold float64 `yaml:"dupe_confidence_threshold"`

	// Podcastindex metadata provider
	PodcastIndexKey    string `yaml:"podcastindex_key"`
	PodcastIndexSecret string `yaml:"podcastindex_secret"`
	PodcastIndexURL    string `yaml:"podcastindex_url"`
	CacheDir           string `yaml:"cache_dir"`

	// Episode download
	Threads         int    `yaml:"threads"`
	EpisodeTemplate string `yaml:"episode_template"`

	// File organizing
	UnwantedFiles          []string      `yaml:"unwanted_files"`
	FileReplacements       []Replacement `yaml:"file_replacements"`
	CompletedThresholdDays int           `yaml:"completed_threshold_days"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		PrivateTorrent:          true,
		MinPieceSize:            16 * 1024,
		MaxPieceSize:            16 * 1024 * 1024,
		TargetPieceCount:        1000,
		DupeConfidenceThreshold: 0.8,
		PodcastIndexURL:         "https://api.podcastindex.org/api/1.0",
		CacheDir:                filepath.Join(homeDir(), ".cache", "podshare"),
		Threads:                 4,
		EpisodeTemplate:         "{{podcast_title}} - {{release_year}}-{{release_month}}-{{release_day}} {{title}}",
		CompletedThresholdDays:  365,
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.OutputDir = ExpandHome(cfg.OutputDir)
	cfg.CacheDir = ExpandHome(cfg.CacheDir)

	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./podshare.yaml",
		"./podshare.yml",
		filepath.Join(home, ".config", "podshare", "config.yaml"),
		filepath.Join(home, ".config", "podshare", "config.yml"),
		filepath.Join(home, ".podshare.yaml"),
		filepath.Join(home, ".podshare.yml"),
	}

	for _, path := range locations {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "podshare", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "podshare", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AnnounceURL != "" && !hasScheme(c.AnnounceURL) {
		return fmt.Errorf("announce_url must start with http://, https:// or udp://")
	}

	if c.MinPieceSize < 16*1024 {
		return fmt.Errorf("min_piece_size must be at least 16 KiB, got %d", c.MinPieceSize)
	}
	if c.MaxPieceSize > 16*1024*1024 {
		return fmt.Errorf("max_piece_size cannot exceed 16 MiB, got %d", c.MaxPieceSize)
	}
	if c.MinPieceSize > c.MaxPieceSize {
		return fmt.Errorf("min_piece_size %d exceeds max_piece_size %d", c.MinPieceSize, c.MaxPieceSize)
	}
	if !isPowerOfTwo(c.MinPieceSize) || !isPowerOfTwo(c.MaxPieceSize) {
		return fmt.Errorf("piece size bounds must be powers of two, got %d and %d", c.MinPieceSize, c.MaxPieceSize)
	}
	if c.TargetPieceCount < 1 {
		return fmt.Errorf("target_piece_count must be at least 1, got %d", c.TargetPieceCount)
	}

	if c.DupeConfidenceThreshold < 0 || c.DupeConfidenceThreshold > 1 {
		return fmt.Errorf("dupe_confidence_threshold must be between 0.0 and 1.0, got %.2f", c.DupeConfidenceThreshold)
	}
	if c.DupeCheckURL != "" && c.APIKey == "" {
		return fmt.Errorf("api_key is required when dupecheck_url is set")
	}

	if c.PodcastIndexKey != "" && c.PodcastIndexSecret == "" {
		return fmt.Errorf("podcastindex_secret is required when podcastindex_key is set")
	}

	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.Threads > 10 {
		return fmt.Errorf("threads cannot exceed 10, got %d", c.Threads)
	}

	if c.CompletedThresholdDays < 1 {
		return fmt.Errorf("completed_threshold_days must be at least 1, got %d", c.CompletedThresholdDays)
	}

	for i, r := range c.FileReplacements {
		if r.Pattern == "" {
			return fmt.Errorf("file_replacements[%d]: pattern cannot be empty", i)
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("file_replacements[%d]: invalid pattern %q: %w", i, r.Pattern, err)
		}
	}

	return nil
}

func hasScheme(url string) bool {
	return strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "udp://")
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}
