// Package config holds the settings shared by the terminal game and the
// daemon: search limits, heuristic weights, cache sizing and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
)

const (
	configFile = "gomoku/config.yaml"
	cacheDir   = "gomoku/tt"
)

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("config error: %s", e.err)
}

type SearchConfig struct {
	Depth  int `yaml:"depth" json:"depth" validate:"gte=1,lte=10"`
	Radius int `yaml:"radius" json:"radius" validate:"gte=1,lte=5"`
	// TimeoutSeconds bounds one AI move; zero means no limit.
	TimeoutSeconds int  `yaml:"timeout" json:"timeout" validate:"gte=0"`
	Pruning        bool `yaml:"pruning" json:"pruning"`
	UseCache       bool `yaml:"use_cache" json:"use_cache"`
	Killers        bool `yaml:"killers" json:"killers"`
	Tactics        bool `yaml:"tactics" json:"tactics"`
}

type CacheConfig struct {
	Size    uint64 `yaml:"size" json:"size" validate:"gte=1"`
	Buckets int    `yaml:"buckets" json:"buckets" validate:"gte=1,lte=8"`
	Persist bool   `yaml:"persist" json:"persist"`
	Dir     string `yaml:"dir" json:"dir"`
}

type ServerConfig struct {
	MaxDepth       int     `yaml:"max_depth" json:"max_depth" validate:"gte=1,lte=10"`
	MaxRadius      int     `yaml:"max_radius" json:"max_radius" validate:"gte=1,lte=5"`
	MaxSearches    int64   `yaml:"max_searches" json:"max_searches" validate:"gte=1"`
	RatePerSecond  float64 `yaml:"rate_per_second" json:"rate_per_second" validate:"gte=0"`
	RateBurst      int     `yaml:"rate_burst" json:"rate_burst" validate:"gte=0"`
	ShutdownWaitMs int     `yaml:"shutdown_wait_ms" json:"shutdown_wait_ms" validate:"gte=0"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=TRACE DEBUG INFO WARN ERROR FATAL trace debug info warn error fatal"`
	File  string `yaml:"file" json:"file"`
}

type Config struct {
	BoardSize  int            `yaml:"board_size" json:"board_size" validate:"oneof=15 19"`
	Search     SearchConfig   `yaml:"search" json:"search"`
	Heuristics engine.Weights `yaml:"heuristics" json:"heuristics"`
	Cache      CacheConfig    `yaml:"cache" json:"cache"`
	Server     ServerConfig   `yaml:"server" json:"server"`
	Log        LogConfig      `yaml:"log" json:"log"`
}

func DefaultConfig() Config {
	return Config{
		BoardSize: 19,
		Search: SearchConfig{
			Depth:    engine.DefaultDepth,
			Radius:   engine.DefaultRadius,
			Pruning:  true,
			UseCache: true,
			Killers:  true,
			Tactics:  true,
		},
		Heuristics: engine.DefaultWeights(),
		Cache: CacheConfig{
			Size:    1 << 18,
			Buckets: 4,
			Persist: true,
		},
		Server: ServerConfig{
			MaxDepth:       APIMaxDepth,
			MaxRadius:      APIMaxRadius,
			MaxSearches:    4,
			RatePerSecond:  50,
			RateBurst:      100,
			ShutdownWaitMs: 5000,
		},
		Log: LogConfig{Level: "INFO"},
	}
}

var validate = validator.New()

// Validate checks every field and reports all failures in one error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InvalidConfig{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s fails %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return &InvalidConfig{strings.Join(msgs, "; ")}
}

// Load reads a YAML file over DefaultConfig and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &InvalidConfig{fmt.Sprintf("%s: %v", path, err)}
	}
	cfg.Heuristics = cfg.Heuristics.Resolved()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SearchFile looks for gomoku/config.yaml in the XDG config directories.
func SearchFile() (string, error) {
	return xdg.SearchConfigFile(configFile)
}

// LoadDefault loads path when given, otherwise the XDG config file if one
// exists, otherwise the defaults. It returns the path actually read.
func LoadDefault(path string) (Config, string, error) {
	if path == "" {
		found, err := SearchFile()
		if err != nil {
			return DefaultConfig(), "", nil
		}
		path = found
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// CacheDir is where the daemon keeps its transposition table snapshot.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	marker, err := xdg.CacheFile(filepath.Join(cacheDir, ".keep"))
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Dir(marker), nil
}

// Timeout converts the search timeout to a duration; zero means none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

// EngineOptions builds search options for the given depth and radius.
func (c Config) EngineOptions(depth, radius int) engine.Options {
	return engine.Options{
		Depth:    depth,
		Radius:   radius,
		Timeout:  c.Timeout(),
		Pruning:  c.Search.Pruning,
		UseCache: c.Search.UseCache,
		Killers:  c.Search.Killers,
		Tactics:  c.Search.Tactics,
		Weights:  c.Heuristics,
	}
}

// NewTable sizes a transposition table from the cache settings.
func (c Config) NewTable() *engine.TranspositionTable {
	return engine.NewTranspositionTable(c.Cache.Size, c.Cache.Buckets)
}
