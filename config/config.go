package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    string `toml:"port"`
	Token   string `toml:"token"`
	Libonnx string `toml:"libonnx"`
	Verbose bool   `toml:"verbose"`

	ModelPath string `toml:"model_path"`
	InputSize int    `toml:"input_size"`

	Threshold           float32 `toml:"threshold"`
	EarlyExitConfidence float32 `toml:"early_exit_confidence"`
	CropBudgetMs        int     `toml:"crop_budget_ms"`

	CacheTTLMs    int `toml:"cache_ttl_ms"`
	CacheCapacity int `toml:"cache_capacity"`

	FetchTimeoutMs int   `toml:"fetch_timeout_ms"`
	FetchMaxBytes  int64 `toml:"fetch_max_bytes"`
}

var (
	cfg = Config{
		Enabled:             false,
		Host:                "0.0.0.0",
		Port:                "8000",
		ModelPath:           "models/model.onnx",
		InputSize:           448,
		Threshold:           0.1,
		EarlyExitConfidence: 0.95,
		CropBudgetMs:        200,
		CacheTTLMs:          300000,
		CacheCapacity:       100,
		FetchTimeoutMs:      10000,
		FetchMaxBytes:       8 << 20,
	}
	loadOnce sync.Once
)

func C() Config {
	loadOnce.Do(func() {
		if _, err := os.Stat("config.toml"); err == nil {
			data, err := os.ReadFile("config.toml")
			if err != nil {
				panic(err)
			}
			if err := toml.Unmarshal(data, &cfg); err != nil {
				panic(err)
			}
		}
		applyEnv(&cfg, os.LookupEnv)
	})
	return cfg
}

// applyEnv overlays AVATARGUARD_* environment variables onto cfg. Values that
// fail to parse keep the file/default value.
func applyEnv(c *Config, lookup func(string) (string, bool)) {
	envBool(lookup, "AVATARGUARD_ENABLED", &c.Enabled)
	envStr(lookup, "AVATARGUARD_HOST", &c.Host)
	envStr(lookup, "AVATARGUARD_PORT", &c.Port)
	envStr(lookup, "AVATARGUARD_TOKEN", &c.Token)
	envStr(lookup, "AVATARGUARD_LIBONNX", &c.Libonnx)
	envBool(lookup, "AVATARGUARD_VERBOSE", &c.Verbose)
	envStr(lookup, "AVATARGUARD_MODEL_PATH", &c.ModelPath)
	envInt(lookup, "AVATARGUARD_INPUT_SIZE", &c.InputSize)
	envFloat(lookup, "AVATARGUARD_THRESHOLD", &c.Threshold)
	envFloat(lookup, "AVATARGUARD_EARLY_EXIT_CONFIDENCE", &c.EarlyExitConfidence)
	envInt(lookup, "AVATARGUARD_CROP_BUDGET_MS", &c.CropBudgetMs)
	envInt(lookup, "AVATARGUARD_CACHE_TTL_MS", &c.CacheTTLMs)
	envInt(lookup, "AVATARGUARD_CACHE_CAPACITY", &c.CacheCapacity)
	envInt(lookup, "AVATARGUARD_FETCH_TIMEOUT_MS", &c.FetchTimeoutMs)
	envInt64(lookup, "AVATARGUARD_FETCH_MAX_BYTES", &c.FetchMaxBytes)
}

func envStr(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func envBool(lookup func(string) (string, bool), key string, dst *bool) {
	if v, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envInt(lookup func(string) (string, bool), key string, dst *int) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(lookup func(string) (string, bool), key string, dst *int64) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envFloat(lookup func(string) (string, bool), key string, dst *float32) {
	if v, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			*dst = float32(f)
		}
	}
}
