// Package config centralises configuration parsing for the vo2trend CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultOutDir = "./vo2_out"
	defaultFormat = "csv"
)

// Config captures runtime defaults; command-line flags override them.
type Config struct {
	InputDir         string
	Manifest         string
	OutDir           string
	Format           string
	Chart            bool
	MetricsFile      string
	Overwrite        bool
	AllowAnyCategory bool
}

// Load reads environment variables, optionally from a .env file in the
// working directory, into Config.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		InputDir:    getEnv("VO2_INPUT_DIR", ""),
		Manifest:    getEnv("VO2_MANIFEST", ""),
		OutDir:      getEnv("VO2_OUT_DIR", defaultOutDir),
		Format:      strings.ToLower(getEnv("VO2_FORMAT", defaultFormat)),
		MetricsFile: getEnv("VO2_METRICS_FILE", ""),
	}

	var err error
	if cfg.Chart, err = getBoolEnv("VO2_CHART", true); err != nil {
		return cfg, err
	}
	if cfg.Overwrite, err = getBoolEnv("VO2_OVERWRITE", false); err != nil {
		return cfg, err
	}
	if cfg.AllowAnyCategory, err = getBoolEnv("VO2_ALLOW_ANY_CATEGORY", false); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
