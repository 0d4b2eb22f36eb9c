package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"wastedash/adapters/excel"
	"wastedash/domain/waste"
	"wastedash/internal"
	"wastedash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Markers  MarkersConfig
	Chart    ChartConfig
	LogLevel internal.LogLevel
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig holds the dataset locations and decoding order
type DataConfig struct {
	Dir       string
	ViewsFile string
	Encodings []waste.Encoding
}

// MarkersConfig holds the geocoded point source and marker sizing
type MarkersConfig struct {
	File            string
	MinRadius       float64
	MaxRadius       float64
	LatitudeColumn  string
	LongitudeColumn string
	MagnitudeColumn string
}

// ChartConfig holds chart rendering settings
type ChartConfig struct {
	// Font is a TTF, OTF or TTC file with Hangul glyphs; empty means the first
	// installed well-known Korean font
	Font string
}

// Enabled reports whether a point source is configured
func (m MarkersConfig) Enabled() bool {
	return m.File != ""
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	config.Server = *loadServerConfig()

	dataConfig, err := loadDataConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load data configuration")
	}
	config.Data = *dataConfig

	config.Markers = *loadMarkersConfig()
	config.Chart = ChartConfig{Font: getEnvOrDefault("CHART_FONT", "")}

	level, ok := internal.ParseLogLevel(getEnvOrDefault("LOG_LEVEL", "INFO"))
	if !ok {
		return nil, errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is not one of ERROR, WARN, INFO, DEBUG, TRACE", os.Getenv("LOG_LEVEL")))
	}
	config.LogLevel = level

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadDataConfig() (*DataConfig, error) {
	encodings, err := parseEncodings(getEnvOrDefault("SOURCE_ENCODINGS", ""))
	if err != nil {
		return nil, err
	}
	return &DataConfig{
		Dir:       getEnvOrDefault("DATA_DIR", "./data"),
		ViewsFile: getEnvOrDefault("VIEWS_FILE", ""),
		Encodings: encodings,
	}, nil
}

func loadMarkersConfig() *MarkersConfig {
	return &MarkersConfig{
		File:            getEnvOrDefault("MARKERS_FILE", ""),
		MinRadius:       getEnvFloatOrDefault("MARKER_MIN_RADIUS", 4),
		MaxRadius:       getEnvFloatOrDefault("MARKER_MAX_RADIUS", 30),
		LatitudeColumn:  getEnvOrDefault("MARKER_LAT_COLUMN", ""),
		LongitudeColumn: getEnvOrDefault("MARKER_LON_COLUMN", ""),
		MagnitudeColumn: getEnvOrDefault("MARKER_VALUE_COLUMN", ""),
	}
}

// parseEncodings reads a comma separated encoding list; empty means the
// default UTF-8-with-BOM then CP949 order
func parseEncodings(value string) ([]waste.Encoding, error) {
	if strings.TrimSpace(value) == "" {
		return append([]waste.Encoding(nil), waste.DefaultEncodings...), nil
	}
	var encodings []waste.Encoding
	for _, name := range strings.Split(value, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		enc, err := excel.ParseEncoding(name)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("SOURCE_ENCODINGS: %v", err))
		}
		encodings = append(encodings, enc)
	}
	return encodings, nil
}

func validateConfig(config *Config) error {
	if config.Data.Dir == "" {
		return errors.ConfigInvalid("data directory is required")
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("PORT %q is not a number", config.Server.Port))
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("GIN_MODE %q must be debug, release or test", config.Server.GinMode))
	}
	if config.Markers.MinRadius <= 0 || config.Markers.MaxRadius < config.Markers.MinRadius {
		return errors.ConfigInvalid("marker radii must satisfy 0 < MARKER_MIN_RADIUS <= MARKER_MAX_RADIUS")
	}
	if config.Chart.Font != "" {
		if info, err := os.Stat(config.Chart.Font); err != nil || info.IsDir() {
			return errors.ConfigInvalid(fmt.Sprintf("CHART_FONT %q is not a readable font file", config.Chart.Font))
		}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
