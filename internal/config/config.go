package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/menta2k/flyer-composer/pkg/analyzer"
	"github.com/menta2k/flyer-composer/pkg/asset"
	"github.com/menta2k/flyer-composer/pkg/canvas"
	"github.com/menta2k/flyer-composer/pkg/processing"
	"github.com/menta2k/flyer-composer/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Template TemplateConfig `json:"template"`
	Crop     CropConfig     `json:"crop"`
	Output   OutputConfig   `json:"output"`
	Analyzer AnalyzerConfig `json:"analyzer"`
	Log      LogConfig      `json:"log"`
}

// ServerConfig holds configuration for the local HTTP UI
type ServerConfig struct {
	Addr           string  `json:"addr"`
	MaxUploadBytes int64   `json:"max_upload_bytes"`
	RateLimit      float64 `json:"rate_limit"`
	RateBurst      int     `json:"rate_burst"`
}

// TemplateConfig locates the flyer template asset
type TemplateConfig struct {
	Location  string `json:"location"`
	AssetRoot string `json:"asset_root"`
	// Timeout bounds a template download; zero means no limit
	Timeout Duration `json:"timeout"`
}

// CropConfig holds configuration for the circular crop stage
type CropConfig struct {
	Format string `json:"format"`
}

// OutputConfig holds configuration for the final flyer
type OutputConfig struct {
	Quality int    `json:"quality"`
	Dir     string `json:"dir"`
}

// AnalyzerConfig holds configuration for upload decoding
type AnalyzerConfig struct {
	SupportedFormats []string `json:"supported_formats"`
	MinImageSize     int      `json:"min_image_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Duration is a time.Duration that reads and writes as "30s" in JSON
type Duration time.Duration

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			MaxUploadBytes: 25 << 20,
			RateLimit:      5,
			RateBurst:      10,
		},
		Template: TemplateConfig{
			Location:  asset.DefaultTemplatePath,
			AssetRoot: "./assets",
		},
		Crop: CropConfig{
			Format: string(canvas.FormatPNG),
		},
		Output: OutputConfig{
			Quality: processing.DefaultQuality,
			Dir:     "./output",
		},
		Analyzer: AnalyzerConfig{
			SupportedFormats: analyzer.DefaultConfig().SupportedFormats,
			MinImageSize:     1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	if c.Server.RateLimit < 0 || (c.Server.RateLimit > 0 && c.Server.RateBurst < 1) {
		return fmt.Errorf("server.rate_limit must be >= 0 with a positive server.rate_burst")
	}

	if c.Template.Location == "" {
		return fmt.Errorf("template.location cannot be empty")
	}

	if c.Template.Timeout < 0 {
		return fmt.Errorf("template.timeout cannot be negative")
	}

	format, err := canvas.ParseFormat(c.Crop.Format)
	if err != nil {
		return fmt.Errorf("crop.format: %w", err)
	}
	if !format.Lossless() {
		return fmt.Errorf("crop.format must be lossless (png or webp), got %s", c.Crop.Format)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Analyzer.MinImageSize < 1 {
		return fmt.Errorf("analyzer.min_image_size must be positive")
	}

	if len(c.Analyzer.SupportedFormats) == 0 {
		return fmt.Errorf("analyzer.supported_formats cannot be empty")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}

	return nil
}

// ProcessingConfig converts the file configuration into pipeline settings.
// Call Validate first.
func (c *Config) ProcessingConfig() processing.Config {
	format, err := canvas.ParseFormat(c.Crop.Format)
	if err != nil {
		format = canvas.FormatPNG
	}
	return processing.Config{
		CropFormat: format,
		Quality:    c.Output.Quality,
		Geometry:   types.DefaultFlyerGeometry,
		Analyzer: analyzer.Config{
			SupportedFormats: c.Analyzer.SupportedFormats,
			MinImageSize:     c.Analyzer.MinImageSize,
		},
	}
}

// TemplateSource builds the template asset source
func (c *Config) TemplateSource() (asset.Source, error) {
	return asset.NewSource(c.Template.Location, c.Template.AssetRoot, time.Duration(c.Template.Timeout))
}

// ResolvePath picks the config file to load: the explicit path when given,
// otherwise the default path if a file exists there. An empty result means
// built-in defaults.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if info, err := os.Stat(GetConfigPath()); err == nil && !info.IsDir() {
		return GetConfigPath()
	}
	return ""
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "flyer-composer", "config.json")
}
