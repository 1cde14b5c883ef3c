// Package config loads the CLI's typed configuration from YAML with
// environment variable overrides for secrets and deploy-time settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Image provider selections.
const (
	ImageProviderNone   = "none"
	ImageProviderOpenAI = "openai"
)

// Config is the full CLI configuration.
type Config struct {
	// Model is the text model identifier, e.g. "gpt-4o".
	Model string `yaml:"model"`

	// Temperature for text generation.
	Temperature float64 `yaml:"temperature"`

	// EnableResearch turns on the research stage.
	EnableResearch bool `yaml:"enable_research"`

	// ImageProvider selects image generation: "none" or "openai".
	ImageProvider string `yaml:"image_provider"`

	// OpenAIAPIKey authenticates text and image generation.
	// Overridden by OPENAI_API_KEY.
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// OpenAIBaseURL overrides the API endpoint (proxies, compatible APIs).
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// TavilyAPIKey authenticates research. Overridden by TAVILY_API_KEY.
	TavilyAPIKey string `yaml:"tavily_api_key"`

	// OutputDir receives the generated markdown and HTML files.
	OutputDir string `yaml:"output_dir"`

	// DBPath is the SQLite artifact store location. Empty disables
	// persistence.
	DBPath string `yaml:"db_path"`

	// MaxEvidence caps research snippets fed to prompts.
	MaxEvidence int `yaml:"max_evidence"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Model:         "gpt-4o",
		Temperature:   0.4,
		ImageProvider: ImageProviderNone,
		OutputDir:     "out",
		DBPath:        "blogsmith.db",
	}
}

// Load reads a YAML config file, fills unset fields from defaults, and
// applies environment overrides. An empty path loads defaults plus
// environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays process environment values onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAIBaseURL = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.TavilyAPIKey = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("MODEL_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		}
	}
	if v := os.Getenv("IMAGE_PROVIDER"); v != "" {
		c.ImageProvider = v
	}
}

// Validate rejects configurations that cannot produce a working pipeline.
func (c *Config) Validate() error {
	var errs []error

	if c.Model == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0, 2]", c.Temperature))
	}
	switch c.ImageProvider {
	case ImageProviderNone, ImageProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown image_provider %q (want %q or %q)",
			c.ImageProvider, ImageProviderNone, ImageProviderOpenAI))
	}
	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("openai api key missing (set openai_api_key or OPENAI_API_KEY)"))
	}
	if c.EnableResearch && c.TavilyAPIKey == "" {
		errs = append(errs, errors.New("research enabled but tavily api key missing (set tavily_api_key or TAVILY_API_KEY)"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}

	return errors.Join(errs...)
}
