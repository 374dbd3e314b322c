package config

import (
	"fmt"
	"os"
	"time"

	"crisis-monitor/internal/llm"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"server"`

	Log struct {
		Development bool `yaml:"development"`
	} `yaml:"log"`

	// Scorer providers, tried in order with fallback
	Providers []llm.ProviderConfig `yaml:"providers"`

	MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`

	Classifier struct {
		MaxChars      int           `yaml:"max_chars"`
		MinChars      int           `yaml:"min_chars"`
		Timeout       time.Duration `yaml:"timeout"`
		MaxRetries    int           `yaml:"max_retries"`
		RetryInterval time.Duration `yaml:"retry_interval"`
		Workers       int           `yaml:"workers"`
	} `yaml:"classifier"`

	Theme struct {
		Language  string   `yaml:"language"`
		Stopwords []string `yaml:"stopwords"`
		Width     int      `yaml:"width"`
		Height    int      `yaml:"height"`
		MaxWords  int      `yaml:"max_words"`
		Seed      int64    `yaml:"seed"`
	} `yaml:"theme"`

	Chart struct {
		Kind   string `yaml:"kind"` // "pie" or "bar"
		Width  int    `yaml:"width"`
		Height int    `yaml:"height"`
	} `yaml:"chart"`

	Report struct {
		Title    string `yaml:"title"`
		Subtitle string `yaml:"subtitle"`
		LogoPath string `yaml:"logo_path"`
		FileName string `yaml:"file_name"`
	} `yaml:"report"`

	Schedule struct {
		Cron     string `yaml:"cron"`
		Timezone string `yaml:"timezone"`
	} `yaml:"schedule"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	// Expand environment variables in provider API keys
	for i := range config.Providers {
		config.Providers[i].APIKey = os.ExpandEnv(config.Providers[i].APIKey)
	}
	config.Report.LogoPath = os.ExpandEnv(config.Report.LogoPath)

	return config, nil
}

// Default returns a config with every default applied and no providers
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8003"
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 32 << 20
	}

	if c.MaxFailuresBeforeSwitch == 0 {
		c.MaxFailuresBeforeSwitch = 3
	}

	if c.Classifier.MaxChars == 0 {
		c.Classifier.MaxChars = 512
	}
	if c.Classifier.MinChars == 0 {
		c.Classifier.MinChars = 3
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = 30 * time.Second
	}
	if c.Classifier.MaxRetries == 0 {
		c.Classifier.MaxRetries = 2
	}
	if c.Classifier.RetryInterval == 0 {
		c.Classifier.RetryInterval = 500 * time.Millisecond
	}
	if c.Classifier.Workers == 0 {
		c.Classifier.Workers = 1
	}

	if c.Theme.Language == "" {
		c.Theme.Language = "pt"
	}
	if c.Theme.Width == 0 {
		c.Theme.Width = 800
	}
	if c.Theme.Height == 0 {
		c.Theme.Height = 400
	}
	if c.Theme.MaxWords == 0 {
		c.Theme.MaxWords = 100
	}
	if c.Theme.Seed == 0 {
		c.Theme.Seed = 42
	}

	if c.Chart.Kind == "" {
		c.Chart.Kind = "pie"
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = 500
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = 400
	}

	if c.Report.Title == "" {
		c.Report.Title = "Digital Monitoring Report"
	}
	if c.Report.Subtitle == "" {
		c.Report.Subtitle = "Reputation and Crisis Management"
	}
	if c.Report.FileName == "" {
		c.Report.FileName = "crisis_report.pdf"
	}

	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "@hourly"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
}
