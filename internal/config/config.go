package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults cover the local docker-compose setup: API on 8080, analyzer next
// door on 8000. The analyze timeout is generous on purpose, the upstream
// reasoning step routinely takes tens of seconds.
const (
	DefaultPort           = 8080
	DefaultAnalyzerURL    = "http://localhost:8000"
	DefaultAnalyzeTimeout = 60 * time.Second
	DefaultHealthTimeout  = 3 * time.Second
)

// Environment overrides. They win over the YAML file.
const (
	EnvConfigPath  = "CONFIG_PATH"
	EnvAnalyzerURL = "ANALYZER_SERVICE_URL"
	EnvPort        = "PORT"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Analyzer struct {
		BaseURL        string        `yaml:"baseURL"`
		AnalyzeTimeout time.Duration `yaml:"analyzeTimeout"`
		HealthTimeout  time.Duration `yaml:"healthTimeout"`
	} `yaml:"analyzer"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = DefaultPort
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Analyzer.BaseURL = DefaultAnalyzerURL
	cfg.Analyzer.AnalyzeTimeout = DefaultAnalyzeTimeout
	cfg.Analyzer.HealthTimeout = DefaultHealthTimeout
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	return cfg
}

// Load reads the YAML file at path over the defaults, then applies the
// environment overrides. A missing file is not an error: the service can
// boot on defaults plus environment alone.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults + env only
	default:
		return nil, err
	}

	if url := os.Getenv(EnvAnalyzerURL); url != "" {
		cfg.Analyzer.BaseURL = url
	}
	if port := os.Getenv(EnvPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvPort, port, err)
		}
		cfg.Server.Port = p
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Analyzer.BaseURL == "" {
		return fmt.Errorf("analyzer.baseURL must not be empty")
	}
	if c.Analyzer.AnalyzeTimeout <= 0 {
		return fmt.Errorf("analyzer.analyzeTimeout must be positive")
	}
	if c.Analyzer.HealthTimeout <= 0 {
		return fmt.Errorf("analyzer.healthTimeout must be positive")
	}
	return nil
}
