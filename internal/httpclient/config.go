package httpclient

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ClientConfig is the YAML configuration for one named HTTP client.
// Header values of the form ${VAR} are substituted from the environment.
type ClientConfig struct {
	BaseURL          string            `yaml:"base_url"`
	Timeout          string            `yaml:"timeout"`
	Headers          map[string]string `yaml:"headers"`
	RetryCount       int               `yaml:"retry_count"`
	RetryWaitTime    string            `yaml:"retry_wait_time"`
	MaxRetryWaitTime string            `yaml:"max_retry_wait_time"`
	EnableLogging    bool              `yaml:"enable_logging"`
}

// APIConfigs maps client names to their configuration.
type APIConfigs struct {
	Clients map[string]ClientConfig `yaml:"clients"`
}

// LoadConfig reads client configurations from a YAML file.
func LoadConfig(path string) (*APIConfigs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var configs APIConfigs
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("error parsing YAML config: %w", err)
	}
	return &configs, nil
}

// GetClientConfig returns a named client config with environment variables
// substituted into header values.
func (c *APIConfigs) GetClientConfig(name string) (*ClientConfig, error) {
	config, ok := c.Clients[name]
	if !ok {
		return nil, fmt.Errorf("client config not found: %s", name)
	}

	for key, value := range config.Headers {
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envName := value[2 : len(value)-1]
			envValue := os.Getenv(envName)
			if envValue == "" {
				return nil, fmt.Errorf("environment variable %s is required but not set", envName)
			}
			config.Headers[key] = envValue
		}
	}
	return &config, nil
}

// ToConfig converts the YAML form into a runtime Config.
func (c *ClientConfig) ToConfig() (*Config, error) {
	config := DefaultConfig()

	if c.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required in client configuration")
	}
	if c.Timeout == "" {
		return nil, fmt.Errorf("timeout is required in client configuration")
	}

	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration: %w", err)
	}

	config.BaseURL = c.BaseURL
	config.Timeout = timeout
	config.Headers = c.Headers
	config.RetryCount = c.RetryCount

	if c.RetryWaitTime != "" {
		wait, err := time.ParseDuration(c.RetryWaitTime)
		if err != nil {
			return nil, fmt.Errorf("invalid retry wait time: %w", err)
		}
		config.RetryWaitTime = wait
	}
	if c.MaxRetryWaitTime != "" {
		wait, err := time.ParseDuration(c.MaxRetryWaitTime)
		if err != nil {
			return nil, fmt.Errorf("invalid max retry wait time: %w", err)
		}
		config.MaxRetryWaitTime = wait
	}
	return config, nil
}

// CreateClient builds a Client from this configuration.
func (c *ClientConfig) CreateClient(logger *zap.SugaredLogger) (*Client, error) {
	config, err := c.ToConfig()
	if err != nil {
		return nil, err
	}

	client := NewClient(config)
	if c.EnableLogging && logger != nil {
		client.WithMiddleware(LoggingMiddleware(logger))
	}
	return client, nil
}
