package client

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeout = 30 * time.Second

	// EnvPrefix prefixes the environment overrides read by LoadConfig,
	// e.g. POLICY_CLIENT_ORGURL.
	EnvPrefix = "POLICY_CLIENT"
)

// Config holds everything needed to construct a Client. It is passed
// explicitly; there is no process-wide default client.
type Config struct {
	// OrgURL is the base URL of the service, e.g. https://example.okta.com.
	OrgURL string `yaml:"orgUrl" validate:"required,url"`
	// Token is sent as "Authorization: SSWS <token>". Empty sends no header.
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	UserAgent string        `yaml:"userAgent"`
	// Tracing wraps the transport with OpenTelemetry instrumentation.
	Tracing bool `yaml:"tracing"`
}

var configValidator = validator.New()

type configFile struct {
	Policy struct {
		Client Config `yaml:"client"`
	} `yaml:"policy"`
}

// LoadConfig reads the policy.client section of a YAML file and applies
// POLICY_CLIENT_* environment overrides on top. An empty path reads the
// environment only.
func LoadConfig(path string) (Config, error) {
	var file configFile
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read client config: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse client config %s: %w", path, err)
		}
	}

	cfg := file.Policy.Client
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read client environment: %w", err)
	}
	return cfg, nil
}

// Validate reports configuration that cannot produce a working client.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid client config: %s failed %q", fieldErrs[0].Field(), fieldErrs[0].Tag())
		}
		return err
	}
	u, err := url.Parse(c.OrgURL)
	if err != nil {
		return fmt.Errorf("invalid orgUrl: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("orgUrl must be an http or https URL, got %q", c.OrgURL)
	}
	if u.Host == "" {
		return fmt.Errorf("orgUrl has no host: %q", c.OrgURL)
	}
	return nil
}
