package models

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// String returns the string representation of LogFormat
func (f LogFormat) String() string {
	return string(f)
}

// IsValid checks if the LogLevel is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// IsValid checks if the LogFormat is valid
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatConsole, LogFormatJSON:
		return true
	default:
		return false
	}
}

// UnmarshalYAML implements custom unmarshaling for LogLevel
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	level := LogLevel(strings.ToLower(str))
	if !level.IsValid() {
		return fmt.Errorf("invalid log level: %s. Valid options are: debug, info, warn, error", str)
	}

	*l = level
	return nil
}

// UnmarshalYAML implements custom unmarshaling for LogFormat
func (f *LogFormat) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	format := LogFormat(strings.ToLower(str))
	if !format.IsValid() {
		return fmt.Errorf("invalid log format: %s. Valid options are: console, json", str)
	}

	*f = format
	return nil
}

// Inputs holds the action inputs supplied by the hosting runtime as
// INPUT_* environment variables.
type Inputs struct {
	// TriggerURL is the destination the assembled payload is POSTed to (required)
	TriggerURL string `mapstructure:"trigger-url"`

	// SigningSecret, when set, enables HMAC-SHA256 signing of the request body
	SigningSecret string `mapstructure:"signing-secret"`

	// GitHubToken overrides the broker token exchange when supplied
	GitHubToken string `mapstructure:"github-token"`

	// PathFilter is a glob pattern restricting which changed files are included
	PathFilter string `mapstructure:"path-filter"`

	// PRTitleRegex skips the run when the pull request title does not match
	PRTitleRegex string `mapstructure:"pr-title-regex"`

	// APIBaseURL overrides the token-exchange API base (defaults to DefaultAPIBaseURL)
	APIBaseURL string `mapstructure:"api-base-url"`

	// IncludeFileContents fetches blob contents at head.sha for surviving files
	IncludeFileContents bool `mapstructure:"include-file-contents"`

	// IncludeDiff attaches the unified diff of the pull request to the payload
	IncludeDiff bool `mapstructure:"include-diff"`
}

// Config represents the application configuration
type Config struct {
	// Logging configuration (from the optional YAML config file)
	Logging struct {
		Level  LogLevel  `yaml:"level"`
		Format LogFormat `yaml:"format"`
	} `yaml:"logging"`

	// Inputs are the action inputs from the environment
	Inputs Inputs `yaml:"-"`
}

// inputKeys lists every supported action input; each binds to the
// INPUT_<NAME> environment variable the runner sets.
var inputKeys = []string{
	"trigger-url",
	"signing-secret",
	"github-token",
	"path-filter",
	"pr-title-regex",
	"api-base-url",
	"include-file-contents",
	"include-diff",
}

// LoadConfig loads configuration from the environment and, optionally, a YAML
// file for logging settings. Action inputs always come from the environment.
func LoadConfig(configPath string) (*Config, error) {
	var config Config
	config.Logging.Level = LogLevelInfo
	config.Logging.Format = LogFormatConsole

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetEnvPrefix("INPUT")
	for _, key := range inputKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind input %s: %w", key, err)
		}
	}
	if err := v.Unmarshal(&config.Inputs); err != nil {
		return nil, fmt.Errorf("failed to decode action inputs: %w", err)
	}

	if config.Inputs.APIBaseURL == "" {
		config.Inputs.APIBaseURL = DefaultAPIBaseURL
	}

	if err := config.validateInputs(); err != nil {
		return nil, err
	}

	if err := config.validateLogging(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateInputs checks the required inputs before anything touches the network
func (c *Config) validateInputs() error {
	if c.Inputs.TriggerURL == "" {
		return NewTriggerError(ErrCodeMissingInput, "trigger-url input is required")
	}

	parsed, err := url.Parse(c.Inputs.TriggerURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return NewTriggerError(ErrCodeInvalidTriggerURL, "trigger-url is not a valid URL: %s", c.Inputs.TriggerURL)
	}

	if c.Inputs.PRTitleRegex != "" {
		if _, err := regexp.Compile(c.Inputs.PRTitleRegex); err != nil {
			return fmt.Errorf("pr-title-regex does not compile: %w", err)
		}
	}

	return nil
}

// validateLogging ensures logging configuration is valid
func (c *Config) validateLogging() error {
	if !c.Logging.Level.IsValid() {
		return fmt.Errorf("invalid log level: %s. Valid options are: debug, info, warn, error", c.Logging.Level)
	}
	if !c.Logging.Format.IsValid() {
		return fmt.Errorf("invalid log format: %s. Valid options are: console, json", c.Logging.Format)
	}
	return nil
}
