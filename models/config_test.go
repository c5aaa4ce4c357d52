package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearInputEnv unsets every INPUT_* variable so tests start clean
func clearInputEnv(t *testing.T) {
	t.Helper()
	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "INPUT_") {
			key := strings.SplitN(entry, "=", 2)[0]
			t.Setenv(key, "")
		}
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	clearInputEnv(t)
	t.Setenv("INPUT_TRIGGER-URL", "https://agents.example.com/projects/p1/trigger")
	t.Setenv("INPUT_SIGNING-SECRET", "s3cret")
	t.Setenv("INPUT_PATH-FILTER", "docs/**")
	t.Setenv("INPUT_PR-TITLE-REGEX", "^feat:")
	t.Setenv("INPUT_INCLUDE-FILE-CONTENTS", "true")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if config.Inputs.TriggerURL != "https://agents.example.com/projects/p1/trigger" {
		t.Errorf("Unexpected trigger URL: %s", config.Inputs.TriggerURL)
	}
	if config.Inputs.SigningSecret != "s3cret" {
		t.Errorf("Unexpected signing secret: %s", config.Inputs.SigningSecret)
	}
	if config.Inputs.PathFilter != "docs/**" {
		t.Errorf("Unexpected path filter: %s", config.Inputs.PathFilter)
	}
	if config.Inputs.PRTitleRegex != "^feat:" {
		t.Errorf("Unexpected title regex: %s", config.Inputs.PRTitleRegex)
	}
	if !config.Inputs.IncludeFileContents {
		t.Error("Expected include-file-contents to be true")
	}
	if config.Inputs.IncludeDiff {
		t.Error("Expected include-diff to default to false")
	}
	if config.Inputs.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("Expected default API base, got %s", config.Inputs.APIBaseURL)
	}
	if config.Logging.Level != LogLevelInfo || config.Logging.Format != LogFormatConsole {
		t.Errorf("Unexpected logging defaults: %+v", config.Logging)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	testCases := []struct {
		name         string
		env          map[string]string
		expectedCode ErrorCode
		expectError  bool
	}{
		{
			name:         "missing trigger-url",
			env:          map[string]string{},
			expectedCode: ErrCodeMissingInput,
			expectError:  true,
		},
		{
			name:         "trigger-url without scheme",
			env:          map[string]string{"INPUT_TRIGGER-URL": "agents.example.com/projects/p1"},
			expectedCode: ErrCodeInvalidTriggerURL,
			expectError:  true,
		},
		{
			name: "title regex does not compile",
			env: map[string]string{
				"INPUT_TRIGGER-URL":    "https://agents.example.com/projects/p1/trigger",
				"INPUT_PR-TITLE-REGEX": "(",
			},
			expectError: true,
		},
		{
			name: "valid minimal config",
			env:  map[string]string{"INPUT_TRIGGER-URL": "https://agents.example.com/projects/p1/trigger"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearInputEnv(t)
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			_, err := LoadConfig("")

			if !tc.expectError {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected an error")
			}
			if tc.expectedCode != "" && !IsErrorCode(err, tc.expectedCode) {
				t.Errorf("Expected error code %s, got %v", tc.expectedCode, err)
			}
		})
	}
}

func TestLoadConfig_YAMLLoggingFile(t *testing.T) {
	clearInputEnv(t)
	t.Setenv("INPUT_TRIGGER-URL", "https://agents.example.com/projects/p1/trigger")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: debug\n  format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.Logging.Level != LogLevelDebug {
		t.Errorf("Expected debug level, got %s", config.Logging.Level)
	}
	if config.Logging.Format != LogFormatJSON {
		t.Errorf("Expected json format, got %s", config.Logging.Format)
	}
}

func TestLoadConfig_InvalidLoggingValues(t *testing.T) {
	clearInputEnv(t)
	t.Setenv("INPUT_TRIGGER-URL", "https://agents.example.com/projects/p1/trigger")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(configPath); err == nil {
		t.Error("Expected an error for invalid log level")
	}
}

func TestLogLevelAndFormatValidation(t *testing.T) {
	validLevels := []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	for _, level := range validLevels {
		if !level.IsValid() {
			t.Errorf("Expected %s to be valid", level)
		}
	}
	if LogLevel("loud").IsValid() {
		t.Error("Expected 'loud' to be invalid")
	}

	if !LogFormatConsole.IsValid() || !LogFormatJSON.IsValid() {
		t.Error("Expected console and json formats to be valid")
	}
	if LogFormat("xml").IsValid() {
		t.Error("Expected 'xml' to be invalid")
	}
}
