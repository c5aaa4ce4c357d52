package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// WriteOutputs appends action outputs to the file named by GITHUB_OUTPUT.
// Outside of a runner (no GITHUB_OUTPUT set) the outputs are only logged.
// Keys are written in sorted order so runs are diffable.
func WriteOutputs(outputs map[string]string, logger *zap.Logger) error {
	if len(outputs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(outputs))
	for key := range outputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		logger.Info("Action output", zap.String("name", key), zap.String("value", outputs[key]))
	}

	outputPath := os.Getenv("GITHUB_OUTPUT")
	if outputPath == "" {
		logger.Warn("GITHUB_OUTPUT is not set, outputs not recorded")
		return nil
	}

	file, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	var builder strings.Builder
	for _, key := range keys {
		value := outputs[key]
		if strings.ContainsAny(value, "\n\r") {
			// Multiline values use the heredoc form the runner understands
			builder.WriteString(fmt.Sprintf("%s<<EOF\n%s\nEOF\n", key, value))
		} else {
			builder.WriteString(fmt.Sprintf("%s=%s\n", key, value))
		}
	}

	if _, err := file.WriteString(builder.String()); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	return nil
}
