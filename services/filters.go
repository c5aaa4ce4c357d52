package services

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	"inkeep-github-trigger/models"
)

// MatchPath tests a changed-file path against the configured glob pattern.
// The Context Fetcher and the filter stage both call this, so per-page
// filtering and the final authoritative check cannot disagree. A pattern that
// does not parse matches nothing.
func MatchPath(pattern, path string) bool {
	matched, err := doublestar.Match(pattern, path)
	if err != nil {
		return false
	}
	return matched
}

// FilterFiles returns the subset of files whose paths match the pattern. An
// empty pattern keeps everything.
func FilterFiles(pattern string, files []models.ChangedFile) []models.ChangedFile {
	if pattern == "" {
		return files
	}
	var matched []models.ChangedFile
	for _, file := range files {
		if MatchPath(pattern, file.Path) {
			matched = append(matched, file)
		}
	}
	return matched
}

// MatchTitle tests the pull request title against the configured expression.
// An empty expression matches everything. The expression was validated at
// config load, so a compile failure here means no match rather than a panic.
func MatchTitle(expression, title string) bool {
	if expression == "" {
		return true
	}
	re, err := regexp.Compile(expression)
	if err != nil {
		return false
	}
	return re.MatchString(title)
}
