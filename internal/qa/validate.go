package qa

import (
	"fmt"
	"os"
	"strings"

	"callqa/pkg/errors"
)

const (
	minQueryLength = 3
	maxQueryLength = 500
)

// ValidateQuery checks that a search query is usable: non-blank, at least
// three characters after trimming, at most 500 characters overall.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return errors.NewValidationFailed("query", "query cannot be empty")
	}
	if len(trimmed) < minQueryLength {
		return errors.NewValidationFailed("query",
			fmt.Sprintf("query must be at least %d characters long", minQueryLength))
	}
	if len(query) > maxQueryLength {
		return errors.NewValidationFailed("query",
			fmt.Sprintf("query is too long (max %d characters)", maxQueryLength))
	}
	return nil
}

// ValidateFilePath checks that path names an existing, readable regular file.
func ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewValidationFailed("file path", "file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewValidationFailed("file path", fmt.Sprintf("file not found: %q", path))
		}
		return errors.NewValidationFailed("file path", fmt.Sprintf("cannot access %q: %v", path, err))
	}
	if info.IsDir() {
		return errors.NewValidationFailed("file path", fmt.Sprintf("path is not a file: %q", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.NewValidationFailed("file path", fmt.Sprintf("cannot read %q: %v", path, err))
	}
	_ = f.Close()
	return nil
}

// ValidateChoice checks a menu choice against the valid options.
func ValidateChoice(choice string, valid []string) error {
	if strings.TrimSpace(choice) == "" {
		return errors.NewValidationFailed("choice", "please enter a choice")
	}
	for _, v := range valid {
		if choice == v {
			return nil
		}
	}
	return errors.NewValidationFailed("choice",
		fmt.Sprintf("invalid choice, please enter one of: %s", strings.Join(valid, ", ")))
}
