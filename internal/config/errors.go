package config

import (
	"fmt"
	"strings"
)

// ConfigurationError is a single problem found while validating a
// configuration.
type ConfigurationError struct {
	Category    string   `json:"category"`    // Configuration section (server, oauth, sonarr, radarr)
	Field       string   `json:"field"`       // Dotted path of the offending field
	Message     string   `json:"message"`     // Human-readable error message
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	if ce.Field == "" {
		return fmt.Sprintf("[%s] %s", ce.Category, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.Category, ce.Field, ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	parts := []string{ce.Error()}
	for _, suggestion := range ce.Suggestions {
		parts = append(parts, fmt.Sprintf("    - %s", suggestion))
	}
	return strings.Join(parts, "\n")
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// Error implements the error interface for the collection
func (cec *ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}

	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}

	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Count returns the number of errors in the collection
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// Add adds an error to the collection
func (cec *ConfigurationErrorCollection) Add(category, field, message string, suggestions ...string) {
	cec.Errors = append(cec.Errors, ConfigurationError{
		Category:    category,
		Field:       field,
		Message:     message,
		Suggestions: suggestions,
	})
}

// GetErrorsByCategory returns errors filtered by category
func (cec *ConfigurationErrorCollection) GetErrorsByCategory(category string) []ConfigurationError {
	var filtered []ConfigurationError
	for _, err := range cec.Errors {
		if err.Category == category {
			filtered = append(filtered, err)
		}
	}
	return filtered
}

// GetDetailedReport returns a detailed report of all errors
func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors to report"
	}

	parts := []string{fmt.Sprintf("Configuration has %d error(s):", len(cec.Errors))}
	for _, err := range cec.Errors {
		parts = append(parts, "  "+err.DetailedError())
	}
	return strings.Join(parts, "\n")
}
