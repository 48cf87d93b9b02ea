package config

import (
	"fmt"
	"strings"
)

// ConfigurationError describes a single invalid configuration key.
type ConfigurationError struct {
	Key        string `json:"key"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	if ce.Suggestion != "" {
		return fmt.Sprintf("%s: %s (%s)", ce.Key, ce.Message, ce.Suggestion)
	}
	return fmt.Sprintf("%s: %s", ce.Key, ce.Message)
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// Add appends an error to the collection
func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// HasErrors returns true if the collection has any errors
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Error implements the error interface for the collection
func (cec *ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 1 {
		return "invalid configuration: " + cec.Errors[0].Error()
	}
	parts := make([]string, 0, len(cec.Errors))
	for _, err := range cec.Errors {
		parts = append(parts, "  - "+err.Error())
	}
	return fmt.Sprintf("invalid configuration (%d errors):\n%s", len(cec.Errors), strings.Join(parts, "\n"))
}
