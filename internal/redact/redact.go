// Package redact removes credential material from strings before they are
// logged or persisted. Provider error messages occasionally echo request
// details, and those can include API keys or connection strings; everything
// written to the run ledger or the entity refs map passes through here
// first.
package redact

import "regexp"

// RedactionPlaceholder replaces matched credential material.
const RedactionPlaceholder = "[REDACTED]"

var (
	// Database connection strings with inline credentials.
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`)

	// Key-value shaped credentials: api_key=..., token: ..., secret="...".
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|bearer|authorization)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// password=... fragments.
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?)[^'"&\s]{3,}`)

	patterns = []*regexp.Regexp{dbConnRegex, apiKeyRegex, passwordRegex}
)

// String redacts credential material from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pattern := range patterns {
		result = pattern.ReplaceAllString(result, RedactionPlaceholder)
	}
	return result
}

// Error redacts the message of err, returning the empty string for nil.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
