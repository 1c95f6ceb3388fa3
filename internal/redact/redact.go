// Package redact strips sensitive fragments from strings before they reach
// logs or API responses. Job error messages in particular tend to embed
// storage URLs, broker addresses and file paths from the failing dependency.
package redact

import "regexp"

// Placeholders substituted for matched fragments.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	PathPlaceholder       = "[REDACTED_PATH]"
	HostPlaceholder       = "[REDACTED_HOST]"
	StackPlaceholder      = "[REDACTED_STACK]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

var rules = []rule{
	// Connection strings with inline credentials (postgres://user:pw@...,
	// redis://:pw@...).
	{regexp.MustCompile(`(?i)(postgres|postgresql|redis|rediss|mongodb|amqp)://[^@\s]+@`), CredentialPlaceholder + "@"},

	// Password and key material in key=value or key: value form.
	{regexp.MustCompile(`(?i)(password|passwd|secret|token|api[_-]?key)(['"\s:=]+)[^'"&\s]{3,}`), CredentialPlaceholder},

	// Absolute filesystem paths, two or more segments deep.
	{regexp.MustCompile(`(/[\w.-]+){2,}`), PathPlaceholder},

	// Storage and blob URLs.
	{regexp.MustCompile(`(?i)(file|mem|s3|gs)://[^\s"']+`), PathPlaceholder},

	// host:port pairs as found in dial errors.
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}:\d{1,5}\b`), HostPlaceholder},

	// Goroutine dumps from recovered panics.
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), StackPlaceholder},
}

// String redacts sensitive fragments from the input.
func String(input string) string {
	if input == "" {
		return input
	}

	out := input
	for _, r := range rules {
		out = r.pattern.ReplaceAllString(out, r.placeholder)
	}
	return out
}

// Error redacts an error's message. Returns "" for nil.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
