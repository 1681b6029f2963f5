// Package redact strips credentials and other sensitive material from
// strings before they reach logs or error responses. The gateway handles
// bearer tokens on every handshake, so anything derived from a request
// must pass through here before being logged.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
)

var (
	// Database connection strings with inline credentials.
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`)

	// JWTs: three base64url segments with the standard "eyJ" header prefix.
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// Bearer credentials embedded in header dumps or query strings.
	bearerRegex = regexp.MustCompile(`(?i)(bearer\s+|token=)[A-Za-z0-9_\-.~+/]{8,}`)

	// Generic secret assignments (jwt_secret=..., password: ...).
	secretRegex = regexp.MustCompile(`(?i)(secret|password|passwd)([=:\s]['"]?)[^'"&\s]{3,}`)
)

// String redacts sensitive material from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := dbConnRegex.ReplaceAllString(input, RedactedCredentialPlaceholder)
	result = jwtTokenRegex.ReplaceAllString(result, RedactedTokenPlaceholder)
	result = bearerRegex.ReplaceAllString(result, "${1}"+RedactedTokenPlaceholder)
	result = secretRegex.ReplaceAllString(result, "${1}${2}"+RedactedCredentialPlaceholder)
	return result
}

// Error redacts sensitive material from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
