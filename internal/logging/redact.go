package logging

import (
	"regexp"
)

// Credential material must never reach a log line, even at debug level where
// request and response representations are recorded.

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

var redactPatterns = []redactPattern{
	{
		regex:       regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]+`),
		replacement: `Bearer [REDACTED]`,
	},
	{
		// Donetick API tokens travel in the secretkey header.
		regex:       regexp.MustCompile(`(?i)(secretkey["':\s=]+)[^\s"',}]+`),
		replacement: `$1[REDACTED]`,
	},
	{
		regex:       regexp.MustCompile(`(?i)("?(?:password|passwd|token|secret)"?\s*[=:]\s*")[^"]+(")`),
		replacement: `$1[REDACTED]$2`,
	},
	{
		// Unquoted password=... / token=... pairs (query strings, env dumps).
		regex:       regexp.MustCompile(`(?i)((?:password|passwd|token|secret)=)[^\s&"']+`),
		replacement: `$1[REDACTED]`,
	},
	{
		// Raw JWTs anywhere in the text.
		regex:       regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
		replacement: `[REDACTED_JWT]`,
	},
	{
		// Userinfo embedded in URLs.
		regex:       regexp.MustCompile(`(https?://)[^/@\s]+@`),
		replacement: `$1[REDACTED]@`,
	},
}

// Redact strips credential material from a string destined for a log line.
func Redact(s string) string {
	for _, p := range redactPatterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}
