// Package logging provides credential redaction for coxswain's log output.
// Agent sessions run external tooling whose output can leak tokens or keys
// into log fields, so everything written to the log file passes through a
// redacting writer.
package logging

import (
	"io"
	"regexp"
	"strings"
)

// Redacted replaces any value identified as a credential.
const Redacted = "[REDACTED]"

// secretPatterns match common credential formats in free-form text.
var secretPatterns = []*regexp.Regexp{
	// Vendor API keys (sk-..., sk-ant-...)
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),

	// GitHub tokens (ghp_, gho_, ghu_, ghs_, ghr_)
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),

	// Bearer tokens and authorization headers
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)authorization\s*[:=]\s*["']?[a-zA-Z0-9._-]{20,}["']?`),

	// key=value style secrets
	regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token|credential)\s*[:=]\s*["']?[^\s"']{8,}["']?`),

	// Private key blocks
	regexp.MustCompile(`-----BEGIN[A-Z ]+PRIVATE KEY-----`),
}

// secretFieldNames always have their values redacted, regardless of content.
var secretFieldNames = []string{
	"api_key",
	"apikey",
	"token",
	"secret",
	"password",
	"credential",
	"authorization",
	"private_key",
}

// RedactSecrets replaces every credential-shaped substring with Redacted.
func RedactSecrets(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllString(s, Redacted)
	}
	return s
}

// IsSecretField reports whether a log field name denotes a credential.
func IsSecretField(name string) bool {
	lower := strings.ToLower(name)
	for _, f := range secretFieldNames {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// SafeValue redacts a field value when either the field name or the value
// itself looks like a credential. Use at log call sites for values sourced
// from agent output or configuration.
func SafeValue(field, value string) string {
	if IsSecretField(field) {
		return Redacted
	}
	return RedactSecrets(value)
}

// RedactingWriter filters credentials out of everything written through it.
// Wrap the log file writer with it so secrets never reach disk even when a
// call site forgets to use SafeValue.
type RedactingWriter struct {
	w io.Writer
}

// NewRedactingWriter wraps w with credential redaction.
func NewRedactingWriter(w io.Writer) *RedactingWriter {
	return &RedactingWriter{w: w}
}

// Write implements io.Writer. The reported length is the input length so
// callers never observe a short write from redaction shrinking the payload.
func (rw *RedactingWriter) Write(p []byte) (int, error) {
	if _, err := rw.w.Write([]byte(RedactSecrets(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
