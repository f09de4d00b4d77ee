package logger

import (
	"io"
	"regexp"
)

const redactedText = "[REDACTED]"

// redactionRule replaces matches of pattern with replacement.
// Key/value rules keep the key and only hide the value.
type redactionRule struct {
	pattern     *regexp.Regexp
	replacement string
}

func secretRule(expr string) redactionRule {
	return redactionRule{pattern: regexp.MustCompile(expr), replacement: redactedText}
}

func keyValueRule(key string) redactionRule {
	return redactionRule{
		pattern:     regexp.MustCompile(`(?i)(` + key + `"?\s*[:=]\s*"?)[^\s",}]+`),
		replacement: "${1}" + redactedText,
	}
}

// Redactor hides credentials in log output: provider API keys, AWS
// credentials, bearer tokens and common secret-bearing fields
type Redactor struct {
	rules []redactionRule
}

// NewRedactor creates a new redactor with default patterns
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []redactionRule{
			// Field values, e.g. {"api_key":"..."} or password=...
			keyValueRule(`api_key`),
			keyValueRule(`aws_secret_access_key`),
			keyValueRule(`password`),
			keyValueRule(`secret`),
			keyValueRule(`token`),

			// Reasoning provider keys
			secretRule(`sk-ant-[a-zA-Z0-9_-]{20,}`),
			secretRule(`sk-[a-zA-Z0-9_-]{20,}`),
			secretRule(`AIza[0-9A-Za-z_-]{35}`),

			// AWS access key IDs, long-term and session
			secretRule(`(AKIA|ASIA)[0-9A-Z]{16}`),

			secretRule(`Bearer\s+[a-zA-Z0-9._~+/-]+=*`),
		},
	}
}

// AddPattern adds a custom pattern whose matches are fully replaced
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, redactionRule{pattern: re, replacement: redactedText})
	return nil
}

// Redact returns s with every sensitive match replaced
func (r *Redactor) Redact(s string) string {
	for _, rule := range r.rules {
		s = rule.pattern.ReplaceAllString(s, rule.replacement)
	}
	return s
}

// Wrap returns a writer that redacts before writing to w
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success even though the redacted output length
// differs; zerolog treats a short count as io.ErrShortWrite.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.writer, w.redactor.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
