package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Mask replaces every redacted value.
const Mask = "***"

// tokenParam matches token query parameters in URLs and error strings.
var tokenParam = regexp.MustCompile(`([?&]token=)[^&\s"]*`)

// Redactor masks secrets in log attribute values.
type Redactor struct {
	secrets []string
}

// NewRedactor creates a redactor for the given secrets. Empty secrets are
// ignored; a redactor without secrets is disabled.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if s != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// Enabled reports whether the redactor has anything to mask.
func (r *Redactor) Enabled() bool {
	return len(r.secrets) > 0
}

// RedactString masks token query values and every configured secret.
func (r *Redactor) RedactString(value string) string {
	if !r.Enabled() || value == "" {
		return value
	}
	value = tokenParam.ReplaceAllString(value, "${1}"+Mask)
	for _, s := range r.secrets {
		value = strings.ReplaceAll(value, s, Mask)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. Errors and
// Stringers are rendered first so wrapped URLs are scrubbed as well.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return slog.String(a.Key, r.RedactString(x.Error()))
		case interface{ String() string }:
			return slog.String(a.Key, r.RedactString(x.String()))
		}
	}
	return a
}
