// File: internal/dispatch/compose.go
package dispatch

import "strings"

// Render substitutes the recipient name into a message template. Both the
// {name} and {{name}} placeholder forms are supported; a missing name
// substitutes the empty string. The double-brace form is replaced first so
// the single-brace pass cannot split it. An empty template is returned as-is
// for the caller's validation to reject.
func Render(template, name string) string {
	if template == "" {
		return template
	}
	template = strings.ReplaceAll(template, "{{name}}", name)
	return strings.ReplaceAll(template, "{name}", name)
}

// NormalizePhone returns the phone in international form. A number already
// starting with "+" passes through untouched; otherwise it is treated as
// local and prefixed with the entry's country code, falling back to the
// configured default.
func NormalizePhone(phone, countryCode, defaultCountryCode string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	cc := countryCode
	if cc == "" {
		cc = defaultCountryCode
	}
	return "+" + cc + phone
}
