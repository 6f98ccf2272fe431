package domain

import "strings"

// DefaultAddressFields is the column list the store path derives addresses
// from: province plus monitoring-section name.
var DefaultAddressFields = []string{"省份", "断面名称"}

// DeriveAddress builds a record's lookup address by concatenating the named
// payload fields in order, skipping blank or missing ones. No separator is
// inserted between parts. Returns "" when none of the fields carry a value.
func DeriveAddress(p Payload, fields []string) string {
	var b strings.Builder
	for _, name := range fields {
		part := strings.TrimSpace(p.String(name))
		if part == "" {
			continue
		}
		b.WriteString(part)
	}
	return b.String()
}
