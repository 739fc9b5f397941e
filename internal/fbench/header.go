package fbench

import "strings"

// ParseCharset extracts the charset declared in the Content-Type field
// of raw response header lines. Field names match case-insensitively.
// When no Content-Type field carries a charset parameter, fallback is
// returned; missing information is not an error.
func ParseCharset(lines []string, fallback string) string {
	for _, line := range lines {
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "Content-Type") {
			continue
		}
		for _, param := range strings.Split(value, ";") {
			k, v, found := strings.Cut(param, "=")
			if found && strings.EqualFold(strings.TrimSpace(k), "charset") {
				return strings.Trim(strings.TrimSpace(v), `"'`)
			}
		}
	}
	return fallback
}
