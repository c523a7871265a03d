package observability

import "unicode"

// Attacker-controlled strings (paths, methods, peer addresses) go into
// log fields and span attributes, so control characters are dropped and
// length is capped before they leave the process.
func sanitizeString(value string, limit int) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return string(out)
}

// SanitizeRoute cleans a matched route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod cleans an HTTP method for logging.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}
