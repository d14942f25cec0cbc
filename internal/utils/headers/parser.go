package headers

import (
	"net/http"
	"strings"
)

// ParseHeaders converts "Key: Value" flag values into a map. Malformed and
// empty-keyed entries are dropped.
func ParseHeaders(h []string) map[string]string {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		key, value, ok := strings.Cut(hdr, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		m[key] = strings.TrimSpace(value)
	}
	return m
}

// Apply sets every header on req, overriding defaults already present.
func Apply(req *http.Request, h map[string]string) {
	for key, value := range h {
		req.Header.Set(key, value)
	}
}
