package webhook

import (
	"net/http"
	"strings"
)

// Headers consulted for the caller address, most trusted first.
const (
	HeaderCDNClientIP  = "CF-Connecting-IP"
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"
)

// ClientIP resolves the webhook caller from proxy headers. Only the first
// X-Forwarded-For entry is used.
func ClientIP(h http.Header) (string, error) {
	if ip := strings.TrimSpace(h.Get(HeaderCDNClientIP)); ip != "" {
		return ip, nil
	}
	if xff := h.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip, nil
		}
	}
	if ip := strings.TrimSpace(h.Get(HeaderRealIP)); ip != "" {
		return ip, nil
	}
	return "", ErrClientIPUnresolvable
}
