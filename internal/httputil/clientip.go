package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the originating client address for request logging.
// Proxy headers are trusted in the order X-Forwarded-For, X-Real-IP, then
// the connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client; later entries are proxies.
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if ip := strings.TrimSpace(fwd); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" && net.ParseIP(real) != nil {
		return real
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
