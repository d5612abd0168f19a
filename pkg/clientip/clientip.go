package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is returned when neither the forwarded header nor the peer address
// yields an IP. All such clients share one rate-limit bucket.
const Unknown = "unknown"

// Resolve returns the client IP for r:
//  1. the first entry of X-Forwarded-For, when it is a valid IP
//  2. the transport peer address (RemoteAddr)
//  3. Unknown
func Resolve(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		// RemoteAddr without a port
		host = r.RemoteAddr
	}
	if ip := parseIP(host); ip != "" {
		return ip
	}

	return Unknown
}

// IsUnknown reports whether ip is the Unknown sentinel (or empty).
func IsUnknown(ip string) bool {
	return ip == "" || ip == Unknown
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
