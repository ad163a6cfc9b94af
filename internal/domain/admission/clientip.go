package admission

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP derives the caller address: the first X-Forwarded-For hop, then
// Client-IP, then the connection address without its port.
func ClientIP(header http.Header, remoteAddr string) string {
	if fwd := header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(header.Get("Client-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
