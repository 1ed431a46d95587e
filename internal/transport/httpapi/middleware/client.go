package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientKeyHeader lets a caller name its own session. Feed requests that
// share a key supersede each other.
const ClientKeyHeader = "X-Client-Key"

// ClientIP returns the first X-Forwarded-For hop, else the remote host
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, _ := strings.Cut(fwd, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientKey identifies the caller for feed supersession: the explicit
// header, then the token subject, then the client IP.
func ClientKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(ClientKeyHeader)); key != "" {
		return "key:" + key
	}
	if sub, ok := GetSubjectFromContext(r.Context()); ok && sub != "" {
		return "sub:" + sub
	}
	return "ip:" + ClientIP(r)
}
