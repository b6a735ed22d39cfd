package httpapi

import (
	"net"
	"net/url"
	"strings"
)

var defaultPorts = map[string]string{
	"http":       "80",
	"https":      "443",
	"nats":       "4222",
	"tls":        "4222",
	"postgres":   "5432",
	"postgresql": "5432",
	"redis":      "6379",
	"rediss":     "6379",
}

// normalizeTarget lowercases scheme and host, drops the scheme's default
// port and a bare trailing slash, so the same service is not registered twice.
func normalizeTarget(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if strings.Contains(u.Host, ",") {
		// nats cluster list
		return u.String()
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == defaultPorts[u.Scheme] {
		port = ""
	}
	switch {
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		u.Host = "[" + host + "]"
	default:
		u.Host = host
	}
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}
