package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strings"
)

// IPExtractor resolves the client IP of an HTTP request. The two
// strategies are RemoteAddr only (default, spoof-proof) and trusted-proxy
// header extraction (opt-in, for deployments behind a reverse proxy).
type IPExtractor interface {
	ExtractIP(r *http.Request) (string, error)
}

// RemoteAddrExtractor uses the TCP connection's address. The client
// cannot forge it, so this is the default.
type RemoteAddrExtractor struct{}

// ExtractIP strips the port from r.RemoteAddr.
func (e *RemoteAddrExtractor) ExtractIP(r *http.Request) (string, error) {
	return extractIPFromAddr(r.RemoteAddr)
}

// TrustedProxyConfig names the reverse proxies whose forwarding headers
// are believed.
type TrustedProxyConfig struct {
	// Enabled gates all header-based extraction.
	Enabled bool

	// AllowedCIDRs are the trusted proxy ranges. Single IPs load as /32
	// or /128.
	AllowedCIDRs []netip.Prefix
}

// IsTrusted reports whether remoteAddr's IP falls in a trusted range.
func (c *TrustedProxyConfig) IsTrusted(remoteAddr string) bool {
	ip, err := extractIPFromAddr(remoteAddr)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range c.AllowedCIDRs {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// LoadTrustedProxyConfig reads RATE_LIMIT_TRUST_PROXY and
// RATE_LIMIT_TRUSTED_PROXIES (comma-separated IPs or CIDRs). Fail-closed:
// enabling trust with an empty or malformed proxy list is a startup
// error, since a silently empty list would let any client spoof
// X-Forwarded-For.
func LoadTrustedProxyConfig() (*TrustedProxyConfig, error) {
	config := &TrustedProxyConfig{
		Enabled:      os.Getenv("RATE_LIMIT_TRUST_PROXY") == "true",
		AllowedCIDRs: []netip.Prefix{},
	}
	if !config.Enabled {
		return config, nil
	}

	proxiesStr := strings.TrimSpace(os.Getenv("RATE_LIMIT_TRUSTED_PROXIES"))
	if proxiesStr == "" {
		return nil, fmt.Errorf("RATE_LIMIT_TRUST_PROXY is enabled but RATE_LIMIT_TRUSTED_PROXIES is empty")
	}

	for _, entry := range strings.Split(proxiesStr, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			ip, ipErr := netip.ParseAddr(entry)
			if ipErr != nil {
				return nil, fmt.Errorf("invalid IP or CIDR format %q: must be an IP address or CIDR notation", entry)
			}
			bits := 32
			if !ip.Is4() {
				bits = 128
			}
			prefix = netip.PrefixFrom(ip, bits)
		}
		config.AllowedCIDRs = append(config.AllowedCIDRs, prefix)
	}

	if len(config.AllowedCIDRs) == 0 {
		return nil, fmt.Errorf("RATE_LIMIT_TRUST_PROXY is enabled but no valid proxies found in RATE_LIMIT_TRUSTED_PROXIES")
	}
	return config, nil
}

// TrustedProxyExtractor believes X-Forwarded-For (first hop) then
// X-Real-IP, but only when the connecting peer is a trusted proxy.
// Headers from an untrusted peer are logged and ignored, which blocks
// the rate-limit bypass of rotating a forged client IP per request.
type TrustedProxyExtractor struct {
	config TrustedProxyConfig
}

// NewTrustedProxyExtractor builds the extractor.
func NewTrustedProxyExtractor(config TrustedProxyConfig) *TrustedProxyExtractor {
	return &TrustedProxyExtractor{config: config}
}

// ExtractIP implements IPExtractor.
func (e *TrustedProxyExtractor) ExtractIP(r *http.Request) (string, error) {
	if !e.config.Enabled {
		return extractIPFromAddr(r.RemoteAddr)
	}

	if !e.config.IsTrusted(r.RemoteAddr) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			slog.Warn("untrusted proxy attempting to set X-Forwarded-For",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("x_forwarded_for", xff))
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			slog.Warn("untrusted proxy attempting to set X-Real-IP",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("x_real_ip", xri))
		}
		return extractIPFromAddr(r.RemoteAddr)
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip, nil
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String(), nil
		}
	}
	return extractIPFromAddr(r.RemoteAddr)
}

// extractIPFromAddr strips the port from "host:port", accepting bare IPs
// and bracketed IPv6.
func extractIPFromAddr(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		if ip := net.ParseIP(addr); ip != nil {
			return ip.String(), nil
		}
		return "", fmt.Errorf("invalid address format: %s", addr)
	}
	return host, nil
}

// parseFirstIP returns the first valid IP of an X-Forwarded-For list
// ("client, proxy1, proxy2"), or "" if the first entry is not an IP.
func parseFirstIP(s string) string {
	first, _, _ := strings.Cut(s, ",")
	if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
		return ip.String()
	}
	return ""
}
