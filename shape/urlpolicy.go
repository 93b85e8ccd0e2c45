package shape

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// cgnat is 100.64.0.0/10, not covered by net.IP.IsPrivate.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// URLPolicy restricts which shape URLs may be fetched. Shape URLs come from
// the class mapping table, so the zero policy allows anything; deployments
// that load tables from untrusted sources should enable both checks.
type URLPolicy struct {
	// RequireHTTPS rejects any scheme other than https.
	RequireHTTPS bool `yaml:"require_https" json:"require_https"`

	// BlockPrivate rejects localhost, .local/.internal hosts and private,
	// loopback, link-local and CGNAT addresses, both literal and resolved.
	BlockPrivate bool `yaml:"block_private" json:"block_private"`
}

// Validate checks rawURL against the policy.
func (p URLPolicy) Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if p.RequireHTTPS {
			return fmt.Errorf("only HTTPS URLs are allowed")
		}
	default:
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	if !p.BlockPrivate {
		return nil
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return fmt.Errorf("localhost URLs are not allowed")
	}
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("local domain URLs are not allowed")
	}
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return fmt.Errorf("private IP addresses are not allowed")
	}
	return nil
}

// IsPrivateIP reports whether ip is in a private or reserved range,
// including IPv4-mapped IPv6 addresses.
func IsPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	return cgnat.Contains(ip)
}
