package dns

import (
	"fmt"
	"strings"

	mdns "github.com/miekg/dns"
)

// SubDomain returns the host part of name relative to zone, "@" for the
// apex.
func SubDomain(zone, name string) (string, error) {
	zone = strings.ToLower(TrimTrailingDot(zone))
	name = strings.ToLower(TrimTrailingDot(name))
	if zone == "" {
		return "", fmt.Errorf("zone is empty")
	}
	if _, ok := mdns.IsDomainName(name); !ok || name == "" {
		return "", fmt.Errorf("name %q is not a valid domain name", name)
	}
	if name == zone {
		return "@", nil
	}
	if !mdns.IsSubDomain(zone, name) {
		return "", fmt.Errorf("name %q is not under zone %q", name, zone)
	}
	sub := strings.TrimSuffix(name, "."+zone)
	if sub == "" {
		return "@", nil
	}
	return sub, nil
}

// FQDN joins a sub domain back onto its zone.
func FQDN(zone, sub string) string {
	zone = TrimTrailingDot(zone)
	sub = strings.TrimSpace(sub)
	if sub == "" || sub == "@" {
		return zone
	}
	return sub + "." + zone
}
