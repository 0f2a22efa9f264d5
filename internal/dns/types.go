package dns

import (
	"fmt"
	"maps"
	"net/netip"
	"slices"
	"strings"
)

type RecordType string

const (
	TypeA     RecordType = "A"
	TypeCNAME RecordType = "CNAME"
)

// ParseRecordType accepts A and CNAME only.
func ParseRecordType(s string) (RecordType, bool) {
	switch RecordType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeA:
		return TypeA, true
	case TypeCNAME:
		return TypeCNAME, true
	default:
		return "", false
	}
}

// Line is a provider routing policy for resolvers on one carrier network.
// The default line applies when no other line matches.
type Line struct {
	Name    string
	Code    string
	Default bool
}

func (l Line) String() string {
	if l.Name == "" || l.Name == l.Code {
		return l.Code
	}
	return fmt.Sprintf("%s (%s)", l.Name, l.Code)
}

type DesiredState struct {
	Type   RecordType
	Values []string
	TTL    int
}

func ARecords(addrs []string, ttl int) DesiredState {
	return DesiredState{Type: TypeA, Values: slices.Clone(addrs), TTL: ttl}
}

func CNAMETarget(host string, ttl int) DesiredState {
	return DesiredState{Type: TypeCNAME, Values: []string{TrimTrailingDot(host)}, TTL: ttl}
}

func (d DesiredState) Validate() error {
	if d.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %d", d.TTL)
	}
	switch d.Type {
	case TypeA:
		if len(d.Values) == 0 {
			return fmt.Errorf("A record needs at least one address")
		}
		for _, v := range d.Values {
			if !IsIPv4(v) {
				return fmt.Errorf("invalid IPv4 address %q", v)
			}
		}
	case TypeCNAME:
		if len(d.Values) != 1 || TrimTrailingDot(d.Values[0]) == "" {
			return fmt.Errorf("CNAME record needs exactly one target")
		}
	default:
		return fmt.Errorf("unsupported record type %q", d.Type)
	}
	return nil
}

// Matches reports whether rs already holds this state. A record set has no
// order and repeated values collapse, so values compare as sets.
func (d DesiredState) Matches(rs RecordSet) bool {
	if rs.Type != d.Type || rs.TTL != d.TTL {
		return false
	}
	return maps.Equal(valueSet(d.Type, d.Values), valueSet(d.Type, rs.Values))
}

func valueSet(t RecordType, values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalizeValue(t, v)] = struct{}{}
	}
	return set
}

// RecordSet is a provider-owned bundle of values for one name, type and line.
type RecordSet struct {
	ID     string
	Name   string
	Line   string
	Type   RecordType
	Values []string
	TTL    int
}

// Cap keeps the first max values. max <= 0 means no cap.
func Cap(values []string, max int) []string {
	if max <= 0 || len(values) <= max {
		return values
	}
	return values[:max]
}

func IsIPv4(s string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	return err == nil && addr.Is4()
}

func TrimTrailingDot(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".")
}

func EnsureTrailingDot(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}

func normalizeValue(t RecordType, v string) string {
	if t == TypeCNAME {
		return strings.ToLower(TrimTrailingDot(v))
	}
	return strings.TrimSpace(v)
}
