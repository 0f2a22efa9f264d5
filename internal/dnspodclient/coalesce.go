package dnspodclient

import (
	"fmt"
	"strconv"
	"strings"

	"ispdns/internal/dns"
)

// Coalesce groups single-value fragments by name, type and line, keeping
// listing order. When member TTLs disagree the set TTL is 0 so that it
// never matches a desired state and gets rewritten.
func (c *Client) Coalesce(fragments []dns.RecordSet) []dns.RecordSet {
	return coalesce(fragments)
}

func coalesce(fragments []dns.RecordSet) []dns.RecordSet {
	type key struct {
		name string
		typ  dns.RecordType
		line string
	}
	var (
		out   []dns.RecordSet
		index = make(map[key]int)
	)
	for _, f := range fragments {
		k := key{strings.ToLower(f.Name), f.Type, f.Line}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, dns.RecordSet{
				ID:     f.ID,
				Name:   f.Name,
				Line:   f.Line,
				Type:   f.Type,
				Values: append([]string(nil), f.Values...),
				TTL:    f.TTL,
			})
			continue
		}
		rs := &out[i]
		rs.ID += "," + f.ID
		rs.Values = append(rs.Values, f.Values...)
		if rs.TTL != f.TTL {
			rs.TTL = 0
		}
	}
	return out
}

func splitIDs(s string) ([]uint64, error) {
	parts := strings.Split(s, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("dnspod: bad record id %q in %q", p, s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// uniqueValues drops repeated values. DNSPod rejects a second record with
// the same value on the same line.
func uniqueValues(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := strings.ToLower(dns.TrimTrailingDot(v))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

type valueDiff struct {
	add  []string // desired values with no record yet
	keep []int    // indexes into existing values that stay
	drop []int    // indexes into existing values to delete
}

func diffValues(existing, desired []string) valueDiff {
	want := make(map[string]bool)
	for _, v := range uniqueValues(desired) {
		want[strings.ToLower(dns.TrimTrailingDot(v))] = true
	}
	var (
		d    valueDiff
		have = make(map[string]bool)
	)
	for i, v := range existing {
		k := strings.ToLower(dns.TrimTrailingDot(v))
		if want[k] && !have[k] {
			have[k] = true
			d.keep = append(d.keep, i)
			continue
		}
		d.drop = append(d.drop, i)
	}
	for _, v := range uniqueValues(desired) {
		if !have[strings.ToLower(dns.TrimTrailingDot(v))] {
			d.add = append(d.add, v)
		}
	}
	return d
}
