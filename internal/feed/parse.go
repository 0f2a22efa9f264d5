package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ispdns/internal/dns"
)

type Issue struct {
	Line    int
	Level   string
	Message string
}

// ParseList reads a newline-delimited address list. Blank lines and lines
// starting with '#' are ignored, and anything after an inline '#' is dropped.
// Entries that are not IPv4 addresses are reported and skipped. Order and
// duplicates are kept as received.
func ParseList(r io.Reader) ([]string, []Issue, error) {
	var (
		addrs  []string
		issues []Issue
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for lineNo := 1; sc.Scan(); lineNo++ {
		raw := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		entry, _, _ := strings.Cut(raw, "#")
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !dns.IsIPv4(entry) {
			issues = append(issues, Issue{Line: lineNo, Level: "warn", Message: fmt.Sprintf("not an IPv4 address: %q", entry)})
			continue
		}
		addrs = append(addrs, entry)
	}

	if err := sc.Err(); err != nil {
		return nil, issues, err
	}
	return addrs, issues, nil
}

// ParseMapping decodes a JSON object from carrier key to address list. The
// object may be wrapped as {"data": {...}}. List elements are either strings
// or objects with an "ip" or "address" field.
func ParseMapping(r io.Reader) (map[string][]string, []Issue, error) {
	var top map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&top); err != nil {
		return nil, nil, fmt.Errorf("decode feed json: %w", err)
	}
	if inner, ok := top["data"]; ok && len(top) == 1 {
		top = nil
		if err := json.Unmarshal(inner, &top); err != nil {
			return nil, nil, fmt.Errorf("decode feed json data: %w", err)
		}
	}

	var (
		out    = make(map[string][]string, len(top))
		issues []Issue
	)
	for key, raw := range top {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			issues = append(issues, Issue{Level: "warn", Message: fmt.Sprintf("key %q: not a list", key)})
			continue
		}
		for i, el := range elems {
			addr, ok := decodeAddress(el)
			if !ok || !dns.IsIPv4(addr) {
				issues = append(issues, Issue{Level: "warn", Message: fmt.Sprintf("key %q[%d]: not an IPv4 address: %s", key, i, string(el))})
				continue
			}
			out[key] = append(out[key], strings.TrimSpace(addr))
		}
	}
	return out, issues, nil
}

func decodeAddress(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj struct {
		IP      string `json:"ip"`
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	if obj.IP != "" {
		return obj.IP, true
	}
	return obj.Address, obj.Address != ""
}
