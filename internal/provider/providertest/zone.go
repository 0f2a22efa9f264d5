// Package providertest has an in-memory provider.Client for tests.
package providertest

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"ispdns/internal/dns"
	"ispdns/internal/provider"
)

type Call struct {
	Op     string // create, update, delete
	ID     string
	Line   string
	Type   dns.RecordType
	Values []string
	TTL    int
}

// Zone keeps record sets in insertion order and logs every mutating call.
// PageSize > 0 splits listings into pages linked by cursors.
type Zone struct {
	ZoneName string
	ZoneID   string
	PageSize int

	Sets  []dns.RecordSet
	Calls []Call

	FailCreate map[string]error // keyed by line code
	FailUpdate map[string]error // keyed by record id
	FailDelete map[string]error // keyed by record id
	FailList   error

	// OnCall runs after each mutating call is logged.
	OnCall func(Call)

	nextID int
}

func NewZone(name string) *Zone {
	return &Zone{ZoneName: name, ZoneID: "zone-" + name}
}

func (z *Zone) Add(rs dns.RecordSet) {
	if rs.ID == "" {
		z.nextID++
		rs.ID = "seed-" + strconv.Itoa(z.nextID)
	}
	z.Sets = append(z.Sets, rs)
}

func (z *Zone) record(c Call) {
	z.Calls = append(z.Calls, c)
	if z.OnCall != nil {
		z.OnCall(c)
	}
}

func (z *Zone) Mutations() int { return len(z.Calls) }

func (z *Zone) CallsOf(op string) []Call {
	var out []Call
	for _, c := range z.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (z *Zone) ResolveZone(_ context.Context, zoneName string) (string, error) {
	if zoneName != z.ZoneName {
		return "", &provider.ZoneError{Provider: "fake", Zone: zoneName}
	}
	return z.ZoneID, nil
}

func (z *Zone) ListRecordSets(_ context.Context, zoneID string, q provider.Query, cursor provider.Cursor) (provider.Page, error) {
	if z.FailList != nil {
		return provider.Page{}, z.FailList
	}
	if zoneID != z.ZoneID {
		return provider.Page{}, fmt.Errorf("unknown zone %q", zoneID)
	}
	var matched []dns.RecordSet
	for _, rs := range z.Sets {
		if q.Name != "" && rs.Name != q.Name {
			continue
		}
		if q.Type != "" && rs.Type != q.Type {
			continue
		}
		if q.Line != "" && rs.Line != q.Line {
			continue
		}
		matched = append(matched, cloneSet(rs))
	}
	if z.PageSize <= 0 {
		return provider.Page{RecordSets: matched}, nil
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(string(cursor))
		if err != nil {
			return provider.Page{}, fmt.Errorf("bad cursor %q", cursor)
		}
		start = n
	}
	end := min(start+z.PageSize, len(matched))
	page := provider.Page{RecordSets: matched[start:end]}
	if end < len(matched) {
		page.Next = provider.Cursor(strconv.Itoa(end))
	}
	return page, nil
}

func (z *Zone) CreateRecordSet(_ context.Context, _ string, name string, line dns.Line, desired dns.DesiredState) (string, error) {
	z.record(Call{Op: "create", Line: line.Code, Type: desired.Type, Values: slices.Clone(desired.Values), TTL: desired.TTL})
	if err := z.FailCreate[line.Code]; err != nil {
		return "", err
	}
	for _, rs := range z.Sets {
		if rs.Name == name && rs.Line == line.Code && rs.Type != desired.Type {
			return "", fmt.Errorf("%s conflicts with existing %s on line %s", desired.Type, rs.Type, line.Code)
		}
	}
	z.nextID++
	id := "rs-" + strconv.Itoa(z.nextID)
	z.Sets = append(z.Sets, dns.RecordSet{
		ID: id, Name: name, Line: line.Code, Type: desired.Type,
		Values: slices.Clone(desired.Values), TTL: desired.TTL,
	})
	return id, nil
}

func (z *Zone) UpdateRecordSet(_ context.Context, _ string, existing dns.RecordSet, desired dns.DesiredState) error {
	z.record(Call{Op: "update", ID: existing.ID, Line: existing.Line, Type: desired.Type, Values: slices.Clone(desired.Values), TTL: desired.TTL})
	if err := z.FailUpdate[existing.ID]; err != nil {
		return err
	}
	for i := range z.Sets {
		if z.Sets[i].ID == existing.ID {
			z.Sets[i].Values = slices.Clone(desired.Values)
			z.Sets[i].TTL = desired.TTL
			return nil
		}
	}
	return fmt.Errorf("record set %q not found", existing.ID)
}

func (z *Zone) DeleteRecordSet(_ context.Context, _ string, existing dns.RecordSet) error {
	z.record(Call{Op: "delete", ID: existing.ID, Line: existing.Line, Type: existing.Type})
	if err := z.FailDelete[existing.ID]; err != nil {
		return err
	}
	for i := range z.Sets {
		if z.Sets[i].ID == existing.ID {
			z.Sets = slices.Delete(z.Sets, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("record set %q not found", existing.ID)
}

func cloneSet(rs dns.RecordSet) dns.RecordSet {
	rs.Values = slices.Clone(rs.Values)
	return rs
}
