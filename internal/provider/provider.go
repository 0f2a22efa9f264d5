package provider

import (
	"context"
	"fmt"

	"ispdns/internal/dns"
)

// Cursor is an opaque continuation token. The empty cursor starts a listing
// and an empty Page.Next ends it.
type Cursor string

type Query struct {
	Name string
	Type dns.RecordType
	Line string
}

type Page struct {
	RecordSets []dns.RecordSet
	Next       Cursor
}

type Client interface {
	ResolveZone(ctx context.Context, zoneName string) (zoneID string, err error)
	ListRecordSets(ctx context.Context, zoneID string, q Query, cursor Cursor) (Page, error)
	CreateRecordSet(ctx context.Context, zoneID string, name string, line dns.Line, desired dns.DesiredState) (recordID string, err error)
	UpdateRecordSet(ctx context.Context, zoneID string, existing dns.RecordSet, desired dns.DesiredState) error
	DeleteRecordSet(ctx context.Context, zoneID string, existing dns.RecordSet) error
}

// Coalescer is implemented by providers without native multi-value record
// sets. It folds the fragments of a complete listing into record sets.
type Coalescer interface {
	Coalesce(fragments []dns.RecordSet) []dns.RecordSet
}

// ListAll follows continuation cursors until the provider stops returning one.
func ListAll(ctx context.Context, c Client, zoneID string, q Query) ([]dns.RecordSet, error) {
	var (
		all    []dns.RecordSet
		cursor Cursor
		seen   = make(map[Cursor]struct{})
	)
	for {
		page, err := c.ListRecordSets(ctx, zoneID, q, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.RecordSets...)
		if page.Next == "" {
			break
		}
		if _, dup := seen[page.Next]; dup {
			return nil, fmt.Errorf("list %s %s: provider returned repeated cursor %q", q.Type, q.Name, page.Next)
		}
		seen[page.Next] = struct{}{}
		cursor = page.Next
	}
	if co, ok := c.(Coalescer); ok {
		all = co.Coalesce(all)
	}
	return all, nil
}
