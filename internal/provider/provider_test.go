package provider_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"ispdns/internal/dns"
	"ispdns/internal/provider"
	"ispdns/internal/provider/providertest"
)

func TestListAllFollowsCursors(t *testing.T) {
	zone := providertest.NewZone("example.com")
	zone.PageSize = 2
	for i := 0; i < 5; i++ {
		zone.Add(dns.RecordSet{Name: "cf.example.com", Line: "Yidong", Type: dns.TypeA, Values: []string{"1.1.1.1"}, TTL: 60})
	}
	zone.Add(dns.RecordSet{Name: "cf.example.com", Line: "Dianxin", Type: dns.TypeA, Values: []string{"2.2.2.2"}, TTL: 60})

	got, err := provider.ListAll(context.Background(), zone, zone.ZoneID, provider.Query{Name: "cf.example.com", Type: dns.TypeA, Line: "Yidong"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 record sets across 3 pages, got %d", len(got))
	}
	for i, rs := range got {
		if rs.ID != zone.Sets[i].ID {
			t.Fatalf("expected provider order, index %d got %s want %s", i, rs.ID, zone.Sets[i].ID)
		}
	}
}

type loopingClient struct {
	providertest.Zone
}

func (c *loopingClient) ListRecordSets(context.Context, string, provider.Query, provider.Cursor) (provider.Page, error) {
	return provider.Page{Next: "same"}, nil
}

func TestListAllRejectsRepeatedCursor(t *testing.T) {
	_, err := provider.ListAll(context.Background(), &loopingClient{}, "z", provider.Query{})
	if err == nil || !strings.Contains(err.Error(), "repeated cursor") {
		t.Fatalf("expected repeated cursor error, got %v", err)
	}
}

type coalescingClient struct {
	*providertest.Zone
}

func (c coalescingClient) Coalesce(fragments []dns.RecordSet) []dns.RecordSet {
	if len(fragments) == 0 {
		return nil
	}
	merged := fragments[0]
	for _, f := range fragments[1:] {
		merged.ID += "," + f.ID
		merged.Values = append(merged.Values, f.Values...)
	}
	return []dns.RecordSet{merged}
}

func TestListAllCoalesces(t *testing.T) {
	zone := providertest.NewZone("example.com")
	zone.PageSize = 1
	zone.Add(dns.RecordSet{ID: "1", Name: "cf.example.com", Type: dns.TypeA, Values: []string{"1.1.1.1"}})
	zone.Add(dns.RecordSet{ID: "2", Name: "cf.example.com", Type: dns.TypeA, Values: []string{"2.2.2.2"}})

	got, err := provider.ListAll(context.Background(), coalescingClient{zone}, zone.ZoneID, provider.Query{Name: "cf.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1,2" || len(got[0].Values) != 2 {
		t.Fatalf("expected one merged set, got %+v", got)
	}
}

func TestRegistry(t *testing.T) {
	provider.Register("test-registry", func(log *logrus.Entry, opt provider.Options) (provider.Client, error) {
		return providertest.NewZone(opt.ProjectID), nil
	})

	c, err := provider.New("test-registry", logrus.NewEntry(logrus.New()), provider.Options{ProjectID: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.ResolveZone(context.Background(), "example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := provider.New("nope", logrus.NewEntry(logrus.New()), provider.Options{}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestRequestErrorMessage(t *testing.T) {
	err := &provider.RequestError{Provider: "huawei", Op: "create", Code: "DNS.0312", Message: "record exists", RequestID: "abc"}
	want := "huawei create: [DNS.0312] record exists (request abc)"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}
