package huaweidns

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"

	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2/model"

	"ispdns/internal/dns"
	"ispdns/internal/provider"
)

const recordPageSize = int32(100)

func (c *Client) ListRecordSets(ctx context.Context, zoneID string, q provider.Query, cursor provider.Cursor) (provider.Page, error) {
	if err := ctx.Err(); err != nil {
		return provider.Page{}, err
	}
	req := &model.ListRecordSetsWithLineRequest{
		ZoneId:     strPtr(zoneID),
		Limit:      int32Ptr(recordPageSize),
		SearchMode: strPtr("equal"),
	}
	if q.Name != "" {
		req.Name = strPtr(dns.EnsureTrailingDot(q.Name))
	}
	if q.Type != "" {
		req.Type = strPtr(string(q.Type))
	}
	if q.Line != "" {
		req.LineId = strPtr(q.Line)
	}
	if cursor != "" {
		req.Marker = strPtr(string(cursor))
	}

	resp, err := c.sdk.ListRecordSetsWithLine(req)
	if err != nil {
		return provider.Page{}, wrapErr("list record sets", err)
	}

	var page provider.Page
	for _, rs := range deref(resp.Recordsets) {
		t, ok := dns.ParseRecordType(deref(rs.Type))
		if !ok {
			// Unmanaged types are still listed so callers see the whole
			// line, but they keep their raw type string.
			t = dns.RecordType(strings.ToUpper(deref(rs.Type)))
		}
		page.RecordSets = append(page.RecordSets, dns.RecordSet{
			ID:     deref(rs.Id),
			Name:   dns.TrimTrailingDot(deref(rs.Name)),
			Line:   deref(rs.Line),
			Type:   t,
			Values: slices.Clone(deref(rs.Records)),
			TTL:    int(deref(rs.Ttl)),
		})
	}
	if resp.Links != nil {
		page.Next = provider.Cursor(nextMarker(deref(resp.Links.Next)))
	}
	if len(page.RecordSets) == 0 {
		page.Next = ""
	}
	return page, nil
}

func (c *Client) CreateRecordSet(ctx context.Context, zoneID string, name string, line dns.Line, desired dns.DesiredState) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	values := recordValues(desired)
	req := &model.CreateRecordSetWithLineRequest{
		ZoneId: zoneID,
		Body: &model.CreateRecordSetWithLineRequestBody{
			Name:    dns.EnsureTrailingDot(name),
			Type:    string(desired.Type),
			Ttl:     int32Ptr(int32(desired.TTL)),
			Records: &values,
			Line:    strPtr(line.Code),
		},
	}
	resp, err := c.sdk.CreateRecordSetWithLine(req)
	if err != nil {
		return "", wrapErr("create", err)
	}
	id := deref(resp.Id)
	if id == "" {
		return "", &provider.RequestError{Provider: Name, Op: "create", Err: errors.New("response carried no record set id")}
	}
	c.log.Debugf("created record set %s on line %s", id, line.Code)
	return id, nil
}

func (c *Client) UpdateRecordSet(ctx context.Context, zoneID string, existing dns.RecordSet, desired dns.DesiredState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values := recordValues(desired)
	req := &model.UpdateRecordSetRequest{
		ZoneId:      zoneID,
		RecordsetId: existing.ID,
		Body: &model.UpdateRecordSetReq{
			Name:    strPtr(dns.EnsureTrailingDot(existing.Name)),
			Type:    strPtr(string(desired.Type)),
			Ttl:     int32Ptr(int32(desired.TTL)),
			Records: &values,
		},
	}
	if _, err := c.sdk.UpdateRecordSet(req); err != nil {
		return wrapErr("update", err)
	}
	return nil
}

func (c *Client) DeleteRecordSet(ctx context.Context, zoneID string, existing dns.RecordSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := &model.DeleteRecordSetRequest{ZoneId: zoneID, RecordsetId: existing.ID}
	if _, err := c.sdk.DeleteRecordSet(req); err != nil {
		return wrapErr("delete", err)
	}
	return nil
}

// recordValues renders values the way the API stores them. CNAME targets
// are absolute names.
func recordValues(desired dns.DesiredState) []string {
	out := make([]string, 0, len(desired.Values))
	for _, v := range desired.Values {
		if desired.Type == dns.TypeCNAME {
			v = dns.EnsureTrailingDot(v)
		}
		out = append(out, v)
	}
	return out
}

// nextMarker pulls the marker query parameter out of a links.next URL.
func nextMarker(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("marker")
}
