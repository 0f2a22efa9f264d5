package dnspodclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"

	"ispdns/internal/dns"
	"ispdns/internal/provider"
)

const pageSize = 100

// ListRecordSets returns one single-value fragment per record. ListAll folds
// them into record sets through Coalesce.
func (c *Client) ListRecordSets(ctx context.Context, zoneID string, q provider.Query, cursor provider.Cursor) (provider.Page, error) {
	domain, err := c.domain(zoneID)
	if err != nil {
		return provider.Page{}, err
	}
	var offset uint64
	if cursor != "" {
		if offset, err = strconv.ParseUint(string(cursor), 10, 64); err != nil {
			return provider.Page{}, fmt.Errorf("dnspod: bad cursor %q", cursor)
		}
	}

	req := dnspod.NewDescribeRecordListRequest()
	req.Domain = common.StringPtr(domain)
	req.Offset = common.Uint64Ptr(offset)
	req.Limit = common.Uint64Ptr(pageSize)
	if q.Name != "" {
		sub, err := dns.SubDomain(domain, q.Name)
		if err != nil {
			return provider.Page{}, err
		}
		req.Subdomain = common.StringPtr(sub)
	}
	if q.Type != "" {
		req.RecordType = common.StringPtr(string(q.Type))
	}
	if q.Line != "" {
		req.RecordLine = common.StringPtr(q.Line)
	}
	req.SetContext(ctx)

	resp, err := c.sdk.DescribeRecordList(req)
	if err != nil {
		err = wrapErr("list records", err)
		if code(err) == "ResourceNotFound.NoDataOfRecord" {
			return provider.Page{}, nil
		}
		return provider.Page{}, err
	}
	if resp.Response == nil {
		return provider.Page{}, nil
	}

	var page provider.Page
	for _, it := range resp.Response.RecordList {
		if it == nil || it.RecordId == nil {
			continue
		}
		page.RecordSets = append(page.RecordSets, fragment(domain, it))
	}
	var total uint64
	if info := resp.Response.RecordCountInfo; info != nil && info.TotalCount != nil {
		total = *info.TotalCount
	}
	if next := offset + uint64(len(resp.Response.RecordList)); len(resp.Response.RecordList) > 0 && next < total {
		page.Next = provider.Cursor(strconv.FormatUint(next, 10))
	}
	return page, nil
}

func fragment(domain string, it *dnspod.RecordListItem) dns.RecordSet {
	sub := ""
	if it.Name != nil {
		sub = *it.Name
	}
	rs := dns.RecordSet{
		ID:   strconv.FormatUint(*it.RecordId, 10),
		Name: dns.FQDN(domain, sub),
	}
	if it.Line != nil {
		rs.Line = *it.Line
	}
	if it.Type != nil {
		rs.Type = dns.RecordType(strings.ToUpper(*it.Type))
	}
	if it.Value != nil {
		v := *it.Value
		if rs.Type == dns.TypeCNAME {
			v = dns.TrimTrailingDot(v)
		}
		rs.Values = []string{v}
	}
	if it.TTL != nil {
		rs.TTL = int(*it.TTL)
	}
	return rs
}

// CreateRecordSet creates one record per value. If any create fails the
// records created so far are removed again, newest first.
func (c *Client) CreateRecordSet(ctx context.Context, zoneID string, name string, line dns.Line, desired dns.DesiredState) (string, error) {
	domain, sub, err := c.target(zoneID, name)
	if err != nil {
		return "", err
	}
	var created []uint64
	for _, v := range uniqueValues(desired.Values) {
		id, err := c.createOne(ctx, domain, sub, line.Code, desired.Type, v, desired.TTL)
		if err != nil {
			c.rollback(ctx, domain, created)
			return "", err
		}
		created = append(created, id)
	}
	return joinIDs(created), nil
}

// UpdateRecordSet converges the member records of existing on desired:
// missing values are created, kept records get their TTL fixed and stale
// records are deleted last so the name never resolves to nothing.
func (c *Client) UpdateRecordSet(ctx context.Context, zoneID string, existing dns.RecordSet, desired dns.DesiredState) error {
	domain, sub, err := c.target(zoneID, existing.Name)
	if err != nil {
		return err
	}
	ids, err := splitIDs(existing.ID)
	if err != nil {
		return err
	}
	if len(ids) != len(existing.Values) {
		return fmt.Errorf("dnspod: record set %s has %d ids for %d values", existing.ID, len(ids), len(existing.Values))
	}

	d := diffValues(existing.Values, desired.Values)
	var created []uint64
	for _, v := range d.add {
		id, err := c.createOne(ctx, domain, sub, existing.Line, desired.Type, v, desired.TTL)
		if err != nil {
			c.rollback(ctx, domain, created)
			return err
		}
		created = append(created, id)
	}

	var errs []error
	for _, i := range d.keep {
		if existing.TTL == desired.TTL && existing.Type == desired.Type {
			continue
		}
		if err := c.modifyOne(ctx, domain, sub, existing.Line, desired.Type, existing.Values[i], desired.TTL, ids[i]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, i := range d.drop {
		if err := c.deleteOne(ctx, domain, ids[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DeleteRecordSet deletes every member record and reports all failures.
func (c *Client) DeleteRecordSet(ctx context.Context, zoneID string, existing dns.RecordSet) error {
	domain, err := c.domain(zoneID)
	if err != nil {
		return err
	}
	ids, err := splitIDs(existing.ID)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if err := c.deleteOne(ctx, domain, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) target(zoneID, name string) (domain, sub string, err error) {
	if domain, err = c.domain(zoneID); err != nil {
		return "", "", err
	}
	if sub, err = dns.SubDomain(domain, name); err != nil {
		return "", "", err
	}
	return domain, sub, nil
}

func (c *Client) createOne(ctx context.Context, domain, sub, line string, t dns.RecordType, value string, ttl int) (uint64, error) {
	req := dnspod.NewCreateRecordRequest()
	req.Domain = common.StringPtr(domain)
	req.SubDomain = common.StringPtr(sub)
	req.RecordType = common.StringPtr(string(t))
	req.RecordLine = common.StringPtr(line)
	req.Value = common.StringPtr(value)
	req.TTL = common.Uint64Ptr(uint64(ttl))
	req.SetContext(ctx)

	resp, err := c.sdk.CreateRecord(req)
	if err != nil {
		return 0, wrapErr("create", err)
	}
	if resp.Response == nil || resp.Response.RecordId == nil {
		return 0, &provider.RequestError{Provider: Name, Op: "create", Err: errors.New("response carried no record id")}
	}
	return *resp.Response.RecordId, nil
}

func (c *Client) modifyOne(ctx context.Context, domain, sub, line string, t dns.RecordType, value string, ttl int, id uint64) error {
	req := dnspod.NewModifyRecordRequest()
	req.Domain = common.StringPtr(domain)
	req.RecordId = common.Uint64Ptr(id)
	req.SubDomain = common.StringPtr(sub)
	req.RecordType = common.StringPtr(string(t))
	req.RecordLine = common.StringPtr(line)
	req.Value = common.StringPtr(value)
	req.TTL = common.Uint64Ptr(uint64(ttl))
	req.SetContext(ctx)

	if _, err := c.sdk.ModifyRecord(req); err != nil {
		return wrapErr("modify", err)
	}
	return nil
}

func (c *Client) deleteOne(ctx context.Context, domain string, id uint64) error {
	req := dnspod.NewDeleteRecordRequest()
	req.Domain = common.StringPtr(domain)
	req.RecordId = common.Uint64Ptr(id)
	req.SetContext(ctx)

	if _, err := c.sdk.DeleteRecord(req); err != nil {
		return wrapErr("delete", err)
	}
	return nil
}

func (c *Client) rollback(ctx context.Context, domain string, ids []uint64) {
	if len(ids) == 0 {
		return
	}
	c.log.Warnf("reverting %d created records", len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if err := c.deleteOne(ctx, domain, ids[i]); err != nil {
			c.log.WithError(err).Errorf("revert record %d", ids[i])
			continue
		}
		c.log.Debugf("reverted record %d", ids[i])
	}
}
