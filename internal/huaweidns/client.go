// Package huaweidns implements provider.Client on Huawei Cloud DNS. Record
// sets there are native multi-value sets bound to one resolution line.
package huaweidns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/auth/basic"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/config"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/sdkerr"
	hwdns "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2/model"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2/region"
	"github.com/sirupsen/logrus"

	"ispdns/internal/dns"
	"ispdns/internal/provider"
)

const (
	Name = "huawei"

	defaultRegion = "cn-east-3"
	zonePageSize  = int32(100)
)

func init() {
	provider.Register(Name, func(log *logrus.Entry, opt provider.Options) (provider.Client, error) {
		return New(log, opt)
	})
}

// api is the subset of the SDK client used here.
type api interface {
	ListPublicZones(*model.ListPublicZonesRequest) (*model.ListPublicZonesResponse, error)
	ListRecordSetsWithLine(*model.ListRecordSetsWithLineRequest) (*model.ListRecordSetsWithLineResponse, error)
	CreateRecordSetWithLine(*model.CreateRecordSetWithLineRequest) (*model.CreateRecordSetWithLineResponse, error)
	UpdateRecordSet(*model.UpdateRecordSetRequest) (*model.UpdateRecordSetResponse, error)
	DeleteRecordSet(*model.DeleteRecordSetRequest) (*model.DeleteRecordSetResponse, error)
}

type Client struct {
	sdk api
	log *logrus.Entry
}

func New(log *logrus.Entry, opt provider.Options) (*Client, error) {
	if opt.AccessKey == "" || opt.SecretKey == "" {
		return nil, &provider.AuthError{Provider: Name, Err: errors.New("missing access key or secret key")}
	}
	if opt.ProjectID == "" {
		return nil, &provider.AuthError{Provider: Name, Err: errors.New("missing project id")}
	}
	if opt.Region == "" {
		opt.Region = defaultRegion
	}

	auth, err := basic.NewCredentialsBuilder().
		WithAk(opt.AccessKey).
		WithSk(opt.SecretKey).
		WithProjectId(opt.ProjectID).
		SafeBuild()
	if err != nil {
		return nil, &provider.AuthError{Provider: Name, Err: err}
	}
	reg, err := region.SafeValueOf(opt.Region)
	if err != nil {
		return nil, fmt.Errorf("huawei region %q: %w", opt.Region, err)
	}
	builder := hwdns.DnsClientBuilder().WithRegion(reg).WithCredential(auth)
	if opt.Timeout > 0 {
		builder = builder.WithHttpConfig(config.DefaultHttpConfig().WithTimeout(opt.Timeout))
	}
	hc, err := builder.SafeBuild()
	if err != nil {
		return nil, &provider.AuthError{Provider: Name, Err: err}
	}
	return &Client{sdk: hwdns.NewDnsClient(hc), log: log}, nil
}

// ResolveZone looks up the id of a public zone by exact name.
func (c *Client) ResolveZone(ctx context.Context, zoneName string) (string, error) {
	want := dns.EnsureTrailingDot(strings.ToLower(zoneName))
	var marker *string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		resp, err := c.sdk.ListPublicZones(&model.ListPublicZonesRequest{
			Name:   strPtr(dns.TrimTrailingDot(zoneName)),
			Limit:  int32Ptr(zonePageSize),
			Marker: marker,
		})
		if err != nil {
			err = wrapErr("list zones", err)
			if provider.IsAuth(err) {
				return "", err
			}
			return "", &provider.ZoneError{Provider: Name, Zone: zoneName, Err: err}
		}
		zones := deref(resp.Zones)
		for _, z := range zones {
			if strings.ToLower(deref(z.Name)) == want && deref(z.Id) != "" {
				c.log.Debugf("zone %s resolved to %s", zoneName, deref(z.Id))
				return deref(z.Id), nil
			}
		}
		if int32(len(zones)) < zonePageSize {
			return "", &provider.ZoneError{Provider: Name, Zone: zoneName}
		}
		marker = zones[len(zones)-1].Id
	}
}

// wrapErr turns SDK errors into provider errors. 401 and 403 mean the
// credentials were rejected.
func wrapErr(op string, err error) error {
	var se *sdkerr.ServiceResponseError
	if errors.As(err, &se) {
		re := &provider.RequestError{
			Provider:  Name,
			Op:        op,
			Code:      se.ErrorCode,
			Message:   se.ErrorMessage,
			RequestID: se.RequestId,
			Err:       err,
		}
		if se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden {
			return &provider.AuthError{Provider: Name, Err: re}
		}
		return re
	}
	return &provider.RequestError{Provider: Name, Op: op, Err: err}
}

func strPtr(s string) *string { return &s }

func int32Ptr(n int32) *int32 { return &n }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
