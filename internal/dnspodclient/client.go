// Package dnspodclient implements provider.Client on Tencent Cloud DNSPod.
//
// DNSPod stores one value per record. The records sharing a subdomain, type
// and line are presented as a single record set whose ID lists the member
// record ids in value order, e.g. "1001,1002".
package dnspodclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"

	"ispdns/internal/provider"
)

const (
	Name = "dnspod"

	defaultRegion = "ap-guangzhou"
	endpoint      = "dnspod.tencentcloudapi.com"
)

func init() {
	provider.Register(Name, func(log *logrus.Entry, opt provider.Options) (provider.Client, error) {
		return New(log, opt)
	})
}

type api interface {
	DescribeDomain(*dnspod.DescribeDomainRequest) (*dnspod.DescribeDomainResponse, error)
	DescribeRecordList(*dnspod.DescribeRecordListRequest) (*dnspod.DescribeRecordListResponse, error)
	CreateRecord(*dnspod.CreateRecordRequest) (*dnspod.CreateRecordResponse, error)
	ModifyRecord(*dnspod.ModifyRecordRequest) (*dnspod.ModifyRecordResponse, error)
	DeleteRecord(*dnspod.DeleteRecordRequest) (*dnspod.DeleteRecordResponse, error)
}

type Client struct {
	sdk api
	log *logrus.Entry

	mu    sync.Mutex
	zones map[string]string // zone id -> domain
}

func New(log *logrus.Entry, opt provider.Options) (*Client, error) {
	if opt.AccessKey == "" || opt.SecretKey == "" {
		return nil, &provider.AuthError{Provider: Name, Err: errors.New("missing secret id or secret key")}
	}
	if opt.Region == "" {
		opt.Region = defaultRegion
	}

	cred := common.NewCredential(opt.AccessKey, opt.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = endpoint
	if opt.Timeout > 0 {
		cpf.HttpProfile.ReqTimeout = int(opt.Timeout.Seconds())
	}
	sdk, err := dnspod.NewClient(cred, opt.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("create dnspod client: %w", err)
	}
	return newWithAPI(sdk, log), nil
}

func newWithAPI(sdk api, log *logrus.Entry) *Client {
	return &Client{sdk: sdk, log: log, zones: make(map[string]string)}
}

func (c *Client) ResolveZone(ctx context.Context, zoneName string) (string, error) {
	req := dnspod.NewDescribeDomainRequest()
	req.Domain = common.StringPtr(zoneName)
	req.SetContext(ctx)

	resp, err := c.sdk.DescribeDomain(req)
	if err != nil {
		err = wrapErr("describe domain", err)
		if provider.IsAuth(err) {
			return "", err
		}
		if code(err) == "ResourceNotFound.NoDataOfDomain" || code(err) == "InvalidParameter.DomainNotExists" {
			return "", &provider.ZoneError{Provider: Name, Zone: zoneName}
		}
		return "", &provider.ZoneError{Provider: Name, Zone: zoneName, Err: err}
	}
	if resp.Response == nil || resp.Response.DomainInfo == nil || resp.Response.DomainInfo.DomainId == nil {
		return "", &provider.ZoneError{Provider: Name, Zone: zoneName}
	}

	id := strconv.FormatUint(*resp.Response.DomainInfo.DomainId, 10)
	c.mu.Lock()
	c.zones[id] = zoneName
	c.mu.Unlock()
	c.log.Debugf("zone %s resolved to %s", zoneName, id)
	return id, nil
}

func (c *Client) domain(zoneID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.zones[zoneID]
	if !ok {
		return "", fmt.Errorf("dnspod: zone %s was not resolved", zoneID)
	}
	return d, nil
}

func wrapErr(op string, err error) error {
	var se *sdkerrors.TencentCloudSDKError
	if errors.As(err, &se) {
		re := &provider.RequestError{
			Provider:  Name,
			Op:        op,
			Code:      se.Code,
			Message:   se.Message,
			RequestID: se.RequestId,
			Err:       err,
		}
		if strings.HasPrefix(se.Code, "AuthFailure") {
			return &provider.AuthError{Provider: Name, Err: re}
		}
		return re
	}
	return &provider.RequestError{Provider: Name, Op: op, Err: err}
}

func code(err error) string {
	var re *provider.RequestError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
