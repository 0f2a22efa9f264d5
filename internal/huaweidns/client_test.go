package huaweidns

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/sdkerr"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/dns/v2/model"
	"github.com/sirupsen/logrus"

	"ispdns/internal/dns"
	"ispdns/internal/provider"
)

type fakeAPI struct {
	zones   []model.PublicZoneResp
	sets    []model.QueryRecordSetWithLineAndTagsResp
	next    string
	err     error
	listReq *model.ListRecordSetsWithLineRequest
	created *model.CreateRecordSetWithLineRequest
}

func (f *fakeAPI) ListPublicZones(*model.ListPublicZonesRequest) (*model.ListPublicZonesResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	zones := f.zones
	return &model.ListPublicZonesResponse{Zones: &zones}, nil
}

func (f *fakeAPI) ListRecordSetsWithLine(req *model.ListRecordSetsWithLineRequest) (*model.ListRecordSetsWithLineResponse, error) {
	f.listReq = req
	if f.err != nil {
		return nil, f.err
	}
	sets := f.sets
	resp := &model.ListRecordSetsWithLineResponse{Recordsets: &sets}
	if f.next != "" {
		resp.Links = &model.PageLink{Next: strPtr(f.next)}
	}
	return resp, nil
}

func (f *fakeAPI) CreateRecordSetWithLine(req *model.CreateRecordSetWithLineRequest) (*model.CreateRecordSetWithLineResponse, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.CreateRecordSetWithLineResponse{Id: strPtr("rs-new")}, nil
}

func (f *fakeAPI) UpdateRecordSet(*model.UpdateRecordSetRequest) (*model.UpdateRecordSetResponse, error) {
	return &model.UpdateRecordSetResponse{}, f.err
}

func (f *fakeAPI) DeleteRecordSet(*model.DeleteRecordSetRequest) (*model.DeleteRecordSetResponse, error) {
	return &model.DeleteRecordSetResponse{}, f.err
}

func testClient(f *fakeAPI) *Client {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Client{sdk: f, log: logrus.NewEntry(l)}
}

func TestNextMarker(t *testing.T) {
	tests := []struct{ link, want string }{
		{"", ""},
		{"https://dns.myhuaweicloud.com/v2.1/recordsets?limit=100&marker=2c9eb155", "2c9eb155"},
		{"https://dns.myhuaweicloud.com/v2.1/recordsets?limit=100", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		if got := nextMarker(tt.link); got != tt.want {
			t.Errorf("nextMarker(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}

func TestResolveZoneExactMatch(t *testing.T) {
	f := &fakeAPI{zones: []model.PublicZoneResp{
		{Id: strPtr("z1"), Name: strPtr("sub.example.com.")},
		{Id: strPtr("z2"), Name: strPtr("example.com.")},
	}}
	id, err := testClient(f).ResolveZone(context.Background(), "Example.com")
	if err != nil {
		t.Fatalf("ResolveZone: %v", err)
	}
	if id != "z2" {
		t.Fatalf("id = %q", id)
	}
}

func TestResolveZoneNotFound(t *testing.T) {
	f := &fakeAPI{zones: []model.PublicZoneResp{{Id: strPtr("z1"), Name: strPtr("other.org.")}}}
	_, err := testClient(f).ResolveZone(context.Background(), "example.com")
	if !provider.IsZone(err) {
		t.Fatalf("expected zone error, got %v", err)
	}
}

func TestResolveZoneUnauthorized(t *testing.T) {
	f := &fakeAPI{err: &sdkerr.ServiceResponseError{StatusCode: 401, ErrorCode: "APIGW.0301", ErrorMessage: "Incorrect IAM authentication information"}}
	_, err := testClient(f).ResolveZone(context.Background(), "example.com")
	if !provider.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestListRecordSetsConverts(t *testing.T) {
	f := &fakeAPI{
		sets: []model.QueryRecordSetWithLineAndTagsResp{{
			Id:      strPtr("rs-1"),
			Name:    strPtr("cf.example.com."),
			Type:    strPtr("A"),
			Line:    strPtr("Yidong"),
			Ttl:     int32Ptr(60),
			Records: &[]string{"1.1.1.1", "2.2.2.2"},
		}},
		next: "https://dns.myhuaweicloud.com/v2.1/recordsets?marker=rs-1",
	}
	page, err := testClient(f).ListRecordSets(context.Background(), "zone-1",
		provider.Query{Name: "cf.example.com", Line: "Yidong"}, "")
	if err != nil {
		t.Fatalf("ListRecordSets: %v", err)
	}
	want := provider.Page{
		RecordSets: []dns.RecordSet{{ID: "rs-1", Name: "cf.example.com", Line: "Yidong", Type: dns.TypeA, Values: []string{"1.1.1.1", "2.2.2.2"}, TTL: 60}},
		Next:       "rs-1",
	}
	if diff := cmp.Diff(want, page); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
	if deref(f.listReq.Name) != "cf.example.com." || deref(f.listReq.LineId) != "Yidong" {
		t.Fatalf("request = %+v", f.listReq)
	}
}

func TestCreateCNAMEAbsoluteTarget(t *testing.T) {
	f := &fakeAPI{}
	id, err := testClient(f).CreateRecordSet(context.Background(), "zone-1", "cf.example.com",
		dns.Line{Code: "default_view", Default: true}, dns.CNAMETarget("cdn.example.net", 60))
	if err != nil {
		t.Fatalf("CreateRecordSet: %v", err)
	}
	if id != "rs-new" {
		t.Fatalf("id = %q", id)
	}
	body := f.created.Body
	if body.Name != "cf.example.com." || deref(body.Line) != "default_view" {
		t.Fatalf("body = %+v", body)
	}
	if diff := cmp.Diff([]string{"cdn.example.net."}, deref(body.Records)); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestErrorCarriesDiagnostics(t *testing.T) {
	f := &fakeAPI{err: &sdkerr.ServiceResponseError{StatusCode: 400, RequestId: "req-9", ErrorCode: "DNS.0312", ErrorMessage: "record set exists"}}
	err := testClient(f).DeleteRecordSet(context.Background(), "zone-1", dns.RecordSet{ID: "rs-1"})
	var re *provider.RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected request error, got %v", err)
	}
	if re.Code != "DNS.0312" || re.RequestID != "req-9" || re.Op != "delete" {
		t.Fatalf("request error = %+v", re)
	}
}
