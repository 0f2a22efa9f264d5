package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ispdns/internal/reconcile"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseTTL(t *testing.T) {
	tests := map[string]int{
		"300":        300,
		"1":          1,
		"2147483647": 2147483647,
		"0":          DefaultTTL,
		"-5":         DefaultTTL,
		"2147483648": DefaultTTL,
		"abc":        DefaultTTL,
		" 120 ":      120,
	}
	for in, want := range tests {
		if got := ParseTTL(in); got != want {
			t.Errorf("ParseTTL(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestClampTTL(t *testing.T) {
	tests := []struct {
		in   int64
		want int
	}{
		{60, 60},
		{1, 1},
		{MaxTTL, MaxTTL},
		{0, DefaultTTL},
		{-1, DefaultTTL},
		{MaxTTL + 1, DefaultTTL},
	}
	for _, tt := range tests {
		if got := ClampTTL(tt.in); got != tt.want {
			t.Errorf("ClampTTL(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseMaxIPs(t *testing.T) {
	tests := map[string]int{"10": 10, "0": 0, "-1": 0, "x": 0, "": 0}
	for in, want := range tests {
		if got := ParseMaxIPs(in); got != want {
			t.Errorf("ParseMaxIPs(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestApplyEnvHuawei(t *testing.T) {
	cfg := Defaults()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"HUAWEI_CLOUD_AK":         "ak",
		"HUAWEI_CLOUD_SK":         "sk",
		"HUAWEI_CLOUD_PROJECT_ID": "pid",
		"HUAWEI_CLOUD_ZONE_NAME":  "example.com.",
		"DOMAIN_NAME":             "cf.example.com",
		"MAX_IPS":                 "5",
		"TTL":                     "0",
		"UPDATE_MODE":             "update",
		"LINE_DELAY":              "2s",
		"DNSPOD_SECRET_ID":        "ignored",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	cfg.fillDefaults()

	if cfg.Credentials.AccessKey != "ak" || cfg.Credentials.ProjectID != "pid" {
		t.Fatalf("credentials = %+v", cfg.Credentials)
	}
	if cfg.Credentials.Region != "cn-east-3" {
		t.Fatalf("region = %q", cfg.Credentials.Region)
	}
	if cfg.Zone != "example.com" {
		t.Fatalf("zone = %q", cfg.Zone)
	}
	if cfg.MaxIPs != 5 || cfg.TTL != DefaultTTL {
		t.Fatalf("max=%d ttl=%d", cfg.MaxIPs, cfg.TTL)
	}
	if cfg.Mode != reconcile.ModeUpdate || cfg.LineDelay != 2*time.Second {
		t.Fatalf("mode=%s delay=%s", cfg.Mode, cfg.LineDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestApplyEnvDNSPod(t *testing.T) {
	cfg := Defaults()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"DNS_PROVIDER":      "DNSPod",
		"DNSPOD_SECRET_ID":  "id",
		"DNSPOD_SECRET_KEY": "key",
		"DOMAIN_NAME":       "example.com",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	cfg.fillDefaults()

	if cfg.Provider != "dnspod" || cfg.Zone != "example.com" {
		t.Fatalf("provider=%q zone=%q", cfg.Provider, cfg.Zone)
	}
	if cfg.Lines[0].Code != "默认" || !cfg.Lines[0].Default {
		t.Fatalf("lines = %+v", cfg.Lines)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestApplyEnvBadMode(t *testing.T) {
	cfg := Defaults()
	err := cfg.applyEnv(mapLookup(map[string]string{"UPDATE_MODE": "merge"}))
	if !IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ispdns.yaml")
	body := `
provider: huawei
zone: example.com
domain: cf.example.com
ttl: 300
max_ips: 3
line_delay: 500ms
credentials:
  access_key: file-ak
  secret_key: file-sk
  project_id: file-pid
feed:
  format: json
  url: https://feed.example.net/ips.json
  attempts: 5
  retry_delay: 1s
lines:
  - name: default
    code: default_view
    cname: cdn.example.net
  - name: mobile
    code: Yidong
    feed_key: CM
  - name: telecom
    code: Dianxin
    feed_url: https://feed.example.net/ct.txt
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HUAWEI_CLOUD_AK", "env-ak")
	t.Setenv("TTL", "600")

	cfg, err := Load(LoadOptions{File: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Credentials.AccessKey != "env-ak" || cfg.Credentials.SecretKey != "file-sk" {
		t.Fatalf("credentials = %+v", cfg.Credentials)
	}
	if cfg.TTL != 600 || cfg.MaxIPs != 3 {
		t.Fatalf("ttl=%d max=%d", cfg.TTL, cfg.MaxIPs)
	}
	if cfg.Feed.Attempts != 5 || cfg.Feed.RetryDelay != time.Second {
		t.Fatalf("feed = %+v", cfg.Feed)
	}

	want := []LineConfig{
		{Name: "default", Code: "default_view", Default: true, CNAME: "cdn.example.net"},
		{Name: "mobile", Code: "Yidong", FeedKey: "CM"},
		{Name: "telecom", Code: "Dianxin", FeedURL: "https://feed.example.net/ct.txt"},
	}
	if diff := cmp.Diff(want, cfg.Lines); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("line_delay: soon\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(LoadOptions{File: path}); !IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	if _, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "absent.env")}); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func validHuawei() *Config {
	cfg := Defaults()
	cfg.Zone = "example.com"
	cfg.Domain = "cf.example.com"
	cfg.Credentials = Credentials{AccessKey: "ak", SecretKey: "sk", ProjectID: "pid", Region: "cn-east-3"}
	cfg.fillDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"ok", func(*Config) {}, ""},
		{"provider", func(c *Config) { c.Provider = "route53" }, "provider"},
		{"no domain", func(c *Config) { c.Domain = "" }, "DOMAIN_NAME"},
		{"outside zone", func(c *Config) { c.Domain = "cf.example.org" }, "DOMAIN_NAME"},
		{"no project", func(c *Config) { c.Credentials.ProjectID = "" }, "HUAWEI_CLOUD_PROJECT_ID"},
		{"no secret", func(c *Config) { c.Credentials.SecretKey = "" }, "credentials"},
		{"feed format", func(c *Config) { c.Feed.Format = "xml" }, "FEED_FORMAT"},
		{"json without key", func(c *Config) {
			c.Feed.Format = FormatJSON
			c.Lines[1].FeedKey = ""
		}, "lines[1]"},
		{"two defaults", func(c *Config) { c.Lines[2].Default = true }, "lines"},
		{"dup code", func(c *Config) { c.Lines[3].Code = "Yidong" }, "lines[3]"},
		{"bad feed url", func(c *Config) { c.Feed.URL = "ftp://x" }, "IP_API_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validHuawei()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.key == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			e, ok := err.(*Error)
			if !ok {
				t.Fatalf("expected *Error, got %v", err)
			}
			if e.Key != tt.key {
				t.Fatalf("key = %q, want %q (%v)", e.Key, tt.key, err)
			}
		})
	}
}

func TestOrderedLinesDefaultFirst(t *testing.T) {
	cfg := &Config{Lines: []LineConfig{
		{Code: "Yidong"},
		{Code: "default_view", Default: true},
		{Code: "Dianxin"},
	}}
	var got []string
	for _, l := range cfg.OrderedLines() {
		got = append(got, l.Code)
	}
	want := []string{"default_view", "Yidong", "Dianxin"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultCNAMEOnlyOnDefaultLine(t *testing.T) {
	cfg := validHuawei()
	cfg.Lines = nil
	cfg.DefaultCNAME = "cdn.example.net"
	cfg.fillDefaults()
	for _, l := range cfg.Lines {
		if l.Default && l.CNAME != "cdn.example.net" {
			t.Fatalf("default line cname = %q", l.CNAME)
		}
		if !l.Default && l.CNAME != "" {
			t.Fatalf("line %s got cname %q", l.Code, l.CNAME)
		}
	}
}

func TestLoadProviderOverrideSelectsCredentials(t *testing.T) {
	t.Setenv("DNS_PROVIDER", "huawei")
	t.Setenv("DNSPOD_SECRET_ID", "pod-id")
	t.Setenv("DNSPOD_SECRET_KEY", "pod-key")
	t.Setenv("HUAWEI_CLOUD_AK", "hw-ak")

	cfg, err := Load(LoadOptions{Provider: "dnspod"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "dnspod" || cfg.Credentials.AccessKey != "pod-id" {
		t.Fatalf("provider=%q credentials=%+v", cfg.Provider, cfg.Credentials)
	}
	if cfg.Lines[0].Code != "默认" {
		t.Fatalf("lines = %+v", cfg.Lines)
	}
}
