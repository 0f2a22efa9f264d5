package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ispdns/internal/dns"
	"ispdns/internal/feed"
	"ispdns/internal/provider"
	"ispdns/internal/reconcile"
)

const (
	DefaultTTL     = 60
	MaxTTL         = 2147483647
	DefaultFeedURL = "https://raw.githubusercontent.com/hubbylei/bestcf/main/bestcf.txt"

	FormatText = "text"
	FormatJSON = "json"
)

// Config is built once at startup and passed to the provider factory, the
// runner and the reconciler.
type Config struct {
	Provider        string
	Credentials     Credentials
	Zone            string
	Domain          string
	MaxIPs          int
	TTL             int
	Mode            reconcile.Mode
	LineDelay       time.Duration
	ProviderTimeout time.Duration
	Feed            FeedConfig
	DefaultCNAME    string
	Lines           []LineConfig
}

type Credentials struct {
	AccessKey string
	SecretKey string
	ProjectID string
	Region    string
}

type FeedConfig struct {
	URL        string
	Format     string
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
}

// LineConfig is one carrier line and where its desired state comes from.
// CNAME wins over FeedURL, which wins over FeedKey and the shared feed.
type LineConfig struct {
	Name    string
	Code    string
	Default bool
	FeedURL string
	FeedKey string
	CNAME   string
}

func (l LineConfig) Line() dns.Line {
	return dns.Line{Name: l.Name, Code: l.Code, Default: l.Default}
}

type fileConfig struct {
	Provider     string `yaml:"provider"`
	Zone         string `yaml:"zone"`
	Domain       string `yaml:"domain"`
	MaxIPs       *int   `yaml:"max_ips"`
	TTL          *int64 `yaml:"ttl"`
	Mode         string `yaml:"mode"`
	LineDelay    string `yaml:"line_delay"`
	DefaultCNAME string `yaml:"default_cname"`
	Credentials  struct {
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		ProjectID string `yaml:"project_id"`
		Region    string `yaml:"region"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"credentials"`
	Feed struct {
		URL        string `yaml:"url"`
		Format     string `yaml:"format"`
		Timeout    string `yaml:"timeout"`
		Attempts   int    `yaml:"attempts"`
		RetryDelay string `yaml:"retry_delay"`
	} `yaml:"feed"`
	Lines []struct {
		Name    string `yaml:"name"`
		Code    string `yaml:"code"`
		Default bool   `yaml:"default"`
		FeedURL string `yaml:"feed_url"`
		FeedKey string `yaml:"feed_key"`
		CNAME   string `yaml:"cname"`
	} `yaml:"lines"`
}

type LoadOptions struct {
	// EnvFile is loaded into the environment first. Variables already set
	// in the process win. A missing file is ignored.
	EnvFile string
	// File is an optional YAML file. Environment variables override it.
	File string
	// Provider overrides every other source when set.
	Provider string
}

// Load resolves configuration from, in decreasing priority, the process
// environment, the env file, the YAML file and built-in defaults.
func Load(opt LoadOptions) (*Config, error) {
	if opt.EnvFile != "" {
		if err := godotenv.Load(opt.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opt.EnvFile, err)
		}
	}

	cfg := Defaults()
	if opt.File != "" {
		b, err := os.ReadFile(opt.File)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return nil, err
		}
	}
	lookup := os.LookupEnv
	if opt.Provider != "" {
		lookup = func(k string) (string, bool) {
			if k == "DNS_PROVIDER" {
				return opt.Provider, true
			}
			return os.LookupEnv(k)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Provider:        "huawei",
		TTL:             DefaultTTL,
		Mode:            reconcile.ModeReplace,
		ProviderTimeout: 30 * time.Second,
		Feed: FeedConfig{
			URL:        DefaultFeedURL,
			Format:     FormatText,
			Timeout:    10 * time.Second,
			Attempts:   feed.DefaultRetry.Attempts,
			RetryDelay: feed.DefaultRetry.Delay,
		},
	}
}

func (c *Config) applyFile(fc fileConfig) error {
	setString(&c.Provider, fc.Provider)
	setString(&c.Zone, fc.Zone)
	setString(&c.Domain, fc.Domain)
	setString(&c.DefaultCNAME, fc.DefaultCNAME)
	if fc.MaxIPs != nil {
		c.MaxIPs = max(*fc.MaxIPs, 0)
	}
	if fc.TTL != nil {
		c.TTL = ClampTTL(*fc.TTL)
	}
	if fc.Mode != "" {
		m, err := reconcile.ParseMode(fc.Mode)
		if err != nil {
			return &Error{Key: "mode", Reason: err.Error()}
		}
		c.Mode = m
	}
	if err := setDuration(&c.LineDelay, "line_delay", fc.LineDelay); err != nil {
		return err
	}

	setString(&c.Credentials.AccessKey, fc.Credentials.AccessKey)
	setString(&c.Credentials.SecretKey, fc.Credentials.SecretKey)
	setString(&c.Credentials.ProjectID, fc.Credentials.ProjectID)
	setString(&c.Credentials.Region, fc.Credentials.Region)
	if err := setDuration(&c.ProviderTimeout, "credentials.timeout", fc.Credentials.Timeout); err != nil {
		return err
	}

	setString(&c.Feed.URL, fc.Feed.URL)
	setString(&c.Feed.Format, fc.Feed.Format)
	if fc.Feed.Attempts > 0 {
		c.Feed.Attempts = fc.Feed.Attempts
	}
	if err := setDuration(&c.Feed.Timeout, "feed.timeout", fc.Feed.Timeout); err != nil {
		return err
	}
	if err := setDuration(&c.Feed.RetryDelay, "feed.retry_delay", fc.Feed.RetryDelay); err != nil {
		return err
	}

	for _, l := range fc.Lines {
		c.Lines = append(c.Lines, LineConfig{
			Name:    strings.TrimSpace(l.Name),
			Code:    strings.TrimSpace(l.Code),
			Default: l.Default,
			FeedURL: strings.TrimSpace(l.FeedURL),
			FeedKey: strings.TrimSpace(l.FeedKey),
			CNAME:   strings.TrimSpace(l.CNAME),
		})
	}
	return nil
}

func (c *Config) fillDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Feed.Format = strings.ToLower(strings.TrimSpace(c.Feed.Format))
	c.Domain = dns.TrimTrailingDot(c.Domain)
	c.Zone = dns.TrimTrailingDot(c.Zone)

	if c.Zone == "" && c.Provider == "dnspod" {
		c.Zone = c.Domain
	}
	if c.Credentials.Region == "" {
		switch c.Provider {
		case "huawei":
			c.Credentials.Region = "cn-east-3"
		case "dnspod":
			c.Credentials.Region = "ap-guangzhou"
		}
	}
	if len(c.Lines) == 0 {
		c.Lines = DefaultLines(c.Provider)
	}
	for i := range c.Lines {
		l := &c.Lines[i]
		if l.Name == "" {
			l.Name = l.Code
		}
		if !l.Default {
			l.Default = l.Code == DefaultLineCode(c.Provider)
		}
		if l.Default && l.CNAME == "" && l.FeedURL == "" && c.DefaultCNAME != "" {
			l.CNAME = c.DefaultCNAME
		}
	}
}

// OrderedLines puts the default line first and keeps the configured order
// for the rest.
func (c *Config) OrderedLines() []LineConfig {
	out := make([]LineConfig, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.Default {
			out = append(out, l)
		}
	}
	for _, l := range c.Lines {
		if !l.Default {
			out = append(out, l)
		}
	}
	return out
}

func (c *Config) ProviderOptions() provider.Options {
	return provider.Options{
		AccessKey: c.Credentials.AccessKey,
		SecretKey: c.Credentials.SecretKey,
		ProjectID: c.Credentials.ProjectID,
		Region:    c.Credentials.Region,
		Timeout:   c.ProviderTimeout,
	}
}

func (c *Config) FeedOptions() feed.Options {
	return feed.Options{
		Timeout: c.Feed.Timeout,
		Retry:   feed.RetryPolicy{Attempts: c.Feed.Attempts, Delay: c.Feed.RetryDelay},
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return &Error{Key: key, Reason: fmt.Sprintf("invalid duration %q", v)}
	}
	*dst = d
	return nil
}
