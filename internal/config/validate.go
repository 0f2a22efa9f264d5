package config

import (
	"errors"
	"fmt"
	"net/url"

	"ispdns/internal/dns"
	"ispdns/internal/reconcile"
)

// Error is a missing or invalid setting. It is always fatal.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

func IsConfigError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Validate checks everything a run needs before any provider call is made.
func (c *Config) Validate() error {
	switch c.Provider {
	case "huawei", "dnspod":
	default:
		return &Error{Key: "provider", Reason: fmt.Sprintf("unsupported provider %q (want huawei|dnspod)", c.Provider)}
	}
	if c.Domain == "" {
		return &Error{Key: "DOMAIN_NAME", Reason: "is required"}
	}
	if c.Zone == "" {
		return &Error{Key: "HUAWEI_CLOUD_ZONE_NAME", Reason: "is required"}
	}
	if _, err := dns.SubDomain(c.Zone, c.Domain); err != nil {
		return &Error{Key: "DOMAIN_NAME", Reason: err.Error()}
	}
	if c.Credentials.AccessKey == "" || c.Credentials.SecretKey == "" {
		return &Error{Key: "credentials", Reason: fmt.Sprintf("access key and secret key are required for %s", c.Provider)}
	}
	if c.Provider == "huawei" && c.Credentials.ProjectID == "" {
		return &Error{Key: "HUAWEI_CLOUD_PROJECT_ID", Reason: "is required"}
	}
	switch c.Mode {
	case reconcile.ModeReplace, reconcile.ModeUpdate:
	default:
		return &Error{Key: "mode", Reason: fmt.Sprintf("unsupported mode %q", c.Mode)}
	}
	if c.TTL < 1 || c.TTL > MaxTTL {
		return &Error{Key: "ttl", Reason: fmt.Sprintf("out of range: %d", c.TTL)}
	}
	switch c.Feed.Format {
	case FormatText, FormatJSON:
	default:
		return &Error{Key: "FEED_FORMAT", Reason: fmt.Sprintf("unsupported feed format %q (want text|json)", c.Feed.Format)}
	}
	return c.validateLines()
}

func (c *Config) validateLines() error {
	if len(c.Lines) == 0 {
		return &Error{Key: "lines", Reason: "no lines configured"}
	}
	var (
		defaults int
		codes    = make(map[string]struct{}, len(c.Lines))
	)
	for i, l := range c.Lines {
		key := fmt.Sprintf("lines[%d]", i)
		if l.Code == "" {
			return &Error{Key: key, Reason: "code is empty"}
		}
		if _, dup := codes[l.Code]; dup {
			return &Error{Key: key, Reason: fmt.Sprintf("duplicate line code %q", l.Code)}
		}
		codes[l.Code] = struct{}{}
		if l.Default {
			defaults++
		}

		switch {
		case l.CNAME != "":
		case l.FeedURL != "":
			if err := checkURL(l.FeedURL); err != nil {
				return &Error{Key: key + ".feed_url", Reason: err.Error()}
			}
		case c.Feed.Format == FormatJSON:
			if l.FeedKey == "" {
				return &Error{Key: key, Reason: fmt.Sprintf("line %q has no feed_key for the json feed and no cname", l.Name)}
			}
		}
	}
	if defaults != 1 {
		return &Error{Key: "lines", Reason: fmt.Sprintf("exactly one default line required, found %d", defaults)}
	}
	if c.needsSharedFeed() {
		if err := checkURL(c.Feed.URL); err != nil {
			return &Error{Key: "IP_API_URL", Reason: err.Error()}
		}
	}
	return nil
}

func (c *Config) needsSharedFeed() bool {
	for _, l := range c.Lines {
		if l.CNAME == "" && l.FeedURL == "" {
			return true
		}
	}
	return false
}

func checkURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url %q", s)
	}
	return nil
}
