package config

import (
	"strconv"
	"strings"

	"ispdns/internal/reconcile"
)

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	setString(&c.Provider, get("DNS_PROVIDER"))
	provider := strings.ToLower(c.Provider)

	switch provider {
	case "dnspod":
		setString(&c.Credentials.AccessKey, get("DNSPOD_SECRET_ID"))
		setString(&c.Credentials.SecretKey, get("DNSPOD_SECRET_KEY"))
		setString(&c.Credentials.Region, get("DNSPOD_REGION"))
	default:
		setString(&c.Credentials.AccessKey, get("HUAWEI_CLOUD_AK"))
		setString(&c.Credentials.SecretKey, get("HUAWEI_CLOUD_SK"))
		setString(&c.Credentials.ProjectID, get("HUAWEI_CLOUD_PROJECT_ID"))
		setString(&c.Credentials.Region, get("HUAWEI_CLOUD_REGION"))
	}

	setString(&c.Zone, get("HUAWEI_CLOUD_ZONE_NAME", "ZONE_NAME"))
	setString(&c.Domain, get("DOMAIN_NAME"))
	setString(&c.Feed.URL, get("IP_API_URL"))
	setString(&c.Feed.Format, get("FEED_FORMAT"))
	setString(&c.DefaultCNAME, get("CNAME_TARGET"))

	if v := get("MAX_IPS"); v != "" {
		c.MaxIPs = ParseMaxIPs(v)
	}
	if v := get("TTL"); v != "" {
		c.TTL = ParseTTL(v)
	}
	if v := get("UPDATE_MODE"); v != "" {
		m, err := reconcile.ParseMode(v)
		if err != nil {
			return &Error{Key: "UPDATE_MODE", Reason: err.Error()}
		}
		c.Mode = m
	}
	return setDuration(&c.LineDelay, "LINE_DELAY", get("LINE_DELAY"))
}

// ParseTTL accepts 1..2147483647. Anything else falls back to DefaultTTL.
func ParseTTL(s string) int {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return DefaultTTL
	}
	return ClampTTL(n)
}

// ClampTTL returns n when it is a usable TTL and DefaultTTL otherwise.
func ClampTTL(n int64) int {
	if n < 1 || n > MaxTTL {
		return DefaultTTL
	}
	return int(n)
}

// ParseMaxIPs returns 0, meaning no cap, unless s is a positive integer.
func ParseMaxIPs(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
