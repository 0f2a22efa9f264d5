// Package resolvecheck looks the managed name up through a recursive
// resolver after a run. The result is informational: resolvers cache, so a
// mismatch right after an update is expected until the old TTL runs out.
package resolvecheck

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/miekg/dns"

	ispdns "ispdns/internal/dns"
)

const fallbackServer = "1.1.1.1:53"

type Answer struct {
	Server string
	A      []string
	CNAME  string
	TTL    uint32
}

type Resolver struct {
	server string
	client *dns.Client
}

// New uses server ("host" or "host:port") or, when empty, the first
// nameserver of /etc/resolv.conf.
func New(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{
		server: serverAddr(server),
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}
}

func serverAddr(server string) string {
	server = strings.TrimSpace(server)
	if server == "" {
		cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil || cfg == nil || len(cfg.Servers) == 0 {
			return fallbackServer
		}
		return net.JoinHostPort(cfg.Servers[0], cfg.Port)
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		return net.JoinHostPort(server, "53")
	}
	return server
}

func (r *Resolver) Server() string { return r.server }

// Lookup asks for the A records of name. A recursive resolver puts any
// CNAME chain in the answer section, so it is not followed here.
func (r *Resolver) Lookup(ctx context.Context, name string) (Answer, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)
	m.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return Answer{}, fmt.Errorf("query %s via %s: %w", name, r.server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return Answer{}, fmt.Errorf("query %s via %s: %s", name, r.server, dns.RcodeToString[resp.Rcode])
	}

	ans := Answer{Server: r.server}
	for _, rr := range resp.Answer {
		if ans.TTL == 0 || rr.Header().Ttl < ans.TTL {
			ans.TTL = rr.Header().Ttl
		}
		switch v := rr.(type) {
		case *dns.A:
			ans.A = append(ans.A, v.A.String())
		case *dns.CNAME:
			if ans.CNAME == "" && strings.EqualFold(v.Hdr.Name, dns.Fqdn(name)) {
				ans.CNAME = ispdns.TrimTrailingDot(v.Target)
			}
		}
	}
	return ans, nil
}

// Covers reports whether the answer serves the desired state. For A
// records every answered address must be a desired one.
func (a Answer) Covers(desired ispdns.DesiredState) bool {
	switch desired.Type {
	case ispdns.TypeCNAME:
		return len(desired.Values) == 1 && strings.EqualFold(a.CNAME, ispdns.TrimTrailingDot(desired.Values[0]))
	case ispdns.TypeA:
		if len(a.A) == 0 || a.CNAME != "" {
			return false
		}
		for _, ip := range a.A {
			if !slices.Contains(desired.Values, ip) {
				return false
			}
		}
		return true
	}
	return false
}
