package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

// Error is a feed that could not be fetched or parsed.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("feed %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type StatusError struct {
	StatusCode int
	Body       string
}

func (e StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// RetryPolicy is a fixed number of attempts with a fixed delay in between.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

var DefaultRetry = RetryPolicy{Attempts: 3, Delay: 10 * time.Second}

type Options struct {
	Timeout time.Duration
	Retry   RetryPolicy
	Client  *http.Client
}

type Fetcher struct {
	http  *http.Client
	retry RetryPolicy
	log   *logrus.Entry
}

func NewFetcher(log *logrus.Entry, opt Options) *Fetcher {
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	if opt.Retry.Attempts <= 0 {
		opt.Retry.Attempts = 1
	}
	if opt.Retry.Delay < 0 {
		opt.Retry.Delay = 0
	}
	client := opt.Client
	if client == nil {
		client = &http.Client{Timeout: opt.Timeout}
	}
	return &Fetcher{http: client, retry: opt.Retry, log: log.WithField("component", "feed")}
}

// FetchList fetches a plain-text address feed. An empty result is not an
// error here; the caller decides what absence of data means.
func (f *Fetcher) FetchList(ctx context.Context, url string) ([]string, []Issue, error) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	addrs, issues, err := ParseList(bytes.NewReader(body))
	if err != nil {
		return nil, issues, &Error{URL: url, Err: err}
	}
	f.log.WithField("url", url).Infof("fetched %d addresses (%d skipped)", len(addrs), len(issues))
	return addrs, issues, nil
}

func (f *Fetcher) FetchMapping(ctx context.Context, url string) (map[string][]string, []Issue, error) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	m, issues, err := ParseMapping(bytes.NewReader(body))
	if err != nil {
		return nil, issues, &Error{URL: url, Err: err}
	}
	f.log.WithField("url", url).Infof("fetched mapping with %d carrier keys (%d skipped entries)", len(m), len(issues))
	return m, issues, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	log := f.log.WithField("url", url)
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := f.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			serr := StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(truncate(b, 200)))}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, backoff.Permanent(serr)
			}
			return nil, serr
		}
		return b, nil
	}

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(f.retry.Delay)),
		backoff.WithMaxTries(uint(f.retry.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithError(err).Warnf("fetch failed, retrying in %s", next)
		}),
	)
	if err != nil {
		log.WithError(err).Error("fetch failed")
		return nil, &Error{URL: url, Err: err}
	}
	return body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
