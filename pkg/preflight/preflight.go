// Package preflight checks that the artifacts a deployment downloads exist
// before any stack is created.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrUnreachable = errors.New("artifact url is not reachable")

// Target is one artifact to check.
type Target struct {
	Name string
	URL  string
}

type Result struct {
	Target
	StatusCode    int
	ContentLength int64
	Err           error
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Checker struct {
	httpClient *resty.Client
}

func New(timeout time.Duration) *Checker {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &Checker{httpClient: client}
}

// Check sends a HEAD request for every target with a non-empty URL.
func (c *Checker) Check(ctx context.Context, targets []Target) []Result {
	results := []Result{}
	for _, t := range targets {
		if t.URL == "" {
			continue
		}
		results = append(results, c.head(ctx, t))
	}
	return results
}

func (c *Checker) head(ctx context.Context, t Target) Result {
	r := Result{Target: t}
	if !strings.HasPrefix(t.URL, "http://") && !strings.HasPrefix(t.URL, "https://") {
		r.Err = fmt.Errorf("%w: %s: only http and https urls can be fetched by the nodes", ErrUnreachable, t.URL)
		return r
	}
	resp, err := c.httpClient.R().SetContext(ctx).Head(t.URL)
	if err != nil {
		r.Err = fmt.Errorf("%w: %s: %s", ErrUnreachable, t.URL, err)
		return r
	}
	r.StatusCode = resp.StatusCode()
	r.ContentLength = resp.RawResponse.ContentLength
	if resp.StatusCode() >= 400 {
		r.Err = fmt.Errorf("%w: %s: %s", ErrUnreachable, t.URL, resp.Status())
	}
	return r
}

// Err joins the errors of all failed results.
func Err(results []Result) error {
	errs := []error{}
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}
