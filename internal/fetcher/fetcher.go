// Package fetcher downloads the devotional list from the WordPress REST API.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
)

// maxBodyBytes bounds the response read into memory
const maxBodyBytes = 32 << 20

// RetryPolicy controls how many attempts FetchAll makes. Unit is the first
// backoff delay; each later delay doubles.
type RetryPolicy struct {
	MaxAttempts int
	Unit        time.Duration
}

// SingleAttempt never retries
var SingleAttempt = RetryPolicy{MaxAttempts: 1}

// UIRetry is the policy for user-initiated refreshes
var UIRetry = RetryPolicy{MaxAttempts: constants.UIRetryAttempts, Unit: constants.UIRetryUnit}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.MaxAttempts <= 1 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Unit
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.Unit << uint(p.MaxAttempts)
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
}

// Batch is the result of one successful fetch
type Batch struct {
	Entries []models.Entry
	// Skipped counts elements that could not be decoded as entries
	Skipped int
}

type Fetcher struct {
	baseURL  string
	client   *http.Client
	pageSize int
	policy   RetryPolicy
	log      *log.Logger
}

type Option func(*Fetcher)

// WithHTTPClient replaces the default client. Its Timeout bounds each attempt.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		c := *f.client
		c.Timeout = d
		f.client = &c
	}
}

func WithPageSize(n int) Option {
	return func(f *Fetcher) { f.pageSize = n }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// New creates a fetcher for the list endpoint under baseURL. By default it
// makes a single attempt bounded by a 30 second timeout.
func New(baseURL string, opts ...Option) *Fetcher {
	if baseURL == "" {
		baseURL = constants.DefaultBaseURL
	}
	f := &Fetcher{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: constants.FetchTimeout},
		pageSize: constants.DefaultPageSize,
		policy:   SingleAttempt,
		log:      logger.Component("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Once returns a copy of f that never retries
func (f *Fetcher) Once() *Fetcher {
	return f.WithRetry(SingleAttempt)
}

// WithRetry returns a copy of f using policy p
func (f *Fetcher) WithRetry(p RetryPolicy) *Fetcher {
	c := *f
	c.policy = p
	return &c
}

// Policy returns the retry policy in effect
func (f *Fetcher) Policy() RetryPolicy {
	return f.policy
}

// Endpoint returns the list URL
func (f *Fetcher) Endpoint() (string, error) {
	u, err := url.JoinPath(f.baseURL, constants.DevotionalPath)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", f.baseURL, err)
	}
	if f.pageSize > 0 {
		u += "?per_page=" + strconv.Itoa(f.pageSize)
	}
	return u, nil
}

// FetchAll returns the decoded entries
func (f *Fetcher) FetchAll(ctx context.Context) ([]models.Entry, error) {
	batch, err := f.FetchBatch(ctx)
	if err != nil {
		return nil, err
	}
	return batch.Entries, nil
}

// FetchBatch performs the fetch under the retry policy. Only connectivity
// failures, timeouts and 5xx/429 responses are retried.
func (f *Fetcher) FetchBatch(ctx context.Context) (Batch, error) {
	endpoint, err := f.Endpoint()
	if err != nil {
		return Batch{}, err
	}

	var (
		batch   Batch
		lastErr error
		attempt int
	)
	op := func() error {
		attempt++
		f.log.Debug("Fetching devotionals", "attempt", attempt, "url", endpoint)
		b, err := f.fetchOnce(ctx, endpoint)
		if err != nil {
			lastErr = err
			var fe *FetchError
			if errors.As(err, &fe) && !fe.transient() {
				return backoff.Permanent(err)
			}
			return err
		}
		batch = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.log.Warn("Fetch attempt failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(f.policy.backOff(), ctx), notify); err != nil {
		if lastErr != nil {
			err = lastErr
		}
		f.log.Error("Fetch failed", "attempts", attempt, "error", err)
		return Batch{}, err
	}

	if batch.Skipped > 0 {
		f.log.Warn("Skipped malformed entries", "skipped", batch.Skipped, "decoded", len(batch.Entries))
	}
	f.log.Info("Fetched devotionals", "count", len(batch.Entries), "attempts", attempt)
	return batch, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, endpoint string) (Batch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Batch{}, &FetchError{Kind: NoConnectivity, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constants.AppName+"/"+constants.Version)

	resp, err := f.client.Do(req)
	if err != nil {
		return Batch{}, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Batch{}, &FetchError{Kind: HTTPStatus, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Batch{}, classify(err)
	}

	entries, skipped, err := decodeEntries(data)
	if err != nil {
		return Batch{}, &FetchError{Kind: Decode, Err: err}
	}
	return Batch{Entries: entries, Skipped: skipped}, nil
}

// classify maps a transport error onto the fetch taxonomy
func classify(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: Timeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Kind: Timeout, Err: err}
	}
	return &FetchError{Kind: NoConnectivity, Err: err}
}
