package catalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/metrics"
)

const (
	WorksPrefix = "/works/"

	breakerName = "catalog"
	// maxResponseSize bounds a search.json body.
	maxResponseSize = 4 << 20

	defaultTimeout          = 10 * time.Second
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
)

// Doc is one work returned by the catalog search.
type Doc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
}

type searchResponse struct {
	Docs []Doc `json:"docs"`
}

type Options struct {
	BaseURL string
	// Timeout bounds a single request, including reading the body.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive upstream failures that
	// opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before letting a probe
	// through.
	OpenTimeout time.Duration
	// Transport replaces http.DefaultTransport, mostly for tests.
	Transport http.RoundTripper
}

// Client looks works up in an OpenLibrary compatible catalog.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*Doc]
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid catalog url %q", opts.BaseURL)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("invalid catalog url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = defaultFailureThreshold
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0) // 0 = closed

	threshold := opts.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[*Doc](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Catalog circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: isHealthy,
	})

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		cb:      cb,
	}, nil
}

// SearchPath builds the search.json path and query for q.
func SearchPath(q string) string {
	// encodeURIComponent style, spaces become %20.
	escaped := strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
	return "/search.json?q=" + escaped + "&fields=key,title,author_name"
}

// LookupBook fetches the work whose catalog key is exactly /works/{key}.
func (c *Client) LookupBook(ctx context.Context, key string) (*Doc, error) {
	start := time.Now()
	doc, err := c.cb.Execute(func() (*Doc, error) {
		return c.lookup(ctx, key)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordCatalogRequest("rejected", 0)
			return nil, &UpstreamError{StatusCode: http.StatusServiceUnavailable, Err: err}
		}
		metrics.RecordCatalogRequest(resultLabel(err), time.Since(start))
		return nil, err
	}
	metrics.RecordCatalogRequest("found", time.Since(start))
	return doc, nil
}

func (c *Client) lookup(ctx context.Context, key string) (*Doc, error) {
	target := c.baseURL.String() + SearchPath(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			status = http.StatusGatewayTimeout
		}
		return nil, &UpstreamError{StatusCode: status, Err: err}
	}
	defer resp.Body.Close()

	log.Debug("Catalog request", zap.String("url", target), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, &ParseError{Err: err}
	}

	want := WorksPrefix + key
	for i := range body.Docs {
		if body.Docs[i].Key == want {
			doc := body.Docs[i]
			return &doc, nil
		}
	}
	return nil, &NotFoundError{Key: key}
}

// isHealthy decides which outcomes count against the breaker. A missing work,
// a 4xx answer or a caller giving up do not say the catalog is down.
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.ClientError() {
		return true
	}
	return errors.Is(err, context.Canceled)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func resultLabel(err error) string {
	var (
		notFound *NotFoundError
		parse    *ParseError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &parse):
		return "parse_error"
	default:
		return "upstream_error"
	}
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
