// Package github fetches the user's open work from the GitHub REST API:
// issues assigned to them, pull requests they authored and pull requests
// awaiting their review.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dori/phitodo/internal/clock"
	"github.com/dori/phitodo/internal/external"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
)

// githubAPIVersion pins the REST API version header.
const githubAPIVersion = "2022-11-28"

const defaultBaseURL = "https://api.github.com"

// maxPages bounds pagination. The search API stops at 1000 results, which
// is 10 pages of 100.
const maxPages = 10

// maxBodySize caps how much of a response is read.
const maxBodySize = 8 << 20

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL defaults to https://api.github.com. Must use HTTPS.
	BaseURL string

	// Token is a personal access token. Required.
	Token string

	// HTTPClient is the base transport; the token is layered on top.
	// Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// MaxRetries bounds retries of network errors and 5xx responses.
	// Zero means 3; negative disables retries.
	MaxRetries int

	// RetryBase is the first exponential backoff step. Defaults to 500ms.
	RetryBase time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Client is a read-only GitHub REST client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rateLimitTracker
	maxRetries uint64
	retryBase  time.Duration
	logger     *slog.Logger
}

// NewClient validates config and returns a Client.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}
	if config.Token == "" {
		return nil, errors.New("github: no token configured")
	}

	base := config.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token}))
	httpClient.Timeout = base.Timeout

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxRetries := uint64(3)
	switch {
	case config.MaxRetries > 0:
		maxRetries = uint64(config.MaxRetries)
	case config.MaxRetries < 0:
		maxRetries = 0
	}
	retryBase := config.RetryBase
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		rateLimit:  newRateLimitTracker(clock.OrReal(config.Clock)),
		maxRetries: maxRetries,
		retryBase:  retryBase,
		logger:     logger,
	}, nil
}

// AssignedIssues returns open issues assigned to the authenticated user
// across all repositories. Pull requests assigned to the user come back
// from the same endpoint and are marked IsPullRequest.
func (c *Client) AssignedIssues(ctx context.Context) ([]external.GithubRecord, error) {
	issues, err := collect(ctx, c, "/issues?filter=assigned&state=open&per_page=100", decodeList)
	if err != nil {
		return nil, fmt.Errorf("listing assigned issues: %w", err)
	}
	return Records(issues), nil
}

// AuthoredPullRequests returns the user's open pull requests.
func (c *Client) AuthoredPullRequests(ctx context.Context) ([]external.GithubRecord, error) {
	issues, err := c.search(ctx, "author:@me is:open is:pr")
	if err != nil {
		return nil, fmt.Errorf("searching authored pull requests: %w", err)
	}
	return Records(issues), nil
}

// ReviewRequests returns open pull requests that request the user's review.
func (c *Client) ReviewRequests(ctx context.Context) ([]external.GithubRecord, error) {
	issues, err := c.search(ctx, "review-requested:@me is:open is:pr")
	if err != nil {
		return nil, fmt.Errorf("searching review requests: %w", err)
	}
	return Records(issues), nil
}

func (c *Client) search(ctx context.Context, query string) ([]Issue, error) {
	path := "/search/issues?q=" + url.QueryEscape(query) + "&per_page=100"
	return collect(ctx, c, path, decodeSearch)
}

func decodeList(body []byte) ([]Issue, error) {
	var items []Issue
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("github: decoding issue list: %w", err)
	}
	return items, nil
}

func decodeSearch(body []byte) ([]Issue, error) {
	var result searchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("github: decoding search result: %w", err)
	}
	if result.IncompleteResults {
		return nil, ErrIncompleteResults
	}
	return result.Items, nil
}

// collect follows Link rel="next" headers until the last page. A list
// longer than maxPages is an error, not a short result.
func collect[T any](ctx context.Context, c *Client, path string, decode func([]byte) ([]T, error)) ([]T, error) {
	var all []T
	next := c.baseURL + path
	for page := 0; next != "" && page < maxPages; page++ {
		body, header, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		items, err := decode(body)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		next = parseLinkNext(header.Get("Link"))
	}
	if next != "" {
		return nil, fmt.Errorf("%w: more than %d pages at %s", ErrTruncated, maxPages, path)
	}
	return all, nil
}

// get performs a GET with retries on transport errors and 5xx responses,
// and a single wait-and-retry on rate limiting.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, http.Header, error) {
	var body []byte
	var header http.Header

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, h, err := c.getRateLimited(ctx, endpoint)
		if err != nil {
			if isRetryable(err) {
				c.logger.Warn("github request failed, retrying", "url", endpoint, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		body, header = b, h
		return nil
	})
	return body, header, err
}

func (c *Client) getRateLimited(ctx context.Context, endpoint string) ([]byte, http.Header, error) {
	body, header, err := c.getOnce(ctx, endpoint)
	if !IsRateLimited(err) {
		return body, header, err
	}

	wait := c.rateLimit.retryAfter(header)
	if wait <= 0 {
		return nil, nil, err
	}
	c.logger.Info("rate limited, backing off", "duration", wait, "url", endpoint)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	return c.getOnce(ctx, endpoint)
}

// getOnce executes one request. On a non-2xx status it returns the
// response header along with an *APIError.
func (c *Client) getOnce(ctx context.Context, endpoint string) ([]byte, http.Header, error) {
	if err := c.rateLimit.wait(ctx); err != nil {
		return nil, nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("github: creating request: %w", err)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, nil, fmt.Errorf("github: GET %s: %w", endpoint, err)
	}
	defer response.Body.Close()

	c.rateLimit.update(response.Header)

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("github: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, response.Header, parseAPIErrorFromBody(response.StatusCode, body)
	}
	return body, response.Header, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.StatusCode >= 500
	}
	// Transport-level failure.
	return true
}

// parseLinkNext extracts the URL with rel="next" from an RFC 5988 Link
// header. Returns empty string if no next link is present.
func parseLinkNext(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.SplitN(strings.TrimSpace(part), ";", 2)
		if len(segments) != 2 || !strings.Contains(segments[1], `rel="next"`) {
			continue
		}
		urlPart := strings.TrimSpace(segments[0])
		if strings.HasPrefix(urlPart, "<") && strings.HasSuffix(urlPart, ">") {
			return urlPart[1 : len(urlPart)-1]
		}
	}
	return ""
}
