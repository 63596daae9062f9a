// Package toggl reads recent time entries from the Toggl Track v9 API.
package toggl

import (
	"context"
	"encoding/base64"
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
	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.track.toggl.com/api/v9"

const maxBodySize = 8 << 20

var (
	// ErrLimitReached is returned when Toggl answers 402: the account's
	// hourly request quota is used up.
	ErrLimitReached = errors.New("toggl: request limit reached, try again later")

	// ErrInvalidToken is returned for a 403.
	ErrInvalidToken = errors.New("toggl: invalid API token")
)

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("toggl: HTTP %d: %s", err.StatusCode, err.Body)
}

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL defaults to the public v9 API.
	BaseURL string

	// Token is the API token from the Toggl profile page. Required.
	Token string

	// Days is how far back entries are fetched. Defaults to 7.
	Days int

	HTTPClient *http.Client

	// MaxRetries bounds retries of network errors and 5xx responses.
	// Zero means 3; negative disables retries.
	MaxRetries int
	RetryBase  time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Client fetches time entries and project names.
type Client struct {
	baseURL    string
	auth       string
	days       int
	httpClient *http.Client
	maxRetries uint64
	retryBase  time.Duration
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient validates config and returns a Client.
func NewClient(config Config) (*Client, error) {
	if config.Token == "" {
		return nil, errors.New("toggl: no token configured")
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("toggl: API client requires HTTPS (got %q)", baseURL)
	}

	days := config.Days
	if days <= 0 {
		days = 7
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
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
		auth:       "Basic " + base64.StdEncoding.EncodeToString([]byte(config.Token+":api_token")),
		days:       days,
		httpClient: httpClient,
		maxRetries: maxRetries,
		retryBase:  retryBase,
		clock:      clock.OrReal(config.Clock),
		logger:     logger,
	}, nil
}

type timeEntry struct {
	ID          int64   `json:"id"`
	WorkspaceID int64   `json:"workspace_id"`
	ProjectID   *int64  `json:"project_id"`
	PID         *int64  `json:"pid"`
	ProjectName *string `json:"project_name"`
	Description *string `json:"description"`
	Start       string  `json:"start"`
	Stop        *string `json:"stop"`
	Duration    int64   `json:"duration"`
}

type project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TimeEntries returns the entries of the last Days days, with project
// names filled in from the user's project list when the entry lacks one.
func (c *Client) TimeEntries(ctx context.Context) ([]external.TogglRecord, error) {
	end := c.clock.Now().UTC()
	start := end.AddDate(0, 0, -c.days)

	var entries []timeEntry
	var projects map[int64]string

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		entries, err = c.fetchEntries(groupCtx, start, end)
		return err
	})
	group.Go(func() error {
		var err error
		projects, err = c.fetchProjects(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	records := make([]external.TogglRecord, 0, len(entries))
	for _, entry := range entries {
		record, err := entry.record(projects)
		if err != nil {
			c.logger.Warn("skipping toggl entry", "id", entry.ID, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (entry timeEntry) record(projects map[int64]string) (external.TogglRecord, error) {
	start, err := time.Parse(time.RFC3339, entry.Start)
	if err != nil {
		return external.TogglRecord{}, fmt.Errorf("parsing start %q: %w", entry.Start, err)
	}
	record := external.TogglRecord{
		ID:          entry.ID,
		WorkspaceID: entry.WorkspaceID,
		ProjectID:   entry.ProjectID,
		Start:       start,
		Duration:    entry.Duration,
	}
	if record.ProjectID == nil {
		record.ProjectID = entry.PID
	}
	if entry.Description != nil {
		record.Description = *entry.Description
	}
	if entry.ProjectName != nil {
		record.ProjectName = *entry.ProjectName
	} else if record.ProjectID != nil {
		record.ProjectName = projects[*record.ProjectID]
	}
	if entry.Stop != nil && *entry.Stop != "" {
		stop, err := time.Parse(time.RFC3339, *entry.Stop)
		if err != nil {
			return external.TogglRecord{}, fmt.Errorf("parsing stop %q: %w", *entry.Stop, err)
		}
		record.Stop = &stop
	}
	return record, nil
}

func (c *Client) fetchEntries(ctx context.Context, start, end time.Time) ([]timeEntry, error) {
	query := url.Values{}
	query.Set("start_date", start.Format("2006-01-02"))
	// end_date is exclusive; include today.
	query.Set("end_date", end.AddDate(0, 0, 1).Format("2006-01-02"))
	query.Set("meta", "true")

	body, err := c.get(ctx, "/me/time_entries?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching time entries: %w", err)
	}
	return decodeEntries(body)
}

// decodeEntries accepts both a bare array and an {"items": [...]} wrapper.
func decodeEntries(body []byte) ([]timeEntry, error) {
	var entries []timeEntry
	if err := json.Unmarshal(body, &entries); err == nil {
		return entries, nil
	}
	var wrapped struct {
		Items []timeEntry `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("toggl: decoding time entries: %w", err)
	}
	return wrapped.Items, nil
}

func (c *Client) fetchProjects(ctx context.Context) (map[int64]string, error) {
	body, err := c.get(ctx, "/me/projects")
	if err != nil {
		return nil, fmt.Errorf("fetching projects: %w", err)
	}
	var projects []project
	if err := json.Unmarshal(body, &projects); err != nil {
		// A user without projects gets null; names are optional either way.
		c.logger.Debug("ignoring undecodable project list", "error", err)
		return map[int64]string{}, nil
	}
	names := make(map[int64]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return names, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := c.getOnce(ctx, path)
		if err != nil {
			if isRetryable(err) {
				c.logger.Warn("toggl request failed, retrying", "path", path, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		body = b
		return nil
	})
	return body, err
}

func (c *Client) getOnce(ctx context.Context, path string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("toggl: creating request: %w", err)
	}
	request.Header.Set("Authorization", c.auth)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("toggl: GET %s: %w", path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("toggl: reading response body: %w", err)
	}

	switch {
	case response.StatusCode == http.StatusPaymentRequired:
		return nil, ErrLimitReached
	case response.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case response.StatusCode < 200 || response.StatusCode >= 300:
		message := strings.TrimSpace(string(body))
		if len(message) > 200 {
			message = message[:200]
		}
		return nil, &StatusError{StatusCode: response.StatusCode, Body: message}
	}
	return body, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrLimitReached) || errors.Is(err, ErrInvalidToken) {
		return false
	}
	var statusError *StatusError
	if errors.As(err, &statusError) {
		return statusError.StatusCode >= 500
	}
	return true
}
