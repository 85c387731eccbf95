package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com/v4"

	// Placeholder values shipped in sample configuration. A client carrying
	// either of them is treated as unconfigured.
	PlaceholderSpreadsheetID = "YOUR_GOOGLE_SHEET_ID_HERE"
	PlaceholderAPIKey        = "YOUR_GOOGLE_API_KEY_HERE"
)

// RemoteFetchError reports a failure to read a single tab.
type RemoteFetchError struct {
	Table      string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteFetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fetch sheet %s: %v", e.Table, e.Err)
	case e.Message != "":
		return fmt.Sprintf("fetch sheet %s: %s", e.Table, e.Message)
	default:
		return fmt.Sprintf("fetch sheet %s: HTTP %d", e.Table, e.StatusCode)
	}
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

// Client reads tabs through the Sheets v4 values API.
type Client struct {
	spreadsheetID string
	apiKey        string
	baseURL       string
	client        *http.Client
	tables        []string
	logger        *slog.Logger

	mu        sync.RWMutex
	lastFetch time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTables overrides the list of tabs fetched by FetchAll.
func WithTables(tables ...string) Option {
	return func(c *Client) {
		c.tables = tables
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Sheets client for one spreadsheet.
func NewClient(spreadsheetID, apiKey string, opts ...Option) *Client {
	c := &Client{
		spreadsheetID: spreadsheetID,
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		client:        http.DefaultClient,
		tables:        DefaultTables,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether both the spreadsheet ID and API key are set to
// real values. No request is ever issued by an unconfigured client's callers.
func (c *Client) IsConfigured() bool {
	return c.spreadsheetID != "" && c.spreadsheetID != PlaceholderSpreadsheetID &&
		c.apiKey != "" && c.apiKey != PlaceholderAPIKey
}

// LastFetch returns when FetchAll last completed.
func (c *Client) LastFetch() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch
}

func (c *Client) sheetURL(table string) string {
	return fmt.Sprintf("%s/spreadsheets/%s/values/%s?key=%s",
		c.baseURL,
		url.PathEscape(c.spreadsheetID),
		url.PathEscape(table),
		url.QueryEscape(c.apiKey),
	)
}

type valuesResponse struct {
	Values [][]any `json:"values"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// FetchTable reads a single tab.
func (c *Client) FetchTable(ctx context.Context, table string) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sheetURL(table), nil)
	if err != nil {
		return Table{}, &RemoteFetchError{Table: table, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Table{}, &RemoteFetchError{Table: table, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Table{}, &RemoteFetchError{Table: table, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr := &RemoteFetchError{Table: table, StatusCode: resp.StatusCode}
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil {
			fetchErr.Message = apiErr.Error.Message
		}
		return Table{}, fetchErr
	}

	var values valuesResponse
	if err := json.Unmarshal(body, &values); err != nil {
		return Table{}, &RemoteFetchError{Table: table, StatusCode: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	raw := make([][]string, len(values.Values))
	for i, row := range values.Values {
		raw[i] = make([]string, len(row))
		for j, cell := range row {
			raw[i][j] = cellString(cell)
		}
	}

	parsed := ParseRows(raw)
	if parsed.Len() == 0 {
		c.logger.Debug("sheet is empty or header-only", "table", table)
	} else {
		c.logger.Debug("sheet fetched", "table", table, "rows", parsed.Len())
	}
	return parsed, nil
}

// FetchAll reads every configured tab concurrently. A failing tab never
// aborts its siblings: it maps to an empty Table and its error is reported
// in Result.Failures.
func (c *Client) FetchAll(ctx context.Context) Result {
	start := time.Now()

	tables := make([]Table, len(c.tables))
	errs := make([]error, len(c.tables))

	var wg sync.WaitGroup
	for i, name := range c.tables {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tables[i], errs[i] = c.FetchTable(ctx, name)
		}()
	}
	wg.Wait()

	result := Result{Tables: make(TableSet, len(c.tables))}
	for i, name := range c.tables {
		if errs[i] != nil {
			c.logger.Warn("sheet fetch failed", "table", name, "error", errs[i])
			result.Failures = append(result.Failures, errs[i])
			result.Tables[name] = Table{}
			continue
		}
		result.Tables[name] = tables[i]
	}

	now := time.Now()
	c.mu.Lock()
	c.lastFetch = now
	c.mu.Unlock()
	result.FetchedAt = now

	c.logger.Info("sheets fetched",
		"tables", len(c.tables),
		"failures", len(result.Failures),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}
