package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/httpclient"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/spatial"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	// DefaultActionAPIVersion is the catalog action API version; version 3
	// responses nest their payload under a "result" envelope.
	DefaultActionAPIVersion = 3
)

// SearchPage is one page of dataset search results. Raw is the undecoded
// body, kept so the caller can detect a pager that returns the same page
// twice.
type SearchPage struct {
	Raw     []byte
	Records []models.RemoteRecord
}

// Client is a remote catalog API client.
type Client struct {
	fetcher          *httpclient.ContentFetcher
	credential       string
	logger           arbor.ILogger
	limiter          *rate.Limiter
	actionAPIVersion int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithFetcher sets a custom content fetcher.
func WithFetcher(fetcher *httpclient.ContentFetcher) ClientOption {
	return func(c *Client) {
		c.fetcher = fetcher
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithActionAPIVersion sets the action API version.
func WithActionAPIVersion(version int) ClientOption {
	return func(c *Client) {
		if version > 0 {
			c.actionAPIVersion = version
		}
	}
}

// NewClient creates a new catalog client. The credential, when non-empty, is
// attached as the Authorization header on every request.
func NewClient(credential string, opts ...ClientOption) *Client {
	c := &Client{
		credential:       credential,
		limiter:          rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		actionAPIVersion: DefaultActionAPIVersion,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		c.fetcher = httpclient.NewContentFetcher(httpclient.DefaultTimeout, c.logger)
	}

	return c
}

func (c *Client) actionOffset() string {
	return fmt.Sprintf("/api/%d/action", c.actionAPIVersion)
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.fetcher.Fetch(ctx, rawURL, c.credential)
}

// unwrapEnvelope strips the version-3 "result" envelope from an action API
// response. For older versions the body is the payload itself.
func (c *Client) unwrapEnvelope(body []byte) (json.RawMessage, error) {
	if c.actionAPIVersion != 3 {
		return body, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("response was not JSON: %v", err)
	}
	result, ok := envelope["result"]
	if !ok {
		return nil, fmt.Errorf("response JSON did not contain result")
	}
	return result, nil
}

// SearchPage performs one page of the dataset search. Pages are sorted by id
// ascending so the cursor stays stable while remote records are added;
// duplicates introduced by concurrent inserts are the caller's concern.
func (c *Client) SearchPage(ctx context.Context, baseURL string, fqTerms []string, start, rows int, useDefaultSchema bool) (*SearchPage, error) {
	params := url.Values{}
	params.Set("rows", strconv.Itoa(rows))
	params.Set("start", strconv.Itoa(start))
	params.Set("sort", "id asc")
	if len(fqTerms) > 0 {
		params.Set("fq", strings.Join(fqTerms, " "))
	}
	if useDefaultSchema {
		params.Set("use_default_schema", "true")
	}

	searchURL := baseURL + c.actionOffset() + "/package_search?" + params.Encode()

	if c.logger != nil {
		c.logger.Debug().Str("url", searchURL).Msg("Searching remote catalog for datasets")
	}

	body, err := c.fetch(ctx, searchURL)
	if err != nil {
		return nil, &SearchError{Reason: fmt.Sprintf("error sending request to %s: %v", searchURL, err)}
	}

	payload, err := c.unwrapEnvelope(body)
	if err != nil {
		return nil, &SearchError{Reason: err.Error()}
	}

	var result struct {
		Results *[]models.RemoteRecord `json:"results"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, &SearchError{Reason: fmt.Sprintf("response was not JSON: %v", err)}
	}
	if result.Results == nil {
		return nil, &SearchError{Reason: "response JSON did not contain results"}
	}

	return &SearchPage{Raw: body, Records: *result.Results}, nil
}

// SpatialSearch resolves the ids of datasets intersecting the geometry.
// POLYGON and MULTIPOLYGON travel as the poly parameter, BOX as bbox.
func (c *Client) SpatialSearch(ctx context.Context, baseURL string, wkt string, crs int) (map[string]struct{}, error) {
	params := url.Values{}
	if spatial.IsBox(wkt) {
		params.Set("bbox", spatial.BoxBody(wkt))
	} else {
		params.Set("poly", wkt)
	}
	params.Set("crs", strconv.Itoa(crs))

	searchURL := baseURL + "/api/2/search/dataset/geo?" + params.Encode()

	if c.logger != nil {
		c.logger.Debug().Str("url", searchURL).Str("wkt", wkt).Msg("Performing spatial search")
	}

	body, err := c.fetch(ctx, searchURL)
	if err != nil {
		return nil, &SearchError{Reason: fmt.Sprintf("error sending spatial search request to %s: %v", searchURL, err)}
	}

	var result struct {
		Results *[]string `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &SearchError{Reason: fmt.Sprintf("spatial search response was not JSON: %v", err)}
	}
	if result.Results == nil {
		return nil, &SearchError{Reason: "spatial search response JSON did not contain results"}
	}

	ids := make(map[string]struct{}, len(*result.Results))
	for _, id := range *result.Results {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// GetGroup fetches the full remote group definition by id or name.
func (c *Client) GetGroup(ctx context.Context, baseURL string, idOrName string) (*models.RemoteGroup, error) {
	return c.show(ctx, baseURL, "group", "/group_show", idOrName)
}

// GetOrganization fetches the full remote organization definition. The
// payload shape matches a group; older catalogs expose organizations only
// as groups, so callers fall back to GetGroup on RemoteResourceError.
func (c *Client) GetOrganization(ctx context.Context, baseURL string, idOrName string) (*models.RemoteGroup, error) {
	return c.show(ctx, baseURL, "organization", "/organization_show", idOrName)
}

func (c *Client) show(ctx context.Context, baseURL, resource, action, idOrName string) (*models.RemoteGroup, error) {
	showURL := baseURL + c.actionOffset() + action + "?id=" + url.QueryEscape(idOrName)

	body, err := c.fetch(ctx, showURL)
	if err != nil {
		return nil, &RemoteResourceError{Resource: resource, Reason: err.Error()}
	}

	payload, err := c.unwrapEnvelope(body)
	if err != nil {
		return nil, &RemoteResourceError{Resource: resource, Reason: err.Error()}
	}

	var group models.RemoteGroup
	if err := json.Unmarshal(payload, &group); err != nil {
		return nil, &RemoteResourceError{Resource: resource, Reason: fmt.Sprintf("payload was not JSON: %v", err)}
	}

	return &group, nil
}
