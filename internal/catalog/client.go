package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/tag-catalog/internal/config"
	"github.com/benvon/tag-catalog/internal/jsonpatch"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/services/oidc"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	apiPrefix = "/api/v1"
	// maxResponseSize bounds how much of a response body is read
	maxResponseSize = 10 << 20
)

// Client talks to the catalog REST service
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a client from the CLI configuration. Requests carry a
// bearer token when the configuration provides one.
func NewClient(ctx context.Context, cfg config.ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultClientConfig().Timeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if ts := oidc.TokenSource(ctx, cfg); ts != nil {
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = timeout
	}
	return NewClientWithHTTP(cfg.CatalogURL, httpClient, logger)
}

// NewClientWithHTTP builds a client around an existing HTTP client
func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// envelope is the response wrapper every catalog endpoint uses
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// do sends a request and decodes the envelope's data into out, which may be nil
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, out any) error {
	target := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("catalog_request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Type: http.StatusText(resp.StatusCode)}
		if decodeErr == nil {
			if env.Error != "" {
				apiErr.Type = env.Error
			}
			apiErr.Message = env.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, "", nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, "application/json", body, out)
}

func (c *Client) patch(ctx context.Context, path string, p jsonpatch.Patch, out any) error {
	body, err := jsonpatch.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal patch: %w", err)
	}
	return c.do(ctx, http.MethodPatch, path, nil, jsonpatch.ContentType, body, out)
}

func fieldsQuery(fields models.Fields) url.Values {
	q := url.Values{}
	if s := fields.String(); s != "" {
		q.Set("fields", s)
	}
	return q
}

// ListClassifications implements Service
func (c *Client) ListClassifications(ctx context.Context, fields models.Fields, limit int) (*models.ClassificationList, error) {
	q := fieldsQuery(fields)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out models.ClassificationList
	if err := c.getJSON(ctx, "/classifications", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetClassificationByName implements Service. A 2xx answer without a body yields (nil, nil).
func (c *Client) GetClassificationByName(ctx context.Context, name string, fields models.Fields) (*models.Classification, error) {
	var out *models.Classification
	if err := c.getJSON(ctx, "/classifications/name/"+url.PathEscape(name), fieldsQuery(fields), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateClassification implements Service
func (c *Client) CreateClassification(ctx context.Context, payload models.CreateClassification) (*models.Classification, error) {
	var out models.Classification
	if err := c.postJSON(ctx, "/classifications", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchClassification implements Service
func (c *Client) PatchClassification(ctx context.Context, id uuid.UUID, p jsonpatch.Patch) (*models.Classification, error) {
	var out models.Classification
	if err := c.patch(ctx, "/classifications/"+id.String(), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteClassification implements Service. Tags are removed with their classification.
func (c *Client) DeleteClassification(ctx context.Context, id uuid.UUID) error {
	q := url.Values{"recursive": {"true"}, "hardDelete": {"true"}}
	return c.do(ctx, http.MethodDelete, "/classifications/"+id.String(), q, "", nil, nil)
}

// ListTags implements Service
func (c *Client) ListTags(ctx context.Context, filter TagFilter) (*models.TagList, error) {
	q := fieldsQuery(filter.Fields)
	q.Set("parent", filter.Parent)
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	switch {
	case filter.Before != "":
		q.Set("before", filter.Before)
	case filter.After != "":
		q.Set("after", filter.After)
	}
	var out models.TagList
	if err := c.getJSON(ctx, "/tags", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTag implements Service
func (c *Client) CreateTag(ctx context.Context, payload models.CreateTag) (*models.Tag, error) {
	var out models.Tag
	if err := c.postJSON(ctx, "/tags", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchTag implements Service
func (c *Client) PatchTag(ctx context.Context, id uuid.UUID, p jsonpatch.Patch) (*models.Tag, error) {
	var out models.Tag
	if err := c.patch(ctx, "/tags/"+id.String(), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTag implements Service
func (c *Client) DeleteTag(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/tags/"+id.String(), nil, "", nil, nil)
}

// GetPermissions implements Service
func (c *Client) GetPermissions(ctx context.Context, resource models.ResourceEntity, id uuid.UUID) (*models.OperationPermission, error) {
	var out models.OperationPermission
	if err := c.getJSON(ctx, "/permissions/"+string(resource)+"/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPermissions returns the caller's permissions per resource type
func (c *Client) ListPermissions(ctx context.Context) ([]models.ResourcePermission, error) {
	var out []models.ResourcePermission
	if err := c.getJSON(ctx, "/permissions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVersions implements History
func (c *Client) ListVersions(ctx context.Context, resource models.ResourceEntity, id uuid.UUID) (*models.EntityHistory, error) {
	var path string
	switch resource {
	case models.ResourceClassification:
		path = "/classifications/" + id.String() + "/versions"
	case models.ResourceTag:
		path = "/tags/" + id.String() + "/versions"
	default:
		return nil, fmt.Errorf("resource %s has no version history", resource)
	}
	var out models.EntityHistory
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListThreads implements History
func (c *Client) ListThreads(ctx context.Context, entityLink string, threadType models.ThreadType) ([]*models.Thread, error) {
	q := url.Values{}
	if entityLink != "" {
		q.Set("entityLink", entityLink)
	}
	if threadType != "" {
		q.Set("type", string(threadType))
	}
	var out struct {
		Data []*models.Thread `json:"data"`
	}
	if err := c.getJSON(ctx, "/feed", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetThread implements History
func (c *Client) GetThread(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	var out models.Thread
	if err := c.getJSON(ctx, "/feed/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateThread implements History
func (c *Client) CreateThread(ctx context.Context, payload models.CreateThread) (*models.Thread, error) {
	var out models.Thread
	if err := c.postJSON(ctx, "/feed", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reply implements History
func (c *Client) Reply(ctx context.Context, threadID uuid.UUID, message string) (*models.Thread, error) {
	var out models.Thread
	if err := c.postJSON(ctx, "/feed/"+threadID.String()+"/posts", models.CreatePost{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	_ Service = (*Client)(nil)
	_ History = (*Client)(nil)
)
