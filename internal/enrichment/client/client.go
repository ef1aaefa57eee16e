// Package client calls a remote enrichment store over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"civicledger/internal/enrichment/models"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

type apiError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// Client speaks the /api/application endpoints.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. to share a transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid enrichment base url: %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SaveEnrichment posts the submission as multipart form data.
func (c *Client) SaveEnrichment(ctx context.Context, sub models.Submission) error {
	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode enrichment")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/application/submit", nil, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, nil)
}

// FetchEnrichment looks a document up by its reference.
func (c *Client) FetchEnrichment(ctx context.Context, documentRef string) (*models.DocumentDetails, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/application/document-details",
		url.Values{"url": {documentRef}}, nil)
	if err != nil {
		return nil, err
	}
	var details models.DocumentDetails
	if err := c.do(req, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build enrichment request")
	}
	req.Header.Set("Accept", "application/json")
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set(headerRequestID, id)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "enrichment store unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "read enrichment response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode enrichment response")
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		msg := apiErr.Description
		if msg == "" {
			msg = fmt.Sprintf("enrichment store returned %d", status)
		}
		return dErrors.New(dErrors.Code(apiErr.Code), msg)
	}
	if status == http.StatusNotFound {
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return dErrors.New(dErrors.CodeUnavailable,
		fmt.Sprintf("enrichment store returned %d: %s", status, strings.TrimSpace(string(body))))
}

func encodeSubmission(sub models.Submission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"requestId":        sub.RequestID,
		"walletAddress":    sub.WalletAddress,
		"serviceId":        sub.ServiceID,
		"serviceType":      sub.ServiceType,
		"blockchainTxHash": sub.TxHash,
	}
	for k, v := range sub.FormFields {
		if _, reserved := fields[k]; reserved || v == "" {
			continue
		}
		fields[k] = v
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if fields[k] == "" {
			continue
		}
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}
	for _, att := range sub.Attachments {
		field := att.Field
		if field == "" {
			field = "documents"
		}
		part, err := w.CreateFormFile(field, att.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(att.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
