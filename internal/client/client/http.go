package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/common"
	"github.com/dmitrijs2005/stegkeeper/internal/netx"
)

// HTTPClient talks to the service over multipart HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (tests, custom transports).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// NewHTTPClient builds a client for baseURL (e.g. http://127.0.0.1:5000/api).
// tokens may be nil for a purely anonymous client.
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type response struct {
	body        []byte
	contentType string
	fileName    string
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token, ok := c.tokens.BearerToken(ctx); ok {
			req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}

	return &response{
		body:        data,
		contentType: resp.Header.Get("Content-Type"),
		fileName:    attachmentName(resp.Header.Get("Content-Disposition")),
	}, nil
}

func (c *HTTPClient) postMultipart(ctx context.Context, path string, parts ...netx.Part) (*response, error) {
	body, ct, err := netx.EncodeMultipart(parts...)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, body, ct)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, PathStatus, nil, "")
	return err
}

// CheckCapacity returns the raw JSON answer; normalizing field names is
// the caller's business.
func (c *HTTPClient) CheckCapacity(ctx context.Context, file Upload) (json.RawMessage, error) {
	resp, err := c.postMultipart(ctx, PathCheckCapacity, netx.FilePart("file", file.Name, file.Data))
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.body) {
		return nil, fmt.Errorf("%w: capacity answer is not JSON", ErrMalformedResponse)
	}
	return json.RawMessage(resp.body), nil
}

func (c *HTTPClient) Encode(ctx context.Context, kind models.MediaKind, file, key Upload, secret string) (*EncodeResult, error) {
	resp, err := c.postMultipart(ctx, OperationPath(kind, models.DirectionEncode),
		netx.FilePart("file", file.Name, file.Data),
		netx.FilePart("key", key.Name, key.Data),
		netx.ValuePart("secret", secret),
	)
	if err != nil {
		return nil, err
	}
	return &EncodeResult{Data: resp.body, ContentType: resp.contentType, FileName: resp.fileName}, nil
}

func (c *HTTPClient) Decode(ctx context.Context, kind models.MediaKind, file, key Upload) (string, error) {
	resp, err := c.postMultipart(ctx, OperationPath(kind, models.DirectionDecode),
		netx.FilePart("file", file.Name, file.Data),
		netx.FilePart("key", key.Name, key.Data),
	)
	if err != nil {
		return "", err
	}

	var out struct {
		Secret *string `json:"secret"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil || out.Secret == nil {
		return "", fmt.Errorf("%w: decode answer has no secret", ErrMalformedResponse)
	}
	return *out.Secret, nil
}

// GenerateKeys returns the ZIP archive holding a fresh key pair.
func (c *HTTPClient) GenerateKeys(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, PathGenerateKeys, nil, "")
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

func errorMessage(body []byte) string {
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &out); err != nil {
		return ""
	}
	return strings.TrimSpace(out.Error)
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
