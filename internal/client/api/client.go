// Package api is the REST transport for the storymap backend. It owns the
// response envelope ({error, message, ...}), bearer-token injection and error
// normalization; packages above it (gateway, services) never touch net/http.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/satriojati/storymap/internal/common"
	"github.com/satriojati/storymap/internal/logging"
)

// TokenSource yields the current session token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Error is an API-level failure: the backend answered and said no.
// Transport failures are reported as common.ErrNetwork instead.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     logging.Logger
}

// New returns a Client rooted at baseURL. tokens may be nil for a client that
// only performs unauthenticated calls.
func New(baseURL string, tokens TokenSource, log logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
		log:     log,
	}
}

// envelope is the part of every backend response shared by all endpoints.
type envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Get issues an authenticated GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, true, out)
}

// PostJSON issues a JSON POST. auth controls bearer-token injection.
func (c *Client) PostJSON(ctx context.Context, path string, body any, auth bool, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrInternal, err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(b), auth, out)
}

// DeleteJSON issues a JSON DELETE with a body (the unsubscribe endpoint wants one).
func (c *Client) DeleteJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrInternal, err)
	}
	return c.do(ctx, http.MethodDelete, path, "application/json", bytes.NewReader(b), true, out)
}

// FormFile is one file part of a multipart request.
type FormFile struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// PostMultipart issues an authenticated multipart/form-data POST.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, file *FormFile, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("%w: %s", common.ErrInternal, err)
		}
	}
	if file != nil {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{
			fmt.Sprintf(`form-data; name=%s; filename=%s`, strconv.Quote(file.Field), strconv.Quote(file.Name))}
		h["Content-Type"] = []string{file.ContentType}
		part, err := w.CreatePart(h)
		if err != nil {
			return fmt.Errorf("%w: %s", common.ErrInternal, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("%w: %s", common.ErrInternal, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %s", common.ErrInternal, err)
	}
	return c.do(ctx, http.MethodPost, path, w.FormDataContentType(), &buf, true, out)
}

// FetchRaw downloads an arbitrary resource (used for photo caching). Returns
// the body and content type.
func (c *Client) FetchRaw(ctx context.Context, url string) (data []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", common.ErrNetwork, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: unexpected status %d", common.ErrNetwork, resp.StatusCode)
	}
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", common.ErrNetwork, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, auth bool, out any) error {
	var token string
	if auth {
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" {
			return common.ErrUnauthorized
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrNetwork, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrNetwork, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: malformed response: %s", common.ErrNetwork, err)
	}
	if env.Error {
		c.log.Debug(ctx, "api error", "method", method, "path", path, "message", env.Message)
		return &Error{Message: env.Message}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: malformed response: %s", common.ErrNetwork, err)
		}
	}
	return nil
}
