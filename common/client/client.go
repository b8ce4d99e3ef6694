// Package client is the Go SDK for the mserve HTTP API.
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
	"os"
	"strconv"
	"time"

	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/models"
)

// DefaultChunkSize is how much of a file UploadFile sends per request.
const DefaultChunkSize = 4 << 20

const apiPrefix = "/api/v0"

// Client talks to an mserve instance. The zero value is not usable; call New.
type Client struct {
	baseURL   string
	http      *http.Client
	token     string
	chunkSize int64
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the underlying http client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithToken sets the bearer token for authenticated calls
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithChunkSize overrides the UploadFile chunk size
func WithChunkSize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 5 * time.Minute},
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token currently in use
func (c *Client) Token() string { return c.token }

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) { c.token = token }

// Register creates a new account.
func (c *Client) Register(ctx context.Context, creator models.UserCreator) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodPost, "/core/users/register", creator, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges credentials for a bearer token and stores it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/core/users/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// Logout revokes the current token and clears it from the client.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/core/users/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/core/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUploader opens a new upload session.
func (c *Client) CreateUploader(ctx context.Context, creator models.FileUploaderCreator) (*models.FileUpload, error) {
	var session models.FileUpload
	if err := c.doJSON(ctx, http.MethodPost, "/core/file-uploader", creator, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ReadUploader fetches an upload session by id.
func (c *Client) ReadUploader(ctx context.Context, id string) (*models.FileUpload, error) {
	var session models.FileUpload
	if err := c.doJSON(ctx, http.MethodGet, "/core/file-uploader/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListUploaders pages through the caller's upload sessions.
func (c *Client) ListUploaders(ctx context.Context, offset, size int64) ([]*models.FileUpload, error) {
	path := fmt.Sprintf("/core/file-uploader?offset=%s&size=%s",
		strconv.FormatInt(offset, 10), strconv.FormatInt(size, 10))

	var sessions []*models.FileUpload
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteUploader removes an upload session and its staged bytes. Deleting a
// session that no longer exists is not an error.
func (c *Client) DeleteUploader(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/core/file-uploader/"+url.PathEscape(id), nil, nil)
}

// UploadChunk appends one chunk to an upload session and returns the
// refreshed session state.
func (c *Client) UploadChunk(ctx context.Context, id string, chunk io.Reader) (*models.FileUpload, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("chunk", "chunk")
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, chunk); err != nil {
		return nil, fmt.Errorf("failed to buffer chunk: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/core/file-uploader/"+url.PathEscape(id), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var session models.FileUpload
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UploadFile opens a session for the file at path and streams it up in
// chunks. It returns the session in its post-upload state, normally
// process_queue; callers poll ReadUploader for completion.
func (c *Client) UploadFile(ctx context.Context, path string, uploadType models.FileUploadType, ext string) (*models.FileUpload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	session, err := c.CreateUploader(ctx, models.FileUploaderCreator{
		Type:      uploadType,
		Ext:       ext,
		TotalSize: info.Size(),
	})
	if err != nil {
		return nil, err
	}

	for session.Status == models.StatusUploading {
		before := session.TotalUploaded
		session, err = c.UploadChunk(ctx, session.ID.Hex(), io.LimitReader(f, c.chunkSize))
		if err != nil {
			return nil, err
		}
		if session.Status == models.StatusUploading && session.TotalUploaded == before {
			return session, errs.Wrap(errs.ErrBadState,
				"file exhausted at %d of %d declared bytes", session.TotalUploaded, session.TotalSize)
		}
	}

	if session.Status == models.StatusError {
		return session, errs.Wrap(errs.ErrBadState, "upload failed: %s", session.Error)
	}
	return session, nil
}

// newRequest builds a request against the API prefix with auth attached.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON sends an optional JSON body and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// do executes the request and maps error envelopes back to error kinds.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError converts an error envelope into the matching error kind.
func apiError(resp *http.Response) error {
	var envelope struct {
		Detail string `json:"detail"`
	}
	detail := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Detail != "" {
		detail = envelope.Detail
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errs.Wrap(errs.ErrNotFound, "%s", detail)
	case http.StatusUnauthorized:
		return errs.Wrap(errs.ErrAuthFailed, "%s", detail)
	case http.StatusBadRequest:
		return errs.Wrap(errs.ErrBadInput, "%s", detail)
	}
	return errs.Wrap(errs.ErrStore, "server error (%d): %s", resp.StatusCode, detail)
}
