// Package httpclient talks to the todo backend over HTTP/JSON. It implements
// remote.TaskStore and remote.DocumentStore and the account endpoints.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"todo-sync/internal/domain"
	apperrors "todo-sync/internal/errors"
	"todo-sync/internal/remote"
)

// TokenSource supplies the bearer token for authenticated calls
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is the backend API client
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// Documents is the document endpoint group. It is a separate type because
// both stores name their removal operation Delete.
type Documents struct {
	c *Client
}

var (
	_ remote.TaskStore     = (*Client)(nil)
	_ remote.DocumentStore = (*Documents)(nil)
)

// New creates a client for baseURL. tokens may be nil for the account
// endpoints that do not need authentication.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// Signup creates an account and returns its first token
func (c *Client) Signup(ctx context.Context, name, email, password string) (*remote.AuthResponse, error) {
	var resp remote.AuthResponse
	body := remote.SignupRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, "signup", http.MethodPost, "/api/v1/auth/signup", false, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, email, password string) (*remote.AuthResponse, error) {
	var resp remote.AuthResponse
	body := remote.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, "login", http.MethodPost, "/api/v1/auth/login", false, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile returns the signed-in user's profile
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, "get profile", http.MethodGet, "/api/v1/users/me", true, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the signed-in user's profile
func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, "update profile", http.MethodPatch, "/api/v1/users/me", true, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByOwner implements remote.TaskStore. The backend scopes the list to
// the token subject, which must match userID.
func (c *Client) ListByOwner(ctx context.Context, userID string) ([]domain.Task, error) {
	var resp remote.TaskListResponse
	if err := c.do(ctx, "list tasks", http.MethodGet, "/api/v1/tasks", true, nil, &resp); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(resp.Tasks))
	for _, task := range resp.Tasks {
		if task.UserID != userID {
			return nil, apperrors.NewPermissionError("list tasks", "tasks of another user")
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Create implements remote.TaskStore
func (c *Client) Create(ctx context.Context, task domain.Task) (string, error) {
	var created domain.Task
	body := remote.NewCreateTaskRequest(task)
	if err := c.do(ctx, "create task", http.MethodPost, "/api/v1/tasks", true, body, &created); err != nil {
		return "", err
	}
	if created.ID.IsZero() || created.ID.IsLocal() {
		return "", apperrors.NewRejectedError("create task", http.StatusBadGateway, "backend returned no task id")
	}
	return created.ID.String(), nil
}

// Update implements remote.TaskStore
func (c *Client) Update(ctx context.Context, id string, update domain.TaskUpdate) error {
	return c.do(ctx, "update task", http.MethodPatch, "/api/v1/tasks/"+url.PathEscape(id), true, update, nil)
}

// Delete implements remote.TaskStore
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete task", http.MethodDelete, "/api/v1/tasks/"+url.PathEscape(id), true, nil, nil)
}

// Documents returns the document store backed by this client
func (c *Client) Documents() *Documents {
	return &Documents{c: c}
}

// Upload implements remote.DocumentStore with a multipart form carrying the
// file and its owner-scoped key
func (d *Documents) Upload(ctx context.Context, data []byte, filename, key string) (domain.Document, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("key", key); err != nil {
		return domain.Document{}, apperrors.NewDocumentError("upload", key, err)
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return domain.Document{}, apperrors.NewDocumentError("upload", key, err)
	}
	if _, err := part.Write(data); err != nil {
		return domain.Document{}, apperrors.NewDocumentError("upload", key, err)
	}
	if err := form.Close(); err != nil {
		return domain.Document{}, apperrors.NewDocumentError("upload", key, err)
	}

	req, err := d.c.newRequest(ctx, http.MethodPost, "/api/v1/documents", true, &buf)
	if err != nil {
		return domain.Document{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var doc domain.Document
	if err := d.c.send(req, "upload document", &doc); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// Delete implements remote.DocumentStore
func (d *Documents) Delete(ctx context.Context, id string) error {
	return d.c.do(ctx, "delete document", http.MethodDelete, "/api/v1/documents/"+url.PathEscape(id), true, nil, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path string, auth bool, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return apperrors.WrapError(err, apperrors.ErrorTypeInvalidInput, "failed to encode "+operation+" request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, auth, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, operation, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, auth bool, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeInvalidInput, "invalid backend URL")
	}
	req.Header.Set("Accept", "application/json")

	if auth {
		if c.tokens == nil {
			return nil, apperrors.NewPermissionError(method+" "+path, "backend (not signed in)")
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, operation string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			timeoutErr := apperrors.NewTimeoutError(operation, c.http.Timeout.String())
			timeoutErr.Cause = err
			return timeoutErr
		}
		return apperrors.NewUnreachableError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp, operation)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewRejectedError(operation, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func decodeError(resp *http.Response, operation string) error {
	var body remote.ErrorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	reason := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		reason = body.Error.Message
	}

	// Gateways in front of the backend answer 502-504 when it is down.
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperrors.NewUnreachableError(operation, fmt.Errorf("%d %s", resp.StatusCode, reason))
	}

	return apperrors.NewRejectedError(operation, resp.StatusCode, reason).
		WithContext("code", body.Error.Code)
}
