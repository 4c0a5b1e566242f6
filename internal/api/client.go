// Package api is the HTTP client for the CollegeBot backend. It attaches the
// bearer credential to every request when one is present and normalizes
// backend failures into *APIError values carrying the FastAPI detail string.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// TokenFunc supplies the current bearer token, or "" when anonymous. The
// client calls it on every request so a credential change made elsewhere is
// picked up immediately.
type TokenFunc func() string

// Client talks to the backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
	log     *zap.Logger
}

// New creates a Client for the given base address. token may be nil for a
// client that never authenticates.
func New(baseURL string, token TokenFunc, log *zap.Logger) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		token:   token,
		log:     log,
	}
}

// APIError is a non-success response from the backend.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// IsAuthError reports whether err is the backend signaling an invalid or
// expired credential.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// ChatAnswer is the response to a chat question.
type ChatAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Credentials is the response to a successful login.
type Credentials struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalDocuments int `json:"total_documents"`
	ActiveStudents int `json:"active_students"`
	QueriesToday   int `json:"queries_today"`
}

// Document is one corpus entry as reported by the backend.
type Document struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Semester   string `json:"semester"`
}

// UploadResult is the backend's acknowledgement of a document upload.
type UploadResult struct {
	Message string `json:"message"`
	Summary string `json:"summary"`
}

// Chat sends a question to the answering service.
func (c *Client) Chat(ctx context.Context, question string) (*ChatAnswer, error) {
	var out ChatAnswer
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", map[string]string{"question": question}, &out); err != nil {
		return nil, err
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return &out, nil
}

// Login exchanges a username and password for a bearer credential.
// The backend expects the OAuth2 password form encoding.
func (c *Client) Login(ctx context.Context, username, password string) (*Credentials, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var creds Credentials
	if err := c.do(req, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Register creates a new account with the given role.
func (c *Client) Register(ctx context.Context, username, password, role string) error {
	body := map[string]string{"username": username, "password": password, "role": role}
	return c.doJSON(ctx, http.MethodPost, "/auth/register", body, nil)
}

// Stats fetches the admin dashboard counters.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.doJSON(ctx, http.MethodGet, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Documents lists the uploaded corpus.
func (c *Client) Documents(ctx context.Context) ([]Document, error) {
	var out struct {
		Documents []Document `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// Upload sends a document file plus its department/semester metadata as a
// multipart form.
func (c *Client) Upload(ctx context.Context, path, department, semester string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	_ = mw.WriteField("department", department)
	_ = mw.WriteField("semester", semester)
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument removes a document from the corpus by filename.
func (c *Client) DeleteDocument(ctx context.Context, filename string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(filename), nil, nil)
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

// doJSON builds a request with an optional JSON body and decodes a JSON
// response into out (out may be nil to discard the body).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.String("request_id", reqID),
			zap.Error(err))
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Info("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", reqID))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
