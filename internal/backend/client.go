// Package backend is the HTTP client for the catalog REST API.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// APIError is a non-2xx answer from the catalog API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog api: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("catalog api: status %d", e.Status)
}

// IsNotFound reports whether err is a 404 from the catalog API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == fiber.StatusNotFound
}

// Message returns the backend's own message for err, or "" if it has none.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type Client struct {
	baseURL string
	timeout time.Duration
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// BaseURL is the API root that image paths are relative to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// send runs the request and decodes a JSON body into out when out is non-nil.
func (c *Client) send(a *fiber.Agent, out any) error {
	a.Timeout(c.timeout)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("catalog api: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return newAPIError(code, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("catalog api: decode response: %w", err)
	}
	return nil
}

func newAPIError(code int, body []byte) *APIError {
	e := &APIError{Status: code}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
		if e.Message == "" {
			e.Message = payload.Error
		}
	}
	return e
}
