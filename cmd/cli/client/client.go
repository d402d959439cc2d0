package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inkdrop/inkdrop/cmd/cli/config"
)

// Client calls the InkDrop API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for baseURL with a bounded request timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FieldError is one entry of a validation error response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response decoded from the API's error body.
type APIError struct {
	Status  int
	Name    string       `json:"error"`
	Message string       `json:"message"`
	Details []FieldError `json:"details"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		parts := make([]string, 0, len(e.Details))
		for _, d := range e.Details {
			parts = append(parts, d.Field+": "+d.Message)
		}
		return fmt.Sprintf("%s (%d): %s", e.Name, e.Status, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Status, e.Message)
}

// Do sends payload as JSON and decodes a 2xx body into out. token may be empty.
func (c *Client) Do(ctx context.Context, method, path, token string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || (apiErr.Name == "" && apiErr.Message == "") {
			apiErr.Name = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	err := c.Do(ctx, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refreshToken}, &out)
	if err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("refresh succeeded but no access token returned")
	}
	return out.AccessToken, nil
}

// DoAuthed is Do with the stored session's access token. On a 401 it refreshes the
// access token once, saves it and retries.
func (c *Client) DoAuthed(ctx context.Context, method, path string, payload, out interface{}) error {
	sess, err := config.LoadSession()
	if err != nil {
		return err
	}

	err = c.Do(ctx, method, path, sess.AccessToken, payload, out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || sess.RefreshToken == "" {
		return err
	}

	access, rerr := c.Refresh(ctx, sess.RefreshToken)
	if rerr != nil {
		return fmt.Errorf("session expired, please log in again: %w", rerr)
	}
	sess.AccessToken = access
	if err := config.SaveSession(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return c.Do(ctx, method, path, access, payload, out)
}
