package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient talks to the Directory's REST API. Requests carry a static
// bearer credential; each call is bounded by the configured timeout.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient builds a client for the Directory at baseURL. A
// non-positive timeout falls back to 10 seconds.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type userEnvelope struct {
	User *User `json:"user"`
}

func (c *HTTPClient) FetchIdentity(ctx context.Context, username string) (*User, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(username), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var env userEnvelope
		if err := json.Unmarshal(body, &env); err != nil || env.User == nil {
			return nil, fmt.Errorf("fetch identity: malformed response: %w", ErrUnavailable)
		}
		return env.User, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &StatusError{Op: "fetch identity", Code: resp.StatusCode}
	}
}

func (c *HTTPClient) Verify(ctx context.Context, username, key string) (*Identity, error) {
	payload := map[string]string{"key": key}
	resp, body, err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(username)+"/auth", payload)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var env userEnvelope
		if len(body) > 0 {
			if err := json.Unmarshal(body, &env); err != nil {
				return nil, fmt.Errorf("verify: malformed response: %w", ErrUnavailable)
			}
		}
		if env.User != nil {
			return &env.User.Identity, nil
		}
		// Some Directory deployments return an empty 200 body.
		return &Identity{Username: username}, nil
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return nil, ErrRejected
	default:
		return nil, &StatusError{Op: "verify", Code: resp.StatusCode}
	}
}

func (c *HTTPClient) CreateAccount(ctx context.Context, username, email, salt, key string) error {
	payload := map[string]string{
		"username": username,
		"email":    email,
		"salt":     salt,
		"key":      key,
	}
	resp, _, err := c.do(ctx, http.MethodPost, "/users", payload)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrRejected
	default:
		return &StatusError{Op: "create account", Code: resp.StatusCode}
	}
}

// do issues one request and reads the full body. Transport-level failures
// (dial errors, timeouts, truncated reads) surface as ErrUnavailable.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("directory request failed: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w: %v", ErrUnavailable, err)
	}
	return resp, body, nil
}
