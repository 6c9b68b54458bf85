// ABOUTME: HTTP client for the third-party loyalty API
// ABOUTME: Looks up user names and assigns users to discount groups

package loyaltyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// usersPath is the resource prefix for user records.
const usersPath = "/public-api/resources/users/v1.0/"

// maxErrorBody bounds how much of a failed lookup response ends up in an error.
const maxErrorBody = 512

// User is the subset of a loyalty user record this service reads.
type User struct {
	ID        string
	FirstName string
	LastName  string
}

// Relay is a downstream response passed back to the caller untouched.
type Relay struct {
	Status      int
	ContentType string
	Body        []byte
}

// StatusError reports a non-2xx response from a lookup.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("loyalty api returned status %d", e.Status)
	}
	return fmt.Sprintf("loyalty api returned status %d: %s", e.Status, e.Body)
}

// Client talks to the loyalty API with a bearer token.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a client. A zero timeout leaves requests unbounded
// apart from the caller's context.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "loyaltyapi"),
	}
}

// WithHTTPClient swaps the underlying transport client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

func (c *Client) userURL(userID string) string {
	return c.baseURL + usersPath + url.PathEscape(userID)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// GetUser fetches a user record. The name may sit at the top level or
// under "data" depending on the API version.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.userURL(userID), nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading user response: %w", err)
	}

	c.logger.Debug("user lookup", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decoding user response: invalid json")
	}

	root := gjson.ParseBytes(body)
	src := root
	if data := root.Get("data"); data.IsObject() {
		src = data
	}

	user := &User{
		ID:        src.Get("id").String(),
		FirstName: src.Get("firstName").String(),
		LastName:  src.Get("lastName").String(),
	}
	if user.ID == "" {
		user.ID = userID
	}
	return user, nil
}

// AssignGroups sets the user's group membership. Any HTTP response is
// returned as a Relay; only transport failures produce an error.
func (c *Client) AssignGroups(ctx context.Context, userID string, groupIDs []int64) (*Relay, error) {
	payload, err := json.Marshal(struct {
		UserGroupIDs []int64 `json:"userGroupIds"`
	}{UserGroupIDs: groupIDs})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, c.userURL(userID), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assigning groups: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading assign response: %w", err)
	}

	c.logger.Info("group assignment", "status", resp.StatusCode, "groups", groupIDs, "duration", time.Since(start))

	return &Relay{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
