package asyncopssdk

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

// Client is a minimal AsyncOps HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration

	// OnSessionExpired is invoked when the API rejects the bearer token.
	// The client clears BearerToken before calling it.
	OnSessionExpired func()
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "api",
		Timeout:  10 * time.Second,
	}
}

// User represents the API user model.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// StatusUpdate represents a posted status update.
type StatusUpdate struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// Incident represents an incident (partial).
type Incident struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Severity     string  `json:"severity"`
	Status       string  `json:"status"`
	AssignedToID *int64  `json:"assigned_to_id,omitempty"`
	ResolvedAt   *string `json:"resolved_at,omitempty"`
	Archived     bool    `json:"archived"`
}

// Blocker represents a blocker (partial).
type Blocker struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Status      string `json:"status"`
	Archived    bool   `json:"archived"`
}

// Decision represents a recorded decision (partial).
type Decision struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Outcome      string   `json:"outcome"`
	DecisionDate string   `json:"decision_date"`
	Tags         []string `json:"tags,omitempty"`
}

// TokenResponse is the login payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Paginated wraps list responses.
type Paginated[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// APIError wraps non-2xx responses using the server error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return resp, err
	}
	c.BearerToken = resp.AccessToken
	return resp, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "users/me", nil, &resp)
	return resp, err
}

// PostStatusUpdate posts a status update.
func (c *Client) PostStatusUpdate(ctx context.Context, title, content string, tags []string) (StatusUpdate, error) {
	var resp StatusUpdate
	err := c.do(ctx, http.MethodPost, "status-updates", map[string]any{
		"title":   title,
		"content": content,
		"tags":    tags,
	}, &resp)
	return resp, err
}

// StatusUpdates lists status updates, newest first.
func (c *Client) StatusUpdates(ctx context.Context, page, limit int) (Paginated[StatusUpdate], error) {
	var resp Paginated[StatusUpdate]
	err := c.do(ctx, http.MethodGet, paged("status-updates", page, limit), nil, &resp)
	return resp, err
}

// ReportIncident creates an incident.
func (c *Client) ReportIncident(ctx context.Context, title, description, severity string) (Incident, error) {
	var resp Incident
	err := c.do(ctx, http.MethodPost, "incidents", map[string]any{
		"title":       title,
		"description": description,
		"severity":    severity,
	}, &resp)
	return resp, err
}

// SetIncidentStatus moves an incident to a new status.
func (c *Client) SetIncidentStatus(ctx context.Context, id int64, status string, resolutionNotes *string) (Incident, error) {
	body := map[string]any{"status": status}
	if resolutionNotes != nil {
		body["resolution_notes"] = *resolutionNotes
	}
	var resp Incident
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("incidents/%d/status", id), body, &resp)
	return resp, err
}

// Incidents lists incidents.
func (c *Client) Incidents(ctx context.Context, page, limit int) (Paginated[Incident], error) {
	var resp Paginated[Incident]
	err := c.do(ctx, http.MethodGet, paged("incidents", page, limit), nil, &resp)
	return resp, err
}

// ReportBlocker creates a blocker.
func (c *Client) ReportBlocker(ctx context.Context, description, impact string) (Blocker, error) {
	var resp Blocker
	err := c.do(ctx, http.MethodPost, "blockers", map[string]any{
		"description": description,
		"impact":      impact,
	}, &resp)
	return resp, err
}

// ResolveBlocker marks an active blocker resolved.
func (c *Client) ResolveBlocker(ctx context.Context, id int64, resolutionNotes *string) (Blocker, error) {
	body := map[string]any{}
	if resolutionNotes != nil {
		body["resolution_notes"] = *resolutionNotes
	}
	var resp Blocker
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("blockers/%d/resolve", id), body, &resp)
	return resp, err
}

// RecordDecision records a decision.
func (c *Client) RecordDecision(ctx context.Context, title, outcome, decisionDate string, tags []string, participantIDs []int64) (Decision, error) {
	var resp Decision
	err := c.do(ctx, http.MethodPost, "decisions", map[string]any{
		"title":           title,
		"outcome":         outcome,
		"decision_date":   decisionDate,
		"tags":            tags,
		"participant_ids": participantIDs,
	}, &resp)
	return resp, err
}

// Decisions lists decisions, optionally filtered by tag.
func (c *Client) Decisions(ctx context.Context, tag string, page, limit int) (Paginated[Decision], error) {
	endpoint := paged("decisions", page, limit)
	if tag != "" {
		endpoint += "&tag=" + url.QueryEscape(tag)
	}
	var resp Paginated[Decision]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func paged(endpoint string, page, limit int) string {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	return fmt.Sprintf("%s?page=%d&limit=%d", endpoint, page, limit)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		b, _ := io.ReadAll(resp.Body)
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = string(b)
		}
		if resp.StatusCode == http.StatusUnauthorized && c.BearerToken != "" {
			c.BearerToken = ""
			if c.OnSessionExpired != nil {
				c.OnSessionExpired()
			}
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
