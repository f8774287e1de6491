// ABOUTME: HTTP client for the Strava OAuth and activities API surface.
// ABOUTME: Covers code exchange, token refresh, activity list, and description update.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/suweiran/roast/internal/models"
)

const (
	defaultAPIBase   = "https://www.strava.com/api/v3"
	defaultOAuthBase = "https://www.strava.com/oauth"
	requestTimeout   = 10 * time.Second
)

// AuthError marks a 401/403 from the provider, which almost always means a
// missing OAuth scope rather than a transient failure.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("请求被拒绝（status=%d）：%s", e.StatusCode, e.Message)
}

// Client talks to the Strava API with a bounded per-request timeout.
type Client struct {
	httpClient   *http.Client
	apiBase      string
	oauthBase    string
	clientID     string
	clientSecret string
}

// Option tweaks a Client, mainly so tests can point it at httptest servers.
type Option func(*Client)

// WithAPIBase overrides the activities API base URL.
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithOAuthBase overrides the OAuth endpoint base URL.
func WithOAuthBase(base string) Option {
	return func(c *Client) { c.oauthBase = strings.TrimRight(base, "/") }
}

// NewClient builds a Client for the given OAuth application credentials.
func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: requestTimeout},
		apiBase:      defaultAPIBase,
		oauthBase:    defaultOAuthBase,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthorizeURL builds the browser URL that starts the OAuth consent flow.
func (c *Client) AuthorizeURL(redirectURI, scope, state string) string {
	params := url.Values{
		"client_id":       {c.clientID},
		"redirect_uri":    {redirectURI},
		"response_type":   {"code"},
		"approval_prompt": {"auto"},
		"scope":           {scope},
	}
	if state != "" {
		params.Set("state", state)
	}
	return c.oauthBase + "/authorize?" + params.Encode()
}

// ExchangeCode trades an authorization code for a token payload.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	return c.tokenGrant(ctx, url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
	})
}

// RefreshToken trades a refresh token for a fresh payload.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, fmt.Errorf("缺少 STRAVA_CLIENT_ID 或 STRAVA_CLIENT_SECRET，请在 .env 中配置")
	}
	return c.tokenGrant(ctx, url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

func (c *Client) tokenGrant(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthBase+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 token 接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token 接口返回 %d：%s", resp.StatusCode, errorDetail(resp.Body))
	}
	var t Token
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("解析 token 响应失败: %w", err)
	}
	return &t, nil
}

// FetchActivities lists the athlete's most recent activities. Array members
// that are not JSON objects are dropped, matching how loosely the upstream
// contract is honored elsewhere.
func (c *Client) FetchActivities(ctx context.Context, accessToken string, perPage int) ([]models.Activity, error) {
	u := fmt.Sprintf("%s/athlete/activities?per_page=%d", c.apiBase, perPage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求活动接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    errorDetail(resp.Body) + "。请确认授权时包含 activity:read scope",
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("活动接口返回 %d：%s", resp.StatusCode, errorDetail(resp.Body))
	}

	var raws []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, fmt.Errorf("解析活动响应失败: %w", err)
	}
	activities := make([]models.Activity, 0, len(raws))
	for _, raw := range raws {
		var a models.Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			continue
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// UpdateDescription PUTs a new description onto an activity and returns the
// provider's updated record.
func (c *Client) UpdateDescription(ctx context.Context, accessToken, activityID, description string) (map[string]any, error) {
	form := url.Values{"description": {description}}
	u := fmt.Sprintf("%s/activities/%s", c.apiBase, activityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求更新接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    "更新活动描述被拒绝，确认 token 是否包含 activity:write scope",
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("更新接口返回 %d：%s", resp.StatusCode, errorDetail(resp.Body))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析更新响应失败: %w", err)
	}
	return result, nil
}

// errorDetail pulls the provider's message field out of an error body,
// falling back to the raw text.
func errorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "<empty body>"
	}
	var payload struct {
		Message string `json:"message"`
		Errors  []any  `json:"errors"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Message == "" {
		return strings.TrimSpace(string(data))
	}
	if len(payload.Errors) > 0 {
		return fmt.Sprintf("%s | errors=%v", payload.Message, payload.Errors)
	}
	return payload.Message
}
