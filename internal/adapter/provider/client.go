package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Teamie71/folioo-server/internal/config"
	"github.com/Teamie71/folioo-server/internal/domain/authn"
)

// Profile is the normalized identity returned by the provider profile endpoint.
type Profile struct {
	ProviderUserID string
	Email          string
	Nickname       string
	AvatarURL      string
}

// Client encapsulates outbound HTTP calls to the external identity provider.
type Client interface {
	BuildAuthorizeURL(state, redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
	FetchProfile(ctx context.Context, providerAccessToken string) (*Profile, error)
	Unlink(ctx context.Context, targetProviderID string) error
}

// HTTPClient is the default HTTP implementation of Client.
type HTTPClient struct {
	cfg        config.Config
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default provider client.
func NewHTTPClient(cfg config.Config, client *http.Client) *HTTPClient {
	if client == nil {
		timeout := cfg.ProviderTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{cfg: cfg, httpClient: client}
}

// BuildAuthorizeURL returns the provider authorize URL with state and
// redirect URI embedded. Pure, no network I/O.
func (c *HTTPClient) BuildAuthorizeURL(state, redirectURI string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.cfg.ProviderClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	return c.cfg.ProviderAuthorizeURL + "?" + params.Encode()
}

// ExchangeCode swaps the authorization code for a provider access token.
func (c *HTTPClient) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", c.cfg.ProviderClientID)
	data.Set("redirect_uri", redirectURI)
	data.Set("code", code)
	if c.cfg.ProviderClientSecret != "" {
		data.Set("client_secret", c.cfg.ProviderClientSecret)
	}

	body, err := c.postForm(ctx, "exchange", c.cfg.ProviderTokenURL, data, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &authn.ProviderError{Op: "exchange", Err: fmt.Errorf("decode token response: %w", err)}
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return "", &authn.ProviderError{Op: "exchange", Err: fmt.Errorf("empty access_token in response")}
	}
	return resp.AccessToken, nil
}

// FetchProfile loads the user profile with the provider access token.
func (c *HTTPClient) FetchProfile(ctx context.Context, providerAccessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ProviderProfileURL, nil)
	if err != nil {
		return nil, &authn.ProviderError{Op: "profile", Err: fmt.Errorf("build profile request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+providerAccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &authn.ProviderError{Op: "profile", Err: fmt.Errorf("profile request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &authn.ProviderError{Op: "profile", Err: fmt.Errorf("read profile response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return nil, &authn.ProviderError{Op: "profile", Status: resp.StatusCode}
	}

	var raw struct {
		ID      json.Number `json:"id"`
		Account struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &authn.ProviderError{Op: "profile", Err: fmt.Errorf("decode profile: %w", err)}
	}
	if raw.ID.String() == "" {
		return nil, &authn.ProviderError{Op: "profile", Err: fmt.Errorf("missing user id in profile")}
	}

	return &Profile{
		ProviderUserID: raw.ID.String(),
		Email:          raw.Account.Email,
		Nickname:       raw.Account.Profile.Nickname,
		AvatarURL:      raw.Account.Profile.ProfileImageURL,
	}, nil
}

// Unlink severs the provider-side link using the admin key.
func (c *HTTPClient) Unlink(ctx context.Context, targetProviderID string) error {
	data := url.Values{}
	data.Set("target_id_type", "user_id")
	data.Set("target_id", targetProviderID)

	headers := map[string]string{"Authorization": "KakaoAK " + c.cfg.ProviderAdminKey}
	if _, err := c.postForm(ctx, "unlink", c.cfg.ProviderUnlinkURL, data, headers); err != nil {
		return err
	}
	return nil
}

func (c *HTTPClient) postForm(ctx context.Context, op, endpoint string, data url.Values, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &authn.ProviderError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &authn.ProviderError{Op: op, Err: fmt.Errorf("request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &authn.ProviderError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return nil, &authn.ProviderError{Op: op, Status: resp.StatusCode}
	}
	return body, nil
}
