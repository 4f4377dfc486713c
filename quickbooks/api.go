package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	authorizeEndpoint = "https://appcenter.intuit.com/connect/oauth2"
	tokenEndpoint     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	revokeEndpoint    = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"

	sandboxAPIBase    = "https://sandbox-quickbooks.api.intuit.com/v3/company"
	productionAPIBase = "https://quickbooks.api.intuit.com/v3/company"

	accountingScope = "com.intuit.quickbooks.accounting"
)

// API is a thin client for the QuickBooks Online OAuth2 and accounting
// endpoints. The environment selects sandbox vs production API base.
type API struct {
	clientID     string
	clientSecret string
	apiBase      string
	tokenURL     string
	revokeURL    string
	http         *http.Client
}

func NewAPIFromEnv() (*API, error) {
	clientID := strings.TrimSpace(os.Getenv("QB_CLIENT_ID"))
	clientSecret := strings.TrimSpace(os.Getenv("QB_CLIENT_SECRET"))
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("QB_CLIENT_ID and QB_CLIENT_SECRET are required")
	}

	apiBase := sandboxAPIBase
	if strings.EqualFold(os.Getenv("QB_ENVIRONMENT"), "production") {
		apiBase = productionAPIBase
	}

	return &API{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiBase:      apiBase,
		tokenURL:     tokenEndpoint,
		revokeURL:    revokeEndpoint,
		http:         &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// AuthorizationURL builds the Intuit consent URL the user is redirected to.
func (a *API) AuthorizationURL(redirectURI string, state string) string {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("response_type", "code")
	q.Set("scope", accountingScope)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return authorizeEndpoint + "?" + q.Encode()
}

// TokenResponse is the Intuit bearer-token payload. Every refresh rotates
// both tokens; callers must persist the new pair before using it.
type TokenResponse struct {
	AccessToken            string `json:"access_token"`
	RefreshToken           string `json:"refresh_token"`
	ExpiresIn              int64  `json:"expires_in"`
	XRefreshTokenExpiresIn int64  `json:"x_refresh_token_expires_in"`
	TokenType              string `json:"token_type"`
}

func (a *API) ExchangeCode(ctx context.Context, code string, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return a.tokenRequest(ctx, form)
}

func (a *API) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return a.tokenRequest(ctx, form)
}

func (a *API) Revoke(ctx context.Context, token string) error {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

func (a *API) tokenRequest(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var token TokenResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" || token.RefreshToken == "" {
		return nil, errors.New("token response missing access or refresh token")
	}
	return &token, nil
}

// CreateJournalEntry posts one journal entry and returns its QuickBooks id.
func (a *API) CreateJournalEntry(ctx context.Context, accessToken string, realmID string, entry *JournalEntry) (string, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/journalentry", a.apiBase, url.PathEscape(realmID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var created struct {
		JournalEntry struct {
			Id string `json:"Id"`
		} `json:"JournalEntry"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("decode journal entry response: %w", err)
	}
	return created.JournalEntry.Id, nil
}

// CompanyName fetches the connected company's display name, stored with the
// token so the UI can show which books the account posts to.
func (a *API) CompanyName(ctx context.Context, accessToken string, realmID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/companyinfo/%s", a.apiBase, url.PathEscape(realmID), url.PathEscape(realmID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var info struct {
		CompanyInfo struct {
			CompanyName string `json:"CompanyName"`
		} `json:"CompanyInfo"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return "", err
	}
	return info.CompanyInfo.CompanyName, nil
}
