package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"inkeep-github-trigger/models"
)

// AuthService defines the interface for obtaining the GitHub access token
// used by every upstream read.
type AuthService interface {
	// GetToken returns the override token verbatim when one is configured,
	// otherwise exchanges a runtime identity assertion with the broker.
	GetToken(ctx context.Context, projectID string) (string, error)
}

// AuthServiceImpl implements the AuthService interface
type AuthServiceImpl struct {
	config *models.Config
	client *http.Client
	logger *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(config *models.Config, logger *zap.Logger) AuthService {
	return &AuthServiceImpl{
		config: config,
		client: &http.Client{},
		logger: logger,
	}
}

// ParseProjectID extracts the project identifier from the trigger URL: the
// path segment immediately following a literal "projects" component.
func ParseProjectID(triggerURL string) (string, error) {
	parsed, err := url.Parse(triggerURL)
	if err != nil {
		return "", models.WrapTriggerError(models.ErrCodeInvalidTriggerURL, err, "trigger-url does not parse")
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "projects" && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], nil
		}
	}

	return "", models.NewTriggerError(models.ErrCodeInvalidTriggerURL,
		"trigger-url %s has no /projects/{id} path segment", sanitizeURL(triggerURL))
}

// GetToken returns the GitHub access token for this run
func (s *AuthServiceImpl) GetToken(ctx context.Context, projectID string) (string, error) {
	if s.config.Inputs.GitHubToken != "" {
		s.logger.Debug("Using github-token input, skipping token exchange")
		return s.config.Inputs.GitHubToken, nil
	}

	assertion, err := s.requestIdentityToken(ctx)
	if err != nil {
		return "", err
	}

	return s.exchangeToken(ctx, assertion, projectID)
}

// requestIdentityToken asks the Actions runtime to mint a short-lived OIDC
// token scoped to the fixed audience.
func (s *AuthServiceImpl) requestIdentityToken(ctx context.Context) (string, error) {
	requestURL := os.Getenv("ACTIONS_ID_TOKEN_REQUEST_URL")
	requestToken := os.Getenv("ACTIONS_ID_TOKEN_REQUEST_TOKEN")
	if requestURL == "" || requestToken == "" {
		return "", models.NewTriggerError(models.ErrCodeMissingIdentityToken,
			"the workflow cannot mint identity tokens; grant `id-token: write` permission to the job or supply a github-token input")
	}

	audienceURL := requestURL + "&audience=" + url.QueryEscape(models.OIDCAudience)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audienceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create identity token request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", requestToken))
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", models.WrapTriggerError(models.ErrCodeMissingIdentityToken, err, "identity token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", models.NewTriggerError(models.ErrCodeMissingIdentityToken,
			"identity token request returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResponse struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", models.WrapTriggerError(models.ErrCodeMissingIdentityToken, err, "failed to decode identity token response")
	}
	if tokenResponse.Value == "" {
		return "", models.NewTriggerError(models.ErrCodeMissingIdentityToken, "identity token response carried no token")
	}

	return tokenResponse.Value, nil
}

// exchangeToken trades the identity assertion for a GitHub access token at
// the broker.
func (s *AuthServiceImpl) exchangeToken(ctx context.Context, assertion, projectID string) (string, error) {
	exchangeURL := strings.TrimSuffix(s.config.Inputs.APIBaseURL, "/") + "/token-exchange"

	payload := models.TokenExchangeRequest{
		OIDCToken: assertion,
		ProjectID: projectID,
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, exchangeURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", models.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", models.WrapTriggerError(models.ErrCodeTokenExchangeFailed, err, "token exchange request failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", models.NewTriggerError(models.ErrCodeTokenValidationFailed,
			"the broker rejected the identity token: %s", string(body))
	case resp.StatusCode == http.StatusForbidden:
		return "", models.NewTriggerError(models.ErrCodeAppNotInstalled,
			"the Inkeep GitHub app is not installed for project %s: %s", projectID, string(body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", models.NewTriggerError(models.ErrCodeTokenExchangeFailed,
			"token exchange returned status %d: %s", resp.StatusCode, string(body))
	}

	var exchangeResponse models.TokenExchangeResponse
	if err := json.Unmarshal(body, &exchangeResponse); err != nil {
		return "", models.WrapTriggerError(models.ErrCodeTokenExchangeFailed, err, "failed to decode token exchange response")
	}
	if exchangeResponse.Token == "" {
		return "", models.NewTriggerError(models.ErrCodeTokenExchangeFailed, "token exchange response carried no token")
	}

	s.logger.Info("Exchanged identity token",
		zap.String("repository", exchangeResponse.Repository),
		zap.Int64("installationId", exchangeResponse.InstallationID),
		zap.String("expiresAt", exchangeResponse.ExpiresAt))

	return exchangeResponse.Token, nil
}

// sanitizeURL strips the query string so secrets embedded in it never reach
// logs or error messages.
func sanitizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		if i := strings.IndexByte(rawURL, '?'); i >= 0 {
			return rawURL[:i]
		}
		return rawURL
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}
