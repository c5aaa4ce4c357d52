package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

// NewGitHubClient creates an authenticated go-github client. apiURL overrides
// the API endpoint (tests point it at a local server); empty means github.com.
func NewGitHubClient(ctx context.Context, token, apiURL string) (*github.Client, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, tokenSource))

	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		var err error
		client, err = client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("failed to set GitHub API base URL: %w", err)
		}
	}

	return client, nil
}
