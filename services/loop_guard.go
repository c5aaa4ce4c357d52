package services

import (
	"context"
	"fmt"

	"github.com/google/go-github/v75/github"
	"go.uber.org/zap"

	"inkeep-github-trigger/models"
)

// ExistingBotPR describes a pull request the agent previously opened in
// response to the current one.
type ExistingBotPR struct {
	Number int
	URL    string
}

// LoopGuardService defines the interface for the anti-feedback-loop checks.
// These are cost controls, not security controls: either check truncates the
// run with a skip, never with an error.
type LoopGuardService interface {
	// FindExistingBotPR searches for an open pull request authored by the
	// agent that references prNumber. Returns nil when there is none.
	FindExistingBotPR(ctx context.Context, owner, repo string, prNumber int) (*ExistingBotPR, error)

	// IsBotComment reports whether the given comment was authored by the
	// agent itself.
	IsBotComment(comment *models.Comment) bool
}

// LoopGuardServiceImpl implements the LoopGuardService interface
type LoopGuardServiceImpl struct {
	client *github.Client
	logger *zap.Logger
}

// NewLoopGuardService creates a new LoopGuardService
func NewLoopGuardService(client *github.Client, logger *zap.Logger) LoopGuardService {
	return &LoopGuardServiceImpl{
		client: client,
		logger: logger,
	}
}

// FindExistingBotPR searches for an open agent-authored pull request
// referencing the current one.
func (s *LoopGuardServiceImpl) FindExistingBotPR(ctx context.Context, owner, repo string, prNumber int) (*ExistingBotPR, error) {
	query := fmt.Sprintf(`repo:%s/%s is:pr is:open author:%s "#%d" in:body`,
		owner, repo, models.BotLogin, prNumber)

	result, _, err := s.client.Search.Issues(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		// Search availability must not block the run; the check is advisory.
		s.logger.Warn("Companion PR search failed, continuing without the check", zap.Error(err))
		return nil, nil
	}

	for _, issue := range result.Issues {
		if issue.IsPullRequest() {
			s.logger.Info("Found existing agent pull request",
				zap.Int("number", issue.GetNumber()),
				zap.String("url", issue.GetHTMLURL()))
			return &ExistingBotPR{
				Number: issue.GetNumber(),
				URL:    issue.GetHTMLURL(),
			}, nil
		}
	}

	return nil, nil
}

// IsBotComment reports whether the comment was authored by the agent itself
func (s *LoopGuardServiceImpl) IsBotComment(comment *models.Comment) bool {
	if comment == nil {
		return false
	}
	return comment.Author.Login == models.BotLogin
}
