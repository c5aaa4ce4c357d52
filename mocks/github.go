package mocks

import (
	"context"

	"inkeep-github-trigger/models"
	"inkeep-github-trigger/services"
)

// MockLoopGuardService is a mock implementation of the LoopGuardService interface
type MockLoopGuardService struct {
	FindExistingBotPRFunc func(ctx context.Context, owner, repo string, prNumber int) (*services.ExistingBotPR, error)
	IsBotCommentFunc      func(comment *models.Comment) bool
}

// FindExistingBotPR is the mock implementation of LoopGuardService's FindExistingBotPR method
func (m *MockLoopGuardService) FindExistingBotPR(ctx context.Context, owner, repo string, prNumber int) (*services.ExistingBotPR, error) {
	if m.FindExistingBotPRFunc != nil {
		return m.FindExistingBotPRFunc(ctx, owner, repo, prNumber)
	}
	return nil, nil
}

// IsBotComment is the mock implementation of LoopGuardService's IsBotComment method
func (m *MockLoopGuardService) IsBotComment(comment *models.Comment) bool {
	if m.IsBotCommentFunc != nil {
		return m.IsBotCommentFunc(comment)
	}
	if comment == nil {
		return false
	}
	return comment.Author.Login == models.BotLogin
}

// MockContextFetcherService is a mock implementation of the ContextFetcherService interface
type MockContextFetcherService struct {
	FetchFunc func(ctx context.Context, owner, repo string, prNumber int, opts services.FetchOptions) (*models.PRContext, error)
}

// Fetch is the mock implementation of ContextFetcherService's Fetch method
func (m *MockContextFetcherService) Fetch(ctx context.Context, owner, repo string, prNumber int, opts services.FetchOptions) (*models.PRContext, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, owner, repo, prNumber, opts)
	}
	return &models.PRContext{}, nil
}

// MockDispatcherService is a mock implementation of the DispatcherService interface
type MockDispatcherService struct {
	SendFunc func(ctx context.Context, triggerURL string, payload *models.TriggerPayload, signingSecret string) (*models.TriggerResponse, error)

	// SentPayloads records every payload passed to Send
	SentPayloads []*models.TriggerPayload
}

// Send is the mock implementation of DispatcherService's Send method
func (m *MockDispatcherService) Send(ctx context.Context, triggerURL string, payload *models.TriggerPayload, signingSecret string) (*models.TriggerResponse, error) {
	m.SentPayloads = append(m.SentPayloads, payload)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, triggerURL, payload, signingSecret)
	}
	return &models.TriggerResponse{Success: true, InvocationID: "mock-invocation", ConversationID: "mock-conversation"}, nil
}

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	GetTokenFunc func(ctx context.Context, projectID string) (string, error)
}

// GetToken is the mock implementation of AuthService's GetToken method
func (m *MockAuthService) GetToken(ctx context.Context, projectID string) (string, error) {
	if m.GetTokenFunc != nil {
		return m.GetTokenFunc(ctx, projectID)
	}
	return "mock-token", nil
}
