package services

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"inkeep-github-trigger/models"
)

// TriggerProcessor defines the interface for running the full pipeline for
// one inbound event.
type TriggerProcessor interface {
	// Process runs resolver → loop guard → fetcher → filters → builder →
	// dispatcher for one event and reports the outcome.
	Process(ctx context.Context, eventContext *models.EventContext) (*models.RunResult, error)
}

// TriggerProcessorImpl implements the TriggerProcessor interface
type TriggerProcessorImpl struct {
	loopGuard      LoopGuardService
	contextFetcher ContextFetcherService
	dispatcher     DispatcherService
	config         *models.Config
	logger         *zap.Logger
}

// NewTriggerProcessor creates a new TriggerProcessor
func NewTriggerProcessor(
	loopGuard LoopGuardService,
	contextFetcher ContextFetcherService,
	dispatcher DispatcherService,
	config *models.Config,
	logger *zap.Logger,
) TriggerProcessor {
	return &TriggerProcessorImpl{
		loopGuard:      loopGuard,
		contextFetcher: contextFetcher,
		dispatcher:     dispatcher,
		config:         config,
		logger:         logger,
	}
}

// Process runs the pipeline for one resolved event
func (p *TriggerProcessorImpl) Process(ctx context.Context, eventContext *models.EventContext) (*models.RunResult, error) {
	owner := eventContext.Repository.Owner
	repo := eventContext.Repository.Name
	prNumber := eventContext.PullRequestNumber

	p.logger.Info("Processing trigger",
		zap.String("event", eventContext.Event.Type),
		zap.String("action", eventContext.Event.Action),
		zap.String("repository", eventContext.Repository.FullName),
		zap.Int("prNumber", prNumber))

	// A companion pull request left over from a prior run means the agent
	// already acted on this PR; re-triggering would loop.
	existing, err := p.loopGuard.FindExistingBotPR(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return skipResult(models.SkipReasonBotPRExists, map[string]string{
			"existing-bot-pr-number": strconv.Itoa(existing.Number),
			"existing-bot-pr-url":    existing.URL,
		}), nil
	}

	prContext, err := p.contextFetcher.Fetch(ctx, owner, repo, prNumber, FetchOptions{
		PathFilter:       p.config.Inputs.PathFilter,
		IncludeContents:  p.config.Inputs.IncludeFileContents,
		IncludeDiff:      p.config.Inputs.IncludeDiff,
		TriggerCommentID: eventContext.TriggerCommentID,
	})
	if err != nil {
		return nil, err
	}

	// The comment-author check needs the fetched trigger comment, so it runs
	// here rather than with the companion-PR check.
	if p.loopGuard.IsBotComment(prContext.TriggerComment) {
		return skipResult(models.SkipReasonBotComment, nil), nil
	}

	// The fetcher already filtered per page with the same predicate; this
	// pass is the authoritative check and decides the skip.
	prContext.ChangedFiles = FilterFiles(p.config.Inputs.PathFilter, prContext.ChangedFiles)
	if p.config.Inputs.PathFilter != "" && len(prContext.ChangedFiles) == 0 {
		return skipResult(models.SkipReasonNoMatchingFiles, nil), nil
	}

	if !MatchTitle(p.config.Inputs.PRTitleRegex, prContext.PullRequest.Title) {
		return skipResult(models.SkipReasonTitleNoMatch, nil), nil
	}

	payload, err := BuildTriggerPayload(eventContext, prContext)
	if err != nil {
		return nil, err
	}

	response, err := p.dispatcher.Send(ctx, p.config.Inputs.TriggerURL, payload, p.config.Inputs.SigningSecret)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Trigger accepted",
		zap.Bool("success", response.Success),
		zap.String("invocationId", response.InvocationID),
		zap.String("conversationId", response.ConversationID))

	return &models.RunResult{
		Response: response,
		Outputs: map[string]string{
			"invocation-id":   response.InvocationID,
			"conversation-id": response.ConversationID,
		},
	}, nil
}

func skipResult(reason string, extra map[string]string) *models.RunResult {
	outputs := map[string]string{
		"skipped":     "true",
		"skip-reason": reason,
	}
	for key, value := range extra {
		outputs[key] = value
	}
	return &models.RunResult{
		Skipped:    true,
		SkipReason: reason,
		Outputs:    outputs,
	}
}
