package services

import (
	"encoding/json"

	"github.com/google/go-github/v75/github"
	"go.uber.org/zap"

	"inkeep-github-trigger/models"
)

// Supported webhook event names. The set is closed: anything else is an
// unsupported event, not a silently ignored one.
const (
	EventPullRequest              = "pull_request"
	EventPullRequestReview        = "pull_request_review"
	EventIssueComment             = "issue_comment"
	EventPullRequestReviewComment = "pull_request_review_comment"
)

// EventResolverService defines the interface for resolving the inbound event
// into the repository, sender, pull request number and trigger comment.
type EventResolverService interface {
	// Resolve parses the raw event body for the given event name
	Resolve(eventName string, payload []byte) (*models.EventContext, error)
}

// EventResolverServiceImpl implements the EventResolverService interface
type EventResolverServiceImpl struct {
	logger *zap.Logger
}

// NewEventResolverService creates a new EventResolverService
func NewEventResolverService(logger *zap.Logger) EventResolverService {
	return &EventResolverServiceImpl{logger: logger}
}

// Resolve parses the raw event body for the given event name
func (s *EventResolverServiceImpl) Resolve(eventName string, payload []byte) (*models.EventContext, error) {
	switch eventName {
	case EventPullRequest:
		return s.resolvePullRequest(payload)
	case EventPullRequestReview:
		return s.resolveReview(payload)
	case EventIssueComment:
		return s.resolveIssueComment(payload)
	case EventPullRequestReviewComment:
		return s.resolveReviewComment(payload)
	default:
		return nil, models.NewTriggerError(models.ErrCodeUnsupportedEvent,
			"event %q is not supported; supported events are pull_request, pull_request_review, issue_comment, pull_request_review_comment", eventName)
	}
}

func (s *EventResolverServiceImpl) resolvePullRequest(payload []byte) (*models.EventContext, error) {
	var event github.PullRequestEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeMalformedEvent, err, "failed to parse pull_request event")
	}

	ctx, err := s.newEventContext(EventPullRequest, event.GetAction(), event.GetRepo(), event.GetSender())
	if err != nil {
		return nil, err
	}

	if event.GetPullRequest().GetNumber() == 0 {
		return nil, models.NewTriggerError(models.ErrCodeMissingPullRequestNumber,
			"pull_request event carries no pull request number")
	}
	ctx.PullRequestNumber = event.GetPullRequest().GetNumber()

	return ctx, nil
}

func (s *EventResolverServiceImpl) resolveReview(payload []byte) (*models.EventContext, error) {
	var event github.PullRequestReviewEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeMalformedEvent, err, "failed to parse pull_request_review event")
	}

	ctx, err := s.newEventContext(EventPullRequestReview, event.GetAction(), event.GetRepo(), event.GetSender())
	if err != nil {
		return nil, err
	}

	if event.GetPullRequest().GetNumber() == 0 {
		return nil, models.NewTriggerError(models.ErrCodeMissingPullRequestNumber,
			"pull_request_review event carries no pull request number")
	}
	ctx.PullRequestNumber = event.GetPullRequest().GetNumber()
	ctx.TriggerCommentID = event.GetReview().GetID()

	return ctx, nil
}

func (s *EventResolverServiceImpl) resolveIssueComment(payload []byte) (*models.EventContext, error) {
	var event github.IssueCommentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeMalformedEvent, err, "failed to parse issue_comment event")
	}

	ctx, err := s.newEventContext(EventIssueComment, event.GetAction(), event.GetRepo(), event.GetSender())
	if err != nil {
		return nil, err
	}

	issue := event.GetIssue()
	if issue == nil {
		return nil, models.NewTriggerError(models.ErrCodeMalformedEvent, "issue_comment event carries no issue")
	}

	// Issue comments fire for plain issues too; only comments on pull
	// requests (issues with a pull_request back-reference) are actionable.
	if issue.PullRequestLinks == nil {
		return nil, models.NewTriggerError(models.ErrCodeNotAPullRequest,
			"comment on issue #%d does not belong to a pull request", issue.GetNumber())
	}

	if issue.GetNumber() == 0 {
		return nil, models.NewTriggerError(models.ErrCodeMissingPullRequestNumber,
			"issue_comment event carries no issue number")
	}
	ctx.PullRequestNumber = issue.GetNumber()
	ctx.TriggerCommentID = event.GetComment().GetID()

	return ctx, nil
}

func (s *EventResolverServiceImpl) resolveReviewComment(payload []byte) (*models.EventContext, error) {
	var event github.PullRequestReviewCommentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeMalformedEvent, err, "failed to parse pull_request_review_comment event")
	}

	ctx, err := s.newEventContext(EventPullRequestReviewComment, event.GetAction(), event.GetRepo(), event.GetSender())
	if err != nil {
		return nil, err
	}

	if event.GetPullRequest().GetNumber() == 0 {
		return nil, models.NewTriggerError(models.ErrCodeMissingPullRequestNumber,
			"pull_request_review_comment event carries no pull request number")
	}
	ctx.PullRequestNumber = event.GetPullRequest().GetNumber()
	ctx.TriggerCommentID = event.GetComment().GetID()

	return ctx, nil
}

// newEventContext builds the common part of the context and rejects events
// missing their repository or sender blocks.
func (s *EventResolverServiceImpl) newEventContext(eventType, action string, repo *github.Repository, sender *github.User) (*models.EventContext, error) {
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, models.NewTriggerError(models.ErrCodeMalformedEvent, "%s event carries no repository", eventType)
	}
	if sender == nil || sender.GetLogin() == "" {
		return nil, models.NewTriggerError(models.ErrCodeMalformedEvent, "%s event carries no sender", eventType)
	}

	s.logger.Debug("Resolved event",
		zap.String("event", eventType),
		zap.String("action", action),
		zap.String("repository", repo.GetFullName()),
		zap.String("sender", sender.GetLogin()))

	return &models.EventContext{
		Event: models.Event{
			Type:   eventType,
			Action: action,
		},
		Repository: models.Repository{
			Owner:         repo.GetOwner().GetLogin(),
			Name:          repo.GetName(),
			FullName:      repo.GetFullName(),
			URL:           repo.GetHTMLURL(),
			DefaultBranch: repo.GetDefaultBranch(),
		},
		Sender: convertUser(sender),
	}, nil
}

// convertUser maps a go-github user onto the payload user model
func convertUser(user *github.User) models.User {
	return models.User{
		Login:     user.GetLogin(),
		ID:        user.GetID(),
		AvatarURL: user.GetAvatarURL(),
		URL:       user.GetHTMLURL(),
	}
}
