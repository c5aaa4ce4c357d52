package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/go-github/v75/github"
	"go.uber.org/zap"

	"inkeep-github-trigger/models"
)

// FetchOptions controls what the Context Fetcher gathers beyond the pull
// request metadata.
type FetchOptions struct {
	// PathFilter restricts the changed-file listing; applied per page so
	// very large pull requests never materialize the unfiltered set.
	PathFilter string

	// IncludeContents fetches blob contents at head.sha for surviving files
	IncludeContents bool

	// IncludeDiff fetches the unified diff via content negotiation
	IncludeDiff bool

	// TriggerCommentID marks the comment that caused this run, if any
	TriggerCommentID int64
}

// ContextFetcherService defines the interface for gathering a pull request's
// diff-adjacent state from the GitHub API.
type ContextFetcherService interface {
	// Fetch retrieves PR metadata, changed files and comments for one run
	Fetch(ctx context.Context, owner, repo string, prNumber int, opts FetchOptions) (*models.PRContext, error)
}

// ContextFetcherServiceImpl implements the ContextFetcherService interface
type ContextFetcherServiceImpl struct {
	client *github.Client
	logger *zap.Logger
}

// NewContextFetcherService creates a new ContextFetcherService
func NewContextFetcherService(client *github.Client, logger *zap.Logger) ContextFetcherService {
	return &ContextFetcherServiceImpl{
		client: client,
		logger: logger,
	}
}

// Fetch retrieves PR metadata, changed files and comments for one run
func (s *ContextFetcherServiceImpl) Fetch(ctx context.Context, owner, repo string, prNumber int, opts FetchOptions) (*models.PRContext, error) {
	// Metadata first: head.sha pins every subsequent content lookup to the
	// same commit the diff was computed against.
	pr, _, err := s.client.PullRequests.Get(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeUpstreamFetchFailed, err,
			"failed to fetch pull request %s/%s#%d", owner, repo, prNumber)
	}

	prContext := &models.PRContext{
		PullRequest: convertPullRequest(pr),
	}
	headSHA := prContext.PullRequest.Head.SHA

	// The file and comment listings paginate independently; run them
	// concurrently. Each listing is internally sequential because every
	// page's cursor depends on the previous one.
	var wg sync.WaitGroup
	var files []models.ChangedFile
	var comments []models.Comment
	var filesErr, commentsErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		files, filesErr = s.fetchChangedFiles(ctx, owner, repo, prNumber, opts.PathFilter)
	}()
	go func() {
		defer wg.Done()
		comments, commentsErr = s.fetchComments(ctx, owner, repo, prNumber)
	}()
	wg.Wait()

	if filesErr != nil {
		return nil, filesErr
	}
	if commentsErr != nil {
		return nil, commentsErr
	}

	prContext.ChangedFiles = files
	prContext.Comments = comments

	if opts.TriggerCommentID != 0 {
		for i := range prContext.Comments {
			if prContext.Comments[i].ID == opts.TriggerCommentID {
				prContext.TriggerComment = &prContext.Comments[i]
				break
			}
		}
		if prContext.TriggerComment == nil {
			s.logger.Warn("Trigger comment not found in comment listings",
				zap.Int64("triggerCommentId", opts.TriggerCommentID))
		}
	}

	if opts.IncludeContents {
		s.fetchFileContents(ctx, owner, repo, headSHA, prContext.ChangedFiles)
	}

	if opts.IncludeDiff {
		diff, _, err := s.client.PullRequests.GetRaw(ctx, owner, repo, prNumber, github.RawOptions{Type: github.Diff})
		if err != nil {
			return nil, models.WrapTriggerError(models.ErrCodeUpstreamFetchFailed, err,
				"failed to fetch diff for %s/%s#%d", owner, repo, prNumber)
		}
		prContext.Diff = diff
	}

	s.logger.Info("Fetched pull request context",
		zap.Int("prNumber", prNumber),
		zap.Int("changedFiles", len(prContext.ChangedFiles)),
		zap.Int("comments", len(prContext.Comments)),
		zap.Bool("triggerCommentFound", prContext.TriggerComment != nil))

	return prContext, nil
}

// fetchChangedFiles paginates the changed-file listing, filtering each page
// before accumulating so the unfiltered superset is never held in memory.
func (s *ContextFetcherServiceImpl) fetchChangedFiles(ctx context.Context, owner, repo string, prNumber int, pathFilter string) ([]models.ChangedFile, error) {
	var files []models.ChangedFile
	opts := &github.ListOptions{PerPage: models.PageSize}

	for {
		page, resp, err := s.client.PullRequests.ListFiles(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, models.WrapTriggerError(models.ErrCodeUpstreamFetchFailed, err,
				"failed to list changed files for %s/%s#%d", owner, repo, prNumber)
		}

		for _, file := range page {
			if pathFilter != "" && !MatchPath(pathFilter, file.GetFilename()) {
				continue
			}
			files = append(files, convertChangedFile(file))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// fetchComments merges the issue-comment listing, the inline review-comment
// listing and the review summaries into one sequence, in fetch order.
func (s *ContextFetcherServiceImpl) fetchComments(ctx context.Context, owner, repo string, prNumber int) ([]models.Comment, error) {
	var comments []models.Comment

	issueOpts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: models.PageSize},
	}
	for {
		page, resp, err := s.client.Issues.ListComments(ctx, owner, repo, prNumber, issueOpts)
		if err != nil {
			return nil, models.WrapTriggerError(models.ErrCodeUpstreamFetchFailed, err,
				"failed to list issue comments for %s/%s#%d", owner, repo, prNumber)
		}
		for _, comment := range page {
			comments = append(comments, convertIssueComment(comment))
		}
		if resp.NextPage == 0 {
			break
		}
		issueOpts.Page = resp.NextPage
	}

	reviewCommentOpts := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: models.PageSize},
	}
	for {
		page, resp, err := s.client.PullRequests.ListComments(ctx, owner, repo, prNumber, reviewCommentOpts)
		if err != nil {
			return nil, models.WrapTriggerError(models.ErrCodeUpstreamFetchFailed, err,
				"failed to list review comments for %s/%s#%d", owner, repo, prNumber)
		}
		for _, comment := range page {
			comments = append(comments, convertReviewComment(comment))
		}
		if resp.NextPage == 0 {
			break
		}
		reviewCommentOpts.Page = resp.NextPage
	}

	reviewOpts := &github.ListOptions{PerPage: models.PageSize}
	for {
		page, resp, err := s.client.PullRequests.ListReviews(ctx, owner, repo, prNumber, reviewOpts)
		if err != nil {
			return nil, models.WrapTriggerError(models.ErrCodeUpstreamFetchFailed, err,
				"failed to list reviews for %s/%s#%d", owner, repo, prNumber)
		}
		for _, review := range page {
			comments = append(comments, convertReviewSummary(review))
		}
		if resp.NextPage == 0 {
			break
		}
		reviewOpts.Page = resp.NextPage
	}

	return comments, nil
}

// fetchFileContents populates Contents for every non-removed file, pinned at
// head.sha. A single file failing is logged and skipped, never fatal.
func (s *ContextFetcherServiceImpl) fetchFileContents(ctx context.Context, owner, repo, headSHA string, files []models.ChangedFile) {
	for i := range files {
		if files[i].Status == models.FileStatusRemoved {
			continue
		}

		fileContent, _, _, err := s.client.Repositories.GetContents(ctx, owner, repo, files[i].Path,
			&github.RepositoryContentGetOptions{Ref: headSHA})
		if err != nil {
			s.logger.Warn("Failed to fetch file contents, leaving unset",
				zap.String("path", files[i].Path),
				zap.String("ref", headSHA),
				zap.Error(err))
			continue
		}
		if fileContent == nil {
			s.logger.Warn("Path is not a file, leaving contents unset",
				zap.String("path", files[i].Path))
			continue
		}

		content, err := fileContent.GetContent()
		if err != nil {
			s.logger.Warn("Failed to decode file contents, leaving unset",
				zap.String("path", files[i].Path),
				zap.Error(err))
			continue
		}
		files[i].Contents = content
	}
}

func convertPullRequest(pr *github.PullRequest) models.PullRequest {
	return models.PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		Author: convertUser(pr.GetUser()),
		URL:    pr.GetHTMLURL(),
		State:  pr.GetState(),
		Base: models.BranchRef{
			Ref: pr.GetBase().GetRef(),
			SHA: pr.GetBase().GetSHA(),
		},
		Head: models.BranchRef{
			Ref: pr.GetHead().GetRef(),
			SHA: pr.GetHead().GetSHA(),
		},
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
}

func convertChangedFile(file *github.CommitFile) models.ChangedFile {
	changed := models.ChangedFile{
		Path:      file.GetFilename(),
		Status:    file.GetStatus(),
		Additions: file.GetAdditions(),
		Deletions: file.GetDeletions(),
		Patch:     file.GetPatch(),
	}
	if file.GetStatus() == models.FileStatusRenamed {
		changed.PreviousPath = file.GetPreviousFilename()
	}
	return changed
}

func convertIssueComment(comment *github.IssueComment) models.Comment {
	converted := models.Comment{
		ID:        comment.GetID(),
		Body:      comment.GetBody(),
		Author:    convertUser(comment.GetUser()),
		CreatedAt: comment.GetCreatedAt().Time,
		Type:      models.CommentTypeIssue,
	}
	if comment.UpdatedAt != nil {
		updated := comment.GetUpdatedAt().Time
		converted.UpdatedAt = &updated
	}
	return converted
}

func convertReviewComment(comment *github.PullRequestComment) models.Comment {
	converted := models.Comment{
		ID:           comment.GetID(),
		Body:         comment.GetBody(),
		Author:       convertUser(comment.GetUser()),
		CreatedAt:    comment.GetCreatedAt().Time,
		Type:         models.CommentTypeReview,
		Path:         comment.GetPath(),
		Line:         comment.GetLine(),
		DiffHunk:     comment.GetDiffHunk(),
		IsSuggestion: strings.Contains(comment.GetBody(), "```suggestion"),
	}
	if comment.UpdatedAt != nil {
		updated := comment.GetUpdatedAt().Time
		converted.UpdatedAt = &updated
	}
	return converted
}

func convertReviewSummary(review *github.PullRequestReview) models.Comment {
	return models.Comment{
		ID:        review.GetID(),
		Body:      review.GetBody(),
		Author:    convertUser(review.GetUser()),
		CreatedAt: review.GetSubmittedAt().Time,
		Type:      models.CommentTypeReviewSummary,
		State:     review.GetState(),
	}
}
