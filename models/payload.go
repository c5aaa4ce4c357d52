package models

import "time"

// Event identifies the category of trigger and its sub-action, e.g.
// {pull_request, opened} or {issue_comment, created}. Derived once per run.
type Event struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// Repository identifies the repository the run operates on
type Repository struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	URL           string `json:"url"`
	DefaultBranch string `json:"defaultBranch"`
}

// User represents a GitHub user, used for sender, PR author and comment authors
type User struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	URL       string `json:"url,omitempty"`
}

// BranchRef is one side of a pull request
type BranchRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// PullRequest is the pull-request metadata included in the payload. Head.SHA
// is the pin used for every content lookup so file contents reflect the same
// commit as the diff.
type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    User      `json:"author"`
	URL       string    `json:"url"`
	State     string    `json:"state"`
	Base      BranchRef `json:"base"`
	Head      BranchRef `json:"head"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// File status values reported by the GitHub compare API
const (
	FileStatusAdded     = "added"
	FileStatusModified  = "modified"
	FileStatusRemoved   = "removed"
	FileStatusRenamed   = "renamed"
	FileStatusCopied    = "copied"
	FileStatusChanged   = "changed"
	FileStatusUnchanged = "unchanged"
)

// ChangedFile is one entry of the pull request's changed-file listing.
// Contents is populated only when requested and the file was not removed.
// PreviousPath is populated only for renames.
type ChangedFile struct {
	Path         string `json:"path"`
	Status       string `json:"status"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	Patch        string `json:"patch,omitempty"`
	PreviousPath string `json:"previousPath,omitempty"`
	Contents     string `json:"contents,omitempty"`
}

// Comment types distinguishing the three comment listings merged into the
// payload
const (
	CommentTypeIssue         = "issue"
	CommentTypeReview        = "review"
	CommentTypeReviewSummary = "review_summary"
)

// Comment is a single comment on the pull request. Path and Line are set only
// for inline review comments; State only for review summaries.
type Comment struct {
	ID           int64      `json:"id"`
	Body         string     `json:"body"`
	Author       User       `json:"author"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	Type         string     `json:"type"`
	Path         string     `json:"path,omitempty"`
	Line         int        `json:"line,omitempty"`
	DiffHunk     string     `json:"diffHunk,omitempty"`
	IsSuggestion bool       `json:"isSuggestion,omitempty"`
	State        string     `json:"state,omitempty"`
}

// TriggerPayload is the unit of delivery: the full context assembled for one
// run. Built once, immutable thereafter, sent in a single POST or not at all.
type TriggerPayload struct {
	Event          Event         `json:"event"`
	Repository     Repository    `json:"repository"`
	PullRequest    PullRequest   `json:"pullRequest"`
	Sender         User          `json:"sender"`
	ChangedFiles   []ChangedFile `json:"changedFiles"`
	Comments       []Comment     `json:"comments"`
	TriggerComment *Comment      `json:"triggerComment,omitempty"`
	Diff           string        `json:"diff,omitempty"`
}

// TriggerResponse is the acknowledgment returned by the trigger endpoint
type TriggerResponse struct {
	Success        bool   `json:"success"`
	InvocationID   string `json:"invocationId"`
	ConversationID string `json:"conversationId"`
}

// EventContext is the Event Resolver's output: everything derivable from the
// inbound event body alone.
type EventContext struct {
	Event             Event
	Repository        Repository
	Sender            User
	PullRequestNumber int
	// TriggerCommentID is non-zero only for comment-bearing events
	TriggerCommentID int64
}

// PRContext is the Context Fetcher's output
type PRContext struct {
	PullRequest PullRequest
	// ChangedFiles already reflects the path filter, never the unfiltered set
	ChangedFiles   []ChangedFile
	Comments       []Comment
	TriggerComment *Comment
	Diff           string
}

// TokenExchangeRequest is the body of the token-exchange call
type TokenExchangeRequest struct {
	OIDCToken string `json:"oidc_token"`
	ProjectID string `json:"project_id"`
}

// TokenExchangeResponse is the broker's reply to a token exchange
type TokenExchangeResponse struct {
	Token          string `json:"token"`
	ExpiresAt      string `json:"expires_at"`
	Repository     string `json:"repository"`
	InstallationID int64  `json:"installation_id"`
}

// Skip reasons for successful non-delivery terminations
const (
	SkipReasonNoMatchingFiles = "no-matching-files"
	SkipReasonTitleNoMatch    = "title-no-match"
	SkipReasonBotPRExists     = "bot-pr-exists"
	SkipReasonBotComment      = "inkeep-bot-comment"
)

// RunResult is the outcome of one pipeline run. Exactly one of Skipped or
// Response is meaningful; Outputs holds the action outputs to record either way.
type RunResult struct {
	Skipped    bool
	SkipReason string
	Outputs    map[string]string
	Response   *TriggerResponse
}
