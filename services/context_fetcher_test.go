package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"inkeep-github-trigger/models"
)

const testHeadSHA = "abc123def456"

// newGitHubTestServer builds an httptest server speaking just enough of the
// GitHub REST API for the fetcher, plus a client pointed at it.
func newGitHubTestServer(t *testing.T, mux *http.ServeMux) (*httptest.Server, *ContextFetcherServiceImpl) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewGitHubClient(context.Background(), "test-token", server.URL)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	return server, &ContextFetcherServiceImpl{client: client, logger: zap.NewNop()}
}

func writePRMetadata(w http.ResponseWriter) {
	fmt.Fprintf(w, `{
		"number": 42,
		"title": "Add retry logic",
		"body": "Adds retries to the fetch layer",
		"state": "open",
		"html_url": "https://github.com/acme/widgets/pull/42",
		"user": {"login": "octocat", "id": 1},
		"base": {"ref": "main", "sha": "base000"},
		"head": {"ref": "feature/retries", "sha": %q},
		"created_at": "2026-01-01T10:00:00Z",
		"updated_at": "2026-01-02T10:00:00Z"
	}`, testHeadSHA)
}

// filesHandler serves the given pages of file listings with Link-header
// pagination.
func filesHandler(server func() *httptest.Server, pages [][]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
		}
		if page < len(pages) {
			w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=%d>; rel="next"`, server().URL, r.URL.Path, page+1))
		}
		var entries []string
		for _, path := range pages[page-1] {
			entries = append(entries, fmt.Sprintf(`{"filename": %q, "status": "modified", "additions": 3, "deletions": 1, "patch": "@@ -1 +1 @@"}`, path))
		}
		fmt.Fprintf(w, "[%s]", strings.Join(entries, ","))
	}
}

func emptyListHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "[]")
}

func TestFetch_FilePaginationAccumulatesAllPagesOnce(t *testing.T) {
	pages := [][]string{
		{"src/a.go", "README.md"},
		{"src/b.go", "docs/guide.md"},
		{"src/c/d.go"},
	}

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) { writePRMetadata(w) })
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/files", filesHandler(func() *httptest.Server { return server }, pages))
	mux.HandleFunc("/api/v3/repos/acme/widgets/issues/42/comments", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/comments", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/reviews", emptyListHandler)

	server, fetcher := newGitHubTestServer(t, mux)

	prContext, err := fetcher.Fetch(context.Background(), "acme", "widgets", 42, FetchOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{"src/a.go", "README.md", "src/b.go", "docs/guide.md", "src/c/d.go"}
	if len(prContext.ChangedFiles) != len(expected) {
		t.Fatalf("Expected %d files, got %d", len(expected), len(prContext.ChangedFiles))
	}
	seen := map[string]int{}
	for _, file := range prContext.ChangedFiles {
		seen[file.Path]++
	}
	for _, path := range expected {
		if seen[path] != 1 {
			t.Errorf("Expected %s exactly once, got %d", path, seen[path])
		}
	}

	if prContext.PullRequest.Head.SHA != testHeadSHA {
		t.Errorf("Expected head sha %s, got %s", testHeadSHA, prContext.PullRequest.Head.SHA)
	}
}

func TestFetch_PathFilterAppliedPerPage(t *testing.T) {
	pages := [][]string{
		{"src/a.go", "README.md"},
		{"src/b.go", "docs/guide.md"},
		{"src/c/d.go"},
	}

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) { writePRMetadata(w) })
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/files", filesHandler(func() *httptest.Server { return server }, pages))
	mux.HandleFunc("/api/v3/repos/acme/widgets/issues/42/comments", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/comments", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/reviews", emptyListHandler)

	server, fetcher := newGitHubTestServer(t, mux)

	prContext, err := fetcher.Fetch(context.Background(), "acme", "widgets", 42, FetchOptions{PathFilter: "src/**"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{"src/a.go", "src/b.go", "src/c/d.go"}
	if len(prContext.ChangedFiles) != len(expected) {
		t.Fatalf("Expected %d files, got %d: %+v", len(expected), len(prContext.ChangedFiles), prContext.ChangedFiles)
	}
	for i, path := range expected {
		if prContext.ChangedFiles[i].Path != path {
			t.Errorf("Expected file %d to be %s, got %s", i, path, prContext.ChangedFiles[i].Path)
		}
		if !MatchPath("src/**", prContext.ChangedFiles[i].Path) {
			t.Errorf("Surviving file %s does not match the filter", prContext.ChangedFiles[i].Path)
		}
	}
}

func TestFetch_CommentsMergedAndTriggerMarked(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) { writePRMetadata(w) })
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/files", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 100, "body": "general comment", "user": {"login": "octocat", "id": 1}, "created_at": "2026-01-01T10:00:00Z"}
		]`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 200, "body": "inline note", "path": "src/a.go", "line": 12, "diff_hunk": "@@ -1 +1 @@", "user": {"login": "reviewer", "id": 2}, "created_at": "2026-01-01T11:00:00Z"},
			{"id": 201, "body": "` + "```" + `suggestion\nuse retries\n` + "```" + `", "path": "src/a.go", "line": 20, "user": {"login": "reviewer", "id": 2}, "created_at": "2026-01-01T11:05:00Z"}
		]`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 300, "body": "looks good", "state": "APPROVED", "user": {"login": "reviewer", "id": 2}, "submitted_at": "2026-01-01T12:00:00Z"}
		]`)
	})

	_, fetcher := newGitHubTestServer(t, mux)

	prContext, err := fetcher.Fetch(context.Background(), "acme", "widgets", 42, FetchOptions{TriggerCommentID: 200})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(prContext.Comments) != 4 {
		t.Fatalf("Expected 4 comments, got %d", len(prContext.Comments))
	}

	byID := map[int64]models.Comment{}
	for _, comment := range prContext.Comments {
		byID[comment.ID] = comment
	}
	if byID[100].Type != models.CommentTypeIssue {
		t.Errorf("Expected comment 100 to be an issue comment, got %s", byID[100].Type)
	}
	if byID[200].Type != models.CommentTypeReview || byID[200].Path != "src/a.go" || byID[200].Line != 12 {
		t.Errorf("Unexpected review comment: %+v", byID[200])
	}
	if !byID[201].IsSuggestion {
		t.Error("Expected comment 201 to be marked as a suggestion")
	}
	if byID[300].Type != models.CommentTypeReviewSummary || byID[300].State != "APPROVED" {
		t.Errorf("Unexpected review summary: %+v", byID[300])
	}

	if prContext.TriggerComment == nil {
		t.Fatal("Expected trigger comment to be marked")
	}
	if prContext.TriggerComment.ID != 200 {
		t.Errorf("Expected trigger comment 200, got %d", prContext.TriggerComment.ID)
	}
	// The trigger comment must be a member of the comment slice, not a copy
	found := false
	for i := range prContext.Comments {
		if prContext.TriggerComment == &prContext.Comments[i] {
			found = true
		}
	}
	if !found {
		t.Error("Trigger comment is not a member of the comments slice")
	}
}

func TestFetch_ContentsPinnedAtHeadAndPartialFailureTolerated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) { writePRMetadata(w) })
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/files", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"filename": "src/ok.go", "status": "modified", "additions": 1, "deletions": 0},
			{"filename": "src/gone.go", "status": "removed", "additions": 0, "deletions": 10},
			{"filename": "src/broken.go", "status": "added", "additions": 5, "deletions": 0}
		]`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/issues/42/comments", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/comments", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/reviews", emptyListHandler)

	var contentRequests []string
	mux.HandleFunc("/api/v3/repos/acme/widgets/contents/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v3/repos/acme/widgets/contents/")
		contentRequests = append(contentRequests, path)
		if ref := r.URL.Query().Get("ref"); ref != testHeadSHA {
			t.Errorf("Expected content fetch pinned at %s, got ref %q", testHeadSHA, ref)
		}
		if path == "src/broken.go" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		encoded := base64.StdEncoding.EncodeToString([]byte("package main\n"))
		fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "name": "ok.go", "path": %q, "content": %q}`, path, encoded)
	})

	_, fetcher := newGitHubTestServer(t, mux)

	prContext, err := fetcher.Fetch(context.Background(), "acme", "widgets", 42, FetchOptions{IncludeContents: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(contentRequests) != 2 {
		t.Errorf("Expected content fetches for 2 files (removed skipped), got %v", contentRequests)
	}

	byPath := map[string]models.ChangedFile{}
	for _, file := range prContext.ChangedFiles {
		byPath[file.Path] = file
	}
	if byPath["src/ok.go"].Contents != "package main\n" {
		t.Errorf("Expected contents for src/ok.go, got %q", byPath["src/ok.go"].Contents)
	}
	if byPath["src/gone.go"].Contents != "" {
		t.Error("Removed file must not have contents")
	}
	if byPath["src/broken.go"].Contents != "" {
		t.Error("Failed content fetch must leave contents unset, not fail the run")
	}
}

func TestFetch_DiffViaContentNegotiation(t *testing.T) {
	const diffBody = "diff --git a/src/a.go b/src/a.go\n"

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Accept"), "diff") {
			fmt.Fprint(w, diffBody)
			return
		}
		writePRMetadata(w)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/files", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/issues/42/comments", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/comments", emptyListHandler)
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42/reviews", emptyListHandler)

	_, fetcher := newGitHubTestServer(t, mux)

	prContext, err := fetcher.Fetch(context.Background(), "acme", "widgets", 42, FetchOptions{IncludeDiff: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if prContext.Diff != diffBody {
		t.Errorf("Expected diff %q, got %q", diffBody, prContext.Diff)
	}
}

func TestFetch_MetadataFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	})

	_, fetcher := newGitHubTestServer(t, mux)

	_, err := fetcher.Fetch(context.Background(), "acme", "widgets", 42, FetchOptions{})
	if !models.IsErrorCode(err, models.ErrCodeUpstreamFetchFailed) {
		t.Errorf("Expected UpstreamFetchFailed, got %v", err)
	}
}
