package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
)

// LookupError reports that the branch endpoint could not be reached or
// answered with a non-2xx status.
type LookupError struct {
	Repo   string
	Branch string
	// StatusCode is 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lookup %s@%s failed (%d %s): %v", e.Repo, e.Branch, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("lookup %s@%s failed: %v", e.Repo, e.Branch, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the lookup can help. Client errors other
// than rate limiting are permanent.
func (e *LookupError) Temporary() bool {
	var rle *github.RateLimitError
	if errors.As(e.Err, &rle) {
		return true
	}
	var arle *github.AbuseRateLimitError
	if errors.As(e.Err, &arle) {
		return true
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryAfter reports how long GitHub asked clients to back off before the next
// request: until the primary rate limit resets, or the secondary limit's
// Retry-After. It is 0 when the response carried no such hint.
func (e *LookupError) RetryAfter() time.Duration {
	var rle *github.RateLimitError
	if errors.As(e.Err, &rle) {
		if d := time.Until(rle.Rate.Reset.Time); d > 0 {
			return d
		}
		return 0
	}
	var arle *github.AbuseRateLimitError
	if errors.As(e.Err, &arle) && arle.RetryAfter != nil && *arle.RetryAfter > 0 {
		return *arle.RetryAfter
	}
	return 0
}

// FormatError reports a branch payload without commit.sha. Raw is the body as
// received.
type FormatError struct {
	Repo   string
	Branch string
	Field  string
	Raw    json.RawMessage
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("lookup %s@%s: response has no %s: %s", e.Repo, e.Branch, e.Field, string(e.Raw))
}

type branchPayload struct {
	Commit *struct {
		SHA *string `json:"sha"`
	} `json:"commit"`
}

// BranchHead returns the commit SHA at the head of branch in repo ("owner/repo").
func (c *Client) BranchHead(ctx context.Context, repo, branch string) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("BranchHead: nil context")
	}
	if c == nil || c.Client == nil {
		return "", fmt.Errorf("BranchHead: client is nil")
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", fmt.Errorf("BranchHead: invalid repository %q (expected OWNER/REPO)", repo)
	}
	if branch == "" {
		return "", fmt.Errorf("BranchHead: branch is required")
	}

	u := fmt.Sprintf("repos/%s/%s/branches/%s", url.PathEscape(owner), url.PathEscape(name), url.PathEscape(branch))
	req, err := c.Client.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("BranchHead: build request: %w", err)
	}

	var body bytes.Buffer
	resp, err := c.Client.Do(ctx, req, &body)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		le := &LookupError{Repo: repo, Branch: branch, Err: err}
		if resp != nil && resp.Response != nil {
			le.StatusCode = resp.StatusCode
		}
		return "", le
	}

	raw := json.RawMessage(bytes.TrimSpace(body.Bytes()))
	var payload branchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", &FormatError{Repo: repo, Branch: branch, Field: "commit", Raw: raw}
	}
	if payload.Commit == nil {
		return "", &FormatError{Repo: repo, Branch: branch, Field: "commit", Raw: raw}
	}
	if payload.Commit.SHA == nil || *payload.Commit.SHA == "" {
		return "", &FormatError{Repo: repo, Branch: branch, Field: "commit.sha", Raw: raw}
	}
	return *payload.Commit.SHA, nil
}
