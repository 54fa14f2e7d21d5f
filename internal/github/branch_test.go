package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(context.Background(), "", WithBaseURL(server.URL), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestBranchHead_ReturnsCommitSHA(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"master","commit":{"sha":"abc123","url":"x"},"protected":false}`))
	})

	sha, err := c.BranchHead(context.Background(), "fmtlib/fmt", "master")
	if err != nil {
		t.Fatalf("BranchHead: %v", err)
	}
	if sha != "abc123" {
		t.Fatalf("want abc123, got %q", sha)
	}
	if gotPath != "/repos/fmtlib/fmt/branches/master" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
}

func TestBranchHead_EscapesSlashInBranch(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"commit":{"sha":"def456"}}`))
	})

	sha, err := c.BranchHead(context.Background(), "KhronosGroup/Vulkan-Headers", "release/1.3")
	if err != nil {
		t.Fatalf("BranchHead: %v", err)
	}
	if sha != "def456" {
		t.Fatalf("want def456, got %q", sha)
	}
	if gotPath != "/repos/KhronosGroup/Vulkan-Headers/branches/release%2F1.3" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
}

func TestBranchHead_MalformedPayload(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{name: "no commit", body: `{"message":"Branch not found"}`, field: "commit"},
		{name: "null commit", body: `{"commit":null}`, field: "commit"},
		{name: "no sha", body: `{"commit":{"url":"x"}}`, field: "commit.sha"},
		{name: "empty sha", body: `{"commit":{"sha":""}}`, field: "commit.sha"},
		{name: "not an object", body: `[1,2]`, field: "commit"},
		{name: "not json", body: `<html>oops</html>`, field: "commit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.BranchHead(context.Background(), "fmtlib/fmt", "master")
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %T: %v", err, err)
			}
			if fe.Field != tc.field {
				t.Fatalf("want field %q, got %q", tc.field, fe.Field)
			}
			if string(fe.Raw) != tc.body {
				t.Fatalf("raw payload not preserved: %q", string(fe.Raw))
			}
			if !strings.Contains(err.Error(), tc.body) {
				t.Fatalf("error should carry the raw payload: %v", err)
			}
		})
	}
}

func TestBranchHead_HTTPErrorIsLookupError(t *testing.T) {
	cases := []struct {
		status    int
		temporary bool
	}{
		{status: http.StatusNotFound, temporary: false},
		{status: http.StatusInternalServerError, temporary: true},
		{status: http.StatusBadGateway, temporary: true},
		{status: http.StatusTooManyRequests, temporary: true},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			})

			_, err := c.BranchHead(context.Background(), "fmtlib/fmt", "master")
			var le *LookupError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LookupError, got %T: %v", err, err)
			}
			if le.StatusCode != tc.status {
				t.Fatalf("want status %d, got %d", tc.status, le.StatusCode)
			}
			if le.Temporary() != tc.temporary {
				t.Fatalf("want temporary=%v for %d", tc.temporary, tc.status)
			}
		})
	}
}

func TestBranchHead_RateLimitCarriesResetHint(t *testing.T) {
	reset := time.Now().Add(time.Hour)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})

	_, err := c.BranchHead(context.Background(), "fmtlib/fmt", "master")
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LookupError, got %T: %v", err, err)
	}
	if !le.Temporary() {
		t.Fatalf("rate limit should be temporary")
	}
	if d := le.RetryAfter(); d < 50*time.Minute || d > time.Hour {
		t.Fatalf("retry hint should point at the reset time, got %s", d)
	}
}

func TestBranchHead_ServerErrorHasNoRetryHint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.BranchHead(context.Background(), "fmtlib/fmt", "master")
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LookupError, got %T: %v", err, err)
	}
	if d := le.RetryAfter(); d != 0 {
		t.Fatalf("want no retry hint, got %s", d)
	}
}

func TestBranchHead_TransportErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewClient(context.Background(), "", WithBaseURL(url), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	_, err = c.BranchHead(context.Background(), "fmtlib/fmt", "master")
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LookupError, got %T: %v", err, err)
	}
	if le.StatusCode != 0 || !le.Temporary() {
		t.Fatalf("expected temporary transport failure, got %+v", le)
	}
}

func TestBranchHead_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	c, err := NewClient(context.Background(), "", WithBaseURL(server.URL), WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	_, err = c.BranchHead(context.Background(), "fmtlib/fmt", "master")
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LookupError on timeout, got %T: %v", err, err)
	}
}

func TestBranchHead_RejectsBadArguments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request")
	})
	if _, err := c.BranchHead(context.Background(), "fmtlib", "master"); err == nil {
		t.Fatalf("expected error for repo without owner")
	}
	if _, err := c.BranchHead(context.Background(), "fmtlib/fmt", ""); err == nil {
		t.Fatalf("expected error for empty branch")
	}
}
