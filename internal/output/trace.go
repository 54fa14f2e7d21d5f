package output

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"extpin/internal/manifest"
	"extpin/internal/pin"

	"github.com/fatih/color"
)

// Trace prints per-module progress lines as the run proceeds:
//
//	fmt
//	 - fmtlib/fmt
//	 -- master
//	 --- https://api.github.com/repos/fmtlib/fmt/branches/master
//	 ---- 0123abcd...
//
// Write errors are ignored; the trace is diagnostic only.
type Trace struct {
	w       io.Writer
	baseURL string
	mu      sync.Mutex
}

// NewTrace returns a trace writing to w. apiURL is the GitHub API base the
// lookups go to; empty means https://api.github.com/.
func NewTrace(w io.Writer, apiURL string) *Trace {
	if w == nil {
		w = os.Stderr
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = "https://api.github.com/"
	}
	return &Trace{w: w, baseURL: strings.TrimSuffix(strings.TrimSpace(apiURL), "/")}
}

func (t *Trace) ModuleStarted(m manifest.Module) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = color.New(color.Bold).Fprintln(t.w, m.Name)
	_, _ = fmt.Fprintf(t.w, " - %s\n", m.GitHub)
	_, _ = fmt.Fprintf(t.w, " -- %s\n", m.Branch)
	_, _ = fmt.Fprintf(t.w, " --- %s/repos/%s/branches/%s\n", t.baseURL, m.GitHub, url.PathEscape(m.Branch))
}

func (t *Trace) ModuleResolved(r pin.Resolved) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = color.New(color.FgGreen).Fprintf(t.w, " ---- %s\n", r.Tag)
}

func (t *Trace) ModuleFailed(m manifest.Module, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = color.New(color.FgRed).Fprintf(t.w, " ---- error: %v\n", err)
}
