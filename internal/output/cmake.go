package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"extpin/internal/pin"
)

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	f, ok := w.(flusher)
	if !ok {
		return nil
	}
	return f.Flush()
}

// RenderEntry renders the two CMake assignments for one module:
//
//	set(<NAME>_GITHUB <owner/repo>)
//	set(<NAME>_TAG <sha>)
//
// The name is used as given unless upper is set.
func RenderEntry(r pin.Resolved, upper bool) string {
	name := r.Name
	if upper {
		name = strings.ToUpper(name)
	}
	return fmt.Sprintf("set(%s_GITHUB %s)\nset(%s_TAG %s)\n", name, r.GitHub, name, r.Tag)
}

// CMakeWriter writes entries to w, separated by a blank line, flushing after
// every entry.
type CMakeWriter struct {
	w       io.Writer
	upper   bool
	mu      sync.Mutex
	entries int
}

func NewCMakeWriter(w io.Writer, upper bool) *CMakeWriter {
	return &CMakeWriter{w: w, upper: upper}
}

func (c *CMakeWriter) Write(r pin.Resolved) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := RenderEntry(r, c.upper)
	if c.entries > 0 {
		entry = "\n" + entry
	}
	if _, err := io.WriteString(c.w, entry); err != nil {
		return err
	}
	if err := flushIfPossible(c.w); err != nil {
		return err
	}
	c.entries++
	return nil
}

// Entries returns how many entries have been written.
func (c *CMakeWriter) Entries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries
}

// CMakeSink owns the generated CMake file. The file is created (or truncated)
// by NewCMakeSink, before any entry is known.
type CMakeSink struct {
	*CMakeWriter
	path   string
	file   *os.File
	buf    *bufio.Writer
	closed bool
}

func NewCMakeSink(path string, upper bool) (*CMakeSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	buf := bufio.NewWriter(f)
	return &CMakeSink{
		CMakeWriter: NewCMakeWriter(buf, upper),
		path:        path,
		file:        f,
		buf:         buf,
	}, nil
}

func (s *CMakeSink) Path() string {
	return s.path
}

// Close flushes and closes the file. Calling it more than once is a no-op.
func (s *CMakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.buf.Flush()
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
