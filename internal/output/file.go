package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"extpin/internal/pin"
)

// JSONFileSink collects resolved modules and writes them as one JSON array
// when closed. A run that aborts still records the modules pinned before the
// failure.
type JSONFileSink struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	results []pin.Resolved
	closed  bool
}

func NewJSONFileSink(path string) (*JSONFileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return nil, fmt.Errorf("unsupported summary file extension %q (want .json)", ext)
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

	return &JSONFileSink{
		path:    path,
		file:    f,
		results: []pin.Resolved{},
	}, nil
}

func (s *JSONFileSink) Write(r pin.Resolved) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *JSONFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := WriteSummary(s.file, s.results)
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// WriteSummary pretty-prints resolved modules as a JSON array of
// {name, github, branch, tag} objects.
func WriteSummary(w io.Writer, results []pin.Resolved) error {
	if results == nil {
		results = []pin.Resolved{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	return encoder.Encode(results)
}
