package output

import (
	"fmt"

	"extpin/internal/pin"

	"go.uber.org/multierr"
)

// Sink is a destination for resolved modules that owns a resource.
type Sink interface {
	pin.Sink
	Close() error
}

// Manager fans resolved modules out to several sinks, in the order they were added.
type Manager struct {
	sinks []Sink
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

// Write stops at the first sink that fails so later sinks never hold an entry
// the earlier ones are missing.
func (m *Manager) Write(r pin.Resolved) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	for _, s := range m.sinks {
		if err := s.Write(r); err != nil {
			return fmt.Errorf("write %T: %w", s, err)
		}
	}
	return nil
}

// Close closes every sink, even after failures, and returns all close errors.
func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	var err error
	for _, s := range m.sinks {
		if closeErr := s.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close %T: %w", s, closeErr))
		}
	}
	return err
}
