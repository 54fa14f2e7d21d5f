// Package pin resolves each manifest module to the commit at the head of its
// branch and hands the result to a sink, one module at a time, in manifest order.
package pin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"extpin/internal/manifest"

	"go.uber.org/zap"
)

// Resolved is a module together with the commit its branch pointed at during the run.
type Resolved struct {
	Name   string `json:"name"`
	GitHub string `json:"github"`
	Branch string `json:"branch"`
	Tag    string `json:"tag"`
}

// Resolver looks up the head commit of a branch. repo is "owner/repo".
type Resolver interface {
	BranchHead(ctx context.Context, repo, branch string) (string, error)
}

// Sink receives resolved modules in manifest order.
type Sink interface {
	Write(r Resolved) error
}

// Observer is notified about per-module progress. Implementations must not block.
type Observer interface {
	ModuleStarted(m manifest.Module)
	ModuleResolved(r Resolved)
	ModuleFailed(m manifest.Module, err error)
}

// ModuleError ties a failure to the module (and its 1-based position) it happened on.
type ModuleError struct {
	Module   manifest.Module
	Position int
	Err      error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %q (#%d): %v", e.Module.Name, e.Position, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// WriteError reports that a resolved module could not be written to the sink.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write entry: %v", e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

const maxRetryWait = 30 * time.Second

type Updater struct {
	resolver  Resolver
	sink      Sink
	logger    *zap.Logger
	observer  Observer
	retries   int
	retryWait time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

type Option func(*Updater)

func WithLogger(logger *zap.Logger) Option {
	return func(u *Updater) {
		if logger != nil {
			u.logger = logger
		}
	}
}

func WithObserver(o Observer) Option {
	return func(u *Updater) {
		u.observer = o
	}
}

// WithRetries retries temporary lookup failures up to n extra times, waiting
// wait before the first retry and doubling after each one.
func WithRetries(n int, wait time.Duration) Option {
	return func(u *Updater) {
		u.retries = n
		u.retryWait = wait
	}
}

func NewUpdater(resolver Resolver, sink Sink, opts ...Option) (*Updater, error) {
	if resolver == nil {
		return nil, errors.New("pin: resolver is nil")
	}
	if sink == nil {
		return nil, errors.New("pin: sink is nil")
	}
	u := &Updater{
		resolver: resolver,
		sink:     sink,
		logger:   zap.NewNop(),
		sleep:    sleepContext,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(u)
		}
	}
	if u.retries < 0 {
		return nil, fmt.Errorf("pin: retries must be >= 0 (got %d)", u.retries)
	}
	if u.retries > 0 && u.retryWait <= 0 {
		return nil, fmt.Errorf("pin: retry wait must be > 0 (got %s)", u.retryWait)
	}
	return u, nil
}

// Run resolves modules in order. Each resolved module is written to the sink
// before the next lookup starts, so on failure the sink holds exactly the
// modules before the failing one. The returned slice holds those same modules.
func (u *Updater) Run(ctx context.Context, modules []manifest.Module) ([]Resolved, error) {
	if ctx == nil {
		return nil, errors.New("pin: nil context")
	}

	resolved := make([]Resolved, 0, len(modules))
	for i, m := range modules {
		if err := ctx.Err(); err != nil {
			return resolved, &ModuleError{Module: m, Position: i + 1, Err: err}
		}
		if u.observer != nil {
			u.observer.ModuleStarted(m)
		}

		sha, err := u.lookup(ctx, m)
		if err != nil {
			u.logger.Error("branch lookup failed",
				zap.String("module", m.Name),
				zap.String("github", m.GitHub),
				zap.String("branch", m.Branch),
				zap.Error(err),
			)
			if u.observer != nil {
				u.observer.ModuleFailed(m, err)
			}
			return resolved, &ModuleError{Module: m, Position: i + 1, Err: err}
		}

		r := Resolved{Name: m.Name, GitHub: m.GitHub, Branch: m.Branch, Tag: sha}
		if err := u.sink.Write(r); err != nil {
			werr := &WriteError{Err: err}
			if u.observer != nil {
				u.observer.ModuleFailed(m, werr)
			}
			return resolved, &ModuleError{Module: m, Position: i + 1, Err: werr}
		}
		resolved = append(resolved, r)

		u.logger.Debug("module pinned",
			zap.String("module", r.Name),
			zap.String("github", r.GitHub),
			zap.String("branch", r.Branch),
			zap.String("tag", r.Tag),
		)
		if u.observer != nil {
			u.observer.ModuleResolved(r)
		}
	}
	return resolved, nil
}

func (u *Updater) lookup(ctx context.Context, m manifest.Module) (string, error) {
	wait := u.retryWait
	for attempt := 0; ; attempt++ {
		sha, err := u.resolver.BranchHead(ctx, m.GitHub, m.Branch)
		if err == nil {
			return sha, nil
		}
		if attempt >= u.retries || ctx.Err() != nil || !isTemporary(err) {
			return "", err
		}
		// A rate limit that resets past the wait cap would reject every retry.
		hint := retryAfter(err)
		if hint > maxRetryWait {
			return "", err
		}
		if hint > wait {
			wait = hint
		}

		u.logger.Warn("branch lookup failed, retrying",
			zap.String("module", m.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if serr := u.sleep(ctx, wait); serr != nil {
			return "", serr
		}
		wait *= 2
		if wait > maxRetryWait {
			wait = maxRetryWait
		}
	}
}

type temporary interface {
	Temporary() bool
}

// isTemporary reports whether err (or anything it wraps) says a retry can help.
// Malformed payloads never retry.
func isTemporary(err error) bool {
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}

type retryHinter interface {
	RetryAfter() time.Duration
}

func retryAfter(err error) time.Duration {
	var h retryHinter
	if errors.As(err, &h) {
		return h.RetryAfter()
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
