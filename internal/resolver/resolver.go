// internal/resolver/resolver.go

// Package resolver locates the source window behind a stack frame. It prefers
// the remote repository adapter and falls back to the local filesystem; the
// remote's availability is established by a single probe and then committed to
// for the resolver's lifetime, so an unreachable remote costs one timeout, not
// one per frame.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
)

// RemoteBackend is a SourceBackend with a cheap availability probe.
type RemoteBackend interface {
	schemas.SourceBackend
	Probe(ctx context.Context) error
}

// Resolver picks a backend per frame and extracts a bounded code window.
type Resolver struct {
	remote RemoteBackend // nil when no remote is configured
	local  schemas.SourceBackend
	window int
	logger *zap.Logger

	probeOnce sync.Once
	remoteUp  bool
}

// New creates a resolver. remote may be nil; window is the number of lines on
// each side of the target line.
func New(remote RemoteBackend, local schemas.SourceBackend, window int, logger *zap.Logger) *Resolver {
	if window <= 0 {
		window = 10
	}
	return &Resolver{
		remote: remote,
		local:  local,
		window: window,
		logger: logger.Named("resolver"),
	}
}

// remoteAvailable runs the availability probe exactly once.
func (r *Resolver) remoteAvailable(ctx context.Context) bool {
	if r.remote == nil {
		return false
	}
	r.probeOnce.Do(func() {
		if err := r.remote.Probe(ctx); err != nil {
			r.logger.Info("Remote backend unavailable, committing to local fallback", zap.Error(err))
			return
		}
		r.remoteUp = true
	})
	return r.remoteUp
}

// Resolve returns the code window around frame's line. The fallback order is
// remote then local; NotFound and BackendUnavailable both advance the chain.
// When every tier fails the error is a *schemas.ContextUnresolvedError
// carrying the frame and the underlying cause from each backend.
func (r *Resolver) Resolve(ctx context.Context, frame schemas.StackFrame) (*schemas.CodeContext, error) {
	if frame.FilePath == "" || frame.LineNumber <= 0 {
		return nil, &schemas.ContextUnresolvedError{
			Frame:    frame,
			LocalErr: fmt.Errorf("frame has no resolvable location"),
		}
	}

	start := frame.LineNumber - r.window
	if start < 1 {
		start = 1
	}
	end := frame.LineNumber + r.window

	var remoteErr error
	if r.remoteAvailable(ctx) {
		cc, err := r.read(ctx, r.remote, frame, start, end)
		if err == nil {
			return cc, nil
		}
		remoteErr = err
		if !errors.Is(err, schemas.ErrNotFound) && !errors.Is(err, schemas.ErrBackendUnavailable) {
			// Access problems and decode failures do not improve by retrying
			// locally with the same path, but the fallback is still worth one
			// attempt; log loudly either way.
			r.logger.Warn("Remote read failed, trying local", zap.String("file", frame.FilePath), zap.Error(err))
		}
	}

	cc, localErr := r.read(ctx, r.local, frame, start, end)
	if localErr == nil {
		return cc, nil
	}

	return nil, &schemas.ContextUnresolvedError{
		Frame:     frame,
		RemoteErr: remoteErr,
		LocalErr:  localErr,
	}
}

func (r *Resolver) read(ctx context.Context, b schemas.SourceBackend, frame schemas.StackFrame, start, end int) (*schemas.CodeContext, error) {
	lines, err := b.ReadFile(ctx, frame.FilePath, start, end)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s has no lines in range %d-%d",
			schemas.ErrNotFound, frame.FilePath, start, end)
	}
	return &schemas.CodeContext{
		FilePath:   frame.FilePath,
		StartLine:  lines[0].Number,
		EndLine:    lines[len(lines)-1].Number,
		TargetLine: frame.LineNumber,
		Backend:    b.Name(),
		Lines:      lines,
	}, nil
}
