package importer

import (
	"context"
	"log/slog"
	"time"
)

// OnDispatchFunc is called just before a handler is offered a stage.
type OnDispatchFunc func(ctx context.Context, stage Stage, kind, handler Kind)

// OnClaimFunc is called after a handler claims a stage.
type OnClaimFunc func(ctx context.Context, stage Stage, kind Kind, duration time.Duration)

// OnFailureFunc is called after a handler returns an error or panics.
type OnFailureFunc func(ctx context.Context, stage Stage, kind, handler Kind, err error, duration time.Duration)

// OnUnclaimedFunc is called when no handler claims a stage.
type OnUnclaimedFunc func(ctx context.Context, stage Stage, kind Kind)

type hooks struct {
	onDispatch  []OnDispatchFunc
	onClaim     []OnClaimFunc
	onFailure   []OnFailureFunc
	onUnclaimed []OnUnclaimedFunc
}

type options struct {
	hooks    hooks
	policies map[Stage]Policy
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*options)

// WithPolicy sets how stage is offered to handlers. The default for every
// stage is PolicyShortCircuit.
func WithPolicy(stage Stage, p Policy) Option {
	return func(o *options) {
		o.policies[stage] = p
	}
}

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithOnDispatch adds a hook called before each handler invocation.
//
// Example:
//
//	importer.WithOnDispatch(func(ctx context.Context, stage importer.Stage, kind, handler importer.Kind) {
//	    slog.Debug("offering stage", "stage", stage, "handler", handler)
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(o *options) {
		o.hooks.onDispatch = append(o.hooks.onDispatch, fn)
	}
}

// WithOnClaim adds a hook called when a stage is claimed.
func WithOnClaim(fn OnClaimFunc) Option {
	return func(o *options) {
		o.hooks.onClaim = append(o.hooks.onClaim, fn)
	}
}

// WithOnFailure adds a hook called when a handler fails.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(o *options) {
		o.hooks.onFailure = append(o.hooks.onFailure, fn)
	}
}

// WithOnUnclaimed adds a hook called when no handler claims a stage.
func WithOnUnclaimed(fn OnUnclaimedFunc) Option {
	return func(o *options) {
		o.hooks.onUnclaimed = append(o.hooks.onUnclaimed, fn)
	}
}

func (h *hooks) dispatch(ctx context.Context, stage Stage, kind, handler Kind) {
	for _, fn := range h.onDispatch {
		fn(ctx, stage, kind, handler)
	}
}

func (h *hooks) claim(ctx context.Context, stage Stage, kind Kind, d time.Duration) {
	for _, fn := range h.onClaim {
		fn(ctx, stage, kind, d)
	}
}

func (h *hooks) failure(ctx context.Context, stage Stage, kind, handler Kind, err error, d time.Duration) {
	for _, fn := range h.onFailure {
		fn(ctx, stage, kind, handler, err, d)
	}
}

func (h *hooks) unclaimed(ctx context.Context, stage Stage, kind Kind) {
	for _, fn := range h.onUnclaimed {
		fn(ctx, stage, kind)
	}
}
