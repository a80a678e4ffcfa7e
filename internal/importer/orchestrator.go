package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Orchestrator runs the import stages against a fixed set of handlers. It is
// immutable after New and safe for concurrent runs.
type Orchestrator struct {
	handlers []Handler
	byKind   map[Kind]Handler
	policies map[Stage]Policy
	hooks    hooks
	logger   *slog.Logger
}

// New builds an Orchestrator. Handlers are offered each stage in the order
// given. Two handlers with the same kind are rejected.
func New(handlers []Handler, opts ...Option) (*Orchestrator, error) {
	cfg := options{policies: make(map[Stage]Policy)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	o := &Orchestrator{
		handlers: make([]Handler, 0, len(handlers)),
		byKind:   make(map[Kind]Handler, len(handlers)),
		policies: cfg.policies,
		hooks:    cfg.hooks,
		logger:   cfg.logger,
	}
	for _, h := range handlers {
		if _, exists := o.byKind[h.Kind()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateHandler, h.Kind())
		}
		o.byKind[h.Kind()] = h
		o.handlers = append(o.handlers, h)
	}
	return o, nil
}

// Kinds returns the registered kinds in registration order.
func (o *Orchestrator) Kinds() []Kind {
	out := make([]Kind, len(o.handlers))
	for i, h := range o.handlers {
		out[i] = h.Kind()
	}
	return out
}

// Policy returns the policy configured for stage.
func (o *Orchestrator) Policy(stage Stage) Policy {
	return o.policies[stage]
}

// Initialize starts a run for kind. The returned Event carries the display
// metadata of the claiming handler.
func (o *Orchestrator) Initialize(ctx context.Context, kind Kind) (*Event, error) {
	ev := newEvent(kind)
	display, err := dispatch(ctx, o, StageInitialize, ev, func(h Handler) (Result[Display], error) {
		return h.Initialize(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	ev.display = display
	return ev, nil
}

// MapFields returns the fields the run's CSV columns can be mapped to.
func (o *Orchestrator) MapFields(ctx context.Context, ev *Event) (FieldMapping, error) {
	mapping, err := dispatch(ctx, o, StageMapFields, ev, func(h Handler) (Result[FieldMapping], error) {
		return h.MapFields(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	ev.fields = mapping
	return mapping, nil
}

// Validate normalizes form and attaches the result to ev. Soft problems are
// reported on the result; the error is reserved for failures that abort the
// run.
func (o *Orchestrator) Validate(ctx context.Context, ev *Event, form *Form) (*ValidationResult, error) {
	res, err := dispatch(ctx, o, StageValidate, ev, func(h Handler) (Result[*ValidationResult], error) {
		return h.Validate(ctx, ev, form)
	})
	if err != nil {
		return nil, err
	}
	ev.validation = res
	return res, nil
}

// Process imports one row. The run must have passed validation.
func (o *Orchestrator) Process(ctx context.Context, ev *Event, row Row) (ProcessResult, error) {
	if v := ev.Validation(); v == nil || !v.Valid() {
		return ProcessResult{}, ErrNotValidated
	}
	return dispatch(ctx, o, StageProcess, ev, func(h Handler) (Result[ProcessResult], error) {
		return h.Process(ctx, ev, row)
	})
}

// candidates returns the handlers to offer stage to.
func (o *Orchestrator) candidates(stage Stage, ev *Event) []Handler {
	if ev.Claimed() && o.policies[stage] == PolicyShortCircuit {
		if h, ok := o.byKind[ev.ClaimedBy()]; ok {
			return []Handler{h}
		}
	}
	return o.handlers
}

func dispatch[T any](ctx context.Context, o *Orchestrator, stage Stage, ev *Event, call func(Handler) (Result[T], error)) (T, error) {
	var (
		out     T
		claimed bool
		start   = time.Now()
	)

	for _, h := range o.candidates(stage, ev) {
		res, err := invoke(ctx, o, stage, ev, h, call)
		if err != nil {
			return out, err
		}

		payload, ok := res.Claimed()
		if !ok {
			continue
		}
		if claimed {
			return out, fmt.Errorf("%w: %s claimed the %s stage after %s", ErrDuplicateClaim, h.Kind(), stage, ev.ClaimedBy())
		}
		if err := ev.claim(h.Kind()); err != nil {
			return out, err
		}
		claimed, out = true, payload

		o.hooks.claim(ctx, stage, ev.Kind(), time.Since(start))
		o.logger.DebugContext(ctx, "import stage claimed",
			"stage", stage.String(),
			"kind", ev.Kind(),
			"handler", h.Kind(),
		)

		if o.policies[stage] == PolicyShortCircuit {
			break
		}
	}

	if !claimed {
		o.hooks.unclaimed(ctx, stage, ev.Kind())
		o.logger.WarnContext(ctx, "import stage not claimed",
			"stage", stage.String(),
			"kind", ev.Kind(),
		)
		return out, fmt.Errorf("%w: %q", ErrUnsupportedImportKind, ev.Kind())
	}
	return out, nil
}

// invoke calls one handler, converting a panic into an error.
func invoke[T any](ctx context.Context, o *Orchestrator, stage Stage, ev *Event, h Handler, call func(Handler) (Result[T], error)) (res Result[T], err error) {
	start := time.Now()
	o.hooks.dispatch(ctx, stage, ev.Kind(), h.Kind())

	defer func() {
		if r := recover(); r != nil {
			res = Decline[T]()
			err = fmt.Errorf("%s handler panicked in %s stage: %v", h.Kind(), stage, r)
			o.logger.ErrorContext(ctx, "import handler panicked",
				"stage", stage.String(),
				"kind", ev.Kind(),
				"handler", h.Kind(),
				"panic", r,
			)
		}
		if err != nil {
			o.hooks.failure(ctx, stage, ev.Kind(), h.Kind(), err, time.Since(start))
		}
	}()

	return call(h)
}
