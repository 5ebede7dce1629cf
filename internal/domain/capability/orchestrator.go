package capability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/sense-api/pkg/telemetry"
)

// DefaultProviderTimeout bounds a single adapter call.
const DefaultProviderTimeout = 30 * time.Second

// Adapter performs one capability call against one provider.
type Adapter[Req, Res any] interface {
	Name() string
	Execute(ctx context.Context, req Req) (Res, error)
}

// Attempt records one adapter call inside an orchestration pass.
type Attempt struct {
	Provider   string        `json:"provider"`
	Outcome    Outcome       `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"durationMs"`
}

// Result is a successful orchestration tagged with the serving adapter.
type Result[Res any] struct {
	Payload         Res
	ServingProvider string
	Degraded        bool
	Attempts        []Attempt
}

// ExhaustedError is returned when no adapter in the chain succeeded.
type ExhaustedError struct {
	Capability Capability
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	tried := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		tried = append(tried, attempt.Provider+"="+string(attempt.Outcome))
	}
	return fmt.Sprintf("%s: %v [%s]", e.Capability, ErrAllProvidersExhausted, strings.Join(tried, ", "))
}

func (e *ExhaustedError) Unwrap() error {
	return ErrAllProvidersExhausted
}

// Observer receives orchestration events for metrics.
type Observer interface {
	AttemptFinished(c Capability, provider string, outcome Outcome, elapsed time.Duration)
	Served(c Capability, provider string, degraded bool)
	Exhausted(c Capability)
}

type nopObserver struct{}

func (nopObserver) AttemptFinished(Capability, string, Outcome, time.Duration) {}
func (nopObserver) Served(Capability, string, bool)                            {}
func (nopObserver) Exhausted(Capability)                                       {}

// Options tunes an Orchestrator.
type Options struct {
	ProviderTimeout time.Duration
	Observer        Observer
	Sanitizer       *telemetry.Sanitizer
}

// Stats are the in-process serving counters exposed through status.
type Stats struct {
	Served         map[string]int64 `json:"served"`
	FallbackServed int64            `json:"fallbackServed"`
	Exhausted      int64            `json:"exhausted"`
}

// Orchestrator tries the selected adapters one at a time until one succeeds.
type Orchestrator[Req, Res any] struct {
	capability Capability
	selector   *Selector
	adapters   map[string]Adapter[Req, Res]
	timeout    time.Duration
	observer   Observer
	sanitizer  *telemetry.Sanitizer
	tracer     trace.Tracer
	log        zerolog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewOrchestrator registers adapters by name for capability c.
func NewOrchestrator[Req, Res any](c Capability, selector *Selector, adapters []Adapter[Req, Res], opts Options, log zerolog.Logger) *Orchestrator[Req, Res] {
	registered := make(map[string]Adapter[Req, Res], len(adapters))
	for _, adapter := range adapters {
		registered[adapter.Name()] = adapter
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = telemetry.NewSanitizer(telemetry.PIILevelHashed, "")
	}
	return &Orchestrator[Req, Res]{
		capability: c,
		selector:   selector,
		adapters:   registered,
		timeout:    opts.ProviderTimeout,
		observer:   opts.Observer,
		sanitizer:  opts.Sanitizer,
		tracer:     otel.Tracer("github.com/janhq/sense-api/capability"),
		log:        log.With().Str("component", "orchestrator").Str("capability", string(c)).Logger(),
		stats:      Stats{Served: make(map[string]int64)},
	}
}

// Capability returns the capability served.
func (o *Orchestrator[Req, Res]) Capability() Capability {
	return o.capability
}

// Chain returns the adapter ids that Handle will try, in order.
func (o *Orchestrator[Req, Res]) Chain() []string {
	var chain []string
	for _, name := range o.selector.SelectOrder(o.capability) {
		if _, ok := o.adapters[name]; ok {
			chain = append(chain, name)
		}
	}
	return chain
}

// Stats returns a copy of the serving counters.
func (o *Orchestrator[Req, Res]) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	served := make(map[string]int64, len(o.stats.Served))
	for name, count := range o.stats.Served {
		served[name] = count
	}
	return Stats{Served: served, FallbackServed: o.stats.FallbackServed, Exhausted: o.stats.Exhausted}
}

// Handle runs the fallback chain. It returns the first successful result,
// the parent context's error once ctx is done, or an *ExhaustedError.
func (o *Orchestrator[Req, Res]) Handle(ctx context.Context, req Req) (*Result[Res], error) {
	var attempts []Attempt

	for _, name := range o.selector.SelectOrder(o.capability) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		adapter, ok := o.adapters[name]
		if !ok {
			o.log.Debug().Str("provider", name).Msg("no adapter registered, skipping")
			continue
		}

		payload, elapsed, err := o.attempt(ctx, adapter, req)
		outcome := Classify(err)
		attempt := Attempt{Provider: name, Outcome: outcome, Duration: elapsed, DurationMs: elapsed.Milliseconds()}
		if err != nil {
			attempt.Error = o.sanitizer.SanitizeError(err)
		}
		attempts = append(attempts, attempt)
		o.observer.AttemptFinished(o.capability, name, outcome, elapsed)

		if err == nil {
			degraded := name == LocalProvider
			o.recordServed(name, degraded)
			o.observer.Served(o.capability, name, degraded)
			if len(attempts) > 1 {
				o.log.Info().
					Str("provider", name).
					Int("attempts", len(attempts)).
					Bool("degraded", degraded).
					Msg("served after fallback")
			}
			return &Result[Res]{
				Payload:         payload,
				ServingProvider: name,
				Degraded:        degraded,
				Attempts:        attempts,
			}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			o.log.Debug().Str("provider", name).Err(ctxErr).Msg("request context done, abandoning chain")
			return nil, ctxErr
		}

		o.log.Warn().
			Str("provider", name).
			Str("outcome", string(outcome)).
			Dur("elapsed", elapsed).
			Str("error", attempt.Error).
			Msg("provider attempt failed, trying next")
	}

	o.mu.Lock()
	o.stats.Exhausted++
	o.mu.Unlock()
	o.observer.Exhausted(o.capability)

	exhausted := &ExhaustedError{Capability: o.capability, Attempts: attempts}
	o.log.Error().Err(exhausted).Msg("all providers exhausted")
	return nil, exhausted
}

func (o *Orchestrator[Req, Res]) attempt(ctx context.Context, adapter Adapter[Req, Res], req Req) (payload Res, elapsed time.Duration, err error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	callCtx, span := o.tracer.Start(callCtx, "capability.attempt", trace.WithAttributes(
		attribute.String("capability", string(o.capability)),
		attribute.String("provider", adapter.Name()),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = TransientError(adapter.Name(), fmt.Errorf("adapter panic: %v", r))
		}
		elapsed = time.Since(start)
		span.SetAttributes(attribute.String("outcome", string(Classify(err))))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(Classify(err)))
		}
	}()

	payload, err = adapter.Execute(callCtx, req)
	return payload, elapsed, err
}

func (o *Orchestrator[Req, Res]) recordServed(name string, degraded bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.Served[name]++
	if degraded {
		o.stats.FallbackServed++
	}
}
