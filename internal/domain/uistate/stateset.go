package uistate

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/fringeproc/pkg/common/logger"
)

// Observer is notified after every successful transition. The vocabulary is
// passed for information only; observers must read the active state through
// StateSet.State.
type Observer func(ctx context.Context, vocabulary Set)

type subscription struct {
	id int
	fn Observer
}

// StateSet holds the set of currently active flags. Every transition replaces
// the whole set and is broadcast synchronously to all observers before
// SetState returns.
//
// A StateSet is not safe for concurrent use. It must only be mutated from the
// goroutine that runs the UI logic.
type StateSet struct {
	active     Set
	vocabulary Set
	lenient    bool

	observers []subscription
	nextID    int

	logger *logger.Logger
	tracer trace.Tracer
}

// Option configures a StateSet.
type Option func(*StateSet)

// WithLenientVocabulary accepts any request that shares at least one flag with
// the vocabulary and silently drops the unknown members. Without it, a request
// naming any unknown flag is rejected.
func WithLenientVocabulary() Option {
	return func(s *StateSet) { s.lenient = true }
}

// NewStateSet returns a StateSet whose active state is {Init}.
func NewStateSet(logger *logger.Logger, tracer trace.Tracer, opts ...Option) *StateSet {
	s := &StateSet{
		active:     NewSet(Init),
		vocabulary: Vocabulary(),
		logger:     logger.With("component", "state_set"),
		tracer:     tracer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetState replaces the active state with flags. A single flag is a valid
// request. See Replace.
func (s *StateSet) SetState(ctx context.Context, flags ...StateFlag) error {
	return s.Replace(ctx, NewSet(flags...))
}

// Replace makes next the complete active state and notifies every observer.
// It returns an *InvalidStateError, leaving the active state untouched, when
// next contains no known flag or, unless lenient, any unknown flag.
func (s *StateSet) Replace(ctx context.Context, next Set) error {
	ctx, span := s.tracer.Start(ctx, "state_set.set_state",
		trace.WithAttributes(attribute.String("requested", next.String())),
	)
	defer span.End()

	known := next.Intersection(s.vocabulary)
	unknown := next.Difference(s.vocabulary)
	if known.IsEmpty() || (!s.lenient && !unknown.IsEmpty()) {
		err := &InvalidStateError{Requested: next.Clone(), Unknown: unknown.Flags()}
		s.logger.Warn(ctx, "state transition rejected", "requested", next.String(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	prev := s.active
	s.active = known
	s.logger.Debug(ctx, "state transition applied", "from", prev.String(), "to", known.String())
	span.AddEvent("state_applied")

	s.notify(ctx)
	span.SetStatus(codes.Ok, "state applied")
	return nil
}

func (s *StateSet) notify(ctx context.Context) {
	// Copy so observers may subscribe or unsubscribe during delivery.
	observers := make([]subscription, len(s.observers))
	copy(observers, s.observers)

	for _, o := range observers {
		o.fn(ctx, s.vocabulary.Clone())
	}
}

// State returns a snapshot of the active flags.
func (s *StateSet) State() Set { return s.active.Clone() }

// AllStates returns the full vocabulary, for constraints that hold in every state.
func (s *StateSet) AllStates() Set { return s.vocabulary.Clone() }

// Subscribe registers fn to be called after every successful transition. The
// returned function removes the subscription.
func (s *StateSet) Subscribe(fn Observer) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, subscription{id: id, fn: fn})

	return func() {
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}
