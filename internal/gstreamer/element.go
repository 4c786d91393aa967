package gstreamer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorHandler receives error notifications. source is the element that
// raised the error, which for a standalone element is the element itself.
type ErrorHandler func(element, source *Element, err *GError, debug string)

// StateChangeHandler receives state-change notifications.
type StateChangeHandler func(element *Element, oldState, newState State)

// Signal names accepted by Connect.
const (
	SignalError       = "error"
	SignalStateChange = "state-change"
)

// HandlerID identifies a connected handler.
type HandlerID uint64

type errorHandlerEntry struct {
	id      HandlerID
	handler ErrorHandler
}

type stateHandlerEntry struct {
	id      HandlerID
	handler StateChangeHandler
}

// Option configures an element at construction.
type Option func(*Element)

// WithBus posts every notification of the element to bus.
func WithBus(bus *Bus) Option {
	return func(e *Element) { e.bus = bus }
}

// WithFaults arms forced-error codes in the element's fault table,
// independent of any state-error property.
func WithFaults(faults ...Fault) Option {
	return func(e *Element) {
		for _, f := range faults {
			if t, ok := f.Transition(); ok {
				e.faults[t] = f
			}
		}
	}
}

// WithHistorySize bounds the element's transition history.
func WithHistorySize(size int) Option {
	return func(e *Element) { e.history = NewStateHistory(size) }
}

// WithLogger replaces the element's log entry.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Element) { e.logger = logger }
}

// Element is a named unit with a lifecycle state and a property bag, made by
// a Registry. SetState calls are serialized per element; listeners are
// invoked synchronously on the calling goroutine and must not call SetState
// on the same element.
type Element struct {
	factory *ElementType
	name    string
	logger  *logrus.Entry
	bus     *Bus
	history *StateHistory

	// transitionMu serializes SetState including notification delivery.
	transitionMu sync.Mutex

	mu         sync.RWMutex
	state      State
	properties map[string]any
	faults     map[Transition]Fault
	stats      ElementStats

	handlersMu    sync.RWMutex
	nextHandlerID HandlerID
	errorHandlers []errorHandlerEntry
	stateHandlers []stateHandlerEntry
}

func newElement(t *ElementType, name string, opts ...Option) *Element {
	e := &Element{
		factory:    t,
		name:       name,
		state:      StateNull,
		properties: make(map[string]any, len(t.Properties)),
		faults:     make(map[Transition]Fault),
		stats:      ElementStats{CurrentState: StateNull},
	}
	for _, p := range t.Properties {
		e.properties[p.Name] = p.Default
	}
	e.properties["name"] = name

	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logrus.WithField("component", "element")
	}
	e.logger = e.logger.WithFields(logrus.Fields{
		"element": name,
		"factory": t.Name,
	})
	if e.history == nil {
		e.history = NewStateHistory(DefaultHistorySize)
	}
	return e
}

// Name returns the element's name.
func (e *Element) Name() string {
	return e.name
}

// Factory returns the type the element was made from.
func (e *Element) Factory() *ElementType {
	return e.factory
}

// SetBus attaches or detaches (nil) the bus notifications are posted to.
func (e *Element) SetBus(bus *Bus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bus = bus
}

// Bus returns the attached bus, if any.
func (e *Element) Bus() *Bus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bus
}

// State returns the current state. It never waits for a transition in
// progress to finish delivering its notifications.
func (e *Element) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// SetState moves the element to target. Moving to the current state is a
// no-op. Non-adjacent targets are reached by walking the intermediate states;
// every step is checked for a forced fault before anything changes, so the
// call either reaches target, firing one state-change per step, or leaves the
// state untouched and fires a single error notification.
func (e *Element) SetState(target State) error {
	e.transitionMu.Lock()
	defer e.transitionMu.Unlock()

	current := e.State()
	start := time.Now()

	if !target.IsValid() {
		step := Transition{From: current, To: target}
		return e.failTransition(step, FaultNone, start,
			fmt.Sprintf("cannot change state to %s", target.String()), ErrInvalidState)
	}

	if current == target {
		e.logger.Debugf("Already in state %s", target.String())
		return nil
	}

	var steps []Transition
	for s := current; s != target; {
		n := s.next(target)
		steps = append(steps, Transition{From: s, To: n})
		s = n
	}

	for _, step := range steps {
		if f := e.armedFault(step); f != FaultNone {
			return e.failTransition(step, f, start,
				fmt.Sprintf("state change %s refused (%s=%s)", step.String(), PropStateError, f.String()), nil)
		}
	}

	for _, step := range steps {
		e.commit(step, time.Since(start))
		e.logger.Debugf("State changed: %s", step.String())
		e.emitStateChange(step.From, step.To)
	}
	return nil
}

func (e *Element) armedFault(step Transition) Fault {
	f := FaultFor(step.From, step.To)
	if f == FaultNone {
		return FaultNone
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if armed, ok := e.faults[step]; ok && armed == f {
		return f
	}
	if v, ok := e.properties[PropStateError].(Fault); ok && v == f {
		return f
	}
	return FaultNone
}

func (e *Element) commit(step Transition, duration time.Duration) {
	now := time.Now()

	e.mu.Lock()
	e.state = step.To
	e.stats.CurrentState = step.To
	e.stats.StateChanges++
	e.stats.LastStateChange = now
	e.mu.Unlock()

	e.history.Add(StateTransitionEvent{
		From:      step.From,
		To:        step.To,
		Timestamp: now,
		Duration:  duration,
		Success:   true,
	})
}

func (e *Element) failTransition(step Transition, f Fault, start time.Time, message string, cause error) error {
	now := time.Now()
	gerr := &GError{
		Domain:  DomainCore,
		Code:    int(f),
		Message: message,
	}
	debug := fmt.Sprintf("ERROR: %s '%s' failed to change state %s: %s",
		e.factory.Name, e.name, step.String(), message)

	e.mu.Lock()
	e.stats.FailedChanges++
	e.stats.LastError = message
	e.stats.LastErrorTime = now
	e.mu.Unlock()

	e.history.Add(StateTransitionEvent{
		From:      step.From,
		To:        step.To,
		Timestamp: now,
		Duration:  time.Since(start),
		Success:   false,
		Fault:     f,
		Error:     message,
	})

	e.logger.WithFields(logrus.Fields{
		"from":  step.From.String(),
		"to":    step.To.String(),
		"fault": f.String(),
	}).Error(debug)

	e.emitError(step, gerr, debug)

	if cause == nil {
		cause = gerr
	}
	return &ElementError{
		Type:      ErrorTypeTransition,
		Element:   e.name,
		Operation: "set-state",
		Code:      int(f),
		Message:   message,
		Debug:     debug,
		Cause:     cause,
		Timestamp: now,
	}
}

// InjectFault arms f in the element's fault table.
func (e *Element) InjectFault(f Fault) error {
	t, ok := f.Transition()
	if !ok {
		return fmt.Errorf("fault %s has no transition", f.String())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faults[t] = f
	return nil
}

// ClearFaults disarms the fault table and resets any state-error property.
func (e *Element) ClearFaults() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faults = make(map[Transition]Fault)
	if _, ok := e.properties[PropStateError]; ok {
		e.properties[PropStateError] = FaultNone
	}
}

// Faults returns the armed fault table codes, sorted.
func (e *Element) Faults() []Fault {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Fault, 0, len(e.faults)+1)
	for _, f := range e.faults {
		result = append(result, f)
	}
	if v, ok := e.properties[PropStateError].(Fault); ok && v != FaultNone {
		if _, dup := e.faults[faultTransitions[v]]; !dup {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// SetProperty writes a property after converting value to its declared kind.
func (e *Element) SetProperty(name string, value any) error {
	spec, ok := e.factory.Property(name)
	if !ok {
		return newPropertyError(e.name, name,
			fmt.Sprintf("element type '%s' has no property '%s'", e.factory.Name, name), ErrNotFound)
	}
	if !spec.Writable {
		return newPropertyError(e.name, name, "property is not writable", nil)
	}

	converted, err := spec.convert(value)
	if err != nil {
		return newPropertyError(e.name, name, "invalid value", err)
	}

	e.mu.Lock()
	e.properties[name] = converted
	e.mu.Unlock()

	e.logger.Debugf("Set property '%s' = %v", name, converted)
	return nil
}

// Property reads a property.
func (e *Element) Property(name string) (any, error) {
	if _, ok := e.factory.Property(name); !ok {
		return nil, newPropertyError(e.name, name,
			fmt.Sprintf("element type '%s' has no property '%s'", e.factory.Name, name), ErrNotFound)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.properties[name], nil
}

// Properties returns a copy of all property values.
func (e *Element) Properties() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make(map[string]any, len(e.properties))
	for k, v := range e.properties {
		result[k] = v
	}
	return result
}

// ConnectError registers an error listener.
func (e *Element) ConnectError(handler ErrorHandler) HandlerID {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()

	e.nextHandlerID++
	e.errorHandlers = append(e.errorHandlers, errorHandlerEntry{id: e.nextHandlerID, handler: handler})
	return e.nextHandlerID
}

// ConnectStateChange registers a state-change listener.
func (e *Element) ConnectStateChange(handler StateChangeHandler) HandlerID {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()

	e.nextHandlerID++
	e.stateHandlers = append(e.stateHandlers, stateHandlerEntry{id: e.nextHandlerID, handler: handler})
	return e.nextHandlerID
}

// Connect registers handler for the named signal. handler must be an
// ErrorHandler for "error" and a StateChangeHandler for "state-change", or a
// func with the same signature.
func (e *Element) Connect(signal string, handler any) (HandlerID, error) {
	switch signal {
	case SignalError:
		switch h := handler.(type) {
		case ErrorHandler:
			return e.ConnectError(h), nil
		case func(element, source *Element, err *GError, debug string):
			return e.ConnectError(h), nil
		}
	case SignalStateChange:
		switch h := handler.(type) {
		case StateChangeHandler:
			return e.ConnectStateChange(h), nil
		case func(element *Element, oldState, newState State):
			return e.ConnectStateChange(h), nil
		}
	default:
		return 0, fmt.Errorf("element '%s' has no signal '%s'", e.name, signal)
	}
	return 0, fmt.Errorf("handler type %T does not match signal '%s'", handler, signal)
}

// Disconnect removes a handler. It reports whether the id was connected.
func (e *Element) Disconnect(id HandlerID) bool {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()

	for i, h := range e.errorHandlers {
		if h.id == id {
			e.errorHandlers = append(e.errorHandlers[:i:i], e.errorHandlers[i+1:]...)
			return true
		}
	}
	for i, h := range e.stateHandlers {
		if h.id == id {
			e.stateHandlers = append(e.stateHandlers[:i:i], e.stateHandlers[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Element) emitStateChange(oldState, newState State) {
	e.handlersMu.RLock()
	handlers := make([]stateHandlerEntry, len(e.stateHandlers))
	copy(handlers, e.stateHandlers)
	e.handlersMu.RUnlock()

	for _, h := range handlers {
		e.invoke(SignalStateChange, func() { h.handler(e, oldState, newState) })
	}

	if bus := e.Bus(); bus != nil {
		bus.Post(newStateChangedMessage(e, oldState, newState))
	}
}

func (e *Element) emitError(step Transition, gerr *GError, debug string) {
	e.handlersMu.RLock()
	handlers := make([]errorHandlerEntry, len(e.errorHandlers))
	copy(handlers, e.errorHandlers)
	e.handlersMu.RUnlock()

	for _, h := range handlers {
		e.invoke(SignalError, func() { h.handler(e, e, gerr, debug) })
	}

	if bus := e.Bus(); bus != nil {
		bus.Post(newErrorMessage(e, step, gerr, debug))
	}
}

func (e *Element) invoke(signal string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("%s handler panic: %v", signal, r)
		}
	}()
	fn()
}

// History returns the recorded transition steps, oldest first.
func (e *Element) History() []StateTransitionEvent {
	return e.history.GetAll()
}

// RecentHistory returns at most the n latest transition steps, oldest first.
func (e *Element) RecentHistory(n int) []StateTransitionEvent {
	return e.history.GetRecent(n)
}

// Stats returns the element's transition statistics.
func (e *Element) Stats() ElementStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// String returns "factory:name".
func (e *Element) String() string {
	return e.factory.Name + ":" + e.name
}
