package store

import (
	"sync"

	"go.uber.org/zap"
)

// Listener is notified with the new state after every dispatch
type Listener func(State)

// Store holds the current State and serializes transitions.
//
// Each Dispatch runs to completion, listeners included, before the next one
// starts. Listeners run outside the state lock, so they may call State and
// Revision. States handed out share backing arrays with the store and must be
// treated as read-only.
type Store struct {
	// dispatchMu orders whole dispatches; mu guards the fields below it
	dispatchMu sync.Mutex
	mu         sync.Mutex
	reducer    Reducer
	state      State
	revision   uint64
	listeners  []Listener
	logger     *zap.Logger
}

// New creates a store holding the initial state
func New(reducer Reducer, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		reducer: reducer,
		state:   Initial(),
		logger:  logger,
	}
}

// Dispatch applies an action and returns the resulting state
func (s *Store) Dispatch(a Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.state = s.reducer.Reduce(s.state, a)
	s.revision++
	state, revision := s.state, s.revision
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Debug("Dispatched action",
		zap.String("type", string(a.Type())),
		zap.Uint64("revision", revision),
		zap.String("active_thread", state.ActiveThreadID),
	)

	for _, l := range listeners {
		l(state)
	}
	return state
}

// State returns the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Revision returns the number of transitions applied so far
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Subscribe registers a listener for future transitions. Listeners are
// called in dispatch order and must not call Dispatch themselves.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
