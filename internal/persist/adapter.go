package persist

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/liliang-cn/orion/internal/domain"
	"github.com/liliang-cn/orion/internal/store"
	"go.uber.org/zap"
)

// Storage keys
const (
	StateKey   = "orion_data_analyzer_state"
	ThreadsKey = "orion_chat_threads"
	ExpiryKey  = "orion_chat_expiry"
)

// DefaultHistoryTTL is how long chat history survives after the last save
const DefaultHistoryTTL = 24 * time.Hour

// KeyValue is the storage medium snapshots are written to
type KeyValue interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// SnapshotStore saves and restores workspace state
type SnapshotStore interface {
	Save(state store.State)
	Load() (store.State, bool)
	Clear()
}

// Adapter is a best-effort SnapshotStore over a KeyValue.
// File ids and schemas are never written; chat history expires after a TTL.
// Failures are logged and swallowed.
type Adapter struct {
	kv     KeyValue
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithTTL overrides the chat history expiry window
func WithTTL(ttl time.Duration) Option {
	return func(a *Adapter) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates a snapshot adapter
func NewAdapter(kv KeyValue, logger *zap.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		kv:     kv,
		ttl:    DefaultHistoryTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ SnapshotStore = (*Adapter)(nil)

// Save writes the state. Chat threads go under their own key with an
// expiry marker; an empty thread list removes any stored history.
func (a *Adapter) Save(state store.State) {
	if err := a.save(state); err != nil {
		a.logger.Error("Failed to save state", zap.Error(err))
	}
}

func (a *Adapter) save(state store.State) error {
	root := state
	root.FileID = ""
	root.Schema = nil
	root.ChatThreads = []domain.ChatThread{}

	rootJSON, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := a.kv.Set(StateKey, string(rootJSON)); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	if len(state.ChatThreads) == 0 {
		return a.dropHistory()
	}

	threadsJSON, err := json.Marshal(stripFiles(state.ChatThreads))
	if err != nil {
		return fmt.Errorf("failed to encode chat threads: %w", err)
	}
	// History is never stored without a marker that can expire it.
	expiry := a.now().Add(a.ttl).UnixMilli()
	if err := a.kv.Set(ExpiryKey, strconv.FormatInt(expiry, 10)); err != nil {
		if dropErr := a.dropHistory(); dropErr != nil {
			a.logger.Error("Failed to drop unmarked chat history", zap.Error(dropErr))
		}
		return fmt.Errorf("failed to write chat expiry: %w", err)
	}
	if err := a.kv.Set(ThreadsKey, string(threadsJSON)); err != nil {
		return fmt.Errorf("failed to write chat threads: %w", err)
	}
	return nil
}

// Load reads the last saved state. ok is false when nothing usable is stored.
func (a *Adapter) Load() (store.State, bool) {
	state, ok, err := a.load()
	if err != nil {
		a.logger.Error("Failed to load state", zap.Error(err))
		return store.State{}, false
	}
	return state, ok
}

func (a *Adapter) load() (store.State, bool, error) {
	a.CleanupExpired()

	raw, ok, err := a.kv.Get(StateKey)
	if err != nil {
		return store.State{}, false, fmt.Errorf("failed to read state: %w", err)
	}
	if !ok {
		return store.State{}, false, nil
	}

	state := store.Initial()
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return store.State{}, false, fmt.Errorf("failed to decode state: %w", err)
	}

	threadsRaw, ok, err := a.kv.Get(ThreadsKey)
	if err != nil {
		return store.State{}, false, fmt.Errorf("failed to read chat threads: %w", err)
	}
	if ok {
		var threads []domain.ChatThread
		if err := json.Unmarshal([]byte(threadsRaw), &threads); err != nil {
			return store.State{}, false, fmt.Errorf("failed to decode chat threads: %w", err)
		}
		state.ChatThreads = threads
	}

	normalize(&state)
	return state, true, nil
}

// CleanupExpired removes chat history whose expiry marker has passed.
// An unreadable marker counts as expired.
func (a *Adapter) CleanupExpired() {
	raw, ok, err := a.kv.Get(ExpiryKey)
	if err != nil {
		a.logger.Error("Failed to read chat expiry", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	expiry, err := strconv.ParseInt(raw, 10, 64)
	if err == nil && a.now().UnixMilli() <= expiry {
		return
	}

	a.logger.Info("Dropping expired chat history", zap.String("expiry", raw))
	if err := a.dropHistory(); err != nil {
		a.logger.Error("Failed to drop expired chat history", zap.Error(err))
	}
}

// Clear removes every stored key
func (a *Adapter) Clear() {
	for _, key := range []string{StateKey, ThreadsKey, ExpiryKey} {
		if err := a.kv.Delete(key); err != nil {
			a.logger.Error("Failed to clear state", zap.String("key", key), zap.Error(err))
		}
	}
}

func (a *Adapter) dropHistory() error {
	if err := a.kv.Delete(ThreadsKey); err != nil {
		return err
	}
	return a.kv.Delete(ExpiryKey)
}

// stripFiles copies threads without their file bindings
func stripFiles(threads []domain.ChatThread) []domain.ChatThread {
	out := make([]domain.ChatThread, len(threads))
	for i, t := range threads {
		t.FileID = ""
		t.Schema = nil
		out[i] = t
	}
	return out
}

func normalize(s *store.State) {
	if s.Suggestions == nil {
		s.Suggestions = []string{}
	}
	if s.Chats == nil {
		s.Chats = []domain.ChatMessage{}
	}
	if s.Charts == nil {
		s.Charts = []domain.ChartConfig{}
	}
	if s.ChatThreads == nil {
		s.ChatThreads = []domain.ChatThread{}
	}
	for i := range s.ChatThreads {
		if s.ChatThreads[i].Messages == nil {
			s.ChatThreads[i].Messages = []domain.ChatMessage{}
		}
	}
	if _, ok := s.ActiveThread(); !ok {
		s.ActiveThreadID = ""
	}
}
