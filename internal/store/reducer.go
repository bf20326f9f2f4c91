package store

import (
	"time"

	"github.com/liliang-cn/orion/internal/domain"
)

// Reducer applies actions to a State. It is pure apart from reading the
// clock for updatedAt bumps, and never mutates the state it is given.
type Reducer struct {
	Now func() time.Time
}

// NewReducer creates a reducer using the wall clock
func NewReducer() Reducer {
	return Reducer{Now: time.Now}
}

func (r Reducer) nowMillis() int64 {
	if r.Now == nil {
		return time.Now().UnixMilli()
	}
	return r.Now().UnixMilli()
}

// Reduce returns the state that results from applying a to s.
// Actions naming unknown threads leave the state unchanged.
func (r Reducer) Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetSchema:
		schema := a.Schema
		if threads, ok := mapThread(s.ChatThreads, s.ActiveThreadID, func(t domain.ChatThread) domain.ChatThread {
			t.FileID = schema.FileID
			t.Schema = &schema
			return t
		}); ok {
			s.ChatThreads = threads
		}
		s.FileID = schema.FileID
		s.Schema = &schema
		return s

	case SetSuggestions:
		s.Suggestions = a.Suggestions
		return s

	case AddChat:
		s.Chats = appendMessage(s.Chats, a.Message)
		return s

	case SetCharts:
		s.Charts = a.Charts
		return s

	case CreateChatThread:
		thread := a.Thread
		if thread.Messages == nil {
			thread.Messages = []domain.ChatMessage{}
		}
		threads := make([]domain.ChatThread, len(s.ChatThreads), len(s.ChatThreads)+1)
		copy(threads, s.ChatThreads)
		s.ChatThreads = append(threads, thread)
		s.ActiveThreadID = thread.ID
		return clearUnbound(s)

	case SetActiveThread:
		s.ActiveThreadID = a.ThreadID
		return clearUnbound(s)

	case UpdateThread:
		now := r.nowMillis()
		if threads, ok := mapThread(s.ChatThreads, a.ThreadID, func(t domain.ChatThread) domain.ChatThread {
			if len(t.Messages) == 0 {
				t.Title = domain.TitleFromMessage(a.Message.Content)
			}
			t.Messages = appendMessage(t.Messages, a.Message)
			t.UpdatedAt = now
			return t
		}); ok {
			s.ChatThreads = threads
		}
		return s

	case UpdateThreadFile:
		now := r.nowMillis()
		schema := a.Schema
		if threads, ok := mapThread(s.ChatThreads, a.ThreadID, func(t domain.ChatThread) domain.ChatThread {
			t.FileID = a.FileID
			t.Schema = &schema
			if a.Title != "" {
				t.Title = a.Title
			}
			t.UpdatedAt = now
			return t
		}); ok {
			s.ChatThreads = threads
		}
		return s

	case UpdateThreadTitle:
		now := r.nowMillis()
		if threads, ok := mapThread(s.ChatThreads, a.ThreadID, func(t domain.ChatThread) domain.ChatThread {
			t.Title = a.Title
			t.UpdatedAt = now
			return t
		}); ok {
			s.ChatThreads = threads
		}
		return s

	case DeleteThread:
		if _, ok := s.Thread(a.ThreadID); !ok {
			return s
		}
		remaining := make([]domain.ChatThread, 0, len(s.ChatThreads)-1)
		for _, t := range s.ChatThreads {
			if t.ID != a.ThreadID {
				remaining = append(remaining, t)
			}
		}
		s.ChatThreads = remaining
		switch {
		case len(remaining) == 0:
			s.ActiveThreadID = ""
		case s.ActiveThreadID == a.ThreadID:
			s.ActiveThreadID = remaining[0].ID
		}
		if _, ok := s.ActiveThread(); !ok {
			s = clearUnbound(s)
		}
		return s

	case ResetApp:
		return Initial()

	case LoadState:
		return a.State
	}
	return s
}

// mapThread returns a copy of threads with fn applied to the thread named id.
// ok is false, and threads is returned untouched, when no thread matches.
func mapThread(threads []domain.ChatThread, id string, fn func(domain.ChatThread) domain.ChatThread) ([]domain.ChatThread, bool) {
	if id == "" {
		return threads, false
	}
	for i, t := range threads {
		if t.ID != id {
			continue
		}
		out := make([]domain.ChatThread, len(threads))
		copy(out, threads)
		out[i] = fn(t)
		return out, true
	}
	return threads, false
}

func appendMessage(messages []domain.ChatMessage, m domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, m)
}

// clearUnbound drops the no-thread session once the active thread changes
func clearUnbound(s State) State {
	s.FileID = ""
	s.Schema = nil
	s.Chats = []domain.ChatMessage{}
	return s
}
