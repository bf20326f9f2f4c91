package store

import "github.com/liliang-cn/orion/internal/domain"

// State is the aggregate root of the workspace.
//
// Thread-bound data (messages, file, schema) lives only on the threads; use
// the Current* accessors to read it for the active thread. The top-level
// FileID, Schema and Chats hold the unbound session, used while no thread is
// active.
type State struct {
	FileID         string                `json:"fileId,omitempty"`
	Schema         *domain.DatasetSchema `json:"schema"`
	Suggestions    []string              `json:"suggestions"`
	Chats          []domain.ChatMessage  `json:"chats"`
	Charts         []domain.ChartConfig  `json:"charts"`
	ChatThreads    []domain.ChatThread   `json:"chatThreads"`
	ActiveThreadID string                `json:"activeThreadId,omitempty"`
}

// Initial returns the pristine state of a new session
func Initial() State {
	return State{
		Suggestions: []string{},
		Chats:       []domain.ChatMessage{},
		Charts:      []domain.ChartConfig{},
		ChatThreads: []domain.ChatThread{},
	}
}

// Thread looks up a thread by id
func (s State) Thread(id string) (domain.ChatThread, bool) {
	if id == "" {
		return domain.ChatThread{}, false
	}
	for _, t := range s.ChatThreads {
		if t.ID == id {
			return t, true
		}
	}
	return domain.ChatThread{}, false
}

// ActiveThread returns the thread named by ActiveThreadID, if it exists
func (s State) ActiveThread() (domain.ChatThread, bool) {
	return s.Thread(s.ActiveThreadID)
}

// CurrentMessages returns the messages shown to the user: the active
// thread's, or the unbound list when no thread is active.
func (s State) CurrentMessages() []domain.ChatMessage {
	if t, ok := s.ActiveThread(); ok {
		return t.Messages
	}
	return s.Chats
}

// CurrentFileID returns the file the next question is asked against
func (s State) CurrentFileID() string {
	if t, ok := s.ActiveThread(); ok {
		return t.FileID
	}
	return s.FileID
}

// CurrentSchema returns the schema of the current file, or nil
func (s State) CurrentSchema() *domain.DatasetSchema {
	if t, ok := s.ActiveThread(); ok {
		return t.Schema
	}
	return s.Schema
}

// ThreadTitles lists thread titles in thread order
func (s State) ThreadTitles() []string {
	titles := make([]string, 0, len(s.ChatThreads))
	for _, t := range s.ChatThreads {
		titles = append(titles, t.Title)
	}
	return titles
}
