package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/orion/internal/client"
	"github.com/liliang-cn/orion/internal/dataset"
	"github.com/liliang-cn/orion/internal/domain"
	"github.com/liliang-cn/orion/internal/persist"
	"github.com/liliang-cn/orion/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// RecentTurns is how many trailing messages are sent for follow-up suggestions
const RecentTurns = 3

// Backend is the analysis backend the workspace talks to
type Backend interface {
	UploadFile(ctx context.Context, fileName string, r io.Reader) (*domain.DatasetSchema, error)
	GetSuggestions(ctx context.Context, fileID string, columns []domain.ColumnInfo, summary map[string]domain.SummaryStats) ([]string, error)
	Analyze(ctx context.Context, fileID, prompt string) (*domain.AnalyzeResponse, error)
	GetContextualSuggestions(ctx context.Context, fileID string, recent []domain.ChatTurn) ([]string, error)
}

var _ Backend = (*client.Client)(nil)

type requestKind string

const (
	kindUpload      requestKind = "upload"
	kindAnalyze     requestKind = "analyze"
	kindSuggestions requestKind = "suggestions"
	kindContextual  requestKind = "contextual"
)

// WorkspaceService runs the user-facing flows: uploading files, asking
// questions and managing chat threads. All state changes go through the store.
type WorkspaceService struct {
	store     *store.Store
	backend   Backend
	snapshots persist.SnapshotStore
	logger    *zap.Logger
	now       func() time.Time

	// one outstanding request per kind
	inflight map[requestKind]*semaphore.Weighted
}

// NewWorkspaceService creates a workspace service. snapshots may be nil.
func NewWorkspaceService(st *store.Store, backend Backend, snapshots persist.SnapshotStore, logger *zap.Logger) *WorkspaceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceService{
		store:     st,
		backend:   backend,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
		inflight: map[requestKind]*semaphore.Weighted{
			kindUpload:      semaphore.NewWeighted(1),
			kindAnalyze:     semaphore.NewWeighted(1),
			kindSuggestions: semaphore.NewWeighted(1),
			kindContextual:  semaphore.NewWeighted(1),
		},
	}
}

// State returns the current workspace state
func (s *WorkspaceService) State() store.State {
	return s.store.State()
}

// Revision returns the store revision
func (s *WorkspaceService) Revision() uint64 {
	return s.store.Revision()
}

// Upload sends a file to the backend and binds the resulting schema to the
// active thread, or to a new thread named after the file.
func (s *WorkspaceService) Upload(ctx context.Context, fileName string, r io.Reader) (*domain.DatasetSchema, error) {
	if !dataset.Supported(fileName) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, fileName)
	}
	if !s.acquire(kindUpload) {
		return nil, domain.ErrRequestInFlight
	}
	defer s.release(kindUpload)

	schema, err := s.backend.UploadFile(ctx, fileName, r)
	if err != nil {
		s.logger.Error("Upload failed", zap.String("file", fileName), zap.Error(err))
		return nil, err
	}
	schema.FileName = fileName

	state := s.store.State()
	title := domain.UniqueTitle(domain.BaseName(fileName), state.ThreadTitles())

	if active, ok := state.ActiveThread(); ok {
		s.store.Dispatch(store.UpdateThreadFile{
			ThreadID: active.ID,
			FileID:   schema.FileID,
			Schema:   *schema,
			Title:    title,
		})
	} else {
		now := s.now().UnixMilli()
		bound := *schema
		s.store.Dispatch(store.SetSchema{Schema: *schema})
		s.store.Dispatch(store.CreateChatThread{Thread: domain.ChatThread{
			ID:        newID(),
			Title:     title,
			Messages:  []domain.ChatMessage{},
			FileID:    schema.FileID,
			Schema:    &bound,
			CreatedAt: now,
			UpdatedAt: now,
		}})
	}

	s.logger.Info("File uploaded",
		zap.String("file", fileName),
		zap.String("file_id", schema.FileID),
		zap.Int("columns", len(schema.Columns)),
		zap.String("thread_title", title),
	)

	s.store.Dispatch(store.SetSuggestions{Suggestions: []string{}})
	s.RefreshSuggestions(ctx)
	return schema, nil
}

// RefreshSuggestions fetches analysis prompts for the current schema and
// stores them. Failures are logged and leave the list empty.
func (s *WorkspaceService) RefreshSuggestions(ctx context.Context) []string {
	schema := s.store.State().CurrentSchema()
	if schema == nil {
		return []string{}
	}
	if !s.acquire(kindSuggestions) {
		return []string{}
	}
	defer s.release(kindSuggestions)

	suggestions, err := s.backend.GetSuggestions(ctx, schema.FileID, schema.Columns, schema.Summary)
	if err != nil {
		s.logger.Warn("Failed to load suggestions", zap.String("file_id", schema.FileID), zap.Error(err))
		suggestions = nil
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	s.store.Dispatch(store.SetSuggestions{Suggestions: suggestions})
	return suggestions
}

// Ask sends a question about the current file. The question and the answer,
// or an error message, are appended to the active thread.
func (s *WorkspaceService) Ask(ctx context.Context, prompt string) (*domain.ChatMessage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", domain.ErrInvalidRequest)
	}
	state := s.store.State()
	fileID := state.CurrentFileID()
	if fileID == "" {
		return nil, domain.ErrNoDataset
	}
	if !s.acquire(kindAnalyze) {
		return nil, domain.ErrRequestInFlight
	}
	defer s.release(kindAnalyze)

	threadID := ""
	if active, ok := state.ActiveThread(); ok {
		threadID = active.ID
	}

	s.appendMessage(threadID, domain.ChatMessage{
		ID:        newID(),
		Role:      domain.RoleUser,
		Content:   prompt,
		Timestamp: s.now().UnixMilli(),
	})

	resp, err := s.backend.Analyze(ctx, fileID, prompt)
	if err != nil {
		s.logger.Error("Analysis failed", zap.String("file_id", fileID), zap.Error(err))
		msg := domain.ChatMessage{
			ID:        newID(),
			Role:      domain.RoleAssistant,
			Content:   errorContent(err),
			Timestamp: s.now().UnixMilli(),
		}
		s.appendMessage(threadID, msg)
		return &msg, err
	}

	msg := domain.ChatMessage{
		ID:            newID(),
		Role:          domain.RoleAssistant,
		Content:       resp.Insights,
		ChartStatus:   resp.ChartStatus,
		ChartMessage:  resp.ChartMessage,
		RetryAttempts: resp.RetryAttempts,
		Timestamp:     s.now().UnixMilli(),
	}
	if len(resp.Charts) > 0 {
		msg.Charts = resp.Charts
	}
	s.appendMessage(threadID, msg)
	if len(resp.Charts) > 0 {
		s.store.Dispatch(store.SetCharts{Charts: resp.Charts})
	}
	return &msg, nil
}

// ContextualSuggestions asks for follow-up questions based on the last few
// messages of the current conversation. Failures yield an empty list.
func (s *WorkspaceService) ContextualSuggestions(ctx context.Context) []string {
	state := s.store.State()
	fileID := state.CurrentFileID()
	messages := state.CurrentMessages()
	if fileID == "" || state.CurrentSchema() == nil || len(messages) == 0 {
		return []string{}
	}
	if !s.acquire(kindContextual) {
		return []string{}
	}
	defer s.release(kindContextual)

	if len(messages) > RecentTurns {
		messages = messages[len(messages)-RecentTurns:]
	}
	suggestions, err := s.backend.GetContextualSuggestions(ctx, fileID, domain.Turns(messages))
	if err != nil {
		s.logger.Warn("Failed to load contextual suggestions", zap.String("file_id", fileID), zap.Error(err))
		return []string{}
	}
	if suggestions == nil {
		return []string{}
	}
	return suggestions
}

// NewChat creates an empty thread and makes it active
func (s *WorkspaceService) NewChat() domain.ChatThread {
	now := s.now().UnixMilli()
	thread := domain.ChatThread{
		ID:        newID(),
		Title:     domain.DefaultThreadTitle,
		Messages:  []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Dispatch(store.CreateChatThread{Thread: thread})
	return thread
}

// SelectThread makes an existing thread active
func (s *WorkspaceService) SelectThread(id string) error {
	if _, ok := s.store.State().Thread(id); !ok {
		return fmt.Errorf("%w: thread %s", domain.ErrNotFound, id)
	}
	s.store.Dispatch(store.SetActiveThread{ThreadID: id})
	return nil
}

// RenameThread changes a thread's title
func (s *WorkspaceService) RenameThread(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is empty", domain.ErrInvalidRequest)
	}
	if _, ok := s.store.State().Thread(id); !ok {
		return fmt.Errorf("%w: thread %s", domain.ErrNotFound, id)
	}
	s.store.Dispatch(store.UpdateThreadTitle{ThreadID: id, Title: title})
	return nil
}

// DeleteThread removes a thread
func (s *WorkspaceService) DeleteThread(id string) error {
	if _, ok := s.store.State().Thread(id); !ok {
		return fmt.Errorf("%w: thread %s", domain.ErrNotFound, id)
	}
	s.store.Dispatch(store.DeleteThread{ThreadID: id})
	return nil
}

// Reset discards all workspace state, persisted snapshot included
func (s *WorkspaceService) Reset() {
	s.store.Dispatch(store.ResetApp{})
	if s.snapshots != nil {
		s.snapshots.Clear()
	}
	s.logger.Info("Workspace reset")
}

// FindMessage looks up a message in a thread
func (s *WorkspaceService) FindMessage(threadID, messageID string) (domain.ChatMessage, error) {
	thread, ok := s.store.State().Thread(threadID)
	if !ok {
		return domain.ChatMessage{}, fmt.Errorf("%w: thread %s", domain.ErrNotFound, threadID)
	}
	for _, m := range thread.Messages {
		if m.ID == messageID {
			return m, nil
		}
	}
	return domain.ChatMessage{}, fmt.Errorf("%w: message %s", domain.ErrNotFound, messageID)
}

func (s *WorkspaceService) appendMessage(threadID string, m domain.ChatMessage) {
	if threadID != "" {
		s.store.Dispatch(store.UpdateThread{ThreadID: threadID, Message: m})
		return
	}
	s.store.Dispatch(store.AddChat{Message: m})
}

func (s *WorkspaceService) acquire(kind requestKind) bool {
	if s.inflight[kind].TryAcquire(1) {
		return true
	}
	s.logger.Debug("Request already in flight", zap.String("kind", string(kind)))
	return false
}

func (s *WorkspaceService) release(kind requestKind) {
	s.inflight[kind].Release(1)
}

// errorContent formats a failed analysis as an assistant message
func errorContent(err error) string {
	var cerr *client.Error
	if errors.As(err, &cerr) {
		if cerr.RequestID != "" {
			return fmt.Sprintf("I encountered an error: %s (Request ID: %s)", cerr.Message, cerr.RequestID)
		}
		return "I encountered an error: " + cerr.Message
	}
	return "I encountered an error: " + err.Error()
}

// newID returns a time-ordered identifier
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
