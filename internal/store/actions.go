package store

import "github.com/liliang-cn/orion/internal/domain"

// ActionType is the wire name of an action
type ActionType string

const (
	TypeSetSchema         ActionType = "SET_SCHEMA"
	TypeSetSuggestions    ActionType = "SET_SUGGESTIONS"
	TypeAddChat           ActionType = "ADD_CHAT"
	TypeSetCharts         ActionType = "SET_CHARTS"
	TypeCreateChatThread  ActionType = "CREATE_CHAT_THREAD"
	TypeSetActiveThread   ActionType = "SET_ACTIVE_THREAD"
	TypeUpdateThread      ActionType = "UPDATE_THREAD"
	TypeUpdateThreadFile  ActionType = "UPDATE_THREAD_FILE"
	TypeUpdateThreadTitle ActionType = "UPDATE_THREAD_TITLE"
	TypeDeleteThread      ActionType = "DELETE_THREAD"
	TypeResetApp          ActionType = "RESET_APP"
	TypeLoadState         ActionType = "LOAD_STATE"
)

// Action is a state transition request. The set of actions is closed.
type Action interface {
	Type() ActionType
	isAction()
}

// SetSchema records a freshly uploaded schema
type SetSchema struct{ Schema domain.DatasetSchema }

// SetSuggestions replaces the suggestion list
type SetSuggestions struct{ Suggestions []string }

// AddChat appends to the unbound message list
type AddChat struct{ Message domain.ChatMessage }

// SetCharts replaces the latest chart list
type SetCharts struct{ Charts []domain.ChartConfig }

// CreateChatThread inserts a thread and makes it active
type CreateChatThread struct{ Thread domain.ChatThread }

// SetActiveThread switches the active thread
type SetActiveThread struct{ ThreadID string }

// UpdateThread appends a message to a thread
type UpdateThread struct {
	ThreadID string
	Message  domain.ChatMessage
}

// UpdateThreadFile binds a file to a thread, optionally renaming it
type UpdateThreadFile struct {
	ThreadID string
	FileID   string
	Schema   domain.DatasetSchema
	Title    string
}

// UpdateThreadTitle renames a thread
type UpdateThreadTitle struct {
	ThreadID string
	Title    string
}

// DeleteThread removes a thread
type DeleteThread struct{ ThreadID string }

// ResetApp returns to the initial state
type ResetApp struct{}

// LoadState replaces the whole state, e.g. when hydrating from a snapshot
type LoadState struct{ State State }

func (SetSchema) Type() ActionType         { return TypeSetSchema }
func (SetSuggestions) Type() ActionType    { return TypeSetSuggestions }
func (AddChat) Type() ActionType           { return TypeAddChat }
func (SetCharts) Type() ActionType         { return TypeSetCharts }
func (CreateChatThread) Type() ActionType  { return TypeCreateChatThread }
func (SetActiveThread) Type() ActionType   { return TypeSetActiveThread }
func (UpdateThread) Type() ActionType      { return TypeUpdateThread }
func (UpdateThreadFile) Type() ActionType  { return TypeUpdateThreadFile }
func (UpdateThreadTitle) Type() ActionType { return TypeUpdateThreadTitle }
func (DeleteThread) Type() ActionType      { return TypeDeleteThread }
func (ResetApp) Type() ActionType          { return TypeResetApp }
func (LoadState) Type() ActionType         { return TypeLoadState }

func (SetSchema) isAction()         {}
func (SetSuggestions) isAction()    {}
func (AddChat) isAction()           {}
func (SetCharts) isAction()         {}
func (CreateChatThread) isAction()  {}
func (SetActiveThread) isAction()   {}
func (UpdateThread) isAction()      {}
func (UpdateThreadFile) isAction()  {}
func (UpdateThreadTitle) isAction() {}
func (DeleteThread) isAction()      {}
func (ResetApp) isAction()          {}
func (LoadState) isAction()         {}
