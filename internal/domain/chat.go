package domain

// Role identifies who authored a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChartStatus describes how far chart generation got for an answer
type ChartStatus string

const (
	ChartStatusSuccess     ChartStatus = "success"
	ChartStatusPartial     ChartStatus = "partial"
	ChartStatusFailed      ChartStatus = "failed"
	ChartStatusNotFeasible ChartStatus = "not_feasible"
)

// DefaultThreadTitle is used for threads created without a file
const DefaultThreadTitle = "Untitled Chat"

// ChatMessage represents one turn of a conversation.
// Messages are never edited after they are appended to a thread.
type ChatMessage struct {
	ID            string        `json:"id"`
	Role          Role          `json:"role"`
	Content       string        `json:"content"`
	Charts        []ChartConfig `json:"charts,omitempty"`
	ChartStatus   ChartStatus   `json:"chartStatus,omitempty"`
	ChartMessage  string        `json:"chartMessage,omitempty"`
	RetryAttempts int           `json:"retryAttempts,omitempty"`
	Timestamp     int64         `json:"timestamp"` // epoch milliseconds
}

// ChatThread represents one independent conversation, bound to at most one file
type ChatThread struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Messages  []ChatMessage  `json:"messages"`
	FileID    string         `json:"fileId,omitempty"`
	Schema    *DatasetSchema `json:"schema,omitempty"`
	CreatedAt int64          `json:"createdAt"`
	UpdatedAt int64          `json:"updatedAt"`
}

// ChatTurn is the reduced form of a message sent back for follow-up suggestions
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turns reduces messages to role/content pairs
func Turns(messages []ChatMessage) []ChatTurn {
	turns := make([]ChatTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, ChatTurn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// AnalyzeResponse is the backend's answer to a natural-language question
type AnalyzeResponse struct {
	Insights      string        `json:"insights"`
	Charts        []ChartConfig `json:"charts"`
	ChartStatus   ChartStatus   `json:"chartStatus,omitempty"`
	ChartMessage  string        `json:"chartMessage,omitempty"`
	RetryAttempts int           `json:"retryAttempts,omitempty"`
}
