package cozebridge

import "context"

// LangAuto is the language identifier used when the host does not name one.
const LangAuto = "auto"

// APIKeyPrefix is the prefix every Coze personal access token carries.
const APIKeyPrefix = "pat_"

// Query is a single translation request from the host.
type Query struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Credentials identify the caller against the Coze API. They are supplied per
// call and never stored.
type Credentials struct {
	APIKey string // Personal access token, must start with "pat_"
	BotID  string // Numeric bot identifier
}

// Session identifies one remote chat turn. A Session belongs to exactly one
// translation call.
type Session struct {
	ConversationID string
	ChatID         string
}

// SessionStatus is the remote state of a chat.
type SessionStatus string

const (
	StatusCreated        SessionStatus = "created"
	StatusInProgress     SessionStatus = "in_progress"
	StatusCompleted      SessionStatus = "completed"
	StatusFailed         SessionStatus = "failed"
	StatusRequiresAction SessionStatus = "requires_action"
	StatusCanceled       SessionStatus = "canceled"
)

// ChatStatus is the payload of a status check.
type ChatStatus struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Status         SessionStatus `json:"status"`
	LastError      *ChatError    `json:"last_error,omitempty"`
}

// ChatError is the error detail Coze attaches to a chat status.
type ChatError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Completed reports whether the chat reached the only terminal-success state.
func (s *ChatStatus) Completed() bool {
	return s != nil && s.Status == StatusCompleted
}

// AssistantMessage is one entry of a chat's message list.
type AssistantMessage struct {
	Role        string `json:"role"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

// IsAnswer reports whether the message is the assistant's reply to the turn.
func (m AssistantMessage) IsAnswer() bool {
	return m.Role == "assistant" && m.Type == "answer"
}

// TranslationResult is a successful translation.
type TranslationResult struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	ToParagraphs []string `json:"toParagraphs"`
}

// ErrorInfo is the error shape delivered to the host.
type ErrorInfo struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

// Outcome is the single value delivered to the host per call. Exactly one of
// Result and Error is set.
type Outcome struct {
	Result *TranslationResult `json:"result,omitempty"`
	Error  *ErrorInfo         `json:"error,omitempty"`
}

// Completion receives the Outcome of an asynchronous translation.
type Completion func(Outcome)

// ChatBackend performs the three remote calls a translation needs.
type ChatBackend interface {
	CreateChat(ctx context.Context, creds Credentials, text string) (Session, error)
	RetrieveChat(ctx context.Context, creds Credentials, session Session) (*ChatStatus, error)
	ListMessages(ctx context.Context, creds Credentials, session Session) ([]AssistantMessage, error)
}
