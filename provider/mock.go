package provider

import (
	"context"
	"sync"

	"github.com/ZaguanLabs/cozebridge"
)

// MockBackend is a scripted ChatBackend for testing.
//
// RetrieveChat replays Statuses in order and repeats the last entry once the
// script runs out. An empty script always reports "completed".
type MockBackend struct {
	Session     cozebridge.Session
	Statuses    []cozebridge.SessionStatus
	Messages    []cozebridge.AssistantMessage
	CreateErr   error
	RetrieveErr error
	ListErr     error

	mu            sync.Mutex
	CreateCalls   int
	RetrieveCalls int
	ListCalls     int
	LastText      string
	LastCreds     cozebridge.Credentials
}

// NewMockBackend creates a mock that completes immediately with answer.
func NewMockBackend(answer string) *MockBackend {
	return &MockBackend{
		Session: cozebridge.Session{ConversationID: "c1", ChatID: "h1"},
		Messages: []cozebridge.AssistantMessage{
			{Role: "user", Type: "question", Content: "hello"},
			{Role: "assistant", Type: "answer", Content: answer},
		},
	}
}

// CreateChat returns the scripted session.
func (m *MockBackend) CreateChat(ctx context.Context, creds cozebridge.Credentials, text string) (cozebridge.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	m.LastText = text
	m.LastCreds = creds
	if m.CreateErr != nil {
		return cozebridge.Session{}, m.CreateErr
	}
	return m.Session, nil
}

// RetrieveChat returns the next scripted status.
func (m *MockBackend) RetrieveChat(ctx context.Context, creds cozebridge.Credentials, session cozebridge.Session) (*cozebridge.ChatStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RetrieveCalls++
	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}

	status := cozebridge.StatusCompleted
	if n := len(m.Statuses); n > 0 {
		i := m.RetrieveCalls - 1
		if i >= n {
			i = n - 1
		}
		status = m.Statuses[i]
	}

	return &cozebridge.ChatStatus{
		ID:             session.ChatID,
		ConversationID: session.ConversationID,
		Status:         status,
	}, nil
}

// ListMessages returns the scripted messages.
func (m *MockBackend) ListMessages(ctx context.Context, creds cozebridge.Credentials, session cozebridge.Session) ([]cozebridge.AssistantMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Messages, nil
}

// TotalCalls returns the number of backend calls made so far.
func (m *MockBackend) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CreateCalls + m.RetrieveCalls + m.ListCalls
}

// Verify MockBackend implements ChatBackend
var _ ChatBackend = (*MockBackend)(nil)
