package cozebridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZaguanLabs/cozebridge"
	"github.com/ZaguanLabs/cozebridge/provider"
)

var validCreds = cozebridge.Credentials{APIKey: "pat_abc123", BotID: "123456"}

func TestBridge_EndToEnd(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/v3/chat":
			w.Write([]byte(`{"code":0,"msg":"","data":{"id":"h1","conversation_id":"c1","status":"created"}}`))
		case "/v3/chat/retrieve":
			w.Write([]byte(`{"code":0,"data":{"id":"h1","conversation_id":"c1","status":"completed"}}`))
		case "/v3/chat/message/list":
			w.Write([]byte(`{"code":0,"data":[{"role":"assistant","type":"answer","content":"你好"}]}`))
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	bridge := cozebridge.NewBridge(provider.NewCozeClient(provider.CozeConfig{BaseURL: srv.URL}))
	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error != nil {
		t.Fatalf("Expected result, got error %+v", out.Error)
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	expected := `{"result":{"from":"auto","to":"auto","toParagraphs":["你好"]}}`
	if string(data) != expected {
		t.Errorf("Outcome = %s, want %s", data, expected)
	}

	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}
}

func TestBridge_ValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name     string
		query    cozebridge.Query
		creds    cozebridge.Credentials
		expected cozebridge.ErrorType
	}{
		{"bad key", cozebridge.Query{Text: "hello"}, cozebridge.Credentials{APIKey: "sk-123", BotID: "123456"}, cozebridge.ErrorTypeConfig},
		{"empty key", cozebridge.Query{Text: "hello"}, cozebridge.Credentials{BotID: "123456"}, cozebridge.ErrorTypeConfig},
		{"bad bot id", cozebridge.Query{Text: "hello"}, cozebridge.Credentials{APIKey: "pat_abc", BotID: "12a"}, cozebridge.ErrorTypeConfig},
		{"blank text", cozebridge.Query{Text: "   "}, validCreds, cozebridge.ErrorTypeParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := provider.NewMockBackend("你好")
			bridge := cozebridge.NewBridge(m)

			out := bridge.TranslateSync(context.Background(), tt.query, tt.creds)

			if out.Error == nil || out.Error.Type != tt.expected {
				t.Errorf("Expected %q error, got %+v", tt.expected, out)
			}
			if out.Result != nil {
				t.Error("Result should be nil on error")
			}
			if m.TotalCalls() != 0 {
				t.Errorf("Expected no backend calls, got %d", m.TotalCalls())
			}
		})
	}
}

func TestBridge_PollStopsOnCompletion(t *testing.T) {
	m := provider.NewMockBackend("你好")
	m.Statuses = []cozebridge.SessionStatus{
		cozebridge.StatusCreated,
		cozebridge.StatusInProgress,
		cozebridge.StatusCompleted,
	}
	bridge := cozebridge.NewBridge(m)

	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error != nil {
		t.Fatalf("Expected result, got %+v", out.Error)
	}
	if m.RetrieveCalls != 3 {
		t.Errorf("Expected 3 status checks, got %d", m.RetrieveCalls)
	}
	if m.ListCalls != 1 {
		t.Errorf("Expected 1 message fetch, got %d", m.ListCalls)
	}
}

func TestBridge_PollTimeout(t *testing.T) {
	m := provider.NewMockBackend("你好")
	m.Statuses = []cozebridge.SessionStatus{cozebridge.StatusInProgress}
	bridge := cozebridge.NewBridge(m)

	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error == nil || out.Error.Type != cozebridge.ErrorTypeAPI {
		t.Fatalf("Expected api error, got %+v", out)
	}
	if !strings.Contains(out.Error.Message, "timed out waiting for response") {
		t.Errorf("Unexpected message: %s", out.Error.Message)
	}
	if !strings.Contains(out.Error.Message, `last status "in_progress"`) {
		t.Errorf("Expected last status in message: %s", out.Error.Message)
	}
	if m.RetrieveCalls != 10 {
		t.Errorf("Expected 10 status checks, got %d", m.RetrieveCalls)
	}
	if m.ListCalls != 0 {
		t.Error("Messages must not be fetched before completion")
	}
}

func TestBridge_FailedStatusKeepsPolling(t *testing.T) {
	m := provider.NewMockBackend("你好")
	m.Statuses = []cozebridge.SessionStatus{cozebridge.StatusFailed, cozebridge.StatusCompleted}
	bridge := cozebridge.NewBridge(m)

	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error != nil {
		t.Fatalf("Expected result, got %+v", out.Error)
	}
	if m.RetrieveCalls != 2 {
		t.Errorf("Expected 2 status checks, got %d", m.RetrieveCalls)
	}
}

func TestBridge_StageErrors(t *testing.T) {
	apiErr := &cozebridge.RemoteAPIError{Op: "x", Code: 4000, Message: "bad request"}

	tests := []struct {
		name      string
		configure func(m *provider.MockBackend)
		calls     int
	}{
		{"create fails", func(m *provider.MockBackend) { m.CreateErr = apiErr }, 1},
		{"retrieve fails", func(m *provider.MockBackend) { m.RetrieveErr = apiErr }, 2},
		{"list fails", func(m *provider.MockBackend) { m.ListErr = apiErr }, 3},
		{"missing session ids", func(m *provider.MockBackend) { m.Session = cozebridge.Session{} }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := provider.NewMockBackend("你好")
			tt.configure(m)
			bridge := cozebridge.NewBridge(m)

			out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

			if out.Error == nil || out.Error.Type != cozebridge.ErrorTypeAPI {
				t.Fatalf("Expected api error, got %+v", out)
			}
			if !strings.HasPrefix(out.Error.Message, "request failed: ") {
				t.Errorf("Unexpected message: %s", out.Error.Message)
			}
			if m.TotalCalls() != tt.calls {
				t.Errorf("Expected %d calls, got %d", tt.calls, m.TotalCalls())
			}
		})
	}
}

func TestBridge_UntypedBackendErrorsAreAPI(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name      string
		configure func(m *provider.MockBackend)
		op        string
	}{
		{"create", func(m *provider.MockBackend) { m.CreateErr = boom }, "create chat"},
		{"retrieve", func(m *provider.MockBackend) { m.RetrieveErr = boom }, "retrieve chat"},
		{"list", func(m *provider.MockBackend) { m.ListErr = boom }, "list messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := provider.NewMockBackend("你好")
			tt.configure(m)
			bridge := cozebridge.NewBridge(m)

			out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

			if out.Error == nil || out.Error.Type != cozebridge.ErrorTypeAPI {
				t.Fatalf("Expected api error, got %+v", out)
			}
			want := "request failed: coze api error (" + tt.op + "): connection reset"
			if out.Error.Message != want {
				t.Errorf("Expected %q, got %q", want, out.Error.Message)
			}
		})
	}
}

func TestBridge_UnknownBackendErrorStaysUnknown(t *testing.T) {
	m := provider.NewMockBackend("你好")
	m.ListErr = &cozebridge.UnknownError{Cause: errors.New("decoder bug")}
	bridge := cozebridge.NewBridge(m)

	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error == nil || out.Error.Type != cozebridge.ErrorTypeUnknown {
		t.Fatalf("Expected unknown error, got %+v", out)
	}
}

func TestBridge_LastAnswerWins(t *testing.T) {
	m := provider.NewMockBackend("")
	m.Messages = []cozebridge.AssistantMessage{
		{Role: "assistant", Type: "answer", Content: "A"},
		{Role: "assistant", Type: "follow_up", Content: "ignored"},
		{Role: "assistant", Type: "answer", Content: "B"},
		{Role: "user", Type: "question", Content: "hello"},
	}
	bridge := cozebridge.NewBridge(m)

	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello", From: "en", To: "zh-Hans"}, validCreds)

	if out.Error != nil {
		t.Fatalf("Expected result, got %+v", out.Error)
	}
	if len(out.Result.ToParagraphs) != 1 || out.Result.ToParagraphs[0] != "B" {
		t.Errorf("Expected [B], got %v", out.Result.ToParagraphs)
	}
	if out.Result.From != "en" || out.Result.To != "zh-Hans" {
		t.Errorf("Expected en -> zh-Hans, got %s -> %s", out.Result.From, out.Result.To)
	}
}

func TestBridge_NoAnswer(t *testing.T) {
	m := provider.NewMockBackend("")
	m.Messages = []cozebridge.AssistantMessage{
		{Role: "assistant", Type: "verbose", Content: "{}"},
	}
	bridge := cozebridge.NewBridge(m)

	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error == nil || out.Error.Type != cozebridge.ErrorTypeAPI {
		t.Fatalf("Expected api error, got %+v", out)
	}
	if !strings.Contains(out.Error.Message, "no assistant answer") {
		t.Errorf("Unexpected message: %s", out.Error.Message)
	}
}

func TestBridge_EmptyAnswer(t *testing.T) {
	bridge := cozebridge.NewBridge(provider.NewMockBackend(""))

	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error == nil || !strings.Contains(out.Error.Message, "empty translation result") {
		t.Errorf("Expected empty result error, got %+v", out)
	}
}

func TestLastAnswer(t *testing.T) {
	answer, err := cozebridge.LastAnswer([]cozebridge.AssistantMessage{
		{Role: "assistant", Type: "answer", Content: "A"},
		{Role: "assistant", Type: "answer", Content: "B"},
	})
	if err != nil || answer != "B" {
		t.Errorf("LastAnswer() = %q, %v; want B", answer, err)
	}

	_, err = cozebridge.LastAnswer(nil)
	var noAnswer *cozebridge.NoAnswerError
	if !errors.As(err, &noAnswer) {
		t.Errorf("Expected NoAnswerError, got %v", err)
	}
}

func TestBridge_TranslateAsync(t *testing.T) {
	bridge := cozebridge.NewBridge(provider.NewMockBackend("你好"))

	done := make(chan cozebridge.Outcome, 2)
	bridge.Translate(context.Background(), cozebridge.Query{Text: "hello"}, validCreds, func(out cozebridge.Outcome) {
		done <- out
	})

	select {
	case out := <-done:
		if out.Result == nil || out.Result.ToParagraphs[0] != "你好" {
			t.Errorf("Unexpected outcome: %+v", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("completion was not invoked")
	}

	select {
	case out := <-done:
		t.Errorf("completion invoked twice, second outcome %+v", out)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBridge_TranslateAsync_ValidationIsSynchronous(t *testing.T) {
	bridge := cozebridge.NewBridge(provider.NewMockBackend("你好"))

	var got *cozebridge.Outcome
	bridge.Translate(context.Background(), cozebridge.Query{Text: ""}, validCreds, func(out cozebridge.Outcome) {
		got = &out
	})

	if got == nil {
		t.Fatal("Validation failure should complete before Translate returns")
	}
	if got.Error == nil || got.Error.Type != cozebridge.ErrorTypeParam {
		t.Errorf("Expected param error, got %+v", got)
	}
}

func TestBridge_TranslateNilCompletion(t *testing.T) {
	m := provider.NewMockBackend("你好")
	bridge := cozebridge.NewBridge(m)

	bridge.Translate(context.Background(), cozebridge.Query{Text: "hello"}, validCreds, nil)

	if m.TotalCalls() != 0 {
		t.Errorf("Expected no backend calls, got %d", m.TotalCalls())
	}
}

type panickingBackend struct {
	*provider.MockBackend
}

func (p panickingBackend) ListMessages(ctx context.Context, creds cozebridge.Credentials, session cozebridge.Session) ([]cozebridge.AssistantMessage, error) {
	panic("message decoder exploded")
}

func TestBridge_PanicBecomesUnknown(t *testing.T) {
	bridge := cozebridge.NewBridge(panickingBackend{provider.NewMockBackend("你好")})

	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error == nil || out.Error.Type != cozebridge.ErrorTypeUnknown {
		t.Fatalf("Expected unknown error, got %+v", out)
	}
	if out.Error.Message != "plugin error: message decoder exploded" {
		t.Errorf("Unexpected message: %s", out.Error.Message)
	}
}

func TestBridge_PollConfigOption(t *testing.T) {
	m := provider.NewMockBackend("你好")
	m.Statuses = []cozebridge.SessionStatus{cozebridge.StatusInProgress}
	bridge := cozebridge.NewBridge(m, cozebridge.WithPollConfig(cozebridge.PollConfig{MaxAttempts: 4}))

	bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	if m.RetrieveCalls != 4 {
		t.Errorf("Expected 4 status checks, got %d", m.RetrieveCalls)
	}
}

func TestBridge_LogsCarryTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	bridge := cozebridge.NewBridge(provider.NewMockBackend("你好"),
		cozebridge.WithLogger(logger),
		cozebridge.WithTraceIDFunc(func() string { return "trace-1" }),
	)

	bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, validCreds)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 4 {
		t.Fatalf("Expected a log entry per stage, got %d lines", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, `"trace_id":"trace-1"`) {
			t.Errorf("Log line missing trace_id: %s", line)
		}
	}
}

func TestBridge_LogsOmitAPIKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	bridge := cozebridge.NewBridge(provider.NewMockBackend("你好"), cozebridge.WithLogger(logger))

	creds := cozebridge.Credentials{APIKey: "pat_SECRETSECRET", BotID: "1"}
	out := bridge.TranslateSync(context.Background(), cozebridge.Query{Text: "hello"}, creds)
	if out.Error != nil {
		t.Fatalf("Expected result, got %+v", out.Error)
	}

	logs := buf.String()
	if strings.Contains(logs, "SECRETSECRET") {
		t.Errorf("API key written to logs: %s", logs)
	}
	if !strings.Contains(logs, `"has_api_key":true`) {
		t.Errorf("Expected has_api_key in logs: %s", logs)
	}
}

func TestBridge_CancelledContext(t *testing.T) {
	m := provider.NewMockBackend("你好")
	m.Statuses = []cozebridge.SessionStatus{cozebridge.StatusInProgress}
	bridge := cozebridge.NewBridge(m, cozebridge.WithPollConfig(cozebridge.PollConfig{MaxAttempts: 10, Interval: time.Second}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := bridge.TranslateSync(ctx, cozebridge.Query{Text: "hello"}, validCreds)

	if out.Error == nil || out.Error.Type != cozebridge.ErrorTypeAPI {
		t.Fatalf("Expected api error, got %+v", out)
	}
	if m.RetrieveCalls != 1 {
		t.Errorf("Expected 1 status check before cancellation, got %d", m.RetrieveCalls)
	}
}
