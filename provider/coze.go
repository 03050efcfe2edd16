package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZaguanLabs/cozebridge"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Coze API endpoint.
	DefaultBaseURL = "https://api.coze.cn"

	// DefaultUserID identifies the plugin as the chatting user.
	DefaultUserID = "bob_plugin_user"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second
)

const (
	opCreateChat   = "create chat"
	opRetrieveChat = "retrieve chat"
	opListMessages = "list messages"
)

// CozeClient implements ChatBackend over the Coze v3 chat API.
type CozeClient struct {
	baseURL    string
	userID     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// CozeConfig holds configuration for the Coze client.
type CozeConfig struct {
	BaseURL           string        // API base URL (default: "https://api.coze.cn")
	UserID            string        // User identifier sent with each chat (default: "bob_plugin_user")
	Timeout           time.Duration // Per-request timeout (default: 30s)
	RequestsPerMinute int           // Outbound request ceiling, 0 disables limiting
	HTTPClient        *http.Client  // Custom HTTP client (optional, Timeout is ignored when set)
}

// NewCozeClient creates a new Coze client.
func NewCozeClient(cfg CozeConfig) *CozeClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userID := cfg.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &CozeClient{
		baseURL:    baseURL,
		userID:     userID,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// envelope is the wrapper around every Coze response.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type chatMessage struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type createChatRequest struct {
	BotID              string        `json:"bot_id"`
	UserID             string        `json:"user_id"`
	Stream             bool          `json:"stream"`
	AutoSaveHistory    bool          `json:"auto_save_history"`
	AdditionalMessages []chatMessage `json:"additional_messages"`
}

type createChatData struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
}

// CreateChat opens a conversation with text as the first user turn.
func (c *CozeClient) CreateChat(ctx context.Context, creds cozebridge.Credentials, text string) (cozebridge.Session, error) {
	botID := strings.TrimSpace(creds.BotID)
	body := createChatRequest{
		BotID:           botID,
		UserID:          c.userID,
		Stream:          false,
		AutoSaveHistory: true,
		AdditionalMessages: []chatMessage{
			{Role: "user", Content: text, ContentType: "text"},
		},
	}

	var data createChatData
	header := http.Header{"X-Coze-Api-Bot": []string{botID}}
	if err := c.do(ctx, opCreateChat, http.MethodPost, "/v3/chat", nil, header, body, creds, &data); err != nil {
		return cozebridge.Session{}, err
	}

	if data.ConversationID == "" {
		return cozebridge.Session{}, &cozebridge.RemoteAPIError{Op: opCreateChat, Message: "missing conversation id"}
	}
	if data.ID == "" {
		return cozebridge.Session{}, &cozebridge.RemoteAPIError{Op: opCreateChat, Message: "missing chat id"}
	}

	return cozebridge.Session{
		ConversationID: data.ConversationID,
		ChatID:         data.ID,
	}, nil
}

// RetrieveChat fetches the current status of a chat.
func (c *CozeClient) RetrieveChat(ctx context.Context, creds cozebridge.Credentials, session cozebridge.Session) (*cozebridge.ChatStatus, error) {
	var status cozebridge.ChatStatus
	if err := c.do(ctx, opRetrieveChat, http.MethodGet, "/v3/chat/retrieve", sessionQuery(session), nil, nil, creds, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListMessages fetches every message of a chat in the order Coze returns them.
func (c *CozeClient) ListMessages(ctx context.Context, creds cozebridge.Credentials, session cozebridge.Session) ([]cozebridge.AssistantMessage, error) {
	var messages []cozebridge.AssistantMessage
	if err := c.do(ctx, opListMessages, http.MethodGet, "/v3/chat/message/list", sessionQuery(session), nil, nil, creds, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func sessionQuery(session cozebridge.Session) url.Values {
	return url.Values{
		"chat_id":         []string{session.ChatID},
		"conversation_id": []string{session.ConversationID},
	}
}

// do performs one API call and decodes the envelope's data into out.
func (c *CozeClient) do(ctx context.Context, op, method, path string, query url.Values, header http.Header, body any, creds cozebridge.Credentials, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &cozebridge.RemoteAPIError{Op: op, Message: "rate limiter", Cause: err}
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &cozebridge.RemoteAPIError{Op: op, Message: "failed to marshal request", Cause: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return &cozebridge.RemoteAPIError{Op: op, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", cozebridge.UserAgent())
	for k, v := range header {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &cozebridge.RemoteAPIError{Op: op, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &cozebridge.RemoteAPIError{Op: op, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &cozebridge.RemoteAPIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed response (HTTP %d)", resp.StatusCode),
			Cause:      err,
		}
	}

	if env.Code != 0 {
		msg := env.Msg
		if msg == "" {
			msg = "API error"
		}
		return &cozebridge.RemoteAPIError{Op: op, Code: env.Code, Message: msg, StatusCode: resp.StatusCode}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &cozebridge.RemoteAPIError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &cozebridge.RemoteAPIError{Op: op, StatusCode: resp.StatusCode, Message: "invalid response: missing data"}
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return &cozebridge.RemoteAPIError{Op: op, StatusCode: resp.StatusCode, Message: "invalid response data", Cause: err}
	}

	return nil
}

// Verify CozeClient implements ChatBackend
var _ ChatBackend = (*CozeClient)(nil)
