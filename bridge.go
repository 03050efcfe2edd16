package cozebridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Bridge runs translations against a ChatBackend: create the chat, poll it
// until completed, then extract the answer.
type Bridge struct {
	backend ChatBackend
	poll    PollConfig
	logger  *slog.Logger
	traceID func() string
}

// BridgeOption is a functional option for configuring the Bridge.
type BridgeOption func(*Bridge)

// WithPollConfig sets the status polling policy.
func WithPollConfig(cfg PollConfig) BridgeOption {
	return func(b *Bridge) {
		b.poll = cfg
	}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		b.logger = logger
	}
}

// WithTraceIDFunc sets the generator for per-call trace IDs.
func WithTraceIDFunc(fn func() string) BridgeOption {
	return func(b *Bridge) {
		b.traceID = fn
	}
}

// NewBridge creates a Bridge that talks to backend.
func NewBridge(backend ChatBackend, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		backend: backend,
		poll:    DefaultPollConfig(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		traceID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Translate validates the query synchronously and then runs the remote
// pipeline on its own goroutine. completion is invoked exactly once, on the
// caller's goroutine for validation failures and on the pipeline goroutine
// otherwise.
func (b *Bridge) Translate(ctx context.Context, q Query, creds Credentials, completion Completion) {
	if completion == nil {
		b.logger.Error("translate called without completion")
		return
	}

	logger := b.logger.With(slog.String("trace_id", b.traceID()))
	if out, ok := b.gate(logger, q, creds); !ok {
		completion(out)
		return
	}

	go func() {
		completion(b.run(ctx, logger, q, creds))
	}()
}

// TranslateSync runs a translation on the caller's goroutine.
func (b *Bridge) TranslateSync(ctx context.Context, q Query, creds Credentials) Outcome {
	logger := b.logger.With(slog.String("trace_id", b.traceID()))
	if out, ok := b.gate(logger, q, creds); !ok {
		return out
	}
	return b.run(ctx, logger, q, creds)
}

// gate applies the validation checks. It reports false with the Outcome to
// deliver when the query must not reach the network.
func (b *Bridge) gate(logger *slog.Logger, q Query, creds Credentials) (out Outcome, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = b.fail(logger, &UnknownError{Cause: fmt.Errorf("%v", r)}), false
		}
	}()

	logger.Info("translation requested",
		slog.String("from", q.From),
		slog.String("to", q.To),
		slog.Int("text_length", len(q.Text)),
	)

	if err := Validate(q, creds); err != nil {
		return b.fail(logger, err), false
	}

	logger.Debug("configuration check passed", slog.String("bot_id", strings.TrimSpace(creds.BotID)))
	return Outcome{}, true
}

// run executes the remote pipeline and converts the result into an Outcome.
func (b *Bridge) run(ctx context.Context, logger *slog.Logger, q Query, creds Credentials) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = b.fail(logger, &UnknownError{Cause: fmt.Errorf("%v", r)})
		}
	}()

	creds.BotID = strings.TrimSpace(creds.BotID)
	logger.Info("request started",
		slog.Bool("has_api_key", creds.APIKey != ""),
		slog.String("bot_id", creds.BotID),
	)

	answer, err := b.execute(ctx, logger, creds, q.Text)
	if err != nil {
		return b.fail(logger, err)
	}

	result := &TranslationResult{
		From:         orAuto(q.From),
		To:           orAuto(q.To),
		ToParagraphs: []string{answer},
	}
	logger.Info("translation completed",
		slog.String("from", result.From),
		slog.String("to", result.To),
		slog.Int("answer_length", len(answer)),
	)
	return Outcome{Result: result}
}

// execute runs create, poll and extract in order.
func (b *Bridge) execute(ctx context.Context, logger *slog.Logger, creds Credentials, text string) (string, error) {
	session, err := b.createSession(ctx, logger, creds, text)
	if err != nil {
		return "", err
	}

	if _, err := b.pollStatus(ctx, logger, creds, session); err != nil {
		return "", err
	}

	return b.extractResult(ctx, logger, creds, session)
}

func (b *Bridge) createSession(ctx context.Context, logger *slog.Logger, creds Credentials, text string) (Session, error) {
	logger.Info("creating chat", slog.String("bot_id", creds.BotID), slog.Int("text_length", len(text)))

	session, err := b.backend.CreateChat(ctx, creds, text)
	if err != nil {
		err = stageError("create chat", err)
		logger.Error("create chat failed", slog.String("error", err.Error()))
		return Session{}, err
	}
	if session.ConversationID == "" || session.ChatID == "" {
		return Session{}, &RemoteAPIError{Op: "create chat", Message: "missing conversation or chat id"}
	}

	logger.Info("chat created",
		slog.String("conversation_id", session.ConversationID),
		slog.String("chat_id", session.ChatID),
	)
	return session, nil
}

func (b *Bridge) pollStatus(ctx context.Context, logger *slog.Logger, creds Credentials, session Session) (*ChatStatus, error) {
	var last SessionStatus
	status, err := Poll(ctx, b.poll, func(attempt int) (*ChatStatus, bool, error) {
		logger.Debug("checking chat status",
			slog.Int("attempt", attempt),
			slog.String("chat_id", session.ChatID),
			slog.String("conversation_id", session.ConversationID),
		)

		status, err := b.backend.RetrieveChat(ctx, creds, session)
		if err != nil {
			return nil, false, err
		}
		if status == nil {
			return nil, false, &RemoteAPIError{Op: "retrieve chat", Message: "empty status payload"}
		}

		last = status.Status
		logger.Debug("chat status", slog.Int("attempt", attempt), slog.String("status", string(status.Status)))
		return status, status.Completed(), nil
	})
	if err != nil {
		var timeoutErr *TimeoutError
		if errors.As(err, &timeoutErr) {
			timeoutErr.LastStatus = last
		}
		err = stageError("retrieve chat", err)
		logger.Error("poll chat failed", slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("chat completed", slog.String("chat_id", session.ChatID))
	return status, nil
}

func (b *Bridge) extractResult(ctx context.Context, logger *slog.Logger, creds Credentials, session Session) (string, error) {
	messages, err := b.backend.ListMessages(ctx, creds, session)
	if err != nil {
		err = stageError("list messages", err)
		logger.Error("list messages failed", slog.String("error", err.Error()))
		return "", err
	}

	logger.Debug("messages fetched", slog.Int("count", len(messages)))

	answer, err := LastAnswer(messages)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", &NoAnswerError{Message: "empty translation result"}
	}
	return answer, nil
}

// stageError attaches op to backend errors outside the taxonomy, so a failed
// remote call always surfaces as an api error. Context errors land here too.
func stageError(op string, err error) error {
	var unknownErr *UnknownError
	if ErrorTypeOf(err) != ErrorTypeUnknown || errors.As(err, &unknownErr) {
		return err
	}
	return &RemoteAPIError{Op: op, Cause: err}
}

// fail logs err and converts it to an error Outcome.
func (b *Bridge) fail(logger *slog.Logger, err error) Outcome {
	info := NewErrorInfo(err)
	logger.Error("translation failed",
		slog.String("type", string(info.Type)),
		slog.String("error", err.Error()),
	)
	return Outcome{Error: info}
}

// LastAnswer returns the content of the last assistant answer in list order.
func LastAnswer(messages []AssistantMessage) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsAnswer() {
			return messages[i].Content, nil
		}
	}
	return "", &NoAnswerError{}
}
