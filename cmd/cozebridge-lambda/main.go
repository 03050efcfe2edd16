// Command cozebridge-lambda runs the translation bridge as an AWS Lambda
// function. Configuration comes from COZEBRIDGE_* environment variables.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/ZaguanLabs/cozebridge"
	"github.com/ZaguanLabs/cozebridge/config"
	"github.com/ZaguanLabs/cozebridge/logging"
	"github.com/ZaguanLabs/cozebridge/provider"
	"github.com/aws/aws-lambda-go/lambda"
)

// WarmupSource identifies scheduled keep-warm events.
const WarmupSource = "warmup"

// Translator runs one translation. *cozebridge.Bridge satisfies it.
type Translator interface {
	TranslateSync(ctx context.Context, q cozebridge.Query, creds cozebridge.Credentials) cozebridge.Outcome
}

// Handler answers Lambda invocations.
type Handler struct {
	translator Translator
	creds      cozebridge.Credentials
}

// WarmupResponse is returned for keep-warm events.
type WarmupResponse struct {
	Status string `json:"status"`
}

func main() {
	cfg, err := config.Load(os.Getenv("COZEBRIDGE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LoggingOptions())
	bridge := cozebridge.NewBridge(provider.NewCozeClient(cfg.ClientConfig()),
		cozebridge.WithPollConfig(cfg.PollPolicy()),
		cozebridge.WithLogger(logger),
	)

	h := &Handler{translator: bridge, creds: cfg.Credentials()}
	lambda.Start(h.Handle)
}

// Handle decodes the event and runs the translation. Failures are reported in
// the Outcome, never as Lambda errors.
func (h *Handler) Handle(ctx context.Context, event json.RawMessage) (interface{}, error) {
	if isWarmupEvent(event) {
		return WarmupResponse{Status: "warm"}, nil
	}

	var q cozebridge.Query
	if err := json.Unmarshal(event, &q); err != nil {
		return cozebridge.Outcome{
			Error: &cozebridge.ErrorInfo{Type: cozebridge.ErrorTypeParam, Message: "invalid event: " + err.Error()},
		}, nil
	}

	return h.translator.TranslateSync(ctx, q, h.creds), nil
}

func isWarmupEvent(event json.RawMessage) bool {
	var probe struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(event, &probe); err != nil {
		return false
	}
	return probe.Source == WarmupSource
}
