// Package server exposes the translation bridge over HTTP.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ZaguanLabs/cozebridge"
	"github.com/labstack/echo/v4"
)

// Translator runs one translation. *cozebridge.Bridge satisfies it.
type Translator interface {
	TranslateSync(ctx context.Context, q cozebridge.Query, creds cozebridge.Credentials) cozebridge.Outcome
}

// Handler serves the translation endpoints.
type Handler struct {
	translator Translator
	creds      cozebridge.Credentials
	logger     *slog.Logger
}

// NewHandler creates a Handler that translates with the given credentials.
func NewHandler(translator Translator, creds cozebridge.Credentials, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{translator: translator, creds: creds, logger: logger}
}

// New builds the echo instance with all routes registered.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(h.requestLogger)

	e.POST("/translate", h.Translate)
	e.GET("/languages", h.Languages)
	e.GET("/health", h.Health)

	return e
}

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Translate runs a translation and returns the Outcome.
// POST /translate
func (h *Handler) Translate(c echo.Context) error {
	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, cozebridge.Outcome{
			Error: &cozebridge.ErrorInfo{Type: cozebridge.ErrorTypeParam, Message: "invalid request body"},
		})
	}

	out := h.translator.TranslateSync(c.Request().Context(), cozebridge.Query{
		Text: req.Text,
		From: req.From,
		To:   req.To,
	}, h.creds)

	return c.JSON(statusFor(out), out)
}

// Languages lists the supported language identifiers.
// GET /languages
func (h *Handler) Languages(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"languages": cozebridge.SupportLanguages()})
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": cozebridge.FullVersion(),
	})
}

func statusFor(out cozebridge.Outcome) int {
	if out.Error == nil {
		return http.StatusOK
	}
	switch out.Error.Type {
	case cozebridge.ErrorTypeParam:
		return http.StatusBadRequest
	case cozebridge.ErrorTypeConfig:
		return http.StatusUnauthorized
	case cozebridge.ErrorTypeAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		h.logger.Info("http request",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().Status),
			slog.Duration("duration", time.Since(start)),
		)
		return nil
	}
}
