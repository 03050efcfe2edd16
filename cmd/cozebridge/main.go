// Command cozebridge translates text through a Coze bot.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ZaguanLabs/cozebridge"
	"github.com/ZaguanLabs/cozebridge/config"
	"github.com/ZaguanLabs/cozebridge/logging"
	"github.com/ZaguanLabs/cozebridge/provider"
	"github.com/ZaguanLabs/cozebridge/server"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(stdin)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(context.Background())
}

type rootOptions struct {
	configPath string
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           cozebridge.Name,
		Short:         cozebridge.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: ./config.yaml, ./configs/config.yaml, ~/.cozebridge/config.yaml)")

	root.AddCommand(
		newTranslateCmd(opts, stdin),
		newLanguagesCmd(),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

type translateOptions struct {
	from    string
	to      string
	apiKey  string
	botID   string
	baseURL string
	json    bool
}

func newTranslateCmd(root *rootOptions, stdin io.Reader) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, root, opts, stdin, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.from, "from", cozebridge.LangAuto, "Source language")
	flags.StringVar(&opts.to, "to", cozebridge.LangAuto, "Target language")
	flags.StringVar(&opts.apiKey, "api-key", "", "Coze personal access token (overrides config)")
	flags.StringVar(&opts.botID, "bot-id", "", "Coze bot ID (overrides config)")
	flags.StringVar(&opts.baseURL, "base-url", "", "Coze API base URL (overrides config)")
	flags.BoolVar(&opts.json, "json", false, "Print the outcome as JSON")
	return cmd
}

func runTranslate(cmd *cobra.Command, root *rootOptions, opts *translateOptions, stdin io.Reader, args []string) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	if opts.apiKey != "" {
		cfg.Coze.APIKey = opts.apiKey
	}
	if opts.botID != "" {
		cfg.Coze.BotID = opts.botID
	}
	if opts.baseURL != "" {
		cfg.Coze.BaseURL = opts.baseURL
	}

	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.LoggingOptions())
	bridge := newBridge(cfg, logger)

	out := bridge.TranslateSync(cmd.Context(), cozebridge.Query{Text: text, From: opts.from, To: opts.to}, cfg.Credentials())

	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else if out.Result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out.Result.ToParagraphs, "\n"))
	}

	if out.Error != nil {
		return fmt.Errorf("%s error: %s", out.Error.Type, out.Error.Message)
	}
	return nil
}

func newLanguagesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(w).Encode(cozebridge.SupportLanguages())
			}
			for _, id := range cozebridge.SupportLanguages() {
				fmt.Fprintf(w, "%-8s %s\n", id, cozebridge.GetLanguageName(id))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print identifiers as a JSON array")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", cozebridge.Name, cozebridge.FullVersion())
			if cozebridge.BuildDate != "unknown" && cozebridge.BuildDate != "" {
				fmt.Fprintf(w, "  built:   %s\n", cozebridge.BuildDate)
			}
			fmt.Fprintf(w, "  source:  %s\n", cozebridge.Repository)
			return nil
		},
	}
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translation bridge over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			return serve(cmd.Context(), cfg, logging.New(cmd.ErrOrStderr(), cfg.LoggingOptions()))
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Configuration, logger *slog.Logger) error {
	bridge := newBridge(cfg, logger)
	handler := server.New(server.NewHandler(bridge, cfg.Credentials(), logger))

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newBridge(cfg *config.Configuration, logger *slog.Logger) *cozebridge.Bridge {
	client := provider.NewCozeClient(cfg.ClientConfig())
	return cozebridge.NewBridge(client,
		cozebridge.WithPollConfig(cfg.PollPolicy()),
		cozebridge.WithLogger(logger),
	)
}
