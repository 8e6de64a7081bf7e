// Package main provides the abyssal CLI: a deep-sea research station
// chatbot served over SSE, with an interactive terminal client.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"abyssal/internal/analysis"
	"abyssal/internal/config"
	"abyssal/internal/engine"
	"abyssal/internal/logging"
	"abyssal/internal/respond"
	"abyssal/internal/server"
	"abyssal/internal/session"
	"abyssal/internal/tools"
	"abyssal/internal/ux"
)

var (
	configPath string
	verbose    bool
	serverURL  string
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "abyssal",
	Short: "abyssal - conversations from research station Meridian-6",
	Long: `abyssal hosts Mira, a marine researcher four kilometers down.

The server streams her responses as Server-Sent Events; the chat client
renders them with a character reveal you can interrupt mid-sentence.
Rapport is earned, not assumed.

Run without arguments to start the interactive chat.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		// The chat TUI owns the terminal; keep its logger quiet unless asked.
		if cmd.CalledAs() == "abyssal" && !verbose {
			level = "error"
		}
		return logging.Init(level, cfg.Logging.Development)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the abyssal SSE server",
	Long: `Starts the HTTP server exposing the chat, tool, and interrupt
endpoints. Responses stream as one JSON envelope per SSE frame.`,
	RunE: runServe,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat client",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the station instruments",
	RunE:  runTools,
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: runChat reads rootCmd's flags.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "abyssal.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8787", "server base URL for client commands")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "run chat against an in-process server with the offline analyzer")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(toolsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildServer assembles the engine and server from configuration.
func buildServer(cfg *config.Config) (*server.Server, *respond.Library, error) {
	lib, err := respond.NewLibrary()
	if err != nil {
		return nil, nil, fmt.Errorf("load response library: %w", err)
	}
	if cfg.Content.Dir != "" {
		if err := lib.LoadDir(cfg.Content.Dir); err != nil {
			return nil, nil, fmt.Errorf("load content dir: %w", err)
		}
		if cfg.Content.HotReload {
			if err := lib.Watch(cfg.Content.Dir); err != nil {
				logging.Get(logging.CategoryContent).Warnf("hot reload unavailable: %v", err)
			}
		}
	}

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return nil, nil, err
	}

	reg := tools.DefaultRegistry()
	eng := engine.New(analyzer, lib, reg)
	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr,
		ReadTimeout: cfg.ReadTimeout(),
		RateRPS:     cfg.RateLimit.RPS,
		RateBurst:   cfg.RateLimit.Burst,
	}, eng, session.NewRegistry(), reg)
	return srv, lib, nil
}

func buildAnalyzer(cfg *config.Config) (analysis.Analyzer, error) {
	switch {
	case cfg.LLM.Provider == "static" || cfg.LLM.APIKey == "":
		if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "static" {
			logging.Get(logging.CategoryAnalysis).Info("no API key configured, using offline analyzer")
		}
		return analysis.NewStaticAnalyzer(), nil
	case cfg.LLM.Provider == "gemini":
		return analysis.NewGeminiAnalyzer(analysis.GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	srv, lib, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	logging.Get(logging.CategoryServer).Infof("listening on %s", cfg.Server.Addr)
	return srv.Run(cmd.Context())
}

func runChat(ctx context.Context) error {
	prefs := ux.NewPreferencesManager("")
	if err := prefs.Load(); err != nil {
		logging.Get(logging.CategoryUX).Warnf("preferences unavailable: %v", err)
		prefs = nil
	}

	url := serverURL
	if prefs != nil && !rootCmd.PersistentFlags().Changed("server") {
		if saved := prefs.Get().ServerURL; saved != "" {
			url = saved
		}
	}

	if offline {
		inProcURL, shutdown, err := startOfflineServer(ctx)
		if err != nil {
			return err
		}
		defer shutdown()
		url = inProcURL
		// No point resuming a session the throwaway server never had.
		prefs = nil
	}

	client := ux.NewClient(url)
	model := ux.NewModel(client, prefs)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// startOfflineServer runs an in-process server on a loopback port with the
// deterministic analyzer, for chatting without network or credentials.
func startOfflineServer(ctx context.Context) (url string, shutdown func(), err error) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "static"
	cfg.RateLimit.RPS = 0

	srv, lib, err := buildServer(cfg)
	if err != nil {
		return "", nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		lib.Close()
		return "", nil, fmt.Errorf("listen: %w", err)
	}

	hs := &http.Server{Handler: srv.Handler()}
	go func() {
		if serveErr := hs.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			logging.Get(logging.CategoryServer).Warnf("offline server: %v", serveErr)
		}
	}()

	shutdown = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
		lib.Close()
	}

	url = "http://" + ln.Addr().String()
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ux.NewClient(url).WaitHealthy(waitCtx); err != nil {
		shutdown()
		return "", nil, fmt.Errorf("offline server not ready: %w", err)
	}
	return url, shutdown, nil
}

func runTools(cmd *cobra.Command, args []string) error {
	client := ux.NewClient(serverURL)
	list, err := client.Tools(cmd.Context())
	if err != nil {
		return err
	}
	for _, t := range list {
		marker := " "
		if t.HasSideEffects {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s\n", marker, t.Name, t.Description)
	}
	fmt.Println("\n* touches station hardware")
	return nil
}
