package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mikeboe/search-helper/pkg/app"
	"github.com/mikeboe/search-helper/pkg/server"
	"github.com/mikeboe/search-helper/pkg/tui"
)

func newChatCmd() *cobra.Command {
	var variant, logFile string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive search in the terminal",
		Long: `Start an interactive search in the terminal.

Controls:
  Enter   - Send the answer
  Ctrl+R  - Start a new search
  Esc     - Quit

List questions accept several values separated by commas.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()
			logger := app.NewLogger(f, cfg.LogLevel)
			slog.SetDefault(logger)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			if variant == "" {
				variant = cfg.DefaultVariant
			}
			v, err := a.Catalog.Get(variant)
			if err != nil {
				return err
			}

			model := tui.NewModel(cmd.Context(), v, a.Engine)
			_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "Assistant to use (default: DEFAULT_VARIANT)")
	cmd.Flags().StringVar(&logFile, "log-file", "search-helper.log", "File receiving logs while the UI is open")
	return cmd
}

func newVariantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the available assistants",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog, err := app.LoadCatalog(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, v := range catalog.List() {
				marker := " "
				if v.Name == cfg.DefaultVariant {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-14s %s\n", marker, v.Name, v.Title)
				keys := make([]string, len(v.Questions))
				for i, q := range v.Questions {
					keys[i] = q.Key
				}
				fmt.Fprintf(out, "  %-14s asks: %s\n", "", strings.Join(keys, ", "))
			}
			return nil
		},
	}
}

func newMCPCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server.

By default the server talks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead.

Tools:
  list_variants - the assistants and their questions
  recommend     - answer every question at once and get the recommendation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			mcpServer := server.NewMCPServer(a.Chat)

			if port == 0 {
				return mcpServer.Run(cmd.Context())
			}

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           mcpServer.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			a.Logger.Info("MCP server listening", "addr", httpServer.Addr)
			return serveUntilDone(cmd, httpServer)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (0 = use stdio)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			if port == "" {
				port = a.Config.Port
			}

			handler := server.NewHandler(a.Chat, server.NewMCPServer(a.Chat))
			handler.Logger = a.Logger

			httpServer := &http.Server{
				Addr:              ":" + port,
				Handler:           server.NewRouter(handler),
				ReadHeaderTimeout: 10 * time.Second,
			}
			a.Logger.Info("Server starting", "port", port)
			return serveUntilDone(cmd, httpServer)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default: PORT)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "search-helper %s\n", server.Version)
		},
	}
}

func serveUntilDone(cmd *cobra.Command, httpServer *http.Server) error {
	go func() {
		<-cmd.Context().Done()
		httpServer.Close() //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
