// Package mcp exposes play sessions as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/runner"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SavesResponse wraps a save listing; structured tool output must be an object.
type SavesResponse struct {
	Saves []domain.SavedGame `json:"saves" jsonschema_description:"Saves, newest first"`
}

// Server exposes a session.Manager as an MCP Server.
type Server struct {
	manager   *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(manager *session.Manager, version string, opts ...Option) *Server {
	s := &Server{
		manager:   manager,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("adventure-mcp", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

type startArgs struct {
	StoryID  string `json:"story_id"`
	AutoSave *bool  `json:"auto_save,omitempty"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type chooseArgs struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
	Text      string `json:"text,omitempty"`
}

type saveArgs struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
}

type listSavesArgs struct {
	StoryID string `json:"story_id,omitempty"`
}

type loadArgs struct {
	SessionID string `json:"session_id"`
	SaveID    string `json:"save_id"`
}

type autoSaveArgs struct {
	SessionID string `json:"session_id"`
	Enabled   bool   `json:"enabled"`
}

func (s *Server) registerTools() {
	sessionID := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_story"))

	s.mcpServer.AddTool(mcp.NewTool("start_story",
		mcp.WithDescription("Start a new play session on a story. Returns the session view with the root node."),
		mcp.WithString("story_id", mcp.Required(), mcp.Description("The story to play")),
		mcp.WithBoolean("auto_save", mcp.Description("Enable periodic auto-save (default true)")),
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the current view of a session."),
		sessionID,
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("choose",
		mcp.WithDescription("Follow one of the current node's options."),
		sessionID,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Target node of the chosen option")),
		mcp.WithString("text", mcp.Description("Option label to record (defaults to the option's text)")),
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("restart",
		mcp.WithDescription("Restart the session from the root node."),
		sessionID,
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleRestart))

	s.mcpServer.AddTool(mcp.NewTool("save_game",
		mcp.WithDescription("Save the session now."),
		sessionID,
		mcp.WithString("name", mcp.Description("Save name (default \"Manual Save\")")),
		mcp.WithOutputSchema[domain.SavedGame](),
	), mcp.NewStructuredToolHandler(s.handleSave))

	s.mcpServer.AddTool(mcp.NewTool("list_saves",
		mcp.WithDescription("List saved games, newest first."),
		mcp.WithString("story_id", mcp.Description("Only saves of this story")),
		mcp.WithOutputSchema[SavesResponse](),
	), mcp.NewStructuredToolHandler(s.handleListSaves))

	s.mcpServer.AddTool(mcp.NewTool("load_game",
		mcp.WithDescription("Replace the session state with a stored save."),
		sessionID,
		mcp.WithString("save_id", mcp.Required(), mcp.Description("The save to load")),
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleLoad))

	s.mcpServer.AddTool(mcp.NewTool("set_autosave",
		mcp.WithDescription("Turn periodic auto-save on or off."),
		sessionID,
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Whether auto-save runs")),
		mcp.WithOutputSchema[domain.SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSetAutoSave))
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args startArgs) (domain.SessionView, error) {
	if args.StoryID == "" {
		return domain.SessionView{}, errors.New("story_id is required")
	}
	var opts []session.Option
	if args.AutoSave != nil {
		opts = append(opts, session.WithAutoSave(*args.AutoSave))
	}
	sess, err := s.manager.Open(ctx, args.StoryID, opts...)
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("start failed: %w", err)
	}
	s.logger.Info("MCP session started", "session_id", sess.ID(), "story_id", args.StoryID)
	return sess.View(), nil
}

func (s *Server) handleGet(_ context.Context, _ mcp.CallToolRequest, args sessionArgs) (domain.SessionView, error) {
	sess, err := s.manager.Get(args.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return sess.View(), nil
}

func (s *Server) handleChoose(ctx context.Context, _ mcp.CallToolRequest, args chooseArgs) (domain.SessionView, error) {
	sess, err := s.manager.Get(args.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	text, err := runner.SanitizeInput(args.Text)
	if err != nil {
		s.logger.Warn("MCP choose: Input rejected", "err", err, "size", len(args.Text))
		return domain.SessionView{}, fmt.Errorf("input rejected: %w", err)
	}
	if _, err := sess.Choose(ctx, args.NodeID, text); err != nil {
		return domain.SessionView{}, fmt.Errorf("choose failed: %w", err)
	}
	return sess.View(), nil
}

func (s *Server) handleRestart(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (domain.SessionView, error) {
	sess, err := s.manager.Get(args.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := sess.Restart(ctx); err != nil {
		return domain.SessionView{}, fmt.Errorf("restart failed: %w", err)
	}
	return sess.View(), nil
}

func (s *Server) handleSave(ctx context.Context, _ mcp.CallToolRequest, args saveArgs) (domain.SavedGame, error) {
	sess, err := s.manager.Get(args.SessionID)
	if err != nil {
		return domain.SavedGame{}, err
	}
	name, err := runner.SanitizeLabel(args.Name)
	if err != nil {
		return domain.SavedGame{}, fmt.Errorf("input rejected: %w", err)
	}
	saved, err := sess.SaveNow(ctx, name, false)
	if err != nil {
		return domain.SavedGame{}, fmt.Errorf("save failed: %w", err)
	}
	return *saved, nil
}

func (s *Server) handleListSaves(ctx context.Context, _ mcp.CallToolRequest, args listSavesArgs) (SavesResponse, error) {
	store := s.manager.Store()
	if store == nil {
		return SavesResponse{}, session.ErrNoSaveStore
	}
	saves, err := store.List(ctx, args.StoryID)
	if err != nil {
		return SavesResponse{}, fmt.Errorf("list failed: %w", err)
	}
	return SavesResponse{Saves: saves}, nil
}

func (s *Server) handleLoad(ctx context.Context, _ mcp.CallToolRequest, args loadArgs) (domain.SessionView, error) {
	sess, err := s.manager.Get(args.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if _, err := sess.LoadSave(ctx, args.SaveID); err != nil {
		return domain.SessionView{}, fmt.Errorf("load failed: %w", err)
	}
	return sess.View(), nil
}

func (s *Server) handleSetAutoSave(_ context.Context, _ mcp.CallToolRequest, args autoSaveArgs) (domain.SessionView, error) {
	sess, err := s.manager.Get(args.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	sess.SetAutoSaveEnabled(args.Enabled)
	return sess.View(), nil
}

func (s *Server) registerResources() {
	// EXPOSE: adventure://stories
	s.mcpServer.AddResource(mcp.NewResource("adventure://stories", "Available Stories",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.manager.Graphs().Stories(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list stories: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "adventure://stories",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
