// Package mcpserver publishes the logistics tools over the Model Context
// Protocol and consumes tools published that way.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bradyops/brady/pkg/tools"
)

const (
	ServerName = "brady"
	// Path is where the streamable HTTP handler is mounted.
	Path = "/mcp"
)

// NewServer creates an MCP server exposing every tool in registry.
func NewServer(registry *tools.Registry, version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: "Order tracking tools for the Brady logistics assistant.",
	})

	for _, t := range registry.Tools() {
		s.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		}, toolHandler(t))
	}

	return s
}

// toolHandler runs t for an MCP call. Tool failures are reported in-band as
// error results so the calling model can see them.
func toolHandler(t tools.Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
		logger := zerolog.Ctx(ctx).With().Str("tool", t.Name()).Logger()
		start := time.Now()

		defer func() {
			if p := recover(); p != nil {
				logger.Error().Interface("panic", p).Msg("tool panicked")
				res, err = errorResult(fmt.Sprintf("panic: %v", p)), nil
			}
		}()

		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}

		out, callErr := t.Call(ctx, args)
		if callErr != nil {
			logger.Warn().Err(callErr).Dur("duration", time.Since(start)).Msg("tool returned an error")
			return errorResult(callErr.Error()), nil
		}

		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s result: %w", t.Name(), err)
		}

		logger.Debug().Dur("duration", time.Since(start)).Msg("tool call completed")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// Handler serves s over streamable HTTP at Path.
func Handler(s *mcp.Server) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s
	}, &mcp.StreamableHTTPOptions{}))
	return mux
}

// Serve listens on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, s *mcp.Server) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           Handler(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zerolog.Ctx(ctx).Info().Str("addr", addr).Str("path", Path).Msg("serving tools over MCP")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve MCP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
