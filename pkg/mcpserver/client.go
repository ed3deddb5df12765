package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bradyops/brady/pkg/tools"
)

// Client is a connection to an MCP server whose tools can stand in for the
// built-in ones.
type Client struct {
	session *mcp.ClientSession
}

// Dial connects to a streamable HTTP endpoint such as
// http://localhost:8081/mcp.
func Dial(ctx context.Context, url string) (*Client, error) {
	return Connect(ctx, &mcp.StreamableClientTransport{Endpoint: url})
}

// Connect opens a session over an arbitrary transport.
func Connect(ctx context.Context, transport mcp.Transport) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    ServerName + "-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	return &Client{session: session}, nil
}

func (c *Client) Close() error {
	return c.session.Close()
}

// Registry lists the server's tools and wraps them in a tools.Registry.
func (c *Client) Registry(ctx context.Context) (*tools.Registry, error) {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	remote := make([]tools.Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		if t == nil {
			continue
		}
		schema, err := convertSchema(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", t.Name, err)
		}
		remote = append(remote, &remoteTool{
			session:     c.session,
			name:        t.Name,
			description: t.Description,
			schema:      schema,
		})
	}

	return tools.NewRegistry(remote...)
}

// convertSchema decodes the wire form of an input schema.
func convertSchema(in any) (*jsonschema.Schema, error) {
	if in == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	if s, ok := in.(*jsonschema.Schema); ok {
		return s, nil
	}

	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode input schema: %w", err)
	}
	return &s, nil
}

type remoteTool struct {
	session     *mcp.ClientSession
	name        string
	description string
	schema      *jsonschema.Schema
}

func (t *remoteTool) Name() string                    { return t.name }
func (t *remoteTool) Description() string             { return t.description }
func (t *remoteTool) InputSchema() *jsonschema.Schema { return t.schema }

// Call forwards the call. A JSON text result is decoded so the payload has
// the same shape as a local call; an error result becomes an error.
func (t *remoteTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	var arguments any
	if len(args) > 0 && string(args) != "null" {
		arguments = args
	}

	res, err := t.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.name,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("remote call failed: %w", err)
	}

	text := resultText(res)
	if res.IsError {
		return nil, errors.New(text)
	}

	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return text, nil
	}
	return out, nil
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
