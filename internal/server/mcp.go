package server

import (
	"context"

	"completion-kit/internal/config"
	"completion-kit/internal/prompt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// objectFromTypeInput is the MCP argument schema. Possibilities is a list so
// that key order survives the round trip.
type objectFromTypeInput struct {
	Query         string               `json:"query" jsonschema:"natural-language query to translate"`
	Types         string               `json:"types" jsonschema:"textual description of the target type"`
	TypeName      string               `json:"type_name" jsonschema:"name of the target type"`
	Possibilities []prompt.Possibility `json:"possibilities,omitempty" jsonschema:"candidate values per field, in prompt order"`
	Notes         []string             `json:"notes,omitempty" jsonschema:"extra notes appended to the prompt"`
	Context       string               `json:"context,omitempty" jsonschema:"optional context line"`
}

type objectFromTypeOutput struct {
	ID     string `json:"id,omitempty"`
	Result any    `json:"result"`
}

func (s *Server) newMCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "completion-kit", Version: "v1.0.0"}, nil)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        config.ToolObjectFromType,
		Description: "Translate a natural-language query into a JSON value of the described type",
	}, s.objectFromTypeTool)
	return srv
}

// objectFromTypeTool failures are reported as tool errors, not protocol errors.
func (s *Server) objectFromTypeTool(ctx context.Context, _ *mcp.CallToolRequest, in objectFromTypeInput) (*mcp.CallToolResult, objectFromTypeOutput, error) {
	params := prompt.ObjectFromTypeParams{
		Query:         in.Query,
		Types:         in.Types,
		TypeName:      in.TypeName,
		Possibilities: in.Possibilities,
		Notes:         in.Notes,
		Context:       in.Context,
	}
	if err := validateParams(params); err != nil {
		return nil, objectFromTypeOutput{}, err
	}

	res, err := s.extract(ctx, params)
	if err != nil {
		return nil, objectFromTypeOutput{}, err
	}
	return nil, objectFromTypeOutput{ID: res.ID, Result: res.Value}, nil
}

// MCPServer exposes the tool server for in-process transports.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }
