package server

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/search-helper/pkg/chat"
	"github.com/mikeboe/search-helper/pkg/dialogue"
)

// Version is reported by the MCP server and the CLI.
const Version = "0.3.0"

// MCPServer exposes the assistant as MCP tools.
type MCPServer struct {
	chat   *chat.Service
	server *mcp.Server
}

// ListVariantsInput is the input schema for the list_variants tool.
type ListVariantsInput struct{}

// ListVariantsOutput is the output schema for the list_variants tool.
type ListVariantsOutput struct {
	Variants []VariantOutput `json:"variants"`
}

// VariantOutput describes one variant and the answers it needs.
type VariantOutput struct {
	Name        string              `json:"name"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Questions   []dialogue.Question `json:"questions"`
}

// RecommendInput is the input schema for the recommend tool.
type RecommendInput struct {
	Variant string              `json:"variant" jsonschema:"name of the variant, see list_variants"`
	Answers map[string]string   `json:"answers" jsonschema:"answer per question key for text and yes/no questions"`
	Lists   map[string][]string `json:"lists,omitempty" jsonschema:"items per question key for list questions"`
}

// RecommendOutput is the output schema for the recommend tool.
type RecommendOutput struct {
	Text string `json:"text"`
}

func NewMCPServer(c *chat.Service) *MCPServer {
	s := &MCPServer{
		chat:   c,
		server: mcp.NewServer(&mcp.Implementation{Name: "search-helper", Version: Version}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_variants",
		Description: "List the available search assistants and the questions each one asks",
	}, s.handleListVariants)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recommend",
		Description: "Answer every question of a variant at once and get the searched, generated recommendation",
	}, s.handleRecommend)

	return s
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler for the server.
func (s *MCPServer) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *MCPServer) handleListVariants(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListVariantsInput,
) (*mcp.CallToolResult, ListVariantsOutput, error) {
	variants := s.chat.ListVariants()
	out := ListVariantsOutput{Variants: make([]VariantOutput, len(variants))}
	for i, v := range variants {
		out.Variants[i] = VariantOutput{
			Name:        v.Name,
			Title:       v.Title,
			Description: v.Description,
			Questions:   v.Questions,
		}
	}
	return nil, out, nil
}

func (s *MCPServer) handleRecommend(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RecommendInput,
) (*mcp.CallToolResult, RecommendOutput, error) {
	answers := make(map[string]dialogue.Answer, len(input.Answers)+len(input.Lists))
	for key, text := range input.Answers {
		answers[key] = dialogue.TextAnswer(text)
	}
	for key, items := range input.Lists {
		answers[key] = dialogue.ListAnswer(items...)
	}

	text, err := s.chat.Recommend(ctx, input.Variant, answers)
	if err != nil {
		return nil, RecommendOutput{}, err
	}
	return nil, RecommendOutput{Text: text}, nil
}
