package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
)

type mcpRegistrationKind int

const (
	mcpRegistrationKindTools mcpRegistrationKind = iota
	mcpRegistrationKindResources
	mcpRegistrationKindPrompts
)

func (k mcpRegistrationKind) String() string {
	switch k {
	case mcpRegistrationKindTools:
		return "tools"
	case mcpRegistrationKindResources:
		return "resources"
	case mcpRegistrationKindPrompts:
		return "prompts"
	default:
		return "unknown"
	}
}

type mcpRegistrationModule struct {
	name     string
	kind     mcpRegistrationKind
	register func(*mcp.Server) error
}

func newMCPRegistrationModules(registry *capability.Registry) []mcpRegistrationModule {
	return []mcpRegistrationModule{
		{
			name: "registry-tools",
			kind: mcpRegistrationKindTools,
			register: func(server *mcp.Server) error {
				for _, tool := range registry.Tools() {
					server.AddTool(&mcp.Tool{
						Name:        tool.Name,
						Description: tool.Description,
						InputSchema: tool.InputSchema,
					}, toolHandler(tool))
				}
				return nil
			},
		},
		{
			name: "registry-resources",
			kind: mcpRegistrationKindResources,
			register: func(server *mcp.Server) error {
				for _, resource := range registry.Resources() {
					server.AddResource(&mcp.Resource{
						URI:         resource.URI,
						Name:        resourceName(resource),
						Description: resource.Description,
						MIMEType:    resource.MIMEType,
					}, resourceHandler(resource))
				}
				return nil
			},
		},
		{
			name: "registry-prompts",
			kind: mcpRegistrationKindPrompts,
			register: func(server *mcp.Server) error {
				for _, prompt := range registry.Prompts() {
					server.AddPrompt(mcpPrompt(prompt), promptHandler(registry, prompt.Name))
				}
				return nil
			},
		},
	}
}

func toolHandler(tool *capability.Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		result, err := tool.Invoke(ctx, args)
		if err != nil {
			return toolErrorResult(err), nil
		}
		return toolResult(result)
	}
}

func toolResult(result any) (*mcp.CallToolResult, error) {
	text, err := resultText(result)
	if err != nil {
		return toolErrorResult(err), nil
	}
	out := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
	if _, isText := result.(string); !isText {
		data, err := encodeResult(result)
		if err == nil && isJSONObject(data) {
			out.StructuredContent = data
		}
	}
	return out, nil
}

func toolErrorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

func resourceName(resource *capability.Resource) string {
	if strings.TrimSpace(resource.Name) != "" {
		return resource.Name
	}
	return resource.URI
}

func resourceHandler(resource *capability.Resource) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := resource.URI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}
		text, err := resource.Read(ctx)
		if err != nil {
			if errors.Is(err, capability.ErrNotFound) {
				return nil, mcp.ResourceNotFoundError(uri)
			}
			return nil, err
		}
		mimeType := resource.MIMEType
		if mimeType == "" {
			mimeType = "application/json"
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: mimeType,
				Text:     text,
			}},
		}, nil
	}
}

func mcpPrompt(prompt *capability.Prompt) *mcp.Prompt {
	arguments := make([]*mcp.PromptArgument, 0, len(prompt.Arguments))
	for _, arg := range prompt.Arguments {
		arguments = append(arguments, &mcp.PromptArgument{
			Name:        arg.Name,
			Description: arg.Description,
			Required:    arg.Required,
		})
	}
	return &mcp.Prompt{
		Name:        prompt.Name,
		Description: prompt.Description,
		Arguments:   arguments,
	}
}

func promptHandler(registry *capability.Registry, name string) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		var args map[string]string
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		text, err := registry.RenderPrompt(ctx, name, args)
		if err != nil {
			if errors.Is(err, capability.ErrInvalidParams) {
				return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
			}
			return nil, err
		}
		prompt, _ := registry.Prompt(name)
		return &mcp.GetPromptResult{
			Description: prompt.Description,
			Messages: []*mcp.PromptMessage{{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			}},
		}, nil
	}
}

// completionHandler completes prompt arguments from their declared suggestions.
func completionHandler(registry *capability.Registry) func(context.Context, *mcp.CompleteRequest) (*mcp.CompleteResult, error) {
	return func(_ context.Context, req *mcp.CompleteRequest) (*mcp.CompleteResult, error) {
		result := &mcp.CompleteResult{Completion: mcp.CompletionResultDetails{Values: []string{}}}
		if req == nil || req.Params == nil || req.Params.Ref == nil || req.Params.Ref.Type != "ref/prompt" {
			return result, nil
		}
		prompt, ok := registry.Prompt(req.Params.Ref.Name)
		if !ok {
			return result, nil
		}
		prefix := strings.ToLower(req.Params.Argument.Value)
		for _, arg := range prompt.Arguments {
			if arg.Name != req.Params.Argument.Name {
				continue
			}
			for _, suggestion := range arg.Suggestions {
				if strings.HasPrefix(strings.ToLower(suggestion), prefix) {
					result.Completion.Values = append(result.Completion.Values, suggestion)
				}
			}
		}
		result.Completion.Total = len(result.Completion.Values)
		return result, nil
	}
}
