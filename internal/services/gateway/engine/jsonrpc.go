package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
)

// Built-in methods served by the JSON-RPC engine next to the registry tools.
const (
	MethodDiscover     = "rpc.discover"
	MethodReadResource = "resources/read"
	MethodGetPrompt    = "prompts/get"
)

// CodeToolFailed is returned when a tool runs and reports an error.
const CodeToolFailed = -32000

// JSONRPC is a plain JSON-RPC 2.0 engine: every registry tool is callable as
// a method of the same name with its arguments as params.
type JSONRPC struct {
	registry *capability.Registry
	logger   *log.Logger
}

// NewJSONRPC returns a JSON-RPC engine over registry.
func NewJSONRPC(registry *capability.Registry, opts Options) (*JSONRPC, error) {
	if registry == nil {
		return nil, fmt.Errorf("capability registry is required")
	}
	opts = opts.withDefaults()
	return &JSONRPC{registry: registry, logger: opts.Logger.WithPrefix("jsonrpc")}, nil
}

// Run serves requests from in sequentially. It returns nil when in reaches
// EOF and ctx.Err() when ctx ends first.
func (e *JSONRPC) Run(ctx context.Context, in io.ReadCloser, out io.WriteCloser) error {
	stop := context.AfterFunc(ctx, func() {
		_ = in.Close()
	})
	defer stop()

	reader := bufio.NewReader(in)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if err := e.serve(ctx, line, out); err != nil {
				return err
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read request: %w", readErr)
		}
	}
}

func (e *JSONRPC) serve(ctx context.Context, line []byte, out io.Writer) error {
	msg, err := jsonrpc.DecodeMessage(line)
	if err != nil {
		e.logger.Debug("undecodable frame", "err", err)
		return writeFrame(out, nullIDError(jsonrpc.CodeParseError, "Parse error"))
	}
	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		e.logger.Debug("ignoring response frame")
		return nil
	}

	result, rpcErr := e.dispatch(ctx, req)
	if !req.IsCall() {
		if rpcErr != nil {
			e.logger.Debug("notification failed", "method", req.Method, "err", rpcErr.Message)
		}
		return nil
	}

	resp := &jsonrpc.Response{ID: req.ID, Result: result}
	if rpcErr != nil {
		resp = &jsonrpc.Response{ID: req.ID, Error: rpcErr}
	}
	data, err := jsonrpc.EncodeMessage(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return writeFrame(out, data)
}

func (e *JSONRPC) dispatch(ctx context.Context, req *jsonrpc.Request) (result json.RawMessage, rpcErr *jsonrpc.Error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("method panicked", "method", req.Method, "panic", r)
			result, rpcErr = nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "Internal error"}
		}
	}()

	var (
		value any
		err   error
	)
	switch req.Method {
	case MethodDiscover:
		value = e.discover()
	case MethodReadResource:
		value, err = e.readResource(ctx, req.Params)
	case MethodGetPrompt:
		value, err = e.getPrompt(ctx, req.Params)
	default:
		tool, ok := e.registry.Tool(req.Method)
		if !ok {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "Method not found: " + req.Method}
		}
		value, err = tool.Invoke(ctx, req.Params)
	}
	if err != nil {
		return nil, toRPCError(err)
	}
	data, err := encodeResult(value)
	if err != nil {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: err.Error()}
	}
	return data, nil
}

func toRPCError(err error) *jsonrpc.Error {
	var rpcErr *jsonrpc.Error
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, capability.ErrInvalidParams):
		return &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, capability.ErrNotFound):
		return &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
	default:
		return &jsonrpc.Error{Code: CodeToolFailed, Message: err.Error()}
	}
}

type discoveredTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema"`
}

type discoveredResource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

type discoveredPrompt struct {
	Name        string                      `json:"name"`
	Description string                      `json:"description,omitempty"`
	Arguments   []capability.PromptArgument `json:"arguments,omitempty"`
}

type discovery struct {
	Tools     []discoveredTool     `json:"tools"`
	Resources []discoveredResource `json:"resources"`
	Prompts   []discoveredPrompt   `json:"prompts"`
}

func (e *JSONRPC) discover() discovery {
	d := discovery{
		Tools:     []discoveredTool{},
		Resources: []discoveredResource{},
		Prompts:   []discoveredPrompt{},
	}
	for _, tool := range e.registry.Tools() {
		d.Tools = append(d.Tools, discoveredTool{Name: tool.Name, Description: tool.Description, InputSchema: tool.InputSchema})
	}
	for _, resource := range e.registry.Resources() {
		d.Resources = append(d.Resources, discoveredResource{
			URI:         resource.URI,
			Name:        resource.Name,
			Description: resource.Description,
			MIMEType:    resource.MIMEType,
		})
	}
	for _, prompt := range e.registry.Prompts() {
		d.Prompts = append(d.Prompts, discoveredPrompt{Name: prompt.Name, Description: prompt.Description, Arguments: prompt.Arguments})
	}
	return d
}

type readResourceParams struct {
	URI string `json:"uri"`
}

type resourceContents struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

func (e *JSONRPC) readResource(ctx context.Context, params json.RawMessage) (resourceContents, error) {
	var p readResourceParams
	if err := json.Unmarshal(orEmptyObject(params), &p); err != nil || p.URI == "" {
		return resourceContents{}, fmt.Errorf("%w: uri is required", capability.ErrInvalidParams)
	}
	resource, ok := e.registry.Resource(p.URI)
	if !ok {
		return resourceContents{}, fmt.Errorf("resource %q: %w", p.URI, capability.ErrNotFound)
	}
	text, err := resource.Read(ctx)
	if err != nil {
		return resourceContents{}, err
	}
	return resourceContents{URI: p.URI, MIMEType: resource.MIMEType, Text: text}, nil
}

type getPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

type renderedPrompt struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (e *JSONRPC) getPrompt(ctx context.Context, params json.RawMessage) (renderedPrompt, error) {
	var p getPromptParams
	if err := json.Unmarshal(orEmptyObject(params), &p); err != nil || p.Name == "" {
		return renderedPrompt{}, fmt.Errorf("%w: name is required", capability.ErrInvalidParams)
	}
	text, err := e.registry.RenderPrompt(ctx, p.Name, p.Arguments)
	if err != nil {
		return renderedPrompt{}, err
	}
	return renderedPrompt{Name: p.Name, Text: text}, nil
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

// nullIDError encodes an error response for a request whose id is unknown.
func nullIDError(code int64, message string) []byte {
	data, _ := json.Marshal(struct {
		JSONRPC string        `json:"jsonrpc"`
		Error   jsonrpc.Error `json:"error"`
		ID      any           `json:"id"`
	}{JSONRPC: "2.0", Error: jsonrpc.Error{Code: code, Message: message}})
	return data
}

func writeFrame(out io.Writer, data []byte) error {
	frame := make([]byte, 0, len(data)+1)
	frame = append(frame, data...)
	frame = append(frame, '\n')
	if _, err := out.Write(frame); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
