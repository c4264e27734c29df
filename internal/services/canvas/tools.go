package canvas

import (
	"context"
	"errors"
	"fmt"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
)

// Tool names.
const (
	ToolAddComponent         = "add_component"
	ToolSetComponentValue    = "set_component_value"
	ToolConnectComponents    = "connect_components"
	ToolGetDocumentInfo      = "get_document_info"
	ToolGetAvailablePatterns = "get_available_patterns"
	ToolCreatePattern        = "create_pattern"
	ToolDiagnoseEnvironment  = "diagnose_environment"
	ToolClearDocument        = "clear_document"
	ToolPing                 = "ping"
)

type addComponentInput struct {
	ComponentType string  `json:"component_type" jsonschema:"component type such as slider, panel, point, circle, line, curve, rectangle or box"`
	X             float64 `json:"x" jsonschema:"X position on the canvas in pixels"`
	Y             float64 `json:"y" jsonschema:"Y position on the canvas in pixels"`
	Value         string  `json:"value,omitempty" jsonschema:"optional initial value: a number for slider, text for panel, JSON {\"X\":10,\"Y\":20,\"Z\":0} for point"`
}

type setComponentValueInput struct {
	ComponentID string `json:"component_id" jsonschema:"id of the component to change"`
	Value       string `json:"value" jsonschema:"new value: a number for slider, text for panel, JSON {\"X\":10,\"Y\":20,\"Z\":0} for point"`
}

type connectComponentsInput struct {
	SourceID         string `json:"source_id" jsonschema:"id of the source component"`
	TargetID         string `json:"target_id" jsonschema:"id of the target component"`
	SourceParam      string `json:"source_param,omitempty" jsonschema:"output parameter name or nickname on the source, such as Number, Point or Circle"`
	TargetParam      string `json:"target_param,omitempty" jsonschema:"input parameter name or nickname on the target, such as Radius, Plane or Base"`
	SourceParamIndex *int   `json:"source_param_index,omitempty" jsonschema:"output index used when no source_param is given"`
	TargetParamIndex *int   `json:"target_param_index,omitempty" jsonschema:"input index used when no target_param is given"`
}

type patternQueryInput struct {
	Query string `json:"query,omitempty" jsonschema:"optional keyword filter such as point, line or 3d"`
}

type createPatternInput struct {
	Description string `json:"description" jsonschema:"a pattern name returned by get_available_patterns, such as Point Grid or Box"`
}

// ComponentResult is returned by tools that place or change one component.
type ComponentResult struct {
	Message   string        `json:"message"`
	Component ComponentView `json:"component"`
}

// ConnectResult is returned by connect_components.
type ConnectResult struct {
	Message    string     `json:"message"`
	Connection Connection `json:"connection"`
}

// ClearResult is returned by clear_document.
type ClearResult struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

// toolError marks caller mistakes as invalid params so engines report them
// as such instead of as tool failures.
func toolError(err error) error {
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrComponentNotFound) {
		return fmt.Errorf("%w: %w", capability.ErrInvalidParams, err)
	}
	return err
}

func canvasTool[In, Out any](name, description string, fn func(context.Context, In) (Out, error)) *capability.Tool {
	return capability.MustTool(name, description, func(ctx context.Context, in In) (Out, error) {
		out, err := fn(ctx, in)
		if err != nil {
			var zero Out
			return zero, toolError(err)
		}
		return out, nil
	})
}

func (c *Canvas) tools() []*capability.Tool {
	return []*capability.Tool{
		canvasTool(ToolAddComponent,
			"Add one component to the canvas. This is the most reliable way to build a definition: add components one by one, then wire them with connect_components. Returns the component id used for connections.",
			func(ctx context.Context, in addComponentInput) (ComponentResult, error) {
				view, err := c.AddComponent(ctx, AddComponentRequest{Type: in.ComponentType, X: in.X, Y: in.Y, Value: in.Value})
				if err != nil {
					return ComponentResult{}, err
				}
				return ComponentResult{
					Message:   fmt.Sprintf("added %s component at (%g, %g), id %s", view.Type, in.X, in.Y, view.ID),
					Component: view,
				}, nil
			}),
		canvasTool(ToolSetComponentValue,
			"Set the value of an existing component: point coordinates, slider number, panel text and so on.",
			func(ctx context.Context, in setComponentValueInput) (ComponentResult, error) {
				view, err := c.SetComponentValue(ctx, in.ComponentID, in.Value)
				if err != nil {
					return ComponentResult{}, err
				}
				return ComponentResult{Message: "set value of component " + view.ID, Component: view}, nil
			}),
		canvasTool(ToolConnectComponents,
			"Connect an output parameter of one component to an input parameter of another. Read grasshopper://current_document first to confirm ids and parameter names. Typical wires: slider Number to circle Radius, point Point to line Start Point.",
			func(ctx context.Context, in connectComponentsInput) (ConnectResult, error) {
				conn, err := c.Connect(ctx, ConnectRequest{
					SourceID:         in.SourceID,
					TargetID:         in.TargetID,
					SourceParam:      in.SourceParam,
					TargetParam:      in.TargetParam,
					SourceParamIndex: in.SourceParamIndex,
					TargetParamIndex: in.TargetParamIndex,
				})
				if err != nil {
					return ConnectResult{}, err
				}
				return ConnectResult{
					Message:    fmt.Sprintf("connected %s to %s", conn.SourceID, conn.TargetID),
					Connection: conn,
				}, nil
			}),
		canvasTool(ToolGetDocumentInfo,
			"Get a short overview of the document: component count and list. Read grasshopper://current_document for parameters and wires.",
			func(ctx context.Context, _ struct{}) (DocumentInfo, error) {
				return c.Info(ctx)
			}),
		canvasTool(ToolGetAvailablePatterns,
			"Call this before create_pattern: lists the predefined component patterns.",
			func(_ context.Context, in patternQueryInput) (PatternCatalog, error) {
				return c.Patterns(in.Query), nil
			}),
		canvasTool(ToolCreatePattern,
			"Advanced: place a predefined pattern confirmed by get_available_patterns. Prefer add_component for single components.",
			func(ctx context.Context, in createPatternInput) (PatternResult, error) {
				return c.CreatePattern(ctx, in.Description)
			}),
		canvasTool(ToolDiagnoseEnvironment,
			"Diagnose the canvas backend.",
			func(ctx context.Context, _ struct{}) (Diagnostics, error) {
				return c.Diagnose(ctx), nil
			}),
		canvasTool(ToolClearDocument,
			"Remove every component and wire from the document.",
			func(ctx context.Context, _ struct{}) (ClearResult, error) {
				removed, err := c.Clear(ctx)
				if err != nil {
					return ClearResult{}, err
				}
				return ClearResult{Message: fmt.Sprintf("cleared document, removed %d components", removed), Removed: removed}, nil
			}),
		canvasTool(ToolPing,
			"Liveness check. Returns pong.",
			func(context.Context, struct{}) (string, error) {
				return "pong", nil
			}),
	}
}

// ToolModule registers the canvas tools.
func (c *Canvas) ToolModule() capability.Module {
	return capability.Module{
		Name: "canvas-tools",
		Register: func(r *capability.Registry) error {
			for _, tool := range c.tools() {
				if err := r.AddTool(tool); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// Modules returns the tool, resource and prompt modules backed by c.
func (c *Canvas) Modules() []capability.Module {
	return []capability.Module{c.ToolModule(), c.ResourceModule(), PromptModule()}
}
