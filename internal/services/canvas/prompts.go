package canvas

import (
	"context"
	"fmt"
	"strings"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
)

// Prompt names.
const (
	PromptWorkflowGuide   = "grasshopper_workflow_guide"
	PromptConnectionGuide = "component_connection_guide"
	PromptTroubleshooting = "error_troubleshooting"
	PromptDesignPattern   = "design_pattern_guide"
	PromptToolSelection   = "tool_selection_guide"
)

const workflowGuide = `# Canvas workflow guide

## 1. Know the current state
- Always read grasshopper://current_document before editing.
- Check existing components, their positions, parameters and wires.

## 2. Use tools precisely
- Use exact component types from grasshopper://component_library.
- Plan positions so components do not overlap; a grid spaced 200-300 units works well.
- Confirm parameter names before connecting.

## 3. Common component types
- Inputs: slider, panel, point
- Geometry: circle, line, curve, rectangle, box, sphere, cylinder

## 4. Workflow
1. Inspect the document
2. Plan the layout
3. Add components one at a time
4. Set values
5. Connect components
6. Verify the result

## 5. Connection rules
- Sliders feed components that take numbers.
- Geometry outputs feed transforms and other geometry operations.
- Panels show results or hold text.
- Components that take a plane (box, circle, rectangle) expect a plane source, not a point; wire a plane's Plane output to their Base or Plane input.

## Design intent
%s

Plan an implementation strategy for this intent.`

const connectionGuide = `# Component connection guide

## Before connecting
1. Read grasshopper://current_document.
2. Confirm the source and target components exist.
3. Confirm the exact input and output parameter names.

## Common connections
- Slider Number -> circle Radius, sphere Radius, cylinder Length
- Point Point -> line Start Point or End Point
- Plane Plane -> box Base, circle Plane
- Circle Circle -> any curve input

## Steps
1. Note the source id and output parameter.
2. Note the target id and input parameter.
3. Call connect_components.
4. Re-read the document to verify the wire.

## Current task
Source component: %s
Target component: %s

Pick a connection strategy for these component types.`

const troubleshootingPrompt = `# Error troubleshooting guide

## 1. Component creation fails
- Symptom: add_component returns an error.
- Check: the component type is in grasshopper://component_library and the value matches its type.

## 2. Connection fails
- Symptom: connect_components returns an error.
- Check: both ids exist, parameter names or nicknames are correct, the wire does not already exist.

## 3. Parameter mismatch
- Symptom: a wire exists but carries the wrong data.
- Check: the output data type against the input data type.

## 4. Component not visible
- Symptom: add_component succeeded but the component is not where expected.
- Check: its position in get_document_info.

## Diagnostic resources
1. grasshopper://current_document
2. grasshopper://environment
3. grasshopper://component_library

## Current error
%s

Propose a concrete fix for this error.`

const designPatternGuide = `# Design pattern guide

## Pattern type: %s

### 1. Prepare
- Read the document state
- Plan the layout
- Decide the driving parameters

### 2. Create inputs
- Sliders for sizes, counts and spacing
- Points for anchors
- Panels for notes

### 3. Build base geometry
- Create primitives: points, lines, circles
- Relate them through wires

### 4. Apply the pattern
- Voronoi: create a point set, define a boundary curve, then subdivide.
- Grid: set spacing, create a point array, connect neighbours.
- Spiral: set spiral parameters, create the curve, distribute objects along it.

Plan the implementation for the chosen pattern.`

const toolSelectionGuide = `# Tool selection guide

## User intent: %s
## Complexity: %s

## 1. Gather state
- Call get_document_info first to see what is on the canvas.

## 2. Choose tools
### Simple (preferred)
Single components, basic geometry, simple parameter control:
- add_component, connect_components, get_document_info
Example: a slider driving a circle radius is add_component('slider'), add_component('circle'), connect_components().

### Intermediate
Several related components: repeat add_component and connect_components.

### Complex
Predefined algorithmic patterns:
- Call get_available_patterns first.
- Then call create_pattern with an exact pattern name.
Never call create_pattern without checking the available patterns.

## Tool comparison
| Tool | Use | Reliability |
|------|-----|-------------|
| add_component | single components | high |
| connect_components | wiring | high |
| get_document_info | state | high |
| get_available_patterns | pattern lookup | high |
| create_pattern | predefined patterns | medium |

Choose tools matching the %s level for '%s'.`

func argOr(args map[string]string, name, fallback string) string {
	if value := strings.TrimSpace(args[name]); value != "" {
		return value
	}
	return fallback
}

func prompts() []*capability.Prompt {
	types := TypeNames()
	return []*capability.Prompt{
		{
			Name:        PromptWorkflowGuide,
			Description: "Complete workflow guide for editing the canvas",
			Arguments: []capability.PromptArgument{
				{Name: "design_intent", Description: "the user's design intent or goal"},
			},
			Render: func(_ context.Context, args map[string]string) (string, error) {
				return fmt.Sprintf(workflowGuide, argOr(args, "design_intent", "(not specified)")), nil
			},
		},
		{
			Name:        PromptConnectionGuide,
			Description: "Detailed guide for connecting components",
			Arguments: []capability.PromptArgument{
				{Name: "source_component", Description: "source component type", Suggestions: types},
				{Name: "target_component", Description: "target component type", Suggestions: types},
			},
			Render: func(_ context.Context, args map[string]string) (string, error) {
				return fmt.Sprintf(connectionGuide,
					argOr(args, "source_component", "(not specified)"),
					argOr(args, "target_component", "(not specified)")), nil
			},
		},
		{
			Name:        PromptTroubleshooting,
			Description: "Detailed guide for diagnosing errors",
			Arguments: []capability.PromptArgument{
				{Name: "error_message", Description: "the error message encountered"},
			},
			Render: func(_ context.Context, args map[string]string) (string, error) {
				return fmt.Sprintf(troubleshootingPrompt, argOr(args, "error_message", "(not specified)")), nil
			},
		},
		{
			Name:        PromptDesignPattern,
			Description: "Implementation guide for common design patterns",
			Arguments: []capability.PromptArgument{
				{Name: "pattern_type", Description: "pattern type such as voronoi, grid or spiral", Suggestions: []string{"grid", "spiral", "voronoi"}},
			},
			Render: func(_ context.Context, args map[string]string) (string, error) {
				return fmt.Sprintf(designPatternGuide, argOr(args, "pattern_type", "(not specified)")), nil
			},
		},
		{
			Name:        PromptToolSelection,
			Description: "Guide for choosing the right tool for a request",
			Arguments: []capability.PromptArgument{
				{Name: "user_intent", Description: "the user's concrete request"},
				{Name: "complexity_level", Description: "simple, intermediate or complex", Suggestions: []string{"complex", "intermediate", "simple"}},
			},
			Render: func(_ context.Context, args map[string]string) (string, error) {
				intent := argOr(args, "user_intent", "(not specified)")
				level := argOr(args, "complexity_level", "simple")
				return fmt.Sprintf(toolSelectionGuide, intent, level, level, intent), nil
			},
		},
	}
}

// PromptModule registers the canvas prompts. Prompts do not read the
// document, so the module needs no Canvas.
func PromptModule() capability.Module {
	return capability.Module{
		Name: "canvas-prompts",
		Register: func(r *capability.Registry) error {
			for _, prompt := range prompts() {
				if err := r.AddPrompt(prompt); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
