package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/grasshoppermcp/gateway/internal/services/gateway/capability"
)

// Resource URIs.
const (
	ResourceStatus           = "grasshopper://status"
	ResourceComponentGuide   = "grasshopper://component_guide"
	ResourceComponentLibrary = "grasshopper://component_library"
	ResourceEnvironment      = "grasshopper://environment"
	ResourceCurrentDocument  = "grasshopper://current_document"
	ResourceTroubleshooting  = "grasshopper://troubleshooting"
)

func indentJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode resource: %w", err)
	}
	return string(data), nil
}

type statusView struct {
	IsDocumentActive bool   `json:"isDocumentActive"`
	DocumentName     string `json:"documentName"`
	ComponentCount   int    `json:"componentCount"`
	ConnectionCount  int    `json:"connectionCount"`
	Version          string `json:"version"`
}

func (c *Canvas) readStatus(ctx context.Context) (string, error) {
	doc, err := c.Document(ctx)
	if err != nil {
		return "", err
	}
	return indentJSON(statusView{
		IsDocumentActive: true,
		DocumentName:     doc.DocumentName,
		ComponentCount:   doc.ComponentCount,
		ConnectionCount:  doc.ConnectionCount,
		Version:          c.version,
	})
}

type guideCategory struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var componentGuide = struct {
	Title      string          `json:"title"`
	Categories []guideCategory `json:"categories"`
	Usage      string          `json:"usage"`
}{
	Title: "Component guide",
	Categories: []guideCategory{
		{Name: "Params", Description: "input parameters and sliders"},
		{Name: "Geometry", Description: "points, lines, surfaces and solids"},
		{Name: "Curve", Description: "curve creation and editing"},
		{Name: "Surface", Description: "surface generation and editing"},
		{Name: "Mesh", Description: "mesh processing"},
		{Name: "Transform", Description: "move, rotate and scale"},
		{Name: "Math", Description: "arithmetic and functions"},
		{Name: "Logic", Description: "conditions and flow control"},
	},
	Usage: "Add components with add_component and wire them with connect_components.",
}

type libraryView struct {
	Title              string          `json:"title"`
	BasicComponents    []ComponentType `json:"basicComponents"`
	AdvancedComponents []ComponentType `json:"advancedComponents"`
	Usage              string          `json:"usage"`
}

func componentLibrary() libraryView {
	library := libraryView{
		Title: "Component library",
		Usage: "Pass a component's type as the component_type argument of add_component.",
	}
	for _, entry := range Catalog() {
		if entry.Basic {
			library.BasicComponents = append(library.BasicComponents, entry)
		} else {
			library.AdvancedComponents = append(library.AdvancedComponents, entry)
		}
	}
	return library
}

type environmentView struct {
	Title            string `json:"title"`
	Version          string `json:"version"`
	GoVersion        string `json:"goVersion"`
	Platform         string `json:"platform"`
	MachineName      string `json:"machineName,omitempty"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
	SystemInfo       struct {
		ProcessorCount int  `json:"processorCount"`
		PageSize       int  `json:"pageSize"`
		Goroutines     int  `json:"goroutines"`
		Is64Bit        bool `json:"is64Bit"`
	} `json:"systemInfo"`
}

func (c *Canvas) environment() environmentView {
	env := environmentView{
		Title:     "Environment",
		Version:   c.version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if host, err := os.Hostname(); err == nil {
		env.MachineName = host
	}
	if wd, err := os.Getwd(); err == nil {
		env.WorkingDirectory = wd
	}
	env.SystemInfo.ProcessorCount = runtime.NumCPU()
	env.SystemInfo.PageSize = os.Getpagesize()
	env.SystemInfo.Goroutines = runtime.NumGoroutine()
	env.SystemInfo.Is64Bit = strconv.IntSize == 64
	return env
}

type troubleshootingIssue struct {
	Issue    string `json:"issue"`
	Solution string `json:"solution"`
}

func troubleshootingGuide() any {
	return struct {
		Title               string                 `json:"title"`
		CommonIssues        []troubleshootingIssue `json:"commonIssues"`
		TestingSteps        []string               `json:"testingSteps"`
		SupportedComponents []string               `json:"supportedComponents"`
	}{
		Title: "Troubleshooting guide",
		CommonIssues: []troubleshootingIssue{
			{Issue: "add_component fails", Solution: "Run diagnose_environment, then check the component type against grasshopper://component_library."},
			{Issue: "component id not found", Solution: "Use the id returned by add_component or listed in grasshopper://current_document."},
			{Issue: "component missing from the document", Solution: "Confirm with get_document_info; clear_document removes everything."},
			{Issue: "connect_components fails", Solution: "Check both ids exist and use parameter names or nicknames from grasshopper://current_document."},
		},
		TestingSteps: []string{
			"1. Run diagnose_environment",
			"2. Add a simple component with add_component",
			"3. Confirm it with get_document_info",
			"4. Wire components with connect_components",
			"5. Try create_pattern for a predefined pattern",
		},
		SupportedComponents: TypeNames(),
	}
}

func staticResource(v any) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return indentJSON(v)
	}
}

func (c *Canvas) resources() []*capability.Resource {
	return []*capability.Resource{
		{
			URI: ResourceStatus, Name: "status",
			Description: "Current document status",
			MIMEType:    "application/json",
			Read:        c.readStatus,
		},
		{
			URI: ResourceComponentGuide, Name: "component_guide",
			Description: "Component usage guide",
			MIMEType:    "application/json",
			Read:        staticResource(componentGuide),
		},
		{
			URI: ResourceComponentLibrary, Name: "component_library",
			Description: "Component types accepted by add_component",
			MIMEType:    "application/json",
			Read: func(context.Context) (string, error) {
				return indentJSON(componentLibrary())
			},
		},
		{
			URI: ResourceEnvironment, Name: "environment",
			Description: "Gateway host environment",
			MIMEType:    "application/json",
			Read: func(context.Context) (string, error) {
				return indentJSON(c.environment())
			},
		},
		{
			URI: ResourceCurrentDocument, Name: "current_document",
			Description: "Every component with its position, parameters and wires",
			MIMEType:    "application/json",
			Read: func(ctx context.Context) (string, error) {
				doc, err := c.Document(ctx)
				if err != nil {
					return "", err
				}
				return indentJSON(doc)
			},
		},
		{
			URI: ResourceTroubleshooting, Name: "troubleshooting",
			Description: "Troubleshooting guide",
			MIMEType:    "application/json",
			Read:        staticResource(troubleshootingGuide()),
		},
	}
}

// ResourceModule registers the canvas resources.
func (c *Canvas) ResourceModule() capability.Module {
	return capability.Module{
		Name: "canvas-resources",
		Register: func(r *capability.Registry) error {
			for _, resource := range c.resources() {
				if err := r.AddResource(resource); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
