package canvas

import (
	"fmt"
	"sort"
	"strings"
)

// ValueKind describes which persistent value a component accepts.
type ValueKind string

const (
	ValueNone    ValueKind = ""
	ValueNumber  ValueKind = "number"
	ValueInteger ValueKind = "integer"
	ValueBoolean ValueKind = "boolean"
	ValueText    ValueKind = "text"
	ValuePoint   ValueKind = "point"
	ValueVector  ValueKind = "vector"
	ValuePlane   ValueKind = "plane"
	ValueColor   ValueKind = "color"
	ValueDomain  ValueKind = "domain"
)

// Param is one named input or output of a component type.
type Param struct {
	Name        string `json:"name"`
	Nickname    string `json:"nickname"`
	DataType    string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ComponentType is one entry of the component catalog.
type ComponentType struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Nickname    string    `json:"nickname"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Description string    `json:"description"`
	Value       ValueKind `json:"value_kind,omitempty"`
	Inputs      []Param   `json:"inputs"`
	Outputs     []Param   `json:"outputs"`
	// Basic types are listed first in the component library.
	Basic bool `json:"-"`
}

// IsParameter reports whether the type is a bare parameter holder whose
// single output doubles as its input.
func (c ComponentType) IsParameter() bool {
	return len(c.Inputs) == 0
}

func param(name, nickname, dataType string) Param {
	return Param{Name: name, Nickname: nickname, DataType: dataType}
}

var catalog = map[string]ComponentType{
	"point": {
		Type: "point", Name: "Point", Nickname: "Pt", Category: "Params", Subcategory: "Geometry",
		Description: "Point parameter", Value: ValuePoint, Basic: true,
		Outputs: []Param{param("Point", "Pt", "Point")},
	},
	"curve": {
		Type: "curve", Name: "Curve", Nickname: "Crv", Category: "Params", Subcategory: "Geometry",
		Description: "Curve parameter", Basic: true,
		Outputs: []Param{param("Curve", "Crv", "Curve")},
	},
	"circle": {
		Type: "circle", Name: "Circle", Nickname: "Cir", Category: "Curve", Subcategory: "Primitive",
		Description: "Circle from a base plane and a radius", Basic: true,
		Inputs:  []Param{param("Plane", "P", "Plane"), param("Radius", "R", "Number")},
		Outputs: []Param{param("Circle", "C", "Curve")},
	},
	"line": {
		Type: "line", Name: "Line", Nickname: "Ln", Category: "Curve", Subcategory: "Primitive",
		Description: "Line between two points", Basic: true,
		Inputs:  []Param{param("Start Point", "A", "Point"), param("End Point", "B", "Point")},
		Outputs: []Param{param("Line", "L", "Curve")},
	},
	"panel": {
		Type: "panel", Name: "Panel", Nickname: "Panel", Category: "Params", Subcategory: "Input",
		Description: "Text panel for notes and output inspection", Value: ValueText, Basic: true,
		Outputs: []Param{param("Text", "T", "Text")},
	},
	"slider": {
		Type: "slider", Name: "Number Slider", Nickname: "Slider", Category: "Params", Subcategory: "Input",
		Description: "Numeric slider", Value: ValueNumber, Basic: true,
		Outputs: []Param{param("Number", "N", "Number")},
	},
	"rectangle": {
		Type: "rectangle", Name: "Rectangle", Nickname: "Rec", Category: "Curve", Subcategory: "Primitive",
		Description: "Rectangle on a plane",
		Inputs:      []Param{param("Plane", "P", "Plane"), param("X Size", "X", "Domain"), param("Y Size", "Y", "Domain")},
		Outputs:     []Param{param("Rectangle", "R", "Curve"), param("Length", "L", "Number")},
	},
	"surface": {
		Type: "surface", Name: "Surface", Nickname: "Srf", Category: "Params", Subcategory: "Geometry",
		Description: "Surface parameter",
		Outputs:     []Param{param("Surface", "Srf", "Surface")},
	},
	"mesh": {
		Type: "mesh", Name: "Mesh", Nickname: "M", Category: "Params", Subcategory: "Geometry",
		Description: "Mesh parameter",
		Outputs:     []Param{param("Mesh", "M", "Mesh")},
	},
	"vector": {
		Type: "vector", Name: "Vector", Nickname: "V", Category: "Params", Subcategory: "Geometry",
		Description: "Vector parameter", Value: ValueVector,
		Outputs: []Param{param("Vector", "V", "Vector")},
	},
	"integer": {
		Type: "integer", Name: "Integer", Nickname: "I", Category: "Params", Subcategory: "Input",
		Description: "Integer parameter", Value: ValueInteger,
		Outputs: []Param{param("Integer", "I", "Integer")},
	},
	"boolean": {
		Type: "boolean", Name: "Boolean", Nickname: "B", Category: "Params", Subcategory: "Input",
		Description: "Boolean parameter", Value: ValueBoolean,
		Outputs: []Param{param("Boolean", "B", "Boolean")},
	},
	"color": {
		Type: "color", Name: "Colour", Nickname: "C", Category: "Params", Subcategory: "Input",
		Description: "Colour parameter", Value: ValueColor,
		Outputs: []Param{param("Colour", "C", "Colour")},
	},
	"domain": {
		Type: "domain", Name: "Domain", Nickname: "D", Category: "Params", Subcategory: "Input",
		Description: "Numeric domain parameter", Value: ValueDomain,
		Outputs: []Param{param("Domain", "D", "Domain")},
	},
	"plane": {
		Type: "plane", Name: "Plane", Nickname: "Pl", Category: "Params", Subcategory: "Geometry",
		Description: "Plane parameter", Value: ValuePlane,
		Outputs: []Param{param("Plane", "Pl", "Plane")},
	},
	"box": {
		Type: "box", Name: "Box", Nickname: "Box", Category: "Surface", Subcategory: "Primitive",
		Description: "Box from a base plane and three sizes",
		Inputs: []Param{
			param("Base", "B", "Plane"),
			param("X Size", "X", "Domain"),
			param("Y Size", "Y", "Domain"),
			param("Z Size", "Z", "Domain"),
		},
		Outputs: []Param{param("Box", "B", "Box")},
	},
	"sphere": {
		Type: "sphere", Name: "Sphere", Nickname: "Sph", Category: "Surface", Subcategory: "Primitive",
		Description: "Sphere from a base plane and a radius",
		Inputs:      []Param{param("Base", "B", "Plane"), param("Radius", "R", "Number")},
		Outputs:     []Param{param("Sphere", "S", "Brep")},
	},
	"cylinder": {
		Type: "cylinder", Name: "Cylinder", Nickname: "Cyl", Category: "Surface", Subcategory: "Primitive",
		Description: "Cylinder from a base plane, a radius and a length",
		Inputs:      []Param{param("Base", "B", "Plane"), param("Radius", "R", "Number"), param("Length", "L", "Number")},
		Outputs:     []Param{param("Cylinder", "C", "Brep")},
	},
}

// Lookup returns the catalog entry for componentType, case-insensitively.
func Lookup(componentType string) (ComponentType, bool) {
	entry, ok := catalog[strings.ToLower(strings.TrimSpace(componentType))]
	return entry, ok
}

// Catalog returns every component type sorted by type key.
func Catalog() []ComponentType {
	types := make([]ComponentType, 0, len(catalog))
	for _, entry := range catalog {
		types = append(types, entry)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Type < types[j].Type })
	return types
}

// TypeNames returns the sorted catalog keys.
func TypeNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unsupportedTypeError(componentType string) error {
	return fmt.Errorf("%w: unsupported component type %q (supported: %s)",
		ErrInvalidInput, componentType, strings.Join(TypeNames(), ", "))
}
