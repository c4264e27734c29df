package canvas

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Pattern is a predefined group of components placed in one call.
type Pattern struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
}

// patternPart is one component placed by a pattern.
type patternPart struct {
	Type     string
	Nickname string
	X, Y     float64
}

type patternDef struct {
	key         string
	description string
	usage       string
	// listed patterns are returned by Patterns; the rest are only matched.
	listed bool
	parts  []patternPart
}

// supportedPatterns are matched by CreatePattern in order.
var supportedPatterns = []patternDef{
	{
		key: "point grid", listed: true,
		description: "Point grid driven by X and Y count sliders",
		usage:       "Regularly spaced points",
		parts: []patternPart{
			{Type: "slider", Nickname: "X Count", X: 50, Y: 100},
			{Type: "slider", Nickname: "Y Count", X: 50, Y: 150},
		},
	},
	{
		key: "line segment", listed: true,
		description: "Line segment from a start point and an end point",
		usage:       "Defining a single segment",
		parts: []patternPart{
			{Type: "point", Nickname: "Start", X: 50, Y: 100},
			{Type: "point", Nickname: "End", X: 50, Y: 150},
		},
	},
	{
		key: "circle", listed: true,
		description: "Circle from a center point and a radius slider",
		usage:       "Defining a circle",
		parts: []patternPart{
			{Type: "point", Nickname: "Center", X: 50, Y: 100},
			{Type: "slider", Nickname: "Radius", X: 50, Y: 150},
		},
	},
	{
		key: "box", listed: true,
		description: "3D box from an origin point and X, Y and Z size sliders",
		usage:       "Defining a 3D box",
		parts: []patternPart{
			{Type: "point", Nickname: "Origin", X: 50, Y: 100},
			{Type: "slider", Nickname: "X Size", X: 50, Y: 150},
			{Type: "slider", Nickname: "Y Size", X: 50, Y: 200},
			{Type: "slider", Nickname: "Z Size", X: 50, Y: 250},
		},
	},
	{
		key: "voronoi pattern", listed: true,
		description: "Voronoi inputs: a point set and a boundary curve",
		usage:       "Voronoi subdivision",
		parts: []patternPart{
			{Type: "point", Nickname: "Points", X: 50, Y: 100},
			{Type: "curve", Nickname: "Boundary", X: 50, Y: 150},
		},
	},
	{
		key: "basic point",
		parts: []patternPart{
			{Type: "point", Nickname: "Input", X: 100, Y: 100},
			{Type: "panel", Nickname: "Output", X: 300, Y: 100},
		},
	},
	{key: "rectangle"},
	{key: "number slider"},
	{key: "panel"},
	{key: "curve division"},
}

// minPatternDescription is the shortest unknown description CreatePattern
// still tries to interpret.
const minPatternDescription = 5

// PatternCatalog is the result of Patterns.
type PatternCatalog struct {
	UsageGuide        string    `json:"usageGuide"`
	AvailablePatterns []Pattern `json:"availablePatterns"`
	Note              string    `json:"note"`
}

const patternUsageGuide = `Recommended tool order:
1. add_component - add single components (most reliable)
2. connect_components - wire components together
3. create_pattern - only for the predefined patterns below

Simple needs: add components one by one with add_component.
Complex designs: check the patterns below before calling create_pattern.`

func patternName(key string) string {
	return cases.Title(language.English).String(key)
}

// Patterns lists the predefined patterns whose name or description contains
// query, case-insensitively. An empty query lists them all.
func (c *Canvas) Patterns(query string) PatternCatalog {
	query = strings.ToLower(strings.TrimSpace(query))
	patterns := make([]Pattern, 0, len(supportedPatterns))
	for _, def := range supportedPatterns {
		if !def.listed {
			continue
		}
		name := patternName(def.key)
		if query != "" &&
			!strings.Contains(strings.ToLower(name), query) &&
			!strings.Contains(strings.ToLower(def.description), query) {
			continue
		}
		patterns = append(patterns, Pattern{Name: name, Description: def.description, Usage: def.usage})
	}
	return PatternCatalog{
		UsageGuide:        patternUsageGuide,
		AvailablePatterns: patterns,
		Note:              "For simple needs prefer add_component over create_pattern.",
	}
}

// PatternResult reports the components a pattern placed.
type PatternResult struct {
	Pattern    string          `json:"pattern"`
	Components []ComponentView `json:"components"`
}

// CreatePattern places the components of the pattern description names.
// Unknown descriptions shorter than five characters are rejected as vague;
// longer ones fall back to the basic pattern.
func (c *Canvas) CreatePattern(ctx context.Context, description string) (PatternResult, error) {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return PatternResult{}, fmt.Errorf("%w: pattern description is required", ErrInvalidInput)
	}
	known := false
	for _, def := range supportedPatterns {
		if strings.Contains(desc, def.key) || strings.Contains(def.key, desc) {
			known = true
			break
		}
	}
	if !known && len(desc) < minPatternDescription {
		keys := make([]string, 0, len(supportedPatterns))
		for _, def := range supportedPatterns {
			keys = append(keys, def.key)
		}
		return PatternResult{}, fmt.Errorf("%w: description %q is too vague; call get_available_patterns first (supported: %s) or use add_component",
			ErrInvalidInput, description, strings.Join(keys, ", "))
	}

	def := resolvePattern(desc)

	c.mu.Lock()
	defer c.mu.Unlock()
	result := PatternResult{Pattern: patternName(def.key), Components: make([]ComponentView, 0, len(def.parts))}
	for _, part := range def.parts {
		view, err := c.addComponentLocked(ctx, AddComponentRequest{Type: part.Type, X: part.X, Y: part.Y}, part.Nickname)
		if err != nil {
			return result, fmt.Errorf("create %s pattern: %w", def.key, err)
		}
		result.Components = append(result.Components, view)
	}
	return result, nil
}

func resolvePattern(desc string) patternDef {
	find := func(key string) patternDef {
		for _, def := range supportedPatterns {
			if def.key == key {
				return def
			}
		}
		panic("canvas: unknown pattern " + key)
	}
	switch {
	case strings.Contains(desc, "point") && strings.Contains(desc, "grid"):
		return find("point grid")
	case strings.Contains(desc, "line"):
		return find("line segment")
	case strings.Contains(desc, "circle"):
		return find("circle")
	case strings.Contains(desc, "voronoi"):
		return find("voronoi pattern")
	case strings.Contains(desc, "box") || strings.Contains(desc, "rectangular"):
		return find("box")
	default:
		return find("basic point")
	}
}
