package canvas

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/grasshoppermcp/gateway/internal/services/canvas/storage"
)

var (
	// ErrInvalidInput reports a tool argument the canvas cannot apply.
	ErrInvalidInput = errors.New("invalid canvas input")
	// ErrComponentNotFound reports an unknown component id.
	ErrComponentNotFound = errors.New("component not found")
)

// DefaultDocumentName names the document when none is configured.
const DefaultDocumentName = "Untitled"

// Canvas edits one document backed by a store. It is safe for concurrent use.
type Canvas struct {
	store        storage.Store
	now          func() time.Time
	newID        func() string
	documentName string
	version      string
	startedAt    time.Time

	// mu keeps multi-component edits atomic with respect to each other.
	mu sync.Mutex
	// fold is stateful and guarded by mu.
	fold cases.Caser
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Canvas) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides component id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Canvas) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// WithDocumentName sets the reported document name.
func WithDocumentName(name string) Option {
	return func(c *Canvas) {
		if strings.TrimSpace(name) != "" {
			c.documentName = strings.TrimSpace(name)
		}
	}
}

// WithVersion sets the version reported by status and diagnostics.
func WithVersion(version string) Option {
	return func(c *Canvas) {
		if strings.TrimSpace(version) != "" {
			c.version = strings.TrimSpace(version)
		}
	}
}

// New returns a canvas over store.
func New(store storage.Store, opts ...Option) (*Canvas, error) {
	if store == nil {
		return nil, errors.New("canvas store is required")
	}
	c := &Canvas{
		store:        store,
		now:          time.Now,
		newID:        uuid.NewString,
		documentName: DefaultDocumentName,
		version:      "dev",
		fold:         cases.Fold(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startedAt = c.now()
	return c, nil
}

// AddComponentRequest places one component.
type AddComponentRequest struct {
	Type  string
	X     float64
	Y     float64
	Value string
}

// AddComponent places a component and applies its optional initial value.
func (c *Canvas) AddComponent(ctx context.Context, req AddComponentRequest) (ComponentView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addComponentLocked(ctx, req, "")
}

func (c *Canvas) addComponentLocked(ctx context.Context, req AddComponentRequest, nickname string) (ComponentView, error) {
	entry, ok := Lookup(req.Type)
	if !ok {
		return ComponentView{}, unsupportedTypeError(req.Type)
	}
	value := ""
	if strings.TrimSpace(req.Value) != "" {
		normalized, err := normalizeValue(entry, req.Value)
		if err != nil {
			return ComponentView{}, err
		}
		value = normalized
	}
	if nickname == "" {
		nickname = entry.Nickname
	}

	now := c.now().UTC()
	record := storage.Component{
		ID:          c.newID(),
		Type:        entry.Type,
		Name:        entry.Name,
		Nickname:    nickname,
		Category:    entry.Category,
		Subcategory: entry.Subcategory,
		X:           req.X,
		Y:           req.Y,
		Value:       value,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.store.PutComponent(ctx, record); err != nil {
		return ComponentView{}, fmt.Errorf("store component: %w", err)
	}
	return componentView(record, entry, nil), nil
}

// SetComponentValue replaces the value of an existing component.
func (c *Canvas) SetComponentValue(ctx context.Context, id, value string) (ComponentView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, entry, err := c.component(ctx, id)
	if err != nil {
		return ComponentView{}, err
	}
	normalized, err := normalizeValue(entry, value)
	if err != nil {
		return ComponentView{}, err
	}
	now := c.now().UTC()
	if err := c.store.SetComponentValue(ctx, record.ID, normalized, now); err != nil {
		return ComponentView{}, fmt.Errorf("store component value: %w", err)
	}
	record.Value = normalized
	record.UpdatedAt = now
	return componentView(record, entry, nil), nil
}

func (c *Canvas) component(ctx context.Context, id string) (storage.Component, ComponentType, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Component{}, ComponentType{}, fmt.Errorf("%w: component id is required", ErrInvalidInput)
	}
	record, err := c.store.GetComponent(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Component{}, ComponentType{}, fmt.Errorf("%w: %q", ErrComponentNotFound, id)
		}
		return storage.Component{}, ComponentType{}, fmt.Errorf("load component: %w", err)
	}
	entry, ok := Lookup(record.Type)
	if !ok {
		return storage.Component{}, ComponentType{}, fmt.Errorf("component %q has unknown type %q", id, record.Type)
	}
	return record, entry, nil
}

// ConnectRequest wires an output of one component to an input of another.
// Params are matched by name or nickname, then by index, then default to the
// first parameter.
type ConnectRequest struct {
	SourceID         string
	TargetID         string
	SourceParam      string
	TargetParam      string
	SourceParamIndex *int
	TargetParamIndex *int
}

// Connect stores a wire between two components.
func (c *Canvas) Connect(ctx context.Context, req ConnectRequest) (Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	source, sourceEntry, err := c.component(ctx, req.SourceID)
	if err != nil {
		return Connection{}, fmt.Errorf("source: %w", err)
	}
	target, targetEntry, err := c.component(ctx, req.TargetID)
	if err != nil {
		return Connection{}, fmt.Errorf("target: %w", err)
	}

	output, ok := c.pickParam(sourceEntry.Outputs, req.SourceParam, req.SourceParamIndex)
	if !ok {
		return Connection{}, fmt.Errorf("%w: no matching output on source; available outputs: %s",
			ErrInvalidInput, describeParams(sourceEntry.Outputs))
	}
	inputs := targetEntry.Inputs
	if targetEntry.IsParameter() {
		// A bare parameter accepts input on itself.
		inputs = targetEntry.Outputs
	}
	input, ok := c.pickParam(inputs, req.TargetParam, req.TargetParamIndex)
	if !ok {
		return Connection{}, fmt.Errorf("%w: no matching input on target; available inputs: %s",
			ErrInvalidInput, describeParams(inputs))
	}

	wire := storage.Wire{
		SourceID:    source.ID,
		SourceParam: output.Name,
		TargetID:    target.ID,
		TargetParam: input.Name,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.PutWire(ctx, wire); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return Connection{}, fmt.Errorf("%w: %s.%s is already connected to %s.%s",
				ErrInvalidInput, source.ID, output.Name, target.ID, input.Name)
		}
		return Connection{}, fmt.Errorf("store wire: %w", err)
	}
	return Connection{
		SourceID:            source.ID,
		SourceParam:         output.Name,
		SourceParamNickname: output.Nickname,
		TargetID:            target.ID,
		TargetParam:         input.Name,
		TargetParamNickname: input.Nickname,
	}, nil
}

func (c *Canvas) pickParam(params []Param, name string, index *int) (Param, bool) {
	if name = strings.TrimSpace(name); name != "" {
		folded := c.fold.String(name)
		for _, p := range params {
			if c.fold.String(p.Name) == folded || c.fold.String(p.Nickname) == folded {
				return p, true
			}
		}
		return Param{}, false
	}
	if index != nil {
		if *index < 0 || *index >= len(params) {
			return Param{}, false
		}
		return params[*index], true
	}
	if len(params) == 0 {
		return Param{}, false
	}
	return params[0], true
}

func describeParams(params []Param) string {
	if len(params) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("'%s' (%s)", p.Name, p.Nickname))
	}
	return strings.Join(parts, ", ")
}

// Document returns every component with its parameters and every wire.
func (c *Canvas) Document(ctx context.Context) (Document, error) {
	records, err := c.store.ListComponents(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("list components: %w", err)
	}
	wires, err := c.store.ListWires(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("list wires: %w", err)
	}

	nicknames := make(map[string]map[string]string, len(records))
	for _, record := range records {
		entry, _ := Lookup(record.Type)
		byName := make(map[string]string)
		for _, p := range append(append([]Param(nil), entry.Inputs...), entry.Outputs...) {
			byName[p.Name] = p.Nickname
		}
		nicknames[record.ID] = byName
	}

	doc := Document{
		DocumentName: c.documentName,
		Components:   make([]ComponentView, 0, len(records)),
		Connections:  make([]Connection, 0, len(wires)),
		Timestamp:    formatTimestamp(c.now()),
	}
	for _, record := range records {
		entry, ok := Lookup(record.Type)
		if !ok {
			continue
		}
		doc.Components = append(doc.Components, componentView(record, entry, wires))
	}
	for _, wire := range wires {
		doc.Connections = append(doc.Connections, Connection{
			SourceID:            wire.SourceID,
			SourceParam:         wire.SourceParam,
			SourceParamNickname: nicknames[wire.SourceID][wire.SourceParam],
			TargetID:            wire.TargetID,
			TargetParam:         wire.TargetParam,
			TargetParamNickname: nicknames[wire.TargetID][wire.TargetParam],
		})
	}
	doc.ComponentCount = len(doc.Components)
	doc.ConnectionCount = len(doc.Connections)
	return doc, nil
}

// Info returns the brief document overview.
func (c *Canvas) Info(ctx context.Context) (DocumentInfo, error) {
	records, err := c.store.ListComponents(ctx)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("list components: %w", err)
	}
	info := DocumentInfo{
		IsDocumentActive: true,
		DocumentName:     c.documentName,
		ComponentCount:   len(records),
		Objects:          make([]ObjectSummary, 0, len(records)),
		Version:          c.version,
	}
	for _, record := range records {
		info.Objects = append(info.Objects, ObjectSummary{
			ID:          record.ID,
			Type:        record.Type,
			Name:        record.Name,
			Nickname:    record.Nickname,
			Category:    record.Category,
			Subcategory: record.Subcategory,
			Position:    Position{X: record.X, Y: record.Y},
		})
	}
	return info, nil
}

// Clear removes every component and wire and reports how many components
// were removed.
func (c *Canvas) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed, err := c.store.ClearDocument(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear document: %w", err)
	}
	return removed, nil
}

// Diagnose checks the store and reports runtime details.
func (c *Canvas) Diagnose(ctx context.Context) Diagnostics {
	now := c.now()
	diag := Diagnostics{
		CatalogSize: len(catalog),
		Version:     c.version,
		GoVersion:   runtime.Version(),
		Uptime:      now.Sub(c.startedAt).Round(time.Second).String(),
		CurrentTime: formatTimestamp(now),
	}
	records, err := c.store.ListComponents(ctx)
	if err != nil {
		diag.StoreError = err.Error()
		return diag
	}
	diag.StoreReachable = true
	diag.DocumentExists = true
	diag.ComponentCount = len(records)
	return diag
}

func componentView(record storage.Component, entry ComponentType, wires []storage.Wire) ComponentView {
	view := ComponentView{
		ID:          record.ID,
		Type:        record.Type,
		Name:        record.Name,
		Nickname:    record.Nickname,
		Category:    record.Category,
		Subcategory: record.Subcategory,
		Position:    Position{X: record.X, Y: record.Y},
		Value:       record.Value,
		Inputs:      make([]ParamView, 0, len(entry.Inputs)),
		Outputs:     make([]ParamView, 0, len(entry.Outputs)),
		Description: entry.Description,
		IsParameter: entry.IsParameter(),
	}
	for _, p := range entry.Inputs {
		sources := 0
		for _, w := range wires {
			if w.TargetID == record.ID && w.TargetParam == p.Name {
				sources++
			}
		}
		view.Inputs = append(view.Inputs, ParamView{
			Name: p.Name, Nickname: p.Nickname, Type: p.DataType,
			IsConnected: sources > 0, SourceCount: sources, Description: p.Description,
		})
	}
	for _, p := range entry.Outputs {
		recipients := 0
		for _, w := range wires {
			if w.SourceID == record.ID && w.SourceParam == p.Name {
				recipients++
			}
		}
		view.Outputs = append(view.Outputs, ParamView{
			Name: p.Name, Nickname: p.Nickname, Type: p.DataType,
			IsConnected: recipients > 0, RecipientCount: recipients, Description: p.Description,
		})
	}
	return view
}
