package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested canvas record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a component id or wire is already stored.
	ErrAlreadyExists = errors.New("record already exists")
)

// Component is one placed canvas component.
type Component struct {
	ID          string
	Type        string
	Name        string
	Nickname    string
	Category    string
	Subcategory string
	X           float64
	Y           float64
	// Value is the normalized persistent value, empty when unset.
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Wire connects one component output parameter to another component input.
type Wire struct {
	SourceID    string
	SourceParam string
	TargetID    string
	TargetParam string
	CreatedAt   time.Time
}

// ComponentStore persists canvas components.
type ComponentStore interface {
	PutComponent(ctx context.Context, component Component) error
	GetComponent(ctx context.Context, id string) (Component, error)
	// ListComponents returns components in placement order.
	ListComponents(ctx context.Context) ([]Component, error)
	SetComponentValue(ctx context.Context, id string, value string, updatedAt time.Time) error
}

// WireStore persists wires between component parameters.
type WireStore interface {
	PutWire(ctx context.Context, wire Wire) error
	ListWires(ctx context.Context) ([]Wire, error)
}

// Store is the full canvas persistence contract.
type Store interface {
	ComponentStore
	WireStore
	// ClearDocument removes every component and wire and reports how many
	// components were removed.
	ClearDocument(ctx context.Context) (int, error)
}
