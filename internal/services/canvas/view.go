package canvas

import "time"

// Position is a canvas pivot in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ParamView is one component parameter with its connection state.
type ParamView struct {
	Name        string `json:"name"`
	Nickname    string `json:"nickname"`
	Type        string `json:"type"`
	IsConnected bool   `json:"isConnected"`
	// SourceCount is set on inputs, RecipientCount on outputs.
	SourceCount    int    `json:"sourceCount,omitempty"`
	RecipientCount int    `json:"recipientCount,omitempty"`
	Description    string `json:"description,omitempty"`
}

// ComponentView is one placed component as reported to clients.
type ComponentView struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	Nickname    string      `json:"nickname"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	Position    Position    `json:"position"`
	Value       string      `json:"value,omitempty"`
	Inputs      []ParamView `json:"inputs"`
	Outputs     []ParamView `json:"outputs"`
	Description string      `json:"description,omitempty"`
	IsParameter bool        `json:"isParameter,omitempty"`
}

// Connection is one wire as reported to clients.
type Connection struct {
	SourceID            string `json:"sourceId"`
	SourceParam         string `json:"sourceParam"`
	SourceParamNickname string `json:"sourceParamNickname"`
	TargetID            string `json:"targetId"`
	TargetParam         string `json:"targetParam"`
	TargetParamNickname string `json:"targetParamNickname"`
}

// Document is the full canvas: components with parameters and wires.
type Document struct {
	DocumentName    string          `json:"documentName"`
	ComponentCount  int             `json:"componentCount"`
	ConnectionCount int             `json:"connectionCount"`
	Components      []ComponentView `json:"components"`
	Connections     []Connection    `json:"connections"`
	Timestamp       string          `json:"timestamp"`
}

// ObjectSummary is the short form of a component used by DocumentInfo.
type ObjectSummary struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Nickname    string   `json:"nickname"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Position    Position `json:"position"`
}

// DocumentInfo is the brief document overview.
type DocumentInfo struct {
	IsDocumentActive bool            `json:"isDocumentActive"`
	DocumentName     string          `json:"documentName"`
	ComponentCount   int             `json:"componentCount"`
	Objects          []ObjectSummary `json:"objects"`
	Version          string          `json:"version"`
}

// Diagnostics reports the health of the canvas backend.
type Diagnostics struct {
	StoreReachable bool   `json:"storeReachable"`
	StoreError     string `json:"storeError,omitempty"`
	DocumentExists bool   `json:"documentExists"`
	ComponentCount int    `json:"componentCount"`
	CatalogSize    int    `json:"catalogSize"`
	Version        string `json:"version"`
	GoVersion      string `json:"goVersion"`
	Uptime         string `json:"uptime"`
	CurrentTime    string `json:"currentTime"`
}

const timestampLayout = "2006-01-02 15:04:05 UTC"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
