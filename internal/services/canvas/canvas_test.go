package canvas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestAddComponent(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t)

	view := addComponent(t, c, "Slider", "2.50")

	require.Equal(t, "c1", view.ID)
	require.Equal(t, "slider", view.Type)
	require.Equal(t, "Number Slider", view.Name)
	require.Equal(t, "Slider", view.Nickname)
	require.Equal(t, "2.5", view.Value)
	require.Equal(t, Position{X: 10, Y: 20}, view.Position)
	require.True(t, view.IsParameter)
	require.Empty(t, view.Inputs)
	require.Len(t, view.Outputs, 1)
	require.False(t, view.Outputs[0].IsConnected)
}

func TestAddComponentRejectsBadInput(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t)

	tests := []struct {
		name string
		req  AddComponentRequest
	}{
		{name: "unknown type", req: AddComponentRequest{Type: "teapot"}},
		{name: "empty type", req: AddComponentRequest{Type: " "}},
		{name: "bad slider value", req: AddComponentRequest{Type: "slider", Value: "wide"}},
		{name: "value on component without one", req: AddComponentRequest{Type: "circle", Value: "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.AddComponent(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	info, err := c.Info(context.Background())
	require.NoError(t, err)
	require.Zero(t, info.ComponentCount)
}

func TestSetComponentValue(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t)
	point := addComponent(t, c, "point", "")

	view, err := c.SetComponentValue(context.Background(), point.ID, `{"X":1,"Y":2.5,"Z":0}`)
	require.NoError(t, err)
	require.Equal(t, `{"X":1,"Y":2.5,"Z":0}`, view.Value)

	doc, err := c.Document(context.Background())
	require.NoError(t, err)
	require.Equal(t, view.Value, doc.Components[0].Value)
}

func TestSetComponentValueErrors(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t)
	slider := addComponent(t, c, "slider", "1")

	_, err := c.SetComponentValue(context.Background(), "missing", "1")
	require.ErrorIs(t, err, ErrComponentNotFound)

	_, err = c.SetComponentValue(context.Background(), "", "1")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.SetComponentValue(context.Background(), slider.ID, "NaN")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestConnectMatchesParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       func(source, target string) ConnectRequest
		wantInput string
	}{
		{
			name: "by name",
			req: func(source, target string) ConnectRequest {
				return ConnectRequest{SourceID: source, TargetID: target, SourceParam: "Number", TargetParam: "Radius"}
			},
			wantInput: "Radius",
		},
		{
			name: "by nickname case-insensitively",
			req: func(source, target string) ConnectRequest {
				return ConnectRequest{SourceID: source, TargetID: target, SourceParam: "n", TargetParam: "r"}
			},
			wantInput: "Radius",
		},
		{
			name: "by index",
			req: func(source, target string) ConnectRequest {
				return ConnectRequest{SourceID: source, TargetID: target, SourceParamIndex: intPtr(0), TargetParamIndex: intPtr(1)}
			},
			wantInput: "Radius",
		},
		{
			name: "defaults to first",
			req: func(source, target string) ConnectRequest {
				return ConnectRequest{SourceID: source, TargetID: target}
			},
			wantInput: "Plane",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestCanvas(t)
			slider := addComponent(t, c, "slider", "5")
			circle := addComponent(t, c, "circle", "")

			conn, err := c.Connect(context.Background(), tt.req(slider.ID, circle.ID))
			require.NoError(t, err)
			require.Equal(t, "Number", conn.SourceParam)
			require.Equal(t, "N", conn.SourceParamNickname)
			require.Equal(t, tt.wantInput, conn.TargetParam)
		})
	}
}

func TestConnectIntoBareParameter(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t)
	slider := addComponent(t, c, "slider", "1")
	panel := addComponent(t, c, "panel", "")

	conn, err := c.Connect(context.Background(), ConnectRequest{SourceID: slider.ID, TargetID: panel.ID})
	require.NoError(t, err)
	require.Equal(t, "Text", conn.TargetParam)
}

func TestConnectErrors(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t)
	slider := addComponent(t, c, "slider", "1")
	circle := addComponent(t, c, "circle", "")

	_, err := c.Connect(context.Background(), ConnectRequest{SourceID: "nope", TargetID: circle.ID})
	require.ErrorIs(t, err, ErrComponentNotFound)

	_, err = c.Connect(context.Background(), ConnectRequest{SourceID: slider.ID, TargetID: "nope"})
	require.ErrorIs(t, err, ErrComponentNotFound)

	_, err = c.Connect(context.Background(), ConnectRequest{SourceID: slider.ID, TargetID: circle.ID, TargetParam: "Diameter"})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Contains(t, err.Error(), "'Radius' (R)")

	_, err = c.Connect(context.Background(), ConnectRequest{SourceID: slider.ID, TargetID: circle.ID, TargetParamIndex: intPtr(7)})
	require.ErrorIs(t, err, ErrInvalidInput)

	req := ConnectRequest{SourceID: slider.ID, TargetID: circle.ID, TargetParam: "Radius"}
	_, err = c.Connect(context.Background(), req)
	require.NoError(t, err)
	_, err = c.Connect(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDocumentReportsConnections(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t, WithDocumentName("bridge.gh"))
	slider := addComponent(t, c, "slider", "5")
	circle := addComponent(t, c, "circle", "")
	cylinder := addComponent(t, c, "cylinder", "")

	_, err := c.Connect(context.Background(), ConnectRequest{SourceID: slider.ID, TargetID: circle.ID, TargetParam: "Radius"})
	require.NoError(t, err)
	_, err = c.Connect(context.Background(), ConnectRequest{SourceID: slider.ID, TargetID: cylinder.ID, TargetParam: "Length"})
	require.NoError(t, err)

	doc, err := c.Document(context.Background())
	require.NoError(t, err)
	require.Equal(t, "bridge.gh", doc.DocumentName)
	require.Equal(t, 3, doc.ComponentCount)
	require.Equal(t, 2, doc.ConnectionCount)
	require.Equal(t, "2026-03-01 12:00:00 UTC", doc.Timestamp)

	byID := make(map[string]ComponentView, len(doc.Components))
	for _, view := range doc.Components {
		byID[view.ID] = view
	}
	require.Equal(t, 2, byID[slider.ID].Outputs[0].RecipientCount)
	require.True(t, byID[slider.ID].Outputs[0].IsConnected)
	require.Equal(t, 1, byID[circle.ID].Inputs[1].SourceCount)
	require.False(t, byID[circle.ID].Inputs[0].IsConnected)

	require.Contains(t, doc.Connections, Connection{
		SourceID: slider.ID, SourceParam: "Number", SourceParamNickname: "N",
		TargetID: circle.ID, TargetParam: "Radius", TargetParamNickname: "R",
	})
}

func TestInfoAndClear(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t)
	slider := addComponent(t, c, "slider", "5")
	circle := addComponent(t, c, "circle", "")
	_, err := c.Connect(context.Background(), ConnectRequest{SourceID: slider.ID, TargetID: circle.ID})
	require.NoError(t, err)

	info, err := c.Info(context.Background())
	require.NoError(t, err)
	require.True(t, info.IsDocumentActive)
	require.Equal(t, DefaultDocumentName, info.DocumentName)
	require.Equal(t, 2, info.ComponentCount)
	require.Equal(t, "test", info.Version)
	require.Equal(t, slider.ID, info.Objects[0].ID)

	removed, err := c.Clear(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	doc, err := c.Document(context.Background())
	require.NoError(t, err)
	require.Zero(t, doc.ComponentCount)
	require.Zero(t, doc.ConnectionCount)
}

func TestDiagnose(t *testing.T) {
	t.Parallel()
	c := newTestCanvas(t)
	addComponent(t, c, "point", "")

	diag := c.Diagnose(context.Background())
	require.True(t, diag.StoreReachable)
	require.Equal(t, 1, diag.ComponentCount)
	require.Equal(t, len(Catalog()), diag.CatalogSize)
	require.Equal(t, "0s", diag.Uptime)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	diag = c.Diagnose(ctx)
	require.False(t, diag.StoreReachable)
	require.NotEmpty(t, diag.StoreError)
}
