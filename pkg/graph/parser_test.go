package graph

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "version": "1.2.0",
  "title": "Opening Scene",
  "nodes": [
    {"id": "s", "type": "start"},
    {"id": "d1", "type": "dialogue", "name": "greet", "params": {"speaker": "Ann", "text": "Hi"}},
    {"id": "e", "type": "end"}
  ],
  "edges": [
    {"id": "e1", "source": "s", "target": "d1"},
    {"id": "e2", "source": "d1", "target": "e", "waitSeconds": 1.5,
     "conditionEnabled": true, "conditionVar": "door", "conditionEquals": "open",
     "conditionIfFalse": "wait_until_true", "stopWaitingWhen": "timeout", "stopTimeoutSeconds": 3}
  ]
}`

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(sampleJSON), "scene.json")
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", doc.Version)
	assert.Equal(t, "Opening Scene", doc.Title)
	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Edges, 2)

	assert.Equal(t, "greet", doc.Nodes[1].Name)
	assert.Equal(t, "Ann", doc.Nodes[1].StringParam("speaker"))

	e := doc.Edges[1]
	assert.InDelta(t, 1.5, e.Wait(), 1e-9)
	assert.True(t, e.ConditionEnabled)
	assert.Equal(t, "door", e.ConditionVar)
	assert.Equal(t, "open", e.ConditionEquals)
	assert.Equal(t, IfFalseWaitUntilTrue, e.IfFalse())
	assert.Equal(t, StopTimeout, e.StopKind())
	require.NotNil(t, e.StopTimeoutSeconds)
	assert.InDelta(t, 3.0, *e.StopTimeoutSeconds, 1e-9)
}

func TestParse_YAML(t *testing.T) {
	content := `
version: "1.0.0"
title: Yaml Scene
nodes:
  - id: s
    type: start
  - id: m
    type: move
    params:
      target: hero
  - id: e
    type: end
edges:
  - id: e1
    source: s
    target: m
  - id: e2
    source: m
    target: e
    waitSeconds: 2
`
	doc, err := Parse([]byte(content), "scene.yaml")
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "hero", doc.Nodes[1].StringParam("target"))
	assert.InDelta(t, 2.0, doc.Edges[1].Wait(), 1e-9)
}

func TestParse_DefaultVersion(t *testing.T) {
	doc, err := Parse([]byte(`{"nodes": [], "edges": []}`), "empty.json")
	require.NoError(t, err)
	assert.Equal(t, DefaultDocumentVersion, doc.Version)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
	}{
		{"empty", "   ", "a.json"},
		{"bad json", "{", "a.json"},
		{"bad yaml", "nodes: [", "a.yaml"},
		{"missing edges", `{"nodes": []}`, "a.json"},
		{"node without type", `{"nodes": [{"id": "x"}], "edges": []}`, "a.json"},
		{"edge wait not number", `{"nodes": [], "edges": [{"id": "e", "source": "a", "target": "b", "waitSeconds": "soon"}]}`, "a.json"},
		{"unsupported version", `{"version": "2.0.0", "nodes": [], "edges": []}`, "a.json"},
		{"invalid version", `{"version": "abc", "nodes": [], "edges": []}`, "a.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), tt.path)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %T", err)
			assert.Equal(t, tt.path, perr.Path)
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Graph().Nodes, 3)

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
