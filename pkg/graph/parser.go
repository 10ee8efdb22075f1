package graph

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the semver constraint a document version must satisfy.
const SupportedVersions = "^1.0.0"

// DefaultDocumentVersion is assumed when a document carries no version.
const DefaultDocumentVersion = "1.0.0"

const documentSchemaURL = "https://cutscene.schemas.local/document.schema.json"

//go:embed schema/document.schema.json
var documentSchemaSource string

var (
	documentSchemaOnce sync.Once
	documentSchema     *jsonschema.Schema
	documentSchemaErr  error
)

// Document is the persisted envelope the editor writes around a Graph.
type Document struct {
	Version string `json:"version,omitempty"`
	Title   string `json:"title,omitempty"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// Graph returns the graph carried by the document.
func (d *Document) Graph() *Graph {
	return &Graph{Nodes: d.Nodes, Edges: d.Edges}
}

// ParseError represents a document loading error.
type ParseError struct {
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile reads and parses a graph document. The extension selects the
// format: .yaml and .yml are YAML, everything else is JSON.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided graph file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses document content. sourcePath is used for format detection
// and error messages.
func Parse(data []byte, sourcePath string) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Path: sourcePath, Message: "empty graph document"}
	}

	if isYAML(sourcePath) {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid yaml: %v", err)}
		}
		data = converted
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid json: %v", err)}
	}

	schema, err := loadDocumentSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(raw); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("schema validation failed: %v", err)}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid document: %v", err)}
	}

	if err := checkVersion(doc.Version); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: err.Error()}
	}
	if doc.Version == "" {
		doc.Version = DefaultDocumentVersion
	}

	return &doc, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON normalises a YAML document so a single schema and decoder
// path serves both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func checkVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid document version %q: %w", version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return fmt.Errorf("invalid version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("document version %s is not supported (want %s)", version, SupportedVersions)
	}
	return nil
}

func loadDocumentSchema() (*jsonschema.Schema, error) {
	documentSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(documentSchemaURL, strings.NewReader(documentSchemaSource)); err != nil {
			documentSchemaErr = fmt.Errorf("document schema load failed: %w", err)
			return
		}
		documentSchema, documentSchemaErr = c.Compile(documentSchemaURL)
		if documentSchemaErr != nil {
			documentSchemaErr = fmt.Errorf("document schema compile failed: %w", documentSchemaErr)
		}
	})
	return documentSchema, documentSchemaErr
}
