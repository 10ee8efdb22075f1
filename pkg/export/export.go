// Package export wraps a compiled action list in the envelope the engine
// loads.
//
// Export does not validate the graph. Callers run the validator first and
// refuse to export while the report has errors.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gowebpki/jcs"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/devicelab-dev/cutscene-compiler/pkg/compiler"
)

// SchemaVersion is the envelope format version understood by the engine.
const SchemaVersion = 1

// DefaultFPS is the simulation rate written when none is configured.
const DefaultFPS = 60

// UntitledID is the cutscene id used when the title is blank.
const UntitledID = "untitled_cutscene"

const envelopeSchemaURL = "https://cutscene.schemas.local/cutscene.schema.json"

//go:embed schema/cutscene.schema.json
var envelopeSchemaSource string

var (
	envelopeSchemaOnce sync.Once
	envelopeSchema     *jsonschema.Schema
	envelopeSchemaErr  error
)

// Settings holds engine playback settings.
type Settings struct {
	FPS int `json:"fps"`
}

// Cutscene is the exported envelope.
type Cutscene struct {
	SchemaVersion int               `json:"schema_version"`
	CutsceneID    string            `json:"cutscene_id"`
	Settings      Settings          `json:"settings"`
	Actions       []compiler.Action `json:"actions"`
}

// Export builds the envelope at DefaultFPS. Actions are carried verbatim.
func Export(title string, actions []compiler.Action) Cutscene {
	return ExportWithFPS(title, actions, DefaultFPS)
}

// ExportWithFPS is Export with a configured simulation rate. A non-positive
// rate falls back to DefaultFPS.
func ExportWithFPS(title string, actions []compiler.Action, fps int) Cutscene {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if actions == nil {
		actions = []compiler.Action{}
	}
	return Cutscene{
		SchemaVersion: SchemaVersion,
		CutsceneID:    Slugify(title),
		Settings:      Settings{FPS: fps},
		Actions:       actions,
	}
}

// Slugify derives a cutscene id from a title: whitespace runs become a
// single underscore and the result is lower-cased.
func Slugify(title string) string {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return UntitledID
	}
	return strings.ToLower(strings.Join(fields, "_"))
}

// Marshal encodes the envelope as RFC 8785 canonical JSON, so the same
// graph always exports to the same bytes.
func Marshal(c Cutscene) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal cutscene: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("canonicalize cutscene: %w", err)
	}
	return canonical, nil
}

// MarshalIndent is Marshal with indentation for human-readable files. Key
// order stays canonical.
func MarshalIndent(c Cutscene, indent string) ([]byte, error) {
	canonical, err := Marshal(c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, canonical, "", indent); err != nil {
		return nil, fmt.Errorf("indent cutscene: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// CheckEnvelope validates encoded envelope bytes against the engine schema.
func CheckEnvelope(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid envelope json: %w", err)
	}
	schema, err := loadEnvelopeSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("envelope does not match schema: %w", err)
	}
	return nil
}

func loadEnvelopeSchema() (*jsonschema.Schema, error) {
	envelopeSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(envelopeSchemaURL, strings.NewReader(envelopeSchemaSource)); err != nil {
			envelopeSchemaErr = fmt.Errorf("envelope schema load failed: %w", err)
			return
		}
		envelopeSchema, envelopeSchemaErr = c.Compile(envelopeSchemaURL)
		if envelopeSchemaErr != nil {
			envelopeSchemaErr = fmt.Errorf("envelope schema compile failed: %w", envelopeSchemaErr)
		}
	})
	return envelopeSchema, envelopeSchemaErr
}
