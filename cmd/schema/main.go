// Generates JSON schemas for the wire frames so host-side implementations
// in other languages can validate their payloads.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"scenebridge/internal/proto"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the frame schemas")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	frames := map[string]any{
		proto.TypeSnapshotUpdate: new(proto.SnapshotUpdate),
		proto.TypeLogEvent:       new(proto.LogEvent),
		proto.TypeExecuteCommand: new(proto.ExecuteCommand),
		proto.TypeCommandResult:  new(proto.CommandResult),
	}

	for name, payload := range frames {
		schema := buildSchema(name, payload)
		outPath := filepath.Join(outDir, name+".schema.json")
		if err := writeSchema(outPath, schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", outPath, err)
			os.Exit(1)
		}
	}
}

func buildSchema(name string, payload any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(payload)
	schema.Title = name
	schema.Description = fmt.Sprintf("Payload of the %q bridge frame", name)
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
