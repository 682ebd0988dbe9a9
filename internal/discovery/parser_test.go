package discovery

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"imgconform/internal/domain"
)

func TestParser_ParseDescriptor(t *testing.T) {
	parser := NewParser()
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "rotate_180.json")
	content := `{"file": "sample.png", "format": "png", "actions": [{"action": "rotate", "degrees": 180}]}`
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	t.Run("parses file and pass-through params", func(t *testing.T) {
		d, err := parser.ParseDescriptor(testFile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.File != "sample.png" {
			t.Errorf("expected file sample.png, got %s", d.File)
		}
		if d.Params["format"] != "png" {
			t.Errorf("expected format png, got %v", d.Params["format"])
		}
		actions, ok := d.Params["actions"].([]any)
		if !ok || len(actions) != 1 {
			t.Fatalf("expected one action, got %v", d.Params["actions"])
		}
		degrees := actions[0].(map[string]any)["degrees"]
		if degrees != json.Number("180") {
			t.Errorf("expected integer literal preserved, got %#v", degrees)
		}
	})

	t.Run("returns malformed error for non-existent file", func(t *testing.T) {
		_, err := parser.ParseDescriptor("/non/existent/file.json")
		if !errors.Is(err, domain.ErrMalformedCase) {
			t.Errorf("expected malformed case error, got %v", err)
		}
	})
}

func TestParser_Parse_Malformed(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid json", content: `{"file": `},
		{name: "array", content: `["sample.png"]`},
		{name: "null", content: `null`},
		{name: "missing file", content: `{"actions": []}`},
		{name: "file not a string", content: `{"file": 42}`},
		{name: "empty file", content: `{"file": ""}`},
		{name: "trailing data", content: `{"file": "a.png"} {"file": "b.png"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.Parse([]byte(tt.content)); err == nil {
				t.Errorf("expected error for %s", tt.content)
			}
		})
	}
}
