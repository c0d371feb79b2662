package tree

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	data := []byte(`{
	  "name": "Program",
	  "detail": "translation unit",
	  "children": [
	    {"label": "FunctionDecl", "description": "int main()", "children": [{"name": "Body"}]},
	    {"title": 42},
	    {"name": "Broken", "children": "oops"}
	  ]
	}`)

	raw, err := DecodeBytes(data, FormatJSON)
	if err != nil {
		t.Fatalf("DecodeBytes() error: %v", err)
	}
	if raw.Label != "Program" || raw.Detail != "translation unit" {
		t.Errorf("root = %q/%q", raw.Label, raw.Detail)
	}
	if len(raw.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(raw.Children))
	}
	if got := raw.Children[0]; got.Label != "FunctionDecl" || got.Detail != "int main()" || len(got.Children) != 1 {
		t.Errorf("first child = %+v", got)
	}
	if got := raw.Children[1].Label; got != "42" {
		t.Errorf("numeric title = %q, want \"42\"", got)
	}
	if !raw.Children[2].Malformed {
		t.Error("non-array children should mark the node malformed")
	}
}

func TestDecodeJSONHiddenChildren(t *testing.T) {
	raw, err := DecodeBytes([]byte(`{"name":"r","_children":[{"name":"x"}]}`), FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	if !raw.Collapsed || len(raw.Children) != 1 {
		t.Errorf("_children should decode as collapsed children: %+v", raw)
	}
}

func TestDecodeYAML(t *testing.T) {
	data := []byte(`
label: Module
children:
  - label: Import
  - label: ClassDef
    doc: "class Foo: ..."
    children:
      - label: FunctionDef
`)
	raw, err := DecodeBytes(data, FormatYAML)
	if err != nil {
		t.Fatalf("DecodeBytes() error: %v", err)
	}
	tr := NewAdapter().Normalize(raw)
	if tr.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tr.Len())
	}
	cls, _ := tr.Node(3)
	if cls.Label != "ClassDef" || cls.Detail != "class Foo: ..." {
		t.Errorf("ClassDef = %q/%q", cls.Label, cls.Detail)
	}
}

func TestDecodeDoxygen(t *testing.T) {
	data := []byte(`var hierarchy =
[
    [ "_N_VectorContent", "struct_n_vector.html", null ],
    [ "Action", null, [
      [ "ColorBrushWidget", "class_color_brush_widget.html", null ],
      [ "HocAction", "class_hoc_action.html", [
        [ "HocMenuAction", "class_hoc_menu_action.html", null ]
      ] ]
    ] ],
    [ "Lazy", "lazy.html", "hierarchy_lazy.js" ]
];
`)
	raw, err := DecodeBytes(data, FormatAuto)
	if err != nil {
		t.Fatalf("DecodeBytes() error: %v", err)
	}
	if raw.Label != "hierarchy" {
		t.Errorf("synthetic root = %q, want hierarchy", raw.Label)
	}
	if len(raw.Children) != 3 {
		t.Fatalf("top-level = %d, want 3", len(raw.Children))
	}
	action := raw.Children[1]
	if action.URL != "" || len(action.Children) != 2 {
		t.Errorf("Action = %+v", action)
	}
	if got := action.Children[1].URL; got != "class_hoc_action.html" {
		t.Errorf("href = %q", got)
	}
	if lazy := raw.Children[2]; !lazy.Collapsed || lazy.Detail == "" {
		t.Errorf("lazy entry should be a collapsed leaf with a detail: %+v", lazy)
	}
}

func TestDecodeSyntaxError(t *testing.T) {
	if _, err := DecodeBytes([]byte(`{"name":`), FormatJSON); err == nil {
		t.Error("expected syntax error")
	}
	if _, err := DecodeBytes([]byte(`var x = [ oops ];`), FormatDoxygen); err == nil {
		t.Error("expected doxygen syntax error")
	}
}

func TestFromValueSelfReference(t *testing.T) {
	m := map[string]any{"name": "loop"}
	m["children"] = []any{m}

	raw := FromValue(m)
	if raw == nil || len(raw.Children) != 1 {
		t.Fatalf("FromValue() = %+v", raw)
	}
	if !raw.Children[0].Malformed {
		t.Error("self-referencing map should be cut as malformed")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want Format
	}{
		{"js extension", "hierarchy.js", "", FormatDoxygen},
		{"yml extension", "ast.yml", "", FormatYAML},
		{"json sniff", "", `{"name":"x"}`, FormatJSON},
		{"doxygen sniff", "", `var navtree = []`, FormatDoxygen},
		{"yaml fallback", "", "name: x", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.file, []byte(tt.data)); got != tt.want {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(`{"name":"root"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile() error: %v", err)
	}
	if raw.Label != "root" {
		t.Errorf("Label = %q", raw.Label)
	}
	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
