package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format identifies an input document encoding.
type Format string

// Supported input formats.
const (
	FormatAuto    Format = ""
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatDoxygen Format = "doxygen"
)

// ParseFormat maps a user-facing name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "doxygen", "js", "navtree":
		return FormatDoxygen, nil
	}
	return FormatAuto, fmt.Errorf("unknown document format: %q", s)
}

// doxygenVarRe matches the "var name =" prologue of doxygen navtree files.
var doxygenVarRe = regexp.MustCompile(`^\s*var\s+([A-Za-z_$][\w$]*)\s*=`)

// DetectFormat guesses the format from a file name and its leading bytes.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".js":
		return FormatDoxygen
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	trimmed := bytes.TrimSpace(data)
	switch {
	case doxygenVarRe.Match(trimmed):
		return FormatDoxygen
	case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '['):
		return FormatJSON
	}
	return FormatYAML
}

// DecodeFile reads and decodes the document at path, detecting its format.
func DecodeFile(path string) (*RawNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeBytes(data, DetectFormat(path, data))
}

// Decode reads a whole document from r.
func Decode(r io.Reader, format Format) (*RawNode, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return DecodeBytes(data, format)
}

// DecodeBytes decodes data in the given format. FormatAuto sniffs the content.
//
// Syntax errors are returned. Structural problems inside a syntactically
// valid document (wrong field types, non-array children) are not errors:
// the affected nodes are marked Malformed and normalize to leaves.
func DecodeBytes(data []byte, format Format) (*RawNode, error) {
	if format == FormatAuto {
		format = DetectFormat("", data)
	}
	switch format {
	case FormatJSON:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return FromValue(v), nil
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return FromValue(v), nil
	case FormatDoxygen:
		return decodeDoxygen(data)
	}
	return nil, fmt.Errorf("unsupported format: %q", format)
}

// rawFields lists the field spellings accepted for a nested document node.
type rawFields struct {
	Name        string `mapstructure:"name"`
	Label       string `mapstructure:"label"`
	Title       string `mapstructure:"title"`
	Detail      string `mapstructure:"detail"`
	Description string `mapstructure:"description"`
	Doc         string `mapstructure:"doc"`
	URL         string `mapstructure:"url"`
	Href        string `mapstructure:"href"`
	Collapsed   bool   `mapstructure:"collapsed"`
	Children    any    `mapstructure:"children"`
	Hidden      any    `mapstructure:"_children"`
	Kids        any    `mapstructure:"kids"`
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// FromValue converts a generic decoded value (maps, slices, scalars as
// produced by encoding/json or yaml.v3) into a RawNode hierarchy.
//
// Maps are read with the field names listed on rawFields. A top-level slice
// becomes the children of an unnamed root; a scalar becomes a leaf labelled
// with its string form. A map that contains itself is cut at the repeat.
func FromValue(v any) *RawNode {
	if v == nil {
		return nil
	}
	return fromValue(v, make(map[uintptr]bool))
}

func fromValue(v any, onPath map[uintptr]bool) *RawNode {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		root := &RawNode{}
		root.Children = childrenFrom(val, onPath)
		return root
	case map[string]any:
		return fromMap(val, onPath)
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, x := range val {
			m[fmt.Sprint(k)] = x
		}
		return fromMap(m, onPath)
	default:
		return &RawNode{Label: fmt.Sprint(val)}
	}
}

func fromMap(m map[string]any, onPath map[uintptr]bool) *RawNode {
	ptr := reflect.ValueOf(m).Pointer()
	if onPath[ptr] {
		return &RawNode{Malformed: true}
	}
	onPath[ptr] = true
	defer delete(onPath, ptr)

	var f rawFields
	n := &RawNode{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &f,
	})
	if err == nil {
		err = dec.Decode(m)
	}
	if err != nil {
		n.Malformed = true
	}

	n.Label = firstNonEmpty(f.Label, f.Name, f.Title)
	n.Detail = firstNonEmpty(f.Detail, f.Description, f.Doc)
	n.URL = firstNonEmpty(f.URL, f.Href)
	n.Collapsed = f.Collapsed

	kids := f.Children
	if kids == nil && f.Hidden != nil {
		kids = f.Hidden
		n.Collapsed = true
	}
	if kids == nil {
		kids = f.Kids
	}
	switch k := kids.(type) {
	case nil:
	case []any:
		n.Children = childrenFrom(k, onPath)
	default:
		n.Malformed = true
	}
	return n
}

func childrenFrom(items []any, onPath map[uintptr]bool) []*RawNode {
	out := make([]*RawNode, 0, len(items))
	for _, it := range items {
		if c := fromValue(it, onPath); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// decodeDoxygen parses a doxygen navigation tree script such as hierarchy.js:
//
//	var hierarchy =
//	[
//	    [ "Action", null, [
//	      [ "HocAction", "class_hoc_action.html", null ]
//	    ] ]
//	];
//
// Each entry is [name, href|null, children|null|"lazy.js"]. String children
// reference a separately loaded file and decode as a collapsed leaf. Several
// top-level entries are wrapped in a root named after the variable.
func decodeDoxygen(data []byte) (*RawNode, error) {
	body := bytes.TrimSpace(data)
	rootName := ""
	if m := doxygenVarRe.FindSubmatchIndex(body); m != nil {
		rootName = string(body[m[2]:m[3]])
		body = bytes.TrimSpace(body[m[1]:])
	}
	body = bytes.TrimSuffix(body, []byte(";"))

	var entries []any
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode doxygen tree: %w", err)
	}
	nodes := make([]*RawNode, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, doxygenEntry(e))
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &RawNode{Label: rootName, Children: nodes}, nil
}

func doxygenEntry(v any) *RawNode {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return &RawNode{Label: fmt.Sprint(v), Malformed: true}
	}
	n := &RawNode{}
	if name, ok := arr[0].(string); ok {
		n.Label = name
	} else {
		n.Label = fmt.Sprint(arr[0])
	}
	if len(arr) > 1 {
		if href, ok := arr[1].(string); ok {
			n.URL = href
		}
	}
	if len(arr) > 2 {
		switch kids := arr[2].(type) {
		case nil:
		case []any:
			for _, k := range kids {
				n.Children = append(n.Children, doxygenEntry(k))
			}
		case string:
			n.Detail = "children in " + kids
			n.Collapsed = true
		default:
			n.Malformed = true
		}
	}
	return n
}
