package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/scene"
	"github.com/matzehuels/radialtree/pkg/session"
	"github.com/matzehuels/radialtree/pkg/tree"
)

func doc() *tree.RawNode {
	return &tree.RawNode{Label: "root", Children: []*tree.RawNode{
		{Label: "A", Detail: "class <A> & co", Children: []*tree.RawNode{{Label: "A1"}, {Label: "A2"}}},
		{Label: "B", URL: "group__b.html"},
	}}
}

func render(t *testing.T, depth int) (*session.Session, *Offscreen) {
	t.Helper()
	c := NewOffscreen(960, 960)
	opts := session.DefaultOptions()
	opts.CollapseDepth = depth
	s, err := session.Render(c, doc(), opts)
	if err != nil {
		t.Fatal(err)
	}
	return s, c
}

func TestOffscreen(t *testing.T) {
	s, c := render(t, 1)
	if c.Surfaces() != 1 || len(c.Canvas().Updates()) != 1 {
		t.Fatalf("surfaces = %d", c.Surfaces())
	}
	first := c.Canvas()

	c.SetSize(400, 300)
	if _, err := s.HandleResize(); err != nil {
		t.Fatal(err)
	}
	if !first.Closed() || c.Surfaces() != 2 {
		t.Error("resize should replace the canvas")
	}
	if w, h := c.Canvas().Size(); w != 400 || h != 300 {
		t.Errorf("canvas size = %vx%v", w, h)
	}
}

func TestRenderSVG(t *testing.T) {
	s, _ := render(t, 1)
	out := string(RenderSVG(CaptureSettled(s), WithTitle("demo")))

	for _, want := range []string{
		`viewBox="0 0 960 960"`,
		`<title>demo</title>`,
		`class="node collapsed branch"`,
		`data-id="2"`,
		`class="link"`,
		`translate(480.00,480.00)`,
		`>root</text>`,
		`xlink:href="group__b.html"`,
		`data-tip="class &lt;A&gt; &amp; co"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(out, "<script") {
		t.Error("non-interactive SVG should not embed a script")
	}
	if strings.Contains(out, `data-id="3"`) {
		t.Error("hidden node A1 should not be drawn")
	}
}

func TestRenderSVGInteractiveTooltip(t *testing.T) {
	s, _ := render(t, 1)
	if _, err := s.Dispatch(interact.Hover{Node: 2, X: 100, Y: 50}); err != nil {
		t.Fatal(err)
	}
	out := string(RenderSVG(CaptureSettled(s), WithInteractive(), WithoutLabels()))

	if !strings.Contains(out, "<script") {
		t.Error("interactive SVG should embed a script")
	}
	if !strings.Contains(out, `visibility="visible"`) || !strings.Contains(out, `translate(112.0,62.0)`) {
		t.Error("hovered tooltip should be drawn at the pointer")
	}
	if strings.Contains(out, ">root</text>") {
		t.Error("labels should be omitted")
	}
}

func TestRenderSVGLinks(t *testing.T) {
	raw := &tree.RawNode{Label: "root", Children: []*tree.RawNode{
		{Label: "evil", URL: "javascript:alert(1)"},
		{Label: "Tom & Jerry", URL: "https://example.com/a?b=1&c=2"},
	}}
	s, err := session.Render(NewOffscreen(960, 960), raw, session.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	out := string(RenderSVG(CaptureSettled(s), WithInteractive()))

	if strings.Contains(out, "javascript:") {
		t.Error("javascript: href must not be emitted")
	}
	if !strings.Contains(out, ">evil</text>") {
		t.Error("label of a node with a dropped href should still be drawn")
	}
	for _, want := range []string{
		`xlink:href="https://example.com/a?b=1&amp;c=2"`,
		`xlink:title="Tom &amp; Jerry"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(out, "&amp;amp;") {
		t.Error("link title is escaped twice")
	}

	dot := ToDOT(s.Tree(), DOTOptions{})
	if strings.Contains(dot, "javascript:") {
		t.Error("javascript: URL must not reach DOT output")
	}
}

func TestInteractionScriptCancelsHide(t *testing.T) {
	// Entering a node must cancel the hide scheduled when the pointer left
	// the previous one, so the last hover wins.
	enter := strings.Index(interactionJS, "'mouseenter'")
	leave := strings.Index(interactionJS, "'mouseleave'")
	if enter < 0 || leave < 0 {
		t.Fatal("script should handle mouseenter and mouseleave")
	}
	if !strings.Contains(interactionJS[enter:leave], "clearTimeout(hideTimer)") {
		t.Error("mouseenter should cancel the pending hide")
	}
	if !strings.Contains(interactionJS[leave:], "hideTimer = setTimeout(") {
		t.Error("mouseleave should keep the hide timer so it can be cancelled")
	}
}

func TestRenderSVGSkipsInvisible(t *testing.T) {
	s, _ := render(t, 1)
	// Right at render time every item is entering at opacity 0.
	out := string(RenderSVG(CaptureAt(s, s.Scene().SettledAt().Add(-time.Hour))))
	if strings.Contains(out, `class="node`) {
		t.Error("fully transparent sprites should be skipped")
	}
}

func TestRenderJSON(t *testing.T) {
	s, _ := render(t, 1)
	data, err := RenderJSON(CaptureSettled(s))
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		Width float64 `json:"width"`
		Plan  struct {
			Summary string `json:"summary"`
		} `json:"plan"`
		Nodes []struct {
			ID        int     `json:"id"`
			Label     string  `json:"label"`
			Kind      string  `json:"kind"`
			Angle     float64 `json:"angle"`
			Opacity   float64 `json:"opacity"`
			Collapsed bool    `json:"collapsed"`
		} `json:"nodes"`
		Links []struct {
			Path string `json:"path"`
		} `json:"links"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Width != 960 || out.Plan.Summary != "+3 ~0 -0" {
		t.Errorf("header = %v %q", out.Width, out.Plan.Summary)
	}
	if len(out.Nodes) != 3 || len(out.Links) != 2 {
		t.Fatalf("nodes = %d, links = %d", len(out.Nodes), len(out.Links))
	}
	a := out.Nodes[1]
	if a.Label != "A" || a.Kind != "enter" || a.Angle != 90 || a.Opacity != 1 || !a.Collapsed {
		t.Errorf("A = %+v", a)
	}
	if !strings.HasPrefix(out.Links[0].Path, "M") {
		t.Errorf("link path = %q", out.Links[0].Path)
	}
}

func TestRenderJSONPlanAfterClick(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts := session.DefaultOptions()
	opts.CollapseDepth = 1
	opts.Clock = func() time.Time { return clock }
	s, err := session.Render(NewOffscreen(960, 960), doc(), opts)
	if err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Second)
	if _, err := s.Dispatch(interact.Click{Node: 2}); err != nil {
		t.Fatal(err)
	}

	snap := CaptureSettled(s)
	if snap.Plan == nil || snap.Plan.Count(scene.Enter) != 2 {
		t.Fatalf("plan = %+v", snap.Plan)
	}
	data, err := RenderJSON(snap)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"summary": "+2 ~3 -0"`)) {
		t.Errorf("JSON plan summary missing:\n%s", data)
	}
}

func TestToDOT(t *testing.T) {
	tr := tree.NewAdapter().Normalize(doc())
	if _, err := tr.Collapse(2); err != nil {
		t.Fatal(err)
	}

	dot := ToDOT(tr, DOTOptions{})
	for _, want := range []string{
		"layout=twopi;",
		`root="n1";`,
		`"n1" -> "n2";`,
		`"n1" -> "n5";`,
		`URL="group__b.html"`,
		"fillcolor=lightsteelblue",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, `"n3"`) {
		t.Error("collapsed children should be left out")
	}

	all := ToDOT(tr, DOTOptions{All: true, RankSep: 2})
	if !strings.Contains(all, `"n2" -> "n3";`) || !strings.Contains(all, "ranksep=2;") {
		t.Errorf("DOT with All:\n%s", all)
	}
}

func TestToDOTEmpty(t *testing.T) {
	if got := ToDOT(&tree.Tree{}, DOTOptions{}); strings.Contains(got, "root=") {
		t.Errorf("empty tree DOT = %s", got)
	}
}

func TestRenderDOT(t *testing.T) {
	tr := tree.NewAdapter().Normalize(doc())
	out, err := RenderDOT(context.Background(), ToDOT(tr, DOTOptions{}))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("<svg")) || !bytes.Contains(out, []byte(`viewBox="0 0 `)) {
		t.Errorf("unexpected output: %.200s", out)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00"><g/></svg>`)
	got := string(normalizeViewBox(in))
	if !strings.Contains(got, `viewBox="0 0 10.00 20.00" width="10" height="20">`) {
		t.Errorf("normalizeViewBox() = %s", got)
	}
	if plain := []byte(`<svg><g/></svg>`); !bytes.Equal(normalizeViewBox(plain), plain) {
		t.Error("SVG without viewBox should be left alone")
	}
}

func TestToPNG(t *testing.T) {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		t.Skip("rsvg-convert not installed")
	}
	s, _ := render(t, 1)
	png, err := ToPNG(context.Background(), RenderSVG(CaptureSettled(s)), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}
