package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/pipeline"
	"github.com/matzehuels/radialtree/pkg/session"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	detailBoxStyle    = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

const zoomStep = 1.25

// exploreCommand creates the explore command, a terminal front end for a
// render session.
func (c *CLI) exploreCommand() *cobra.Command {
	var f optionFlags

	cmd := &cobra.Command{
		Use:   "explore [document]",
		Short: "Browse a document interactively in the terminal",
		Long: `Browse a document interactively in the terminal.

Every key press is delivered to a render session as an event, exactly as a
browser would deliver pointer events: moving the cursor hovers a node,
enter toggles it, and +/- zoom. The status line shows the transition plan
of the last toggle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &f, args[0])
			if err != nil {
				return err
			}
			return c.runExplore(cmd.Context(), args[0], opts)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (c *CLI) runExplore(ctx context.Context, input string, opts pipeline.Options) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}
	raw, err := pipeline.Decode(ctx, data, opts)
	if err != nil {
		return err
	}
	s, err := pipeline.OpenSession(ctx, raw, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	m := newExploreModel(ctx, s)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// exploreModel - Interactive session browser
// =============================================================================

// exploreModel is the bubbletea model driving one session. The cursor walks
// the visible nodes in pre-order.
type exploreModel struct {
	ctx     context.Context
	s       *session.Session
	Cursor  int
	Offset  int
	Height  int
	Width   int
	Status  string
	Err     error
	details *glamour.TermRenderer
}

func newExploreModel(ctx context.Context, s *session.Session) *exploreModel {
	m := &exploreModel{ctx: ctx, s: s, Height: 15, Width: 80}
	m.details = newDetailRenderer(m.Width)
	if u := s.Last(); u.Plan != nil {
		m.Status = u.Plan.Summary()
	}
	m.hover()
	return m
}

// newDetailRenderer returns nil when the terminal style cannot be loaded;
// details are then shown as plain text.
func newDetailRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m *exploreModel) nodes() []layout.Node { return m.s.Layout().Nodes }

func (m *exploreModel) current() (layout.Node, bool) {
	nodes := m.nodes()
	if m.Cursor < 0 || m.Cursor >= len(nodes) {
		return layout.Node{}, false
	}
	return nodes[m.Cursor], true
}

// dispatch delivers ev and records the outcome on the status line.
func (m *exploreModel) dispatch(ev interact.Event) session.Update {
	u, err := m.s.DispatchContext(m.ctx, ev)
	m.Err = err
	if err == nil && u.Plan != nil {
		m.Status = u.Plan.Summary()
	}
	return u
}

// hover moves the pointer onto the node under the cursor.
func (m *exploreModel) hover() {
	n, ok := m.current()
	if !ok {
		m.dispatch(interact.HoverEnd{})
		return
	}
	p := n.Point()
	l := m.s.Layout()
	m.dispatch(interact.Hover{Node: n.ID, X: l.Width/2 + p.X, Y: l.Height/2 + p.Y})
}

func (m *exploreModel) move(delta int) {
	n := len(m.nodes())
	if n == 0 {
		return
	}
	m.Cursor = max(0, min(n-1, m.Cursor+delta))
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	m.hover()
}

// toggle clicks the node under the cursor and keeps the cursor on it.
func (m *exploreModel) toggle() {
	n, ok := m.current()
	if !ok {
		return
	}
	m.dispatch(interact.Click{Node: n.ID})
	for i, v := range m.nodes() {
		if v.ID == n.ID {
			m.Cursor = i
			break
		}
	}
	m.move(0)
}

func (m *exploreModel) zoom(factor float64) {
	t := m.s.Last().Transform
	m.dispatch(interact.Zoom{Scale: t.Scale * factor, TX: t.TX, TY: t.TY})
}

func (m *exploreModel) Init() tea.Cmd {
	return nil
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "enter", " ":
			m.toggle()
		case "+", "=":
			m.zoom(zoomStep)
		case "-":
			m.zoom(1 / zoomStep)
		}
	case tea.WindowSizeMsg:
		m.Height = max(5, msg.Height-12)
		m.Width = msg.Width
		m.details = newDetailRenderer(msg.Width)
		m.move(0)
	}
	return m, nil
}

func (m *exploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Explore"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ toggle  +/- zoom  q quit"))
	b.WriteString("\n\n")

	t := m.s.Tree()
	nodes := m.nodes()
	end := min(m.Offset+m.Height, len(nodes))
	for i := m.Offset; i < end; i++ {
		b.WriteString(m.row(t, nodes[i], i == m.Cursor))
		b.WriteString("\n")
	}

	if tip := m.s.Tooltip(); tip.Visible {
		b.WriteString("\n")
		b.WriteString(detailBoxStyle.Render(m.renderDetail(tip.Text)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine(len(nodes)))
	return b.String()
}

func (m *exploreModel) row(t *tree.Tree, n layout.Node, selected bool) string {
	node, _ := t.Node(n.ID)
	marker := " "
	switch {
	case n.Collapsed:
		marker = "+"
	case node != nil && node.HasChildren():
		marker = "-"
	}
	label := ""
	if node != nil {
		label = node.Label
	}
	text := fmt.Sprintf("%s%s %s", strings.Repeat("  ", n.Depth), marker, label)
	angle := listDimStyle.Render(fmt.Sprintf("  %5.1f°", n.Angle))
	if selected {
		return "▸ " + listSelectedStyle.Render(text) + angle
	}
	return "  " + listNormalStyle.Render(text) + angle
}

func (m *exploreModel) renderDetail(text string) string {
	if m.details == nil {
		return text
	}
	out, err := m.details.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}

func (m *exploreModel) statusLine(visible int) string {
	parts := []string{
		fmt.Sprintf("[%d/%d]", min(m.Cursor+1, visible), visible),
		fmt.Sprintf("k=%.2f", m.s.Last().Transform.Scale),
	}
	if m.Status != "" {
		parts = append(parts, m.Status)
	}
	line := listDimStyle.Render("  " + strings.Join(parts, " · "))
	if m.Err != nil {
		line += "\n" + styleIconError.Render(iconError) + " " + m.Err.Error()
	}
	return line
}
