// Package tui is the interactive device lookup screen.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/app"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
)

const maxRows = 10

type inventoryMsg struct {
	idx *inventory.Index
	err error
}

type printMsg struct {
	id  string
	err error
}

// Model renders app.State and turns key presses into state transitions.
type Model struct {
	ctx       context.Context
	svc       *app.Service
	state     app.State
	input     textinput.Model
	copy      func(string) error
	loading   bool
	statusErr bool
	styles    styles
}

// Option configures the model.
type Option func(*Model)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) {
		m.copy = fn
	}
}

// New builds the lookup screen. The inventory is loaded by Init.
func New(ctx context.Context, svc *app.Service, opts ...Option) *Model {
	ti := textinput.New()
	ti.Placeholder = "Scan or type an asset tag, serial number or name"
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Width = 48
	ti.Focus()
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))

	m := &Model{
		ctx:     ctx,
		svc:     svc,
		input:   ti,
		copy:    clipboard.WriteAll,
		loading: true,
		styles:  newStyles(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, svc *app.Service) error {
	p := tea.NewProgram(New(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// State returns the current application state.
func (m *Model) State() app.State {
	return m.state
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load())
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		idx, err := m.svc.Load(m.ctx)
		return inventoryMsg{idx: idx, err: err}
	}
}

func (m *Model) print(id string) tea.Cmd {
	idx := m.state.Index
	return func() tea.Msg {
		return printMsg{id: id, err: m.svc.Print(m.ctx, idx, id)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case inventoryMsg:
		m.loading = false
		m.statusErr = msg.err != nil
		m.state = m.state.WithInventory(msg.idx, msg.err)
		return m, nil
	case printMsg:
		m.statusErr = msg.err != nil
		m.state = m.state.WithPrintResult(msg.id, msg.err)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "up":
		m.state = m.state.Move(-1)
		return m, nil
	case "down":
		m.state = m.state.Move(1)
		return m, nil
	case "enter":
		return m.handleEnter()
	case "ctrl+r":
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.statusErr = false
		m.state.Status = "Reloading inventory..."
		return m, m.load()
	case "ctrl+y":
		rec, ok := m.state.Selected()
		if !ok {
			return m, nil
		}
		m.copyText("serial number", rec.SerialNumber)
		return m, nil
	case "ctrl+l":
		rec, ok := m.state.Selected()
		if !ok {
			return m, nil
		}
		link, err := m.svc.DeepLink(rec)
		if err != nil {
			m.setStatus(app.StatusMessage(err), true)
			return m, nil
		}
		m.copyText("console link", link)
		return m, nil
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.state = m.state.WithQuery(m.input.Value())
	}
	return m, cmd
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.state.Printing {
		return m, nil
	}
	rec, ok := m.state.Selected()
	if !ok {
		return m, nil
	}
	m.statusErr = false
	m.state = m.state.WithPrinting(rec.ID)
	return m, m.print(rec.ID)
}

func (m *Model) copyText(what, text string) {
	if text == "" {
		m.setStatus(fmt.Sprintf("No %s to copy", what), true)
		return
	}
	if err := m.copy(text); err != nil {
		m.setStatus("Failed to copy to clipboard", true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s to clipboard", what), false)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.state.Status = s
	m.statusErr = isErr
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("Asset Label"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.loading && !m.state.Loaded():
		b.WriteString(m.styles.help.Render("Loading inventory..."))
		b.WriteString("\n")
	case m.state.InventoryErr != nil:
		b.WriteString(m.styles.banner.Render(app.StatusMessage(m.state.InventoryErr)))
		b.WriteString("\n")
		b.WriteString(m.styles.help.Render("Press ctrl+r to retry."))
		b.WriteString("\n")
	}

	b.WriteString(m.renderResults())
	if rec, ok := m.state.Selected(); ok {
		b.WriteString("\n")
		b.WriteString(m.styles.detail.Render(renderDetail(rec)))
		b.WriteString("\n")
	}
	if m.state.Status != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.statusStyle(m.statusErr).Render(m.state.Status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("↑/↓ select • enter print • ctrl+y copy serial • ctrl+l copy link • ctrl+r reload • esc quit"))
	return m.styles.app.Align(lipgloss.Left).Render(b.String())
}

func (m *Model) renderResults() string {
	if strings.TrimSpace(m.state.Query) == "" {
		return ""
	}
	if len(m.state.Results) == 0 {
		return m.styles.help.Render("No matches") + "\n"
	}
	var b strings.Builder
	for i, r := range m.state.Results {
		if i == maxRows {
			b.WriteString(m.styles.help.Render(fmt.Sprintf("  ... %d more", len(m.state.Results)-maxRows)))
			b.WriteString("\n")
			break
		}
		line := fmt.Sprintf("%-24s %s", r.Display, r.ID)
		if r.ID == m.state.SelectedID {
			b.WriteString(m.styles.selected.Render("▸ " + line))
		} else {
			b.WriteString(m.styles.row.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderDetail(rec inventory.DeviceRecord) string {
	rows := [][2]string{
		{"Name", rec.Name},
		{"Asset tag", rec.AssetTag},
		{"Serial", rec.SerialNumber},
		{"Model", rec.Model},
		{"Specs", rec.SpecLine()},
		{"Managed", rec.Managed.String()},
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%-10s %s", r[0], r[1]))
	}
	return strings.Join(lines, "\n")
}
