// Package ui provides terminal user interface components for Flowline.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmResult represents the outcome of a confirmation prompt.
type ConfirmResult int

const (
	// ConfirmPending means no decision has been made yet.
	ConfirmPending ConfirmResult = iota
	// ConfirmAccepted means the user confirmed.
	ConfirmAccepted
	// ConfirmRejected means the user declined.
	ConfirmRejected
)

// PublishSummary contains the data shown before the publish step.
type PublishSummary struct {
	Version   string
	Tag       string
	Branch    string
	Publisher string
	GroupID   string
	Artifacts []string
	DryRun    bool
}

type confirmKeyMap struct {
	Accept key.Binding
	Reject key.Binding
	Quit   key.Binding
}

type confirmStyles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	warning lipgloss.Style
	help    lipgloss.Style
	border  lipgloss.Style
}

func defaultConfirmKeyMap() confirmKeyMap {
	return confirmKeyMap{
		Accept: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y/enter", "publish"),
		),
		Reject: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "abort"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "abort"),
		),
	}
}

func defaultConfirmStyles() confirmStyles {
	return confirmStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		value:   lipgloss.NewStyle().Bold(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(1, 2),
	}
}

// ConfirmModel is the Bubble Tea model for the publish confirmation.
type ConfirmModel struct {
	summary PublishSummary
	result  ConfirmResult
	keymap  confirmKeyMap
	styles  confirmStyles
}

// NewConfirmModel creates a confirmation model for a pending publish.
func NewConfirmModel(summary PublishSummary) ConfirmModel {
	return ConfirmModel{
		summary: summary,
		keymap:  defaultConfirmKeyMap(),
		styles:  defaultConfirmStyles(),
	}
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keymap.Accept):
		m.result = ConfirmAccepted
		return m, tea.Quit
	case key.Matches(keyMsg, m.keymap.Reject), key.Matches(keyMsg, m.keymap.Quit):
		m.result = ConfirmRejected
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Publish release?"))
	b.WriteString("\n\n")

	rows := []struct{ label, value string }{
		{"Version", m.summary.Version},
		{"Tag", m.summary.Tag},
		{"Branch", m.summary.Branch},
		{"Publisher", m.summary.Publisher},
	}
	if m.summary.GroupID != "" {
		rows = append(rows, struct{ label, value string }{"Group", m.summary.GroupID})
	}
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s\n",
			m.styles.label.Render(fmt.Sprintf("%-10s", row.label+":")),
			m.styles.value.Render(row.value)))
	}
	if len(m.summary.Artifacts) > 0 {
		b.WriteString(fmt.Sprintf("%s %s\n",
			m.styles.label.Render(fmt.Sprintf("%-10s", "Artifacts:")),
			strings.Join(m.summary.Artifacts, ", ")))
	}

	b.WriteString("\n")
	if m.summary.DryRun {
		b.WriteString(m.styles.warning.Render("Dry run: nothing will be delivered."))
	} else {
		b.WriteString(m.styles.warning.Render("Publishing is not reversible and is never retried automatically."))
	}
	b.WriteString("\n\n")
	b.WriteString(m.styles.help.Render("y/enter publish  •  n/esc abort"))

	return m.styles.border.Render(b.String())
}

// Result returns the decision once the program has finished.
func (m ConfirmModel) Result() ConfirmResult {
	return m.result
}

// ConfirmPublish runs the confirmation prompt and reports whether the
// operator approved the publish step.
func ConfirmPublish(summary PublishSummary) (bool, error) {
	program := tea.NewProgram(NewConfirmModel(summary))
	finalModel, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}

	model, ok := finalModel.(ConfirmModel)
	if !ok {
		return false, fmt.Errorf("unexpected model type from confirmation prompt")
	}
	return model.Result() == ConfirmAccepted, nil
}
