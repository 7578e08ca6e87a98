package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary() PublishSummary {
	return PublishSummary{
		Version:   "2.0.16",
		Tag:       "v2.0.16",
		Branch:    "release/2.0.16",
		Publisher: "maven",
		GroupID:   "com.example.platform",
		Artifacts: []string{"core", "api"},
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestConfirmAccept(t *testing.T) {
	m := NewConfirmModel(testSummary())
	assert.Equal(t, ConfirmPending, m.Result())

	updated, cmd := m.Update(keyPress('y'))
	model, ok := updated.(ConfirmModel)
	require.True(t, ok)

	assert.Equal(t, ConfirmAccepted, model.Result())
	assert.NotNil(t, cmd, "accept must quit the program")
}

func TestConfirmAcceptWithEnter(t *testing.T) {
	m := NewConfirmModel(testSummary())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model := updated.(ConfirmModel)
	assert.Equal(t, ConfirmAccepted, model.Result())
}

func TestConfirmReject(t *testing.T) {
	m := NewConfirmModel(testSummary())

	updated, cmd := m.Update(keyPress('n'))
	model := updated.(ConfirmModel)

	assert.Equal(t, ConfirmRejected, model.Result())
	assert.NotNil(t, cmd)
}

func TestConfirmRejectWithCtrlC(t *testing.T) {
	m := NewConfirmModel(testSummary())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	model := updated.(ConfirmModel)
	assert.Equal(t, ConfirmRejected, model.Result())
}

func TestConfirmIgnoresUnboundKeys(t *testing.T) {
	m := NewConfirmModel(testSummary())

	updated, cmd := m.Update(keyPress('x'))
	model := updated.(ConfirmModel)

	assert.Equal(t, ConfirmPending, model.Result())
	assert.Nil(t, cmd)
}

func TestConfirmView(t *testing.T) {
	view := NewConfirmModel(testSummary()).View()

	assert.Contains(t, view, "2.0.16")
	assert.Contains(t, view, "v2.0.16")
	assert.Contains(t, view, "release/2.0.16")
	assert.Contains(t, view, "maven")
	assert.Contains(t, view, "com.example.platform")
	assert.Contains(t, view, "never retried")
}

func TestConfirmViewDryRun(t *testing.T) {
	summary := testSummary()
	summary.DryRun = true

	view := NewConfirmModel(summary).View()
	assert.Contains(t, view, "Dry run")
}
