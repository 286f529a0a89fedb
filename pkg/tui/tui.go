// Package tui provides a terminal user interface for tickseq
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tickseq/tickseq/pkg/converter"
	"github.com/tickseq/tickseq/pkg/render"
	"github.com/tickseq/tickseq/pkg/sequence"
)

// Sequencer-grid colors
var (
	gridCyan   = lipgloss.Color("#00E5FF")
	gridAmber  = lipgloss.Color("#FFB300")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(gridCyan).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(gridCyan).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(gridAmber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(gridCyan).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(gridAmber)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(gridCyan).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// Action is what a menu entry does with the picked file
type Action int

const (
	ActionNone Action = iota
	ActionImport
	ActionExport
	ActionRender
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
	Allowed     []string
}

var menuItems = []MenuItem{
	{Title: "MIDI → TICKS", Description: "Quantize a MIDI file into a .ticks.json sequence", Action: ActionImport, Allowed: []string{".mid", ".midi"}},
	{Title: "TICKS → MIDI", Description: "Rebuild a MIDI file from a tick sequence", Action: ActionExport, Allowed: []string{".json"}},
	{Title: "MIDI → PNG", Description: "Draw the tick sequence of a MIDI file as a piano roll", Action: ActionRender, Allowed: []string{".mid", ".midi"}},
	{Title: "Exit", Description: "Exit the application", Action: ActionNone},
}

// Model represents the TUI model
type Model struct {
	conv         *converter.Converter
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	conversion   MenuItem
	stats        sequence.Stats
	diag         *converter.Diagnostics
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	stats      sequence.Stats
	diag       *converter.Diagnostics
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model around conv
func New(conv *converter.Converter) Model {
	if conv == nil {
		conv = converter.New(nil, nil, nil)
	}

	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi", ".json"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(gridCyan)

	return Model{
		conv:       conv,
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs to receive all messages while it is shown
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.stats = msg.stats
		m.diag = msg.diag
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if menuItems[m.menuIndex].Action == ActionNone {
			return m, tea.Quit
		}
		m.conversion = menuItems[m.menuIndex]
		m.state = StateFilePicker
		m.filePicker.AllowedTypes = m.conversion.Allowed
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.diag = nil
		m.stats = sequence.Stats{}
		m.selectedFile = ""
		m.outputFile = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performConversion() tea.Cmd {
	conv, item, input := m.conv, m.conversion, m.selectedFile
	return func() tea.Msg {
		switch item.Action {
		case ActionImport:
			output := converter.OutputPath(input, converter.FormatTicks)
			diag, err := conv.ConvertFile(input, output)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			seq, err := sequence.ReadFile(output)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			return conversionDoneMsg{outputFile: output, stats: seq.Stats(), diag: diag}

		case ActionExport:
			seq, err := sequence.ReadFile(input)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			data, diag, err := conv.Exporter().ExportMIDI(seq)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			output := converter.OutputPath(input, converter.FormatMIDI)
			if err := os.WriteFile(output, data, 0644); err != nil {
				return conversionDoneMsg{err: err}
			}
			return conversionDoneMsg{outputFile: output, stats: seq.Stats(), diag: diag}

		case ActionRender:
			data, err := os.ReadFile(input)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			seq, diag, err := conv.Importer().ImportMIDI(data)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			output := strings.TrimSuffix(input, filepath.Ext(input)) + ".png"
			if err := render.SavePNG(output, seq, render.DefaultOptions); err != nil {
				return conversionDoneMsg{err: err}
			}
			return conversionDoneMsg{outputFile: output, stats: seq.Stats(), diag: diag}
		}
		return conversionDoneMsg{err: fmt.Errorf("unsupported action %d", item.Action)}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT CONVERSION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(gridAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	s.WriteString(statusStyle.Render(fmt.Sprintf("%d controller mappings loaded", m.conv.Table().Len())))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT FILE FOR %s ", m.conversion.Title)))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CONVERTING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Converting %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render("  " + m.conversion.Title))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Conversion failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s\n", filepath.Base(m.outputFile)))
		s.WriteString(fmt.Sprintf("Ticks:  %d (%.2fs)\n", m.stats.Ticks, m.stats.Duration))
		s.WriteString(fmt.Sprintf("Notes:  %d  Bends: %d  CCs: %d", m.stats.NoteStarts, m.stats.PitchBends, m.stats.ControlChanges))
		if m.diag != nil && m.diag.HasAnomalies() {
			s.WriteString("\n\n")
			s.WriteString(warnStyle.Render("Skipped: " + m.diag.Summary()))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
  _   _      _
 | |_(_) ___| | _____  ___  __ _
 | __| |/ __| |/ / __|/ _ \/ _' |
 | |_| | (__|   <\__ \  __/ (_| |
  \__|_|\___|_|\_\___/\___|\__, |
                              |_|
`
	return lipgloss.NewStyle().Foreground(gridCyan).Render(logo)
}

// Run starts the TUI application
func Run(conv *converter.Converter) error {
	p := tea.NewProgram(New(conv), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
