// Package tui is a terminal note browser for knote.
package tui

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Laisky/knote/internal/web/note/model"
)

var htmlTagRegexp = regexp.MustCompile(`<[^>]*>`)

// NoteService is what the TUI needs from the note service
type NoteService interface {
	ListAll(ctx context.Context) ([]*model.Note, error)
	Publish(ctx context.Context, description string) (*model.Note, error)
}

// ViewState represents the current view state of the TUI
type ViewState int

const (
	// ViewList shows all notes, newest first
	ViewList ViewState = iota
	// ViewCompose is the new note editor
	ViewCompose
	// ViewLoading is shown while talking to the store
	ViewLoading
)

// NoteItem is a note shown in the list
type NoteItem struct {
	note *model.Note
}

// Title returns the first line of the note text (implements list.Item)
func (i NoteItem) Title() string {
	text := plainText(i.note)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}

	return text
}

// Description returns the note id and creation time (implements list.Item)
func (i NoteItem) Description() string {
	if i.note.CreatedAt.IsZero() {
		return "#" + i.note.ID
	}

	return "#" + i.note.ID + " • " + i.note.CreatedAt.Local().Format("2006-01-02 15:04")
}

// FilterValue returns the filter value (implements list.Item)
func (i NoteItem) FilterValue() string { return plainText(i.note) }

// plainText strips html from rendered notes
func plainText(note *model.Note) string {
	text := note.Description
	if note.Rendered {
		text = html.UnescapeString(htmlTagRegexp.ReplaceAllString(text, ""))
	}

	return strings.TrimSpace(text)
}

type notesLoadedMsg struct {
	notes []*model.Note
	err   error
}

type notePublishedMsg struct {
	note *model.Note
	err  error
}

// Model is the main TUI model following the Bubble Tea architecture
type Model struct {
	ctx context.Context
	svc NoteService

	// Current view state
	state ViewState

	// Note list
	noteList list.Model

	// Editor of the new note
	input textinput.Model

	// Spinner for loading states
	spinner spinner.Model

	// Status line, like "note published"
	status string

	// Error message if any
	err error

	// Window dimensions
	width  int
	height int

	// Quitting state
	quitting bool
}

// keyMap defines the key bindings for the TUI
type keyMap struct {
	New     key.Binding
	Enter   key.Binding
	Back    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new note"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "publish"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel creates a new TUI model backed by svc
func NewModel(ctx context.Context, svc NoteService) Model {
	// Create custom delegate for the list
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(primaryColor).
		BorderForeground(primaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(secondaryColor)

	noteList := list.New(nil, delegate, 80, 20)
	noteList.Title = "knote"
	noteList.SetShowStatusBar(false)
	noteList.SetFilteringEnabled(false)
	noteList.Styles.Title = GetHeaderStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = GetProgressStyle()

	return Model{
		ctx:      ctx,
		svc:      svc,
		state:    ViewLoading,
		noteList: noteList,
		input:    newNoteInput(),
		spinner:  sp,
	}
}

// newNoteInput creates the editor of the new note
func newNoteInput() textinput.Model {
	input := textinput.New()
	input.Placeholder = "write in markdown"
	input.CharLimit = 4096
	input.Width = 60
	input.Prompt = "✏️ "
	input.PromptStyle = GetInputLabelStyle()
	return input
}

// Init loads notes
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadNotes(),
	)
}

func (m Model) loadNotes() tea.Cmd {
	return func() tea.Msg {
		notes, err := m.svc.ListAll(m.ctx)
		return notesLoadedMsg{notes: notes, err: err}
	}
}

func (m Model) publishNote(description string) tea.Cmd {
	return func() tea.Msg {
		note, err := m.svc.Publish(m.ctx, description)
		return notePublishedMsg{note: note, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.noteList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case ViewList:
			return m.handleListView(msg)
		case ViewCompose:
			return m.handleComposeView(msg)
		case ViewLoading:
			if key.Matches(msg, keys.Quit) {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}

	case spinner.TickMsg:
		if m.state == ViewLoading {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case notesLoadedMsg:
		m.state = ViewList
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}

		items := make([]list.Item, 0, len(msg.notes))
		for _, n := range msg.notes {
			items = append(items, NoteItem{note: n})
		}
		return m, m.noteList.SetItems(items)

	case notePublishedMsg:
		if msg.err != nil {
			m.state = ViewCompose
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.input.Reset()
		if msg.note == nil {
			m.status = "blank note ignored"
			m.state = ViewList
			return m, nil
		}

		m.status = "note #" + msg.note.ID + " published"
		m.state = ViewLoading
		return m, tea.Batch(m.spinner.Tick, m.loadNotes())
	}

	if m.state == ViewList {
		m.noteList, cmd = m.noteList.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleListView handles key events in the note list
func (m Model) handleListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.New):
		m.state = ViewCompose
		m.status = ""
		m.err = nil
		return m, m.input.Focus()

	case key.Matches(msg, keys.Refresh):
		m.state = ViewLoading
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, m.loadNotes())
	}

	var cmd tea.Cmd
	m.noteList, cmd = m.noteList.Update(msg)
	return m, cmd
}

// handleComposeView handles key events in the editor
func (m Model) handleComposeView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.input.Blur()
		m.state = ViewList
		return m, nil

	case key.Matches(msg, keys.Enter):
		m.input.Blur()
		m.state = ViewLoading
		return m, tea.Batch(m.spinner.Tick, m.publishNote(m.input.Value()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return GetSubtitleStyle().Render("Goodbye! 👋\n")
	}

	switch m.state {
	case ViewList:
		return m.renderList()
	case ViewCompose:
		return m.renderCompose()
	case ViewLoading:
		return m.renderLoading()
	default:
		return "Unknown state"
	}
}

// renderList renders the note list
func (m Model) renderList() string {
	parts := []string{m.noteList.View()}
	if len(m.noteList.Items()) == 0 && m.err == nil {
		parts = append(parts, GetSubtitleStyle().Render("No notes yet."))
	}

	parts = append(parts, m.renderStatus(),
		GetHelpStyle().Render("↑/↓ navigate • n new note • r refresh • q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderCompose renders the editor
func (m Model) renderCompose() string {
	var sb strings.Builder

	sb.WriteString(GetHeaderStyle().Render("New Note") + "\n\n")
	sb.WriteString(m.input.View() + "\n\n")
	if status := m.renderStatus(); status != "" {
		sb.WriteString(status + "\n")
	}
	sb.WriteString(GetHelpStyle().Render("enter: publish • esc: back"))

	return GetBoxStyle().Render(sb.String())
}

// renderLoading renders the loading view
func (m Model) renderLoading() string {
	return GetBoxStyle().Render(
		lipgloss.JoinVertical(lipgloss.Center,
			m.spinner.View()+" Loading...",
			GetSubtitleStyle().Render("Please wait..."),
		),
	)
}

func (m Model) renderStatus() string {
	switch {
	case m.err != nil:
		return GetErrorStyle().Render("❌ " + m.err.Error())
	case m.status != "":
		return GetSuccessStyle().Render("✅ " + m.status)
	default:
		return ""
	}
}
