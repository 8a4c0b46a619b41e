// Package tui provides a terminal dashboard for learning goals.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"devtracker/internal/goals"
)

// GoalStore is the subset of the goal store the dashboard needs.
type GoalStore interface {
	List(ctx context.Context, category string) ([]goals.Goal, error)
	Create(ctx context.Context, title, description, category string) (*goals.Goal, error)
	AddProgress(ctx context.Context, id, text string) (*goals.Goal, error)
	ToggleComplete(ctx context.Context, id string) (*goals.Goal, error)
	Delete(ctx context.Context, id string) error
}

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
	ModeProgress
	ModeFilter
	ModeHelp
	ModeConfirmDelete
)

// Model represents the dashboard state
type Model struct {
	store GoalStore
	ctx   context.Context

	// Data
	goals       []goals.Goal
	filteredIdx []int // indices into goals slice for filtered view

	// Selection
	cursor int

	// Mode and input
	mode      Mode
	textInput textinput.Model
	filter    string
	errText   string

	// UI dimensions
	width  int
	height int

	// Styles
	paneStyle      lipgloss.Style
	selectedStyle  lipgloss.Style
	completedStyle lipgloss.Style
	categoryStyle  lipgloss.Style
	noteStyle      lipgloss.Style
	helpStyle      lipgloss.Style
	dialogStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
	errorStyle     lipgloss.Style
}

// Message types
type goalsLoadedMsg struct {
	goals []goals.Goal
}

type goalCreatedMsg struct {
	goal *goals.Goal
}

type goalUpdatedMsg struct {
	goal *goals.Goal
}

type goalDeletedMsg struct {
	goalID string
}

type errMsg struct {
	err error
}

// New creates a new dashboard model
func New(store GoalStore) *Model {
	ti := textinput.New()
	ti.Placeholder = "Enter text..."
	ti.CharLimit = 256

	return &Model{
		store:     store,
		ctx:       context.Background(),
		textInput: ti,
		mode:      ModeNormal,
		paneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		completedStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		categoryStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("111")),
		noteStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}

// Init initializes the dashboard
func (m *Model) Init() tea.Cmd {
	return m.loadGoals()
}

func (m *Model) loadGoals() tea.Cmd {
	return func() tea.Msg {
		loaded, err := m.store.List(m.ctx, "")
		if err != nil {
			return errMsg{err}
		}
		return goalsLoadedMsg{loaded}
	}
}

func (m *Model) createGoal(title string) tea.Cmd {
	return func() tea.Msg {
		created, err := m.store.Create(m.ctx, title, "", "")
		if err != nil {
			return errMsg{err}
		}
		return goalCreatedMsg{created}
	}
}

func (m *Model) addProgress(goalID, text string) tea.Cmd {
	return func() tea.Msg {
		updated, err := m.store.AddProgress(m.ctx, goalID, text)
		if err != nil {
			return errMsg{err}
		}
		return goalUpdatedMsg{updated}
	}
}

func (m *Model) toggleComplete(goalID string) tea.Cmd {
	return func() tea.Msg {
		updated, err := m.store.ToggleComplete(m.ctx, goalID)
		if err != nil {
			return errMsg{err}
		}
		return goalUpdatedMsg{updated}
	}
}

// selectedGoal returns the goal under the cursor, or nil.
func (m *Model) selectedGoal() *goals.Goal {
	if len(m.filteredIdx) == 0 || m.cursor >= len(m.filteredIdx) {
		return nil
	}
	return &m.goals[m.filteredIdx[m.cursor]]
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case goalsLoadedMsg:
		m.goals = msg.goals
		m.applyFilter()
		return m, nil

	case goalCreatedMsg:
		m.goals = append([]goals.Goal{*msg.goal}, m.goals...)
		m.applyFilter()
		m.cursor = 0
		return m, nil

	case goalUpdatedMsg:
		for i, g := range m.goals {
			if g.ID == msg.goal.ID {
				m.goals[i] = *msg.goal
				break
			}
		}
		m.applyFilter()
		return m, nil

	case goalDeletedMsg:
		for i, g := range m.goals {
			if g.ID == msg.goalID {
				m.goals = append(m.goals[:i], m.goals[i+1:]...)
				break
			}
		}
		m.applyFilter()
		if m.cursor >= len(m.filteredIdx) && m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case errMsg:
		m.errText = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		m.errText = ""

		switch m.mode {
		case ModeAdd:
			return m.handleAddMode(msg)
		case ModeProgress:
			return m.handleProgressMode(msg)
		case ModeFilter:
			return m.handleFilterMode(msg)
		case ModeHelp:
			return m.handleHelpMode(msg)
		case ModeConfirmDelete:
			return m.handleConfirmDeleteMode(msg)
		}

		// Normal mode key handling
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "j":
			if m.cursor < len(m.filteredIdx)-1 {
				m.cursor++
			}
			return m, nil

		case "a":
			m.mode = ModeAdd
			m.textInput.Reset()
			m.textInput.Placeholder = "New goal title..."
			m.textInput.Focus()
			return m, textinput.Blink

		case "p":
			if m.selectedGoal() != nil {
				m.mode = ModeProgress
				m.textInput.Reset()
				m.textInput.Placeholder = "Progress note..."
				m.textInput.Focus()
				return m, textinput.Blink
			}
			return m, nil

		case "c":
			if goal := m.selectedGoal(); goal != nil {
				return m, m.toggleComplete(goal.ID)
			}
			return m, nil

		case "d":
			if m.selectedGoal() != nil {
				m.mode = ModeConfirmDelete
				return m, nil
			}
			return m, nil

		case "r":
			return m, m.loadGoals()

		case "/":
			m.mode = ModeFilter
			m.textInput.Reset()
			m.textInput.Placeholder = "Search..."
			m.textInput.Focus()
			return m, textinput.Blink

		case "?":
			m.mode = ModeHelp
			return m, nil
		}
	}

	// Update text input for modes that use it
	if m.mode == ModeAdd || m.mode == ModeProgress || m.mode == ModeFilter {
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		value := m.textInput.Value()
		m.mode = ModeNormal
		if value != "" {
			return m, m.createGoal(value)
		}
		return m, nil

	case tea.KeyEsc:
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleProgressMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		value := m.textInput.Value()
		goal := m.selectedGoal()
		m.mode = ModeNormal
		if value != "" && goal != nil {
			return m, m.addProgress(goal.ID, value)
		}
		return m, nil

	case tea.KeyEsc:
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleFilterMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		m.filter = m.textInput.Value()
		m.applyFilter()
		m.mode = ModeNormal
		return m, nil

	case tea.KeyEsc:
		m.filter = ""
		m.applyFilter()
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.mode = ModeNormal
		return m, nil
	}

	if msg.String() == "q" {
		m.mode = ModeNormal
		return m, nil
	}

	return m, nil
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		goal := m.selectedGoal()
		m.mode = ModeNormal
		if goal == nil {
			return m, nil
		}
		goalID := goal.ID
		return m, func() tea.Msg {
			if err := m.store.Delete(m.ctx, goalID); err != nil {
				return errMsg{err}
			}
			return goalDeletedMsg{goalID}
		}

	case "n", "N":
		m.mode = ModeNormal
		return m, nil
	}

	if msg.Type == tea.KeyEsc {
		m.mode = ModeNormal
		return m, nil
	}

	return m, nil
}

func (m *Model) applyFilter() {
	m.filteredIdx = nil
	for i, goal := range m.goals {
		if m.filter == "" ||
			strings.Contains(strings.ToLower(goal.Title), strings.ToLower(m.filter)) ||
			strings.Contains(strings.ToLower(goal.Category), strings.ToLower(m.filter)) {
			m.filteredIdx = append(m.filteredIdx, i)
		}
	}
	if m.cursor >= len(m.filteredIdx) {
		m.cursor = 0
	}
}

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeAdd:
		return m.renderInputDialog("Add goal")
	case ModeProgress:
		return m.renderInputDialog("Add progress note")
	case ModeFilter:
		return m.renderInputDialog("Filter goals")
	case ModeHelp:
		return m.renderHelpDialog()
	case ModeConfirmDelete:
		return m.renderConfirmDeleteDialog()
	}

	var b strings.Builder

	content := m.renderGoalPane(m.width - 6)
	pane := m.paneStyle.Width(m.width - 2).Height(m.height - 4).Render(content)

	b.WriteString(pane)
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return b.String()
}

func (m *Model) renderGoalPane(width int) string {
	var b strings.Builder
	b.WriteString("Goals\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	if len(m.filteredIdx) == 0 {
		b.WriteString("No goals. Press 'a' to add one.\n")
		return b.String()
	}

	for fi, idx := range m.filteredIdx {
		goal := m.goals[idx]

		cursor := " "
		if fi == m.cursor {
			cursor = ">"
		}

		check := "[ ]"
		if goal.Completed {
			check = "[x]"
		}

		line := fmt.Sprintf("%s %s", check, goal.Title)
		switch {
		case goal.Completed:
			line = m.completedStyle.Render(line)
		case fi == m.cursor:
			line = m.selectedStyle.Render(line)
		}

		b.WriteString(cursor + " " + line)
		if goal.Category != "" {
			b.WriteString(" " + m.categoryStyle.Render("("+goal.Category+")"))
		}
		b.WriteString("\n")

		// Show the latest progress note for the selected goal
		if fi == m.cursor && len(goal.Progress) > 0 {
			last := goal.Progress[len(goal.Progress)-1]
			note := fmt.Sprintf("    last: %s (%s)", last.Text, last.Timestamp.Format("2006-01-02"))
			b.WriteString(m.noteStyle.Render(note))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m *Model) renderStatusBar() string {
	status := fmt.Sprintf("%d goals", len(m.filteredIdx))
	if m.filter != "" {
		status += fmt.Sprintf(" (filter: %s)", m.filter)
	}
	if m.errText != "" {
		status += "  " + m.errorStyle.Render(m.errText)
	}
	help := m.helpStyle.Render("a:add p:progress c:complete d:delete /:filter ?:help q:quit")
	return m.statusBarStyle.Width(m.width - 2).Render(status + "  " + help)
}

func (m *Model) renderInputDialog(title string) string {
	content := title + "\n\n" + m.textInput.View() + "\n\n" + m.helpStyle.Render("enter: confirm  esc: cancel")
	return m.centerDialog(m.dialogStyle.Render(content))
}

func (m *Model) renderHelpDialog() string {
	help := strings.Join([]string{
		"Keys",
		"",
		"  a       add a goal",
		"  p       add a progress note",
		"  c       toggle completion",
		"  d       delete (with confirm)",
		"  r       reload from disk",
		"  /       filter by title or category",
		"  j/k     move cursor",
		"  q       quit",
		"",
		m.helpStyle.Render("esc: close"),
	}, "\n")
	return m.centerDialog(m.dialogStyle.Render(help))
}

func (m *Model) renderConfirmDeleteDialog() string {
	title := ""
	if goal := m.selectedGoal(); goal != nil {
		title = goal.Title
	}
	content := fmt.Sprintf("Delete goal %q?\n\n%s", title, m.helpStyle.Render("y: delete  n: cancel"))
	return m.centerDialog(m.dialogStyle.Render(content))
}

func (m *Model) centerDialog(dialog string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
