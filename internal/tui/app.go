package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// mode tracks which part of the dashboard has focus.
type mode int

const (
	modeBrowse mode = iota
	modePrompt
)

// App is the reputation dashboard model.
type App struct {
	client *Client

	servers list.Model
	prompt  textinput.Model
	mode    mode

	lastResult string
	lastErr    error
	width      int
	height     int
}

// NewApp creates the dashboard for the given API address.
func NewApp(apiAddr string) *App {
	prompt := textinput.New()
	prompt.Placeholder = "task prompt"
	prompt.CharLimit = 200

	return &App{
		client:  NewClient(apiAddr),
		servers: newServerList(),
		prompt:  prompt,
	}
}

// Run starts the TUI event loop.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init loads the initial server listing.
func (a *App) Init() tea.Cmd {
	return a.refresh()
}

// Update handles TUI events.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.servers.SetSize(msg.Width-2, msg.Height-8)
		return a, nil

	case serversLoadedMsg:
		a.lastErr = nil
		return a, a.servers.SetItems(serverItems(msg.servers))

	case execDoneMsg:
		a.lastErr = nil
		a.lastResult = summarizeResult(msg)
		return a, a.refresh()

	case errMsg:
		a.lastErr = msg.err
		return a, nil

	case tea.KeyMsg:
		if a.mode == modePrompt {
			return a.updatePrompt(msg)
		}
		return a.updateBrowse(msg)
	}

	var cmd tea.Cmd
	a.servers, cmd = a.servers.Update(msg)
	return a, cmd
}

func (a *App) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "r":
		return a, a.refresh()
	case "e", "enter":
		if _, ok := a.servers.SelectedItem().(ServerItem); ok {
			a.mode = modePrompt
			a.prompt.Focus()
			return a, textinput.Blink
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.servers, cmd = a.servers.Update(msg)
	return a, cmd
}

func (a *App) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeBrowse
		a.prompt.Blur()
		a.prompt.Reset()
		return a, nil
	case "enter":
		item, ok := a.servers.SelectedItem().(ServerItem)
		prompt := a.prompt.Value()
		a.mode = modeBrowse
		a.prompt.Blur()
		a.prompt.Reset()
		if !ok || prompt == "" {
			return a, nil
		}
		// Routing picks the server; the selection only supplies the
		// capability to request.
		return a, a.execute(item.Capability, prompt)
	}

	var cmd tea.Cmd
	a.prompt, cmd = a.prompt.Update(msg)
	return a, cmd
}

// View renders the dashboard.
func (a *App) View() string {
	view := a.servers.View() + "\n"

	if a.mode == modePrompt {
		view += a.prompt.View() + "\n"
	}

	if a.lastErr != nil {
		view += errStyle.Render("error: "+a.lastErr.Error()) + "\n"
	} else if a.lastResult != "" {
		view += resultStyle.Render(a.lastResult) + "\n"
	}

	view += statusBarStyle.Render("enter: run task • r: refresh • q: quit")
	return view
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		servers, err := a.client.ListServers()
		if err != nil {
			return errMsg{err}
		}
		return serversLoadedMsg{servers}
	}
}

func (a *App) execute(capability, prompt string) tea.Cmd {
	return func() tea.Msg {
		result, err := a.client.ExecuteTask(capability, prompt)
		if err != nil {
			return errMsg{err}
		}
		return execDoneMsg{result}
	}
}

func summarizeResult(msg execDoneMsg) string {
	r := msg.result
	if r.Decision.Blocked {
		return fmt.Sprintf("BLOCKED: %s", r.Decision.Reason)
	}

	summary := fmt.Sprintf("SELECT %s (score %.4f)", r.Decision.ServerID, r.Decision.Score)
	if r.Decision.Probe {
		summary = fmt.Sprintf("PROBE %s (score %.4f)", r.Decision.ServerID, r.Decision.Score)
	}
	if fb := r.Feedback; fb != nil {
		summary += fmt.Sprintf("\n%s • %.4f -> %.4f", fb.Transaction.Status, fb.PreviousScore, fb.NewScore)
	}
	if r.Output != "" {
		summary += "\n" + r.Output
	}
	return summary
}
