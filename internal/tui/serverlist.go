package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/trustplane/trustplane/internal/controlplane"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	scoreHigh    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	scoreLow     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	scoreNeutral = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
)

// ServerItem implements list.Item for the server list.
type ServerItem struct {
	ID               string
	Capability       string
	Score            float64
	InteractionCount int
	Selectable       bool
}

func (i ServerItem) FilterValue() string { return i.ID }
func (i ServerItem) Title() string       { return i.ID }
func (i ServerItem) Description() string {
	return fmt.Sprintf("%s • %s • %d interactions", formatScore(i.Score, i.Selectable), i.Capability, i.InteractionCount)
}

func formatScore(score float64, selectable bool) string {
	text := fmt.Sprintf("● %.4f", score)
	switch {
	case !selectable:
		return scoreLow.Render(text + " blocked")
	case score >= 0.85:
		return scoreHigh.Render(text)
	default:
		return scoreNeutral.Render(text)
	}
}

// newServerList builds the server list widget.
func newServerList() list.Model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Servers"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.Styles.Title = listTitleStyle
	return l
}

// serverItems converts API statuses into list items.
func serverItems(servers []controlplane.ServerStatus) []list.Item {
	items := make([]list.Item, 0, len(servers))
	for _, s := range servers {
		items = append(items, ServerItem{
			ID:               s.ID,
			Capability:       string(s.Capability),
			Score:            s.Score,
			InteractionCount: s.InteractionCount,
			Selectable:       s.Selectable,
		})
	}
	return items
}
