package feedview

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/docflow/internal/activity"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/theme"
)

// ActivityItem wraps a model.Activity so it can be used in a bubbles/list.
type ActivityItem struct {
	Activity model.Activity
	Lang     activity.Lang
}

// FilterValue returns the string used for fuzzy filtering.
func (i ActivityItem) FilterValue() string {
	return activity.Title(i.Activity, i.Lang)
}

// ItemDelegate implements list.ItemDelegate for activity rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws the icon, title, badge and time on the first line and the
// detail summary below it.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(ActivityItem)
	if !ok {
		return
	}
	a := it.Activity

	badge := activity.StatusBadge(a.Status, it.Lang)
	badgeStr := ""
	if badge.Text != "" {
		badgeStr = theme.BadgeStyle(string(badge.Kind)).Render(badge.Text)
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(activity.RelativeTime(a.Timestamp, time.Now(), it.Lang))

	line := fmt.Sprintf("%s %s %s  %s",
		activity.Icon(a.Type), activity.Title(a, it.Lang), badgeStr, timeStr)

	summary := activity.Details(a, it.Lang)
	if a.Actor != "" {
		if summary != "" {
			summary += " • "
		}
		summary += a.Actor
	}
	sub := theme.HelpStyle.Render("   " + summary)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line+"\n"+sub)
}
