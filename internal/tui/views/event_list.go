package views

import (
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/rtlink/internal/api"
	"github.com/matheus3301/rtlink/internal/tui/ui"
)

const maxPayloadWidth = 120

// EventList shows the daemon's journal, newest first.
type EventList struct {
	*tview.Table
	theme  *ui.Theme
	filter string
}

// NewEventList creates a new journal table.
func NewEventList(theme *ui.Theme) *EventList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	el := &EventList{Table: table, theme: theme}
	el.Update(nil)
	return el
}

// Name implements Component.
func (el *EventList) Name() string { return "Events" }

// Hints implements Component.
func (el *EventList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "/", Description: "Filter"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetFilter keeps only entries whose name, category or conversation
// contains text.
func (el *EventList) SetFilter(text string) {
	el.filter = strings.ToLower(strings.TrimSpace(text))
}

// Filter returns the active filter.
func (el *EventList) Filter() string {
	return el.filter
}

// Update renders entries that pass the filter.
func (el *EventList) Update(entries []api.EventEntry) {
	el.Clear()
	for col, h := range []string{"TIME", "CATEGORY", "NAME", "CONVERSATION", "PAYLOAD"} {
		el.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(el.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	shown := 0
	for _, e := range entries {
		if !el.matches(e) {
			continue
		}
		shown++
		row := shown
		ts := time.UnixMilli(e.CreatedAtMs).Format("15:04:05.000")
		el.SetCell(row, 0, tview.NewTableCell(ts).SetTextColor(el.theme.CounterColor))
		el.SetCell(row, 1, tview.NewTableCell(e.Category).SetTextColor(el.categoryColor(e.Category)))
		el.SetCell(row, 2, tview.NewTableCell(e.Name).SetTextColor(el.theme.FgColor))
		el.SetCell(row, 3, tview.NewTableCell(sanitizeForTerminal(e.ConversationID)).SetTextColor(el.theme.FgColor))
		el.SetCell(row, 4, tview.NewTableCell(sanitizeForTerminal(truncate(e.Payload, maxPayloadWidth))).
			SetTextColor(el.theme.FgColor).
			SetExpansion(1))
	}

	title := " Events "
	if el.filter != "" {
		title = " Events /" + el.filter + " "
	}
	el.SetTitle(title)
}

func (el *EventList) matches(e api.EventEntry) bool {
	if el.filter == "" {
		return true
	}
	for _, field := range []string{e.Name, e.Category, e.ConversationID} {
		if strings.Contains(strings.ToLower(field), el.filter) {
			return true
		}
	}
	return false
}

func (el *EventList) categoryColor(category string) tcell.Color {
	switch category {
	case "attempt":
		return el.theme.StateDownColor
	case "signal":
		return el.theme.StatePendingColor
	default:
		return el.theme.StateUpColor
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
