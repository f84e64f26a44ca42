package views

import (
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/rtlink/internal/tui/ui"
)

// ConversationList shows the joined conversations and which of them have a
// typing indicator running.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	joined []string
	typing []string
}

// NewConversationList creates a new conversation table.
func NewConversationList(theme *ui.Theme) *ConversationList {
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
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
	}
	cl.render()
	return cl
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "t", Description: "Typing"},
		{Key: "r", Description: "Mark read"},
		{Key: "x", Description: "Leave"},
		{Key: ":", Description: "Command"},
	}
}

// Update replaces the displayed conversations, keeping the cursor on the
// same conversation when it is still joined.
func (cl *ConversationList) Update(joined, typing []string) {
	selected := cl.Selected()
	cl.joined = slices.Clone(joined)
	cl.typing = slices.Clone(typing)
	cl.render()

	if i := slices.Index(cl.joined, selected); i >= 0 {
		cl.Select(i+1, 0)
	}
}

// Selected returns the conversation under the cursor, or "".
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	if row < 1 || row > len(cl.joined) {
		return ""
	}
	return cl.joined[row-1]
}

// IsTyping reports whether id has a live typing indicator.
func (cl *ConversationList) IsTyping(id string) bool {
	return slices.Contains(cl.typing, id)
}

func (cl *ConversationList) render() {
	cl.Clear()
	header := func(col int, text string) {
		cl.SetCell(0, col, tview.NewTableCell(text).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false).
			SetExpansion(1))
	}
	header(0, "CONVERSATION")
	header(1, "TYPING")

	if len(cl.joined) == 0 {
		cl.SetCell(1, 0, tview.NewTableCell("no conversations joined").
			SetTextColor(cl.theme.FgColor).
			SetSelectable(false))
		return
	}
	for i, id := range cl.joined {
		mark := ""
		if cl.IsTyping(id) {
			mark = "typing…"
		}
		cl.SetCell(i+1, 0, tview.NewTableCell(sanitizeForTerminal(id)).SetTextColor(cl.theme.FgColor).SetExpansion(1))
		cl.SetCell(i+1, 1, tview.NewTableCell(mark).SetTextColor(cl.theme.StatePendingColor).SetExpansion(1))
	}
}
